/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with employees,
	holidays and a year of pay runs, so the ledger shows how the capped
	contribution engine behaves over time.

AVAILABLE SCENARIOS:

	high-earner:     Monthly 200,000 salary crossing the OASDI wage base
	mid-year-hire:   Biweekly employee hired mid-period, first check prorated
	mixed-schedules: Weekly, semimonthly and quarterly employees side by side
	termination:     Employee leaving mid-period, last check prorated

All scenarios use tax year 2020 so the numbers are stable.

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create holidays
 3. Create employees
 4. Run payroll for every pay period through the scenario's end date

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "high-earner"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: pay run handlers
  - payrun/processor.go: Processor
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payrun"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "high-earner",
		Name:        "High Earner",
		Description: "Monthly 200,000 salary: FUTA caps in January, OASDI caps in September",
	},
	{
		ID:          "mid-year-hire",
		Name:        "Mid-Year Hire",
		Description: "Biweekly employee hired mid-period with a holiday in the first period",
	},
	{
		ID:          "mixed-schedules",
		Name:        "Mixed Schedules",
		Description: "Weekly, semimonthly and quarterly employees paid through Q1",
	},
	{
		ID:          "termination",
		Name:        "Termination",
		Description: "Semimonthly employee terminated mid-period, final check prorated",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "high-earner":
		load = h.loadHighEarnerScenario
	case "mid-year-hire":
		load = h.loadMidYearHireScenario
	case "mixed-schedules":
		load = h.loadMixedSchedulesScenario
	case "termination":
		load = h.loadTerminationScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()

	h.mu.Lock()
	defer h.mu.Unlock()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadHighEarnerScenario(ctx context.Context) error {
	emp := payrun.Employee{
		ID:         "emp-high-earner",
		Name:       "Dana Whitfield",
		AnnualWage: payroll.NewMoneyFromInt(200000),
		PayPeriod:  payroll.PayPeriodMonthly,
		HireDate:   payroll.NewDate(2019, time.March, 1),
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}
	// 12 x 16,666.67: OASDI reaches 137,700 with the September check.
	return h.payThrough(ctx, emp, payroll.NewDate(2020, time.January, 1), payroll.NewDate(2020, time.December, 31))
}

func (h *Handler) loadMidYearHireScenario(ctx context.Context) error {
	if err := h.addHolidays(ctx); err != nil {
		return err
	}

	emp := payrun.Employee{
		ID:         "emp-mid-year",
		Name:       "Sam Okafor",
		AnnualWage: payroll.NewMoneyFromInt(50000),
		PayPeriod:  payroll.PayPeriodBiweekly,
		HireDate:   payroll.NewDate(2020, time.June, 24),
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}
	return h.payThrough(ctx, emp, emp.HireDate, payroll.NewDate(2020, time.December, 31))
}

func (h *Handler) loadMixedSchedulesScenario(ctx context.Context) error {
	if err := h.addHolidays(ctx); err != nil {
		return err
	}

	hired := payroll.NewDate(2018, time.September, 3)
	employees := []payrun.Employee{
		{ID: "emp-weekly", Name: "Priya Raman", AnnualWage: payroll.NewMoneyFromInt(41600), PayPeriod: payroll.PayPeriodWeekly, HireDate: hired},
		{ID: "emp-semimonthly", Name: "Luis Ortega", AnnualWage: payroll.NewMoneyFromInt(96000), PayPeriod: payroll.PayPeriodSemimonthly, HireDate: hired},
		{ID: "emp-quarterly", Name: "Mei Tanaka", AnnualWage: payroll.NewMoneyFromInt(120000), PayPeriod: payroll.PayPeriodQuarterly, HireDate: hired},
	}

	from := payroll.NewDate(2020, time.January, 1)
	through := payroll.NewDate(2020, time.March, 31)
	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return err
		}
		if err := h.payThrough(ctx, emp, from, through); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadTerminationScenario(ctx context.Context) error {
	terminated := payroll.NewDate(2020, time.May, 20)
	emp := payrun.Employee{
		ID:              "emp-terminated",
		Name:            "Jordan Blake",
		AnnualWage:      payroll.NewMoneyFromInt(72000),
		PayPeriod:       payroll.PayPeriodSemimonthly,
		HireDate:        payroll.NewDate(2017, time.April, 10),
		TerminationDate: &terminated,
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}
	return h.payThrough(ctx, emp, payroll.NewDate(2020, time.January, 1), payroll.NewDate(2020, time.May, 31))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) addHolidays(ctx context.Context) error {
	holidays := []sqlite.Holiday{
		{Date: payroll.NewDate(2020, time.January, 1), Name: "New Year's Day", Recurring: true},
		{Date: payroll.NewDate(2020, time.July, 3), Name: "Independence Day (observed)"},
		{Date: payroll.NewDate(2020, time.November, 26), Name: "Thanksgiving"},
		{Date: payroll.NewDate(2020, time.December, 25), Name: "Christmas Day", Recurring: true},
	}
	for _, hol := range holidays {
		if err := h.Store.SaveHoliday(ctx, hol); err != nil {
			return err
		}
	}
	return nil
}

// payThrough runs payroll for every period of emp starting at the one
// containing from, up to the last period ending on or before through.
// Periods the employee did not work are skipped.
func (h *Handler) payThrough(ctx context.Context, emp payrun.Employee, from, through payroll.Date) error {
	for day := from; ; {
		period, err := h.Processor.PeriodFor(emp, day)
		if err != nil {
			return err
		}
		if period.End.After(through) {
			return nil
		}

		run := payrun.Run{ID: payrun.NewRunID(emp.PayPeriod, period), PayDate: period.End}
		if _, err := h.runBatch(ctx, run, []payrun.Employee{emp}); err != nil && !errors.Is(err, payrun.ErrNotEmployed) {
			return fmt.Errorf("pay run %s: %w", run.ID, err)
		}
		day = period.End.AddDays(1)
	}
}
