/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll engine and the pay-run pipeline via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Engine:
    POST   /api/contributions/compute      Compute one capped contribution
    GET    /api/periods                    Periods per year for every kind
    GET    /api/periods/{kind}             Periods per year for one kind
    GET    /api/wages                      Gross wages per period (cached)
    POST   /api/wages/prorate              Prorated gross wages

  Rates:
    GET    /api/rates                      Full rate table (rate file schema)
    GET    /api/rates/{year}               Configs of one tax year
    POST   /api/futa/liability             FUTA liability test

  Employees:
    GET    /api/employees                  List all employees
    POST   /api/employees                  Create or update employee
    GET    /api/employees/{id}             Get employee details
    POST   /api/employees/{id}/payruns     Run payroll for one employee
    GET    /api/employees/{id}/contributions  Ledger + year-to-date totals

  Pay runs:
    GET    /api/payruns                    Batch run log
    POST   /api/payruns                    Run payroll for many employees

  Holidays:
    GET    /api/holidays                   List holidays
    POST   /api/holidays                   Add a holiday (used by proration)

  Scenarios (scenarios.go):
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Reset and load a scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (ledger, employees, holidays, run log)
  - Rates: The tax rate table in force
  - Processor: The pay-run pipeline
  - Cache: Wage quote cache (memory or Redis)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator tags, then domain rules)
  3. Call domain logic (engine, processor, ledger)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, undefined pay period
  - 404: Employee or rate config not found
  - 409: Pay run already applied (idempotency)
  - 422: Employee not employed during the pay period
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/cache"
	"github.com/warp/payroll-engine/liability"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payrun"
	"github.com/warp/payroll-engine/ratetable"
	"github.com/warp/payroll-engine/store/sqlite"
)

// DefaultCacheTTL is how long a wage quote stays cached.
const DefaultCacheTTL = time.Hour

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store          *sqlite.Store
	Ledger         *payroll.Ledger
	Rates          *payroll.RateTable
	LiabilityRules map[payroll.TaxYear]string
	Liability      *liability.Evaluator
	Processor      *payrun.Processor
	Cache          cache.Cache
	CacheTTL       time.Duration

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler wires the ledger and pay-run processor onto store.
// anchor is the first day of any weekly/biweekly pay period.
func NewHandler(store *sqlite.Store, rates *payroll.RateTable, anchor payroll.Date) *Handler {
	ledger := payroll.NewLedger(store)
	processor := payrun.NewProcessor(ledger, rates, anchor)
	processor.Holidays = store

	evaluator, _ := liability.NewEvaluator(nil) // no overrides, cannot fail

	return &Handler{
		Store:     store,
		Ledger:    ledger,
		Rates:     rates,
		Liability: evaluator,
		Processor: processor,
		Cache:     cache.NewMemory(),
		CacheTTL:  DefaultCacheTTL,
	}
}

// =============================================================================
// CONTRIBUTION HANDLERS
// =============================================================================

// ComputeContribution runs the capped contribution engine once.
// POST /api/contributions/compute
func (h *Handler) ComputeContribution(w http.ResponseWriter, r *http.Request) {
	var req ComputeContributionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	year := payroll.TaxYear(req.Year)
	kind := payroll.TaxKind(req.Kind)
	side := payroll.Side(req.Side)

	var cfg payroll.TaxRateConfig
	if req.Rate != nil {
		wageCap, err := ratetable.ParseWageCap(req.WageCap)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid wage_cap", err)
			return
		}
		cfg = payroll.TaxRateConfig{Year: year, Kind: kind, Side: side, Rate: *req.Rate, WageCap: wageCap}
	} else {
		var err error
		if cfg, err = h.Rates.Lookup(year, kind, side); err != nil {
			writeDomainError(w, "No rate config", err)
			return
		}
	}

	contribution, err := payroll.ComputeContribution(cfg, req.Accumulated, req.Wages)
	contributionsComputed.WithLabelValues(req.Kind, req.Side, resultLabel(err)).Inc()
	if err != nil {
		writeDomainError(w, "Failed to compute contribution", err)
		return
	}

	rate := toRateConfigDTO(cfg)
	writeJSON(w, http.StatusOK, ContributionDTO{
		Year:             req.Year,
		Kind:             req.Kind,
		Side:             req.Side,
		Rate:             rate.Rate,
		WageCap:          rate.WageCap,
		MaxContribution:  rate.MaxContribution,
		Accumulated:      money(req.Accumulated),
		Wages:            money(req.Wages),
		Contribution:     money(contribution),
		AccumulatedAfter: money(req.Accumulated.Add(contribution)),
	})
}

// =============================================================================
// PERIOD & WAGE HANDLERS
// =============================================================================

// ListPeriods returns the period count of every concrete pay period kind.
// GET /api/periods
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	kinds := payroll.PayPeriodKinds()
	dtos := make([]PeriodsDTO, 0, len(kinds))
	for _, kind := range kinds {
		n, err := payroll.PeriodsPerYear(kind)
		if err != nil {
			writeDomainError(w, "Failed to count periods", err)
			return
		}
		dtos = append(dtos, PeriodsDTO{Kind: string(kind), PeriodsPerYear: n})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPeriods returns the number of pay periods per year for a kind.
// GET /api/periods/{kind}
func (h *Handler) GetPeriods(w http.ResponseWriter, r *http.Request) {
	kind, err := payroll.ParsePayPeriodKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeDomainError(w, "Invalid pay period", err)
		return
	}
	n, err := payroll.PeriodsPerYear(kind)
	if err != nil {
		writeDomainError(w, "Invalid pay period", err)
		return
	}
	writeJSON(w, http.StatusOK, PeriodsDTO{Kind: string(kind), PeriodsPerYear: n})
}

// GetWageQuote returns gross wages per period for an annual wage.
// Responses are cached; the X-Cache header reports HIT or MISS.
// GET /api/wages?annual_wage=50000&kind=biweekly
func (h *Handler) GetWageQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	annual, err := decimal.NewFromString(q.Get("annual_wage"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid annual_wage", err)
		return
	}
	kind, err := payroll.ParsePayPeriodKind(q.Get("kind"))
	if err != nil {
		writeDomainError(w, "Invalid pay period", err)
		return
	}

	key := "wages:" + string(kind) + ":" + annual.String()
	if cached, ok := h.Cache.Get(ctx, key); ok {
		wageQuoteCache.WithLabelValues("hit").Inc()
		w.Header().Set("X-Cache", "HIT")
		writeRawJSON(w, http.StatusOK, []byte(cached))
		return
	}
	wageQuoteCache.WithLabelValues("miss").Inc()

	periods, err := payroll.PeriodsPerYear(kind)
	if err != nil {
		writeDomainError(w, "Invalid pay period", err)
		return
	}
	gross, err := payroll.GrossWagesForPeriod(annual, kind)
	if err != nil {
		writeDomainError(w, "Failed to compute wages", err)
		return
	}

	body, err := json.Marshal(WageQuoteDTO{
		AnnualWage:     money(annual),
		Kind:           string(kind),
		PeriodsPerYear: periods,
		GrossWages:     money(gross),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode response", err)
		return
	}
	if err := h.Cache.Set(ctx, key, string(body), h.CacheTTL); err != nil {
		wageQuoteCache.WithLabelValues("set_error").Inc()
	}

	w.Header().Set("X-Cache", "MISS")
	writeRawJSON(w, http.StatusOK, body)
}

// ProrateWages returns gross wages for a partially worked period.
// POST /api/wages/prorate
func (h *Handler) ProrateWages(w http.ResponseWriter, r *http.Request) {
	var req ProrateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	kind, err := payroll.ParsePayPeriodKind(req.Kind)
	if err != nil {
		writeDomainError(w, "Invalid pay period", err)
		return
	}

	resp := ProrateDTO{AnnualWage: money(req.AnnualWage), Kind: string(kind)}
	worked, inPeriod := req.DaysWorked, req.DaysInPeriod

	if req.PayDate != "" {
		if req.HireDate == "" {
			writeError(w, http.StatusBadRequest, "hire_date is required with pay_date", nil)
			return
		}
		if req.DaysWorked != 0 || req.DaysInPeriod != 0 {
			writeError(w, http.StatusBadRequest, "days_worked and days_in_period cannot be combined with pay_date", nil)
			return
		}
		payDate, _ := payroll.ParseDate(req.PayDate)
		hireDate, _ := payroll.ParseDate(req.HireDate)
		termination, err := optionalDate(req.TerminationDate)
		if err != nil {
			writeDomainError(w, "Invalid termination_date", err)
			return
		}

		emp := payrun.Employee{PayPeriod: kind}
		period, err := h.Processor.PeriodFor(emp, payDate)
		if err != nil {
			writeDomainError(w, "Invalid pay period", err)
			return
		}
		if worked, inPeriod, err = payroll.ProrationDays(period, hireDate, termination, h.Store); err != nil {
			writeDomainError(w, "Failed to count working days", err)
			return
		}
		resp.Period = &period
	}

	full, err := payroll.GrossWagesForPeriod(req.AnnualWage, kind)
	if err != nil {
		writeDomainError(w, "Failed to compute wages", err)
		return
	}
	gross, err := payroll.GrossWagesForPartialPeriod(req.AnnualWage, kind, worked, inPeriod)
	if err != nil {
		writeDomainError(w, "Failed to prorate wages", err)
		return
	}

	resp.DaysWorked = worked
	resp.DaysInPeriod = inPeriod
	resp.FullPeriod = money(full)
	resp.GrossWages = money(gross)
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// GetRates returns the rate table in the rate file schema.
// GET /api/rates
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ratetable.ToJSON(h.Rates, h.LiabilityRules))
}

// GetRatesForYear returns the configs of one tax year.
// GET /api/rates/{year}
func (h *Handler) GetRatesForYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	configs := h.Rates.ForYear(payroll.TaxYear(year))
	if len(configs) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No rates for tax year %d", year), nil)
		return
	}

	dtos := make([]RateConfigDTO, len(configs))
	for i, c := range configs {
		dtos[i] = toRateConfigDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// EvaluateLiability runs the FUTA liability test and, when the year has a
// FUTA rate, reports the rate after the state unemployment credit.
// POST /api/futa/liability
func (h *Handler) EvaluateLiability(w http.ResponseWriter, r *http.Request) {
	var req LiabilityRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	year := payroll.TaxYear(req.Year)
	result, err := h.Liability.Evaluate(year, liability.Activity{
		QuarterlyWages:     req.QuarterlyWages,
		WeeksWithEmployees: req.WeeksWithEmployees,
	})
	if err != nil {
		writeDomainError(w, "Failed to evaluate liability", err)
		return
	}

	resp := LiabilityDTO{Year: req.Year, Liable: result.Liable, Rule: result.Rule}
	if cfg, err := h.Rates.Lookup(year, payroll.TaxFUTA, payroll.SideEmployer); err == nil {
		credit := decimal.RequireFromString(liability.MaxStateCredit)
		if req.StateCredit != nil {
			credit = *req.StateCredit
		}
		effective, err := liability.EffectiveRate(cfg.Rate, credit)
		if err != nil {
			writeDomainError(w, "Invalid state_credit", err)
			return
		}
		resp.Rate = cfg.Rate.String()
		resp.EffectiveRate = effective.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), payroll.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates or updates an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := employeeFromRequest(req)
	if err != nil {
		writeDomainError(w, "Invalid employee", err)
		return
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

func employeeFromRequest(req CreateEmployeeRequest) (payrun.Employee, error) {
	kind, err := payroll.ParsePayPeriodKind(req.PayPeriod)
	if err != nil {
		return payrun.Employee{}, err
	}
	if !kind.IsConcrete() {
		return payrun.Employee{}, &payroll.StateError{Kind: kind}
	}
	if req.AnnualWage.IsNegative() {
		return payrun.Employee{}, &payroll.InputError{Field: "annual_wage", Value: req.AnnualWage.String(), Reason: "must not be negative"}
	}
	hireDate, err := payroll.ParseDate(req.HireDate)
	if err != nil {
		return payrun.Employee{}, err
	}
	termination, err := optionalDate(req.TerminationDate)
	if err != nil {
		return payrun.Employee{}, err
	}
	if termination != nil && termination.Before(hireDate) {
		return payrun.Employee{}, &payroll.InputError{Field: "termination_date", Value: req.TerminationDate, Reason: "before hire date"}
	}

	return payrun.Employee{
		ID:              payroll.EmployeeID(req.ID),
		Name:            req.Name,
		AnnualWage:      req.AnnualWage,
		PayPeriod:       kind,
		HireDate:        hireDate,
		TerminationDate: termination,
	}, nil
}

// =============================================================================
// PAY RUN HANDLERS
// =============================================================================

// RunEmployeePayroll runs payroll for one employee on a pay date.
// POST /api/employees/{id}/payruns
func (h *Handler) RunEmployeePayroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PayRunRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	emp, err := h.Store.GetEmployee(ctx, payroll.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	payDate, _ := payroll.ParseDate(req.PayDate)

	runID := req.RunID
	if runID == "" {
		period, err := h.Processor.PeriodFor(*emp, payDate)
		if err != nil {
			writeDomainError(w, "Invalid pay period", err)
			return
		}
		runID = payrun.NewRunID(emp.PayPeriod, period)
	}

	stub, err := h.Processor.Process(ctx, payrun.Run{ID: runID, PayDate: payDate}, *emp)
	payRunEmployees.WithLabelValues(payRunResult(err)).Inc()
	if err != nil {
		writeDomainError(w, "Failed to run payroll", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPayStubDTO(*stub))
}

// RunBatchPayroll runs payroll for many employees and records the run.
// POST /api/payruns
func (h *Handler) RunBatchPayroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BatchPayRunRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	payDate, _ := payroll.ParseDate(req.PayDate)
	runID := req.RunID
	if runID == "" {
		runID = "payrun-" + payDate.String()
	}

	var employees []payrun.Employee
	if len(req.EmployeeIDs) == 0 {
		all, err := h.Store.ListEmployees(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
			return
		}
		employees = all
	} else {
		for _, id := range req.EmployeeIDs {
			emp, err := h.Store.GetEmployee(ctx, payroll.EmployeeID(id))
			if err != nil {
				writeDomainError(w, "Failed to get employee", err)
				return
			}
			employees = append(employees, *emp)
		}
	}

	result, err := h.runBatch(ctx, payrun.Run{ID: runID, PayDate: payDate}, employees)
	if err != nil {
		writeDomainError(w, "Pay run failed", err)
		return
	}

	resp := BatchPayRunDTO{
		RunID:   runID,
		PayDate: payDate.String(),
		Stubs:   make([]PayStubDTO, 0, len(result.Stubs)),
		Skipped: make([]SkippedDTO, 0, len(result.Skipped)),
	}
	for _, s := range result.Stubs {
		resp.Stubs = append(resp.Stubs, toPayStubDTO(s))
	}
	for _, s := range result.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedDTO{EmployeeID: string(s.EmployeeID), Reason: s.Reason})
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListPayRuns returns the batch run log, newest first.
// GET /api/payruns?status=completed
func (h *Handler) ListPayRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListPayRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pay runs", err)
		return
	}

	dtos := make([]PayRunDTO, 0, len(runs))
	for _, run := range runs {
		dto := PayRunDTO{
			ID:        run.ID,
			PayDate:   run.PayDate.String(),
			Status:    run.Status,
			Processed: run.Processed,
			Skipped:   run.Skipped,
			Error:     run.Error,
			StartedAt: run.StartedAt.Format(time.RFC3339),
		}
		if run.CompletedAt != nil {
			dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContributions returns an employee's ledger entries and year-to-date
// totals for one tax year.
// GET /api/employees/{id}/contributions?year=2020
func (h *Handler) GetContributions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing year", err)
		return
	}

	entries, err := h.Ledger.Entries(ctx, id, payroll.TaxYear(year))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load contributions", err)
		return
	}
	summary, err := h.Ledger.Summary(ctx, id, payroll.TaxYear(year))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize contributions", err)
		return
	}

	resp := ContributionHistoryDTO{
		EmployeeID: string(id),
		Year:       year,
		Entries:    make([]ContributionEntryDTO, 0, len(entries)),
		Totals:     toSideTotalDTOs(summary.Totals),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, ContributionEntryDTO{
			ID:       string(e.ID),
			Kind:     string(e.Kind),
			Side:     string(e.Side),
			PayDate:  e.PayDate.String(),
			Wages:    money(e.Wages),
			Amount:   money(e.Amount),
			PayRunID: e.PayRunID,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all holidays.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, HolidayDTO{Date: hol.Date.String(), Name: hol.Name, Recurring: hol.Recurring})
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday adds a non-working day used by proration.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, _ := payroll.ParseDate(req.Date)

	holiday := sqlite.Holiday{Date: date, Name: req.Name, Recurring: req.Recurring}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// HELPERS
// =============================================================================

// runBatch processes employees and records the run in the pay-run log.
func (h *Handler) runBatch(ctx context.Context, run payrun.Run, employees []payrun.Employee) (*payrun.BatchResult, error) {
	record := sqlite.PayRunRecord{
		ID:        run.ID,
		PayDate:   run.PayDate,
		Status:    sqlite.PayRunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := h.Store.SavePayRun(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record pay run: %w", err)
	}

	result, err := h.Processor.ProcessAll(ctx, run, employees)

	completed := time.Now().UTC()
	record.CompletedAt = &completed
	if err != nil {
		payRunEmployees.WithLabelValues("failed").Inc()
		record.Status = sqlite.PayRunFailed
		record.Error = err.Error()
	} else {
		payRunEmployees.WithLabelValues("processed").Add(float64(len(result.Stubs)))
		payRunEmployees.WithLabelValues("skipped").Add(float64(len(result.Skipped)))
		record.Status = sqlite.PayRunCompleted
		record.Processed = len(result.Stubs)
		record.Skipped = len(result.Skipped)
	}
	if saveErr := h.Store.SavePayRun(ctx, record); saveErr != nil && err == nil {
		err = fmt.Errorf("failed to record pay run: %w", saveErr)
	}
	return result, err
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

func optionalDate(s string) (*payroll.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := payroll.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, payroll.ErrConfigurationMismatch):
		return "configuration_mismatch"
	case errors.Is(err, payroll.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

func payRunResult(err error) string {
	switch {
	case err == nil:
		return "processed"
	case errors.Is(err, payrun.ErrAlreadyProcessed), errors.Is(err, payrun.ErrNotEmployed):
		return "skipped"
	default:
		return "failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error category.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, payroll.ErrDuplicateIdempotencyKey):
		status = http.StatusConflict
	case errors.Is(err, payrun.ErrNotEmployed):
		status = http.StatusUnprocessableEntity
	case payroll.IsNotFound(err):
		status = http.StatusNotFound
	case payroll.IsClientError(err):
		status = http.StatusBadRequest
	}
	writeError(w, status, message, err)
}
