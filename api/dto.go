/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the payroll model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Amounts are decimal strings ("1923.08"). Requests also accept JSON
  numbers; both decode through shopspring/decimal, never float64.

VALIDATION:
  Request structs carry go-playground/validator tags and are checked by
  decodeAndValidate before a handler sees them. Domain rules (a rate within
  [0,1], days worked within the period) stay in the payroll package.

SEE ALSO:
  - handlers.go: Uses these types
  - ratetable/ratetable.go: FileJSON, the rate table wire format
*/
package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payrun"
)

// validate is the validator instance for request DTOs.
var validate = validator.New()

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

// ComputeContributionRequest computes one contribution. Without Rate the
// config comes from the rate table; with Rate (and WageCap) the request
// supplies its own config.
type ComputeContributionRequest struct {
	Year        int              `json:"year" validate:"required,gt=0"`
	Kind        string           `json:"kind" validate:"required,oneof=futa oasdi"`
	Side        string           `json:"side" validate:"required,oneof=employee employer"`
	Accumulated decimal.Decimal  `json:"accumulated"`
	Wages       decimal.Decimal  `json:"wages"`
	Rate        *decimal.Decimal `json:"rate,omitempty"`
	WageCap     string           `json:"wage_cap,omitempty" validate:"required_with=Rate"`
}

type ContributionDTO struct {
	Year             int     `json:"year"`
	Kind             string  `json:"kind"`
	Side             string  `json:"side"`
	Rate             string  `json:"rate"`
	WageCap          string  `json:"wage_cap"`
	MaxContribution  *string `json:"max_contribution"`
	Accumulated      string  `json:"accumulated"`
	Wages            string  `json:"wages"`
	Contribution     string  `json:"contribution"`
	AccumulatedAfter string  `json:"accumulated_after"`
}

// =============================================================================
// PERIODS & WAGES
// =============================================================================

type PeriodsDTO struct {
	Kind           string `json:"kind"`
	PeriodsPerYear int    `json:"periods_per_year"`
}

type WageQuoteDTO struct {
	AnnualWage     string `json:"annual_wage"`
	Kind           string `json:"kind"`
	PeriodsPerYear int    `json:"periods_per_year"`
	GrossWages     string `json:"gross_wages"`
}

// ProrateRequest prorates a period's gross wages. Either give the day
// counts directly, or a pay date plus employment dates and let the server
// count working days.
type ProrateRequest struct {
	AnnualWage      decimal.Decimal `json:"annual_wage"`
	Kind            string          `json:"kind" validate:"required"`
	DaysWorked      int             `json:"days_worked"`
	DaysInPeriod    int             `json:"days_in_period"`
	PayDate         string          `json:"pay_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	HireDate        string          `json:"hire_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TerminationDate string          `json:"termination_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type ProrateDTO struct {
	AnnualWage   string          `json:"annual_wage"`
	Kind         string          `json:"kind"`
	Period       *payroll.Period `json:"period,omitempty"`
	DaysWorked   int             `json:"days_worked"`
	DaysInPeriod int             `json:"days_in_period"`
	FullPeriod   string          `json:"full_period_wages"`
	GrossWages   string          `json:"gross_wages"`
}

// =============================================================================
// RATES & LIABILITY
// =============================================================================

type RateConfigDTO struct {
	Year            int     `json:"year"`
	Kind            string  `json:"kind"`
	Side            string  `json:"side"`
	Rate            string  `json:"rate"`
	WageCap         string  `json:"wage_cap"`
	MaxContribution *string `json:"max_contribution"`
}

type LiabilityRequest struct {
	Year               int                `json:"year" validate:"required,gt=0"`
	QuarterlyWages     [4]decimal.Decimal `json:"quarterly_wages"`
	WeeksWithEmployees int                `json:"weeks_with_employees" validate:"gte=0,lte=53"`
	StateCredit        *decimal.Decimal   `json:"state_credit,omitempty"`
}

type LiabilityDTO struct {
	Year          int    `json:"year"`
	Liable        bool   `json:"liable"`
	Rule          string `json:"rule"`
	Rate          string `json:"rate,omitempty"`
	EffectiveRate string `json:"effective_rate,omitempty"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AnnualWage      string `json:"annual_wage"`
	PayPeriod       string `json:"pay_period"`
	HireDate        string `json:"hire_date"`
	TerminationDate string `json:"termination_date,omitempty"`
}

// CreateEmployeeRequest is the request to create or update an employee.
type CreateEmployeeRequest struct {
	ID              string          `json:"id" validate:"required,max=64"`
	Name            string          `json:"name" validate:"required,max=200"`
	AnnualWage      decimal.Decimal `json:"annual_wage"`
	PayPeriod       string          `json:"pay_period" validate:"required"`
	HireDate        string          `json:"hire_date" validate:"required,datetime=2006-01-02"`
	TerminationDate string          `json:"termination_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// =============================================================================
// PAY RUNS
// =============================================================================

// PayRunRequest runs payroll for one employee. RunID defaults to the
// employee's pay period label, so repeating the request is rejected.
type PayRunRequest struct {
	RunID   string `json:"run_id,omitempty" validate:"omitempty,max=128"`
	PayDate string `json:"pay_date" validate:"required,datetime=2006-01-02"`
}

// BatchPayRunRequest runs payroll for many employees (all when EmployeeIDs
// is empty). RunID defaults to "payrun-<pay_date>".
type BatchPayRunRequest struct {
	RunID       string   `json:"run_id,omitempty" validate:"omitempty,max=128"`
	PayDate     string   `json:"pay_date" validate:"required,datetime=2006-01-02"`
	EmployeeIDs []string `json:"employee_ids,omitempty" validate:"omitempty,dive,required"`
}

type PayStubDTO struct {
	RunID        string         `json:"run_id"`
	EmployeeID   string         `json:"employee_id"`
	Year         int            `json:"year"`
	PayDate      string         `json:"pay_date"`
	PayPeriod    string         `json:"pay_period"`
	Period       payroll.Period `json:"period"`
	DaysWorked   int            `json:"days_worked"`
	DaysInPeriod int            `json:"days_in_period"`
	Prorated     bool           `json:"prorated"`
	Gross        string         `json:"gross"`
	FUTA         string         `json:"futa_employer"`
	OASDI        SideAmountsDTO `json:"oasdi"`
	Net          string         `json:"net"`
	YearToDate   []SideTotalDTO `json:"year_to_date"`
}

type SideAmountsDTO struct {
	Employee string `json:"employee"`
	Employer string `json:"employer"`
}

type BatchPayRunDTO struct {
	RunID   string       `json:"run_id"`
	PayDate string       `json:"pay_date"`
	Stubs   []PayStubDTO `json:"stubs"`
	Skipped []SkippedDTO `json:"skipped"`
}

type SkippedDTO struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
}

type PayRunDTO struct {
	ID          string `json:"id"`
	PayDate     string `json:"pay_date"`
	Status      string `json:"status"`
	Processed   int    `json:"processed"`
	Skipped     int    `json:"skipped"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// =============================================================================
// LEDGER
// =============================================================================

type ContributionEntryDTO struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Side     string `json:"side"`
	PayDate  string `json:"pay_date"`
	Wages    string `json:"wages"`
	Amount   string `json:"amount"`
	PayRunID string `json:"pay_run_id,omitempty"`
}

type SideTotalDTO struct {
	Kind         string `json:"kind"`
	Side         string `json:"side"`
	Wages        string `json:"wages"`
	Contribution string `json:"contribution"`
}

type ContributionHistoryDTO struct {
	EmployeeID string                 `json:"employee_id"`
	Year       int                    `json:"year"`
	Entries    []ContributionEntryDTO `json:"entries"`
	Totals     []SideTotalDTO         `json:"totals"`
}

// =============================================================================
// HOLIDAYS & SCENARIOS
// =============================================================================

type HolidayDTO struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name" validate:"required,max=100"`
	Recurring bool   `json:"recurring"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(payroll.CentPlaces) }

func toEmployeeDTO(e payrun.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:         string(e.ID),
		Name:       e.Name,
		AnnualWage: money(e.AnnualWage),
		PayPeriod:  string(e.PayPeriod),
		HireDate:   e.HireDate.String(),
	}
	if e.TerminationDate != nil {
		dto.TerminationDate = e.TerminationDate.String()
	}
	return dto
}

func toRateConfigDTO(c payroll.TaxRateConfig) RateConfigDTO {
	dto := RateConfigDTO{
		Year:    int(c.Year),
		Kind:    string(c.Kind),
		Side:    string(c.Side),
		Rate:    c.Rate.String(),
		WageCap: c.WageCap.String(),
	}
	if ceiling, capped := c.MaxContribution(); capped {
		s := money(ceiling)
		dto.MaxContribution = &s
	}
	return dto
}

func toSideTotalDTOs(totals []payroll.SideTotal) []SideTotalDTO {
	dtos := make([]SideTotalDTO, 0, len(totals))
	for _, t := range totals {
		dtos = append(dtos, SideTotalDTO{
			Kind:         string(t.Kind),
			Side:         string(t.Side),
			Wages:        money(t.Wages),
			Contribution: money(t.Contribution),
		})
	}
	return dtos
}

func toPayStubDTO(s payrun.PayStub) PayStubDTO {
	return PayStubDTO{
		RunID:        s.RunID,
		EmployeeID:   string(s.EmployeeID),
		Year:         int(s.Year),
		PayDate:      s.PayDate.String(),
		PayPeriod:    string(s.PayPeriod),
		Period:       s.Period,
		DaysWorked:   s.DaysWorked,
		DaysInPeriod: s.DaysInPeriod,
		Prorated:     s.Prorated,
		Gross:        money(s.Gross),
		FUTA:         money(s.FUTA),
		OASDI:        SideAmountsDTO{Employee: money(s.OASDI.Employee), Employer: money(s.OASDI.Employer)},
		Net:          money(s.Net),
		YearToDate:   toSideTotalDTOs(s.YearToDate.Totals),
	}
}
