/*
Package payrun applies the payroll engine to employees on a pay date.

PURPOSE:
  The engine in package payroll is pure: it takes year-to-date contributions
  as input and never records anything. This package is the caller that owns
  the read-modify-write around it:

    1. Find the pay period containing the pay date
    2. Derive gross wages, prorated for hire/termination inside the period
    3. Read accumulated FUTA and OASDI from the ledger
    4. Compute the three contributions (FUTA employer, OASDI both sides)
    5. Append them to the ledger in one batch

CONCURRENCY:
  A per-employee lock serializes steps 3-5 for the same employee, so two
  runs can never both read the same accumulated value. Different employees
  proceed in parallel (ProcessAll).

IDEMPOTENCY:
  Every entry carries the key "payrun:<period>:<employee>:<kind>:<side>",
  where <period> is the PeriodLabel of the employee's pay period. Any
  later run that lands in an already paid period fails with
  ErrAlreadyProcessed, whatever its run ID.

SEE ALSO:
  - ../payroll/contribution.go: the engine
  - ../payroll/ledger.go: where contributions land
*/
package payrun

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotEmployed is returned when the employee worked no day of the pay period.
	ErrNotEmployed = errors.New("employee not employed during pay period")

	// ErrAlreadyProcessed is returned when the employee was already paid for
	// the pay period. It wraps payroll.ErrDuplicateIdempotencyKey.
	ErrAlreadyProcessed = fmt.Errorf("pay run already processed: %w", payroll.ErrDuplicateIdempotencyKey)
)

// DefaultConcurrency bounds ProcessAll when Processor.Concurrency is 0.
const DefaultConcurrency = 8

// =============================================================================
// TYPES
// =============================================================================

// Employee is the payroll view of a person.
type Employee struct {
	ID              payroll.EmployeeID
	Name            string
	AnnualWage      decimal.Decimal
	PayPeriod       payroll.PayPeriodKind
	HireDate        payroll.Date
	TerminationDate *payroll.Date
}

// Run identifies one pay run. The ID is the idempotency scope.
type Run struct {
	ID      string
	PayDate payroll.Date
}

// NewRunID derives a run ID from the pay period, e.g. "2020-biweekly-2020-01-06".
// Runs created from the same period share an ID, so they are applied once.
func NewRunID(kind payroll.PayPeriodKind, period payroll.Period) string {
	return payroll.PeriodLabel(kind, period)
}

// PayStub is the outcome of a pay run for one employee.
type PayStub struct {
	RunID        string
	EmployeeID   payroll.EmployeeID
	Year         payroll.TaxYear
	PayDate      payroll.Date
	PayPeriod    payroll.PayPeriodKind
	Period       payroll.Period
	DaysWorked   int
	DaysInPeriod int
	Prorated     bool

	Gross decimal.Decimal
	FUTA  decimal.Decimal     // employer only
	OASDI payroll.SideAmounts // withheld from the employee + employer match
	Net   decimal.Decimal     // gross minus employee withholding

	YearToDate payroll.YearSummary
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor runs payroll against a ledger.
// Anchor is the first day of any weekly/biweekly pay period.
// Holidays and Counts may be nil.
type Processor struct {
	Ledger      *payroll.Ledger
	Rates       *payroll.RateTable
	Anchor      payroll.Date
	Holidays    payroll.HolidayCalendar
	Counts      payroll.PeriodCountPolicy
	Concurrency int

	locks keyedMutex
}

func NewProcessor(ledger *payroll.Ledger, rates *payroll.RateTable, anchor payroll.Date) *Processor {
	return &Processor{Ledger: ledger, Rates: rates, Anchor: anchor}
}

// PeriodFor returns the employee's pay period containing date.
func (p *Processor) PeriodFor(emp Employee, date payroll.Date) (payroll.Period, error) {
	schedule := payroll.PayPeriodSchedule{Kind: emp.PayPeriod, Year: date.TaxYear(), Counts: p.Counts}
	return schedule.PeriodContaining(p.Anchor, date)
}

// LastCompletedPeriod returns the latest pay period of the employee that
// ends on or before date.
func (p *Processor) LastCompletedPeriod(emp Employee, date payroll.Date) (payroll.Period, error) {
	current, err := p.PeriodFor(emp, date)
	if err != nil {
		return payroll.Period{}, err
	}
	if current.End.Equal(date) {
		return current, nil
	}
	return p.PeriodFor(emp, current.Start.AddDays(-1))
}

// Process applies run to one employee.
func (p *Processor) Process(ctx context.Context, run Run, emp Employee) (*PayStub, error) {
	if err := validate(run, emp); err != nil {
		return nil, err
	}

	year := run.PayDate.TaxYear()
	schedule := payroll.PayPeriodSchedule{Kind: emp.PayPeriod, Year: year, Counts: p.Counts}

	period, err := schedule.PeriodContaining(p.Anchor, run.PayDate)
	if err != nil {
		return nil, err
	}
	worked, inPeriod, err := payroll.ProrationDays(period, emp.HireDate, emp.TerminationDate, p.Holidays)
	if err != nil {
		return nil, err
	}
	if worked == 0 {
		return nil, fmt.Errorf("%s in %s: %w", emp.ID, period, ErrNotEmployed)
	}
	gross, err := schedule.GrossWagesForPartialPeriod(emp.AnnualWage, worked, inPeriod)
	if err != nil {
		return nil, err
	}

	unlock := p.locks.Lock(emp.ID)
	defer unlock()

	label := payroll.PeriodLabel(emp.PayPeriod, period)
	applied, err := p.Ledger.Store.Exists(ctx, idempotencyKey(label, emp.ID, payroll.TaxOASDI, payroll.SideEmployee))
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, ErrAlreadyProcessed
	}

	before, err := p.Ledger.Summary(ctx, emp.ID, year)
	if err != nil {
		return nil, err
	}

	futa, err := payroll.FUTA{Rates: p.Rates}.EmployerContribution(year,
		accumulated(before, payroll.TaxFUTA, payroll.SideEmployer), gross)
	if err != nil {
		return nil, err
	}
	oasdi, err := payroll.OASDI{Rates: p.Rates}.Contributions(year, payroll.SideAmounts{
		Employee: accumulated(before, payroll.TaxOASDI, payroll.SideEmployee),
		Employer: accumulated(before, payroll.TaxOASDI, payroll.SideEmployer),
	}, gross)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := func(kind payroll.TaxKind, side payroll.Side, amount decimal.Decimal) payroll.ContributionEntry {
		return payroll.ContributionEntry{
			ID:             payroll.EntryID(uuid.NewString()),
			EmployeeID:     emp.ID,
			Year:           year,
			Kind:           kind,
			Side:           side,
			PayDate:        run.PayDate,
			Wages:          gross,
			Amount:         amount,
			PayRunID:       run.ID,
			IdempotencyKey: idempotencyKey(label, emp.ID, kind, side),
			CreatedAt:      now,
		}
	}
	entries := []payroll.ContributionEntry{
		entry(payroll.TaxFUTA, payroll.SideEmployer, futa),
		entry(payroll.TaxOASDI, payroll.SideEmployee, oasdi.Employee),
		entry(payroll.TaxOASDI, payroll.SideEmployer, oasdi.Employer),
	}
	if err := p.Ledger.AppendBatch(ctx, entries); err != nil {
		if errors.Is(err, payroll.ErrDuplicateIdempotencyKey) {
			return nil, ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("failed to record contributions: %w", err)
	}

	after, err := p.Ledger.Summary(ctx, emp.ID, year)
	if err != nil {
		return nil, err
	}

	log.Printf("[PayRun] %s: %s gross %s (%d/%d days) futa %s oasdi %s/%s",
		run.ID, emp.ID, gross.StringFixed(2), worked, inPeriod,
		futa.StringFixed(2), oasdi.Employee.StringFixed(2), oasdi.Employer.StringFixed(2))

	return &PayStub{
		RunID:        run.ID,
		EmployeeID:   emp.ID,
		Year:         year,
		PayDate:      run.PayDate,
		PayPeriod:    emp.PayPeriod,
		Period:       period,
		DaysWorked:   worked,
		DaysInPeriod: inPeriod,
		Prorated:     worked < inPeriod,
		Gross:        gross,
		FUTA:         futa,
		OASDI:        oasdi,
		Net:          gross.Sub(oasdi.Employee),
		YearToDate:   after,
	}, nil
}

// =============================================================================
// BATCH
// =============================================================================

// Skipped records an employee a batch left out and why.
type Skipped struct {
	EmployeeID payroll.EmployeeID
	Reason     string
}

type BatchResult struct {
	Stubs   []PayStub
	Skipped []Skipped
}

// ProcessAll applies run to every employee concurrently. Employees not
// employed in the period, or already paid for it, are skipped.
// Any other failure cancels the remaining work and is returned.
func (p *Processor) ProcessAll(ctx context.Context, run Run, employees []Employee) (*BatchResult, error) {
	stubs := make([]*PayStub, len(employees))
	skipped := make([]error, len(employees))

	limit := p.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, emp := range employees {
		i, emp := i, emp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stub, err := p.Process(gctx, run, emp)
			switch {
			case err == nil:
				stubs[i] = stub
			case errors.Is(err, ErrNotEmployed), errors.Is(err, ErrAlreadyProcessed):
				skipped[i] = err
			default:
				return fmt.Errorf("employee %s: %w", emp.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for i, emp := range employees {
		if stubs[i] != nil {
			result.Stubs = append(result.Stubs, *stubs[i])
		}
		if skipped[i] != nil {
			result.Skipped = append(result.Skipped, Skipped{EmployeeID: emp.ID, Reason: skipped[i].Error()})
		}
	}
	log.Printf("[PayRun] %s: %d processed, %d skipped", run.ID, len(result.Stubs), len(result.Skipped))
	return result, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func validate(run Run, emp Employee) error {
	if run.ID == "" {
		return &payroll.InputError{Field: "run_id", Value: "", Reason: "required"}
	}
	if run.PayDate.IsZero() {
		return &payroll.InputError{Field: "pay_date", Value: "", Reason: "required"}
	}
	if emp.ID == "" {
		return &payroll.InputError{Field: "employee_id", Value: "", Reason: "required"}
	}
	if emp.HireDate.IsZero() {
		return &payroll.InputError{Field: "hire_date", Value: "", Reason: "required"}
	}
	return nil
}

func idempotencyKey(periodLabel string, emp payroll.EmployeeID, kind payroll.TaxKind, side payroll.Side) string {
	return fmt.Sprintf("payrun:%s:%s:%s:%s", periodLabel, emp, kind, side)
}

func accumulated(s payroll.YearSummary, kind payroll.TaxKind, side payroll.Side) decimal.Decimal {
	for _, t := range s.Totals {
		if t.Kind == kind && t.Side == side {
			return t.Contribution
		}
	}
	return decimal.Zero
}

// keyedMutex hands out one mutex per employee.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[payroll.EmployeeID]*sync.Mutex
}

func (k *keyedMutex) Lock(id payroll.EmployeeID) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[payroll.EmployeeID]*sync.Mutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
