/*
ledger.go - Append-only contribution ledger

PURPOSE:
  Year-to-date contributions are the only mutable state around the engine.
  The ledger records every contribution the pay-run pipeline applies, and
  the accumulated value for a (employee, year, kind, side) is always the sum
  of its entries. There is no separate "accumulated" field to drift.

INVARIANTS:
  1. APPEND-ONLY: no update, no delete
  2. IDEMPOTENT: an idempotency key is written at most once
  3. PER YEAR: entries are keyed by tax year, so a new year starts at zero

OWNERSHIP:
  The engine never touches the ledger. The pipeline (package payrun) reads
  Accumulated, calls the engine, and appends the result, holding a
  per-employee lock around the read-modify-write.

SEE ALSO:
  - store.go: persistence interface
  - store/memory.go, ../store/sqlite: implementations
*/
package payroll

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONTRIBUTION ENTRY - One applied contribution
// =============================================================================

type ContributionEntry struct {
	ID             EntryID
	EmployeeID     EmployeeID
	Year           TaxYear
	Kind           TaxKind
	Side           Side
	PayDate        Date
	Wages          decimal.Decimal // wages the contribution was computed on
	Amount         decimal.Decimal // contribution applied
	PayRunID       string
	IdempotencyKey string
	CreatedAt      time.Time
}

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	Store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{Store: store}
}

// Append adds an entry. Fails with ErrDuplicateIdempotencyKey if the key exists.
func (l *Ledger) Append(ctx context.Context, e ContributionEntry) error {
	return l.AppendBatch(ctx, []ContributionEntry{e})
}

// AppendBatch adds entries atomically. Negative amounts are rejected: the
// accumulated contribution only grows within a year.
func (l *Ledger) AppendBatch(ctx context.Context, entries []ContributionEntry) error {
	for _, e := range entries {
		if e.Amount.IsNegative() {
			return negativeAmount("amount", e.Amount)
		}
		if e.Wages.IsNegative() {
			return negativeAmount("wages", e.Wages)
		}
		if e.IdempotencyKey == "" {
			continue
		}
		exists, err := l.Store.Exists(ctx, e.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.AppendBatch(ctx, entries)
}

// Entries returns an employee's entries for a tax year ordered by pay date.
func (l *Ledger) Entries(ctx context.Context, employeeID EmployeeID, year TaxYear) ([]ContributionEntry, error) {
	return l.Store.Load(ctx, employeeID, year)
}

// Accumulated returns the year-to-date contribution for one tax and side.
func (l *Ledger) Accumulated(ctx context.Context, employeeID EmployeeID, year TaxYear, kind TaxKind, side Side) (decimal.Decimal, error) {
	entries, err := l.Store.Load(ctx, employeeID, year)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		if e.Kind == kind && e.Side == side {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

// =============================================================================
// YEAR SUMMARY
// =============================================================================

// SideTotal is the year-to-date wages and contributions of one tax side.
type SideTotal struct {
	Kind         TaxKind
	Side         Side
	Wages        decimal.Decimal
	Contribution decimal.Decimal
}

type YearSummary struct {
	EmployeeID EmployeeID
	Year       TaxYear
	Entries    int
	Totals     []SideTotal
}

// Summary totals an employee's entries for a tax year, ordered by kind then side.
func (l *Ledger) Summary(ctx context.Context, employeeID EmployeeID, year TaxYear) (YearSummary, error) {
	entries, err := l.Store.Load(ctx, employeeID, year)
	if err != nil {
		return YearSummary{}, err
	}

	byKey := make(map[rateKey]*SideTotal)
	for _, e := range entries {
		k := rateKey{Year: year, Kind: e.Kind, Side: e.Side}
		t, ok := byKey[k]
		if !ok {
			t = &SideTotal{Kind: e.Kind, Side: e.Side, Wages: decimal.Zero, Contribution: decimal.Zero}
			byKey[k] = t
		}
		t.Wages = t.Wages.Add(e.Wages)
		t.Contribution = t.Contribution.Add(e.Amount)
	}

	summary := YearSummary{EmployeeID: employeeID, Year: year, Entries: len(entries)}
	for _, t := range byKey {
		summary.Totals = append(summary.Totals, *t)
	}
	sort.Slice(summary.Totals, func(i, j int) bool {
		a, b := summary.Totals[i], summary.Totals[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Side < b.Side
	})
	return summary, nil
}
