/*
Package payroll provides the statutory payroll tax engine.

PURPOSE:
  This package turns an employee's wage figures, a pay-period definition and
  year-to-date contribution state into a tax or gross-wage amount. Every
  calculation is a pure function of its inputs: the engine never owns the
  contribution ledger, it receives the accumulated value and returns a delta.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: currency amounts as decimal.Decimal, rounded to cents
  - TaxYear: the statutory year a rate config belongs to
  - TaxKind / Side: which tax (FUTA, OASDI) and who pays it
  - EmployeeID: type-safe identifier

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64 for money
  2. Explicit configuration: the tax year is always an argument, never
     derived from the wall clock
  3. No shared mutable state: all engine functions are safe for concurrent use
  4. Loud failures: bad input returns a typed error, never a clamped value

USAGE:
  rates := payroll.StatutoryRates()
  cfg, _ := rates.Lookup(2020, payroll.TaxOASDI, payroll.SideEmployee)
  due, err := payroll.ComputeContribution(cfg, ytd, payroll.MustParseMoney("4200.00"))

SEE ALSO:
  - contribution.go: capped contribution tax
  - schedule.go: pay periods and gross wages
  - ratetable.go: rate constants per tax year
*/
package payroll

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amounts
// =============================================================================

// CentPlaces is the number of decimal places kept on wages and contributions.
const CentPlaces = 2

// Cents rounds an amount to whole cents, half away from zero.
func Cents(d decimal.Decimal) decimal.Decimal { return d.Round(CentPlaces) }

func NewMoney(value float64) decimal.Decimal { return decimal.NewFromFloat(value) }

func NewMoneyFromInt(value int64) decimal.Decimal { return decimal.NewFromInt(value) }

// MustParseMoney parses a decimal string and panics on malformed input.
// Intended for constants and tests.
func MustParseMoney(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type EntryID string

// TaxYear is a calendar tax year (e.g. 2020).
type TaxYear int

func (y TaxYear) String() string { return strconv.Itoa(int(y)) }

// =============================================================================
// TAX KIND & SIDE
// =============================================================================

// TaxKind identifies a capped contribution tax.
type TaxKind string

const (
	TaxFUTA  TaxKind = "futa"  // Federal unemployment tax, employer-paid only
	TaxOASDI TaxKind = "oasdi" // Old-age, survivors and disability insurance
)

func (k TaxKind) Valid() bool { return k == TaxFUTA || k == TaxOASDI }

// Side identifies who bears a contribution.
type Side string

const (
	SideEmployee Side = "employee" // withheld from the paycheck
	SideEmployer Side = "employer" // paid by the business
)

func (s Side) Valid() bool { return s == SideEmployee || s == SideEmployer }

// SideAmounts carries one amount per side of a dual-sided tax.
type SideAmounts struct {
	Employee decimal.Decimal
	Employer decimal.Decimal
}

func (s SideAmounts) Total() decimal.Decimal { return s.Employee.Add(s.Employer) }
