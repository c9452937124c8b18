/*
schedule.go - Pay period schedules and gross salary wages

PURPOSE:
  A pay period is a recurring length of time over which employee time is
  recorded and paid. This file converts an annual salary into the gross
  wages of one pay period, or of the part of a pay period actually worked.

PERIODS PER YEAR:
  daily 365, weekly 52, biweekly 26, semimonthly 24, monthly 12,
  quarterly 4, semiannual 2. "undefined" is an error state and never
  falls back to a count.

PRORATION (exempt employees, mid-period hire or termination):
  Divide the annual salary by the periods per year, divide that by the
  working days in the period to get a daily rate (rounded to cents), then
  multiply by the days worked. The result never exceeds the full period,
  and working every day of the period pays exactly the full period.

  Example: $50,000 annual, biweekly, 10 working days, 4 days worked.
  50000 / 26 = 1923.08; 1923.08 / 10 = 192.31 per day; 192.31 × 4 = 769.24.

LIMITATION:
  Some years contain a 27th biweekly pay date ("pay period leap year").
  That is NOT handled: FixedPeriodCount always returns 26 for biweekly.
  PeriodCountPolicy is the place to plug in a year-aware count.
*/
package payroll

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAY PERIOD KIND
// =============================================================================

type PayPeriodKind string

const (
	PayPeriodUndefined   PayPeriodKind = "undefined"
	PayPeriodDaily       PayPeriodKind = "daily"
	PayPeriodWeekly      PayPeriodKind = "weekly"
	PayPeriodBiweekly    PayPeriodKind = "biweekly"
	PayPeriodSemimonthly PayPeriodKind = "semimonthly"
	PayPeriodMonthly     PayPeriodKind = "monthly"
	PayPeriodQuarterly   PayPeriodKind = "quarterly"
	PayPeriodSemiannual  PayPeriodKind = "semiannual"
)

// PayPeriodKinds lists the concrete kinds.
func PayPeriodKinds() []PayPeriodKind {
	return []PayPeriodKind{
		PayPeriodDaily, PayPeriodWeekly, PayPeriodBiweekly, PayPeriodSemimonthly,
		PayPeriodMonthly, PayPeriodQuarterly, PayPeriodSemiannual,
	}
}

// ParsePayPeriodKind accepts a kind name, case-insensitive. "undefined" and
// the empty string parse to PayPeriodUndefined; anything else unknown is
// rejected.
func ParsePayPeriodKind(s string) (PayPeriodKind, error) {
	k := PayPeriodKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" || k == PayPeriodUndefined {
		return PayPeriodUndefined, nil
	}
	if _, err := PeriodsPerYear(k); err != nil {
		return PayPeriodUndefined, &InputError{Field: "pay_period", Value: s, Reason: "unknown pay period"}
	}
	return k, nil
}

// IsConcrete returns true for every kind a wage can be computed for.
func (k PayPeriodKind) IsConcrete() bool {
	_, err := PeriodsPerYear(k)
	return err == nil
}

// PeriodsPerYear returns the fixed number of pay periods in a year for kind.
// Undefined (or any unknown kind) fails with ErrInvalidState.
func PeriodsPerYear(kind PayPeriodKind) (int, error) {
	switch kind {
	case PayPeriodDaily:
		return 365, nil
	case PayPeriodWeekly:
		return 52, nil
	case PayPeriodBiweekly:
		return 26, nil
	case PayPeriodSemimonthly:
		return 24, nil
	case PayPeriodMonthly:
		return 12, nil
	case PayPeriodQuarterly:
		return 4, nil
	case PayPeriodSemiannual:
		return 2, nil
	default:
		return 0, &StateError{Kind: kind}
	}
}

// =============================================================================
// PERIOD COUNT POLICY - Extension point for year-aware counts
// =============================================================================

// PeriodCountPolicy decides how many pay periods a year has for a kind.
type PeriodCountPolicy interface {
	PeriodsPerYear(kind PayPeriodKind, year TaxYear) (int, error)
}

// FixedPeriodCount ignores the year and returns PeriodsPerYear(kind).
type FixedPeriodCount struct{}

func (FixedPeriodCount) PeriodsPerYear(kind PayPeriodKind, _ TaxYear) (int, error) {
	return PeriodsPerYear(kind)
}

// =============================================================================
// PAY PERIOD SCHEDULE
// =============================================================================

// PayPeriodSchedule is an employee's (or the company's) payroll cadence.
// Counts defaults to FixedPeriodCount when nil.
type PayPeriodSchedule struct {
	Kind   PayPeriodKind
	Year   TaxYear
	Counts PeriodCountPolicy
}

// NewPayPeriodSchedule returns a schedule with the fixed period count.
func NewPayPeriodSchedule(kind PayPeriodKind) PayPeriodSchedule {
	return PayPeriodSchedule{Kind: kind}
}

func (s PayPeriodSchedule) PeriodsPerYear() (int, error) {
	if s.Counts == nil {
		return PeriodsPerYear(s.Kind)
	}
	return s.Counts.PeriodsPerYear(s.Kind, s.Year)
}

// GrossWagesForPeriod returns annualWage / periods per year, rounded to cents.
func (s PayPeriodSchedule) GrossWagesForPeriod(annualWage decimal.Decimal) (decimal.Decimal, error) {
	periods, err := s.PeriodsPerYear()
	if err != nil {
		return decimal.Zero, err
	}
	if annualWage.IsNegative() {
		return decimal.Zero, negativeAmount("annual_wage", annualWage)
	}
	return Cents(annualWage.Div(decimal.NewFromInt(int64(periods)))), nil
}

// GrossWagesForPartialPeriod prorates the period's gross wages by working
// days. daysWorked must be within [0, daysInPeriod] and daysInPeriod > 0.
func (s PayPeriodSchedule) GrossWagesForPartialPeriod(annualWage decimal.Decimal, daysWorked, daysInPeriod int) (decimal.Decimal, error) {
	full, err := s.GrossWagesForPeriod(annualWage)
	if err != nil {
		return decimal.Zero, err
	}
	if daysInPeriod <= 0 {
		return decimal.Zero, &InputError{
			Field:  "days_in_period",
			Value:  strconv.Itoa(daysInPeriod),
			Reason: "must be positive",
		}
	}
	if daysWorked < 0 || daysWorked > daysInPeriod {
		return decimal.Zero, &InputError{
			Field:  "days_worked",
			Value:  strconv.Itoa(daysWorked),
			Reason: "must be within [0, " + strconv.Itoa(daysInPeriod) + "]",
		}
	}

	if daysWorked == daysInPeriod {
		return full, nil
	}

	daily := Cents(full.Div(decimal.NewFromInt(int64(daysInPeriod))))
	prorated := daily.Mul(decimal.NewFromInt(int64(daysWorked)))

	// A rounded-up daily rate times every day can land a few cents above the
	// full period; the full period is the ceiling.
	if prorated.GreaterThan(full) {
		return full, nil
	}
	return prorated, nil
}

// =============================================================================
// PACKAGE-LEVEL SHORTCUTS
// =============================================================================

// GrossWagesForPeriod is NewPayPeriodSchedule(kind).GrossWagesForPeriod.
func GrossWagesForPeriod(annualWage decimal.Decimal, kind PayPeriodKind) (decimal.Decimal, error) {
	return NewPayPeriodSchedule(kind).GrossWagesForPeriod(annualWage)
}

// GrossWagesForPartialPeriod is NewPayPeriodSchedule(kind).GrossWagesForPartialPeriod.
func GrossWagesForPartialPeriod(annualWage decimal.Decimal, kind PayPeriodKind, daysWorked, daysInPeriod int) (decimal.Decimal, error) {
	return NewPayPeriodSchedule(kind).GrossWagesForPartialPeriod(annualWage, daysWorked, daysInPeriod)
}
