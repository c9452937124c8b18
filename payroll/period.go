package payroll

import (
	"strconv"
	"time"
)

// =============================================================================
// PERIOD - Calendar bounds of one pay period
// =============================================================================

// Period is an inclusive range of days [Start, End].
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns every day of the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Length is the number of calendar days in the period.
func (p Period) Length() int { return DaysBetween(p.Start, p.End) + 1 }

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PERIOD CALCULATOR - Which pay period a date falls into
// =============================================================================

// PeriodContaining returns the pay period of s.Kind that contains date.
//
// Weekly and biweekly periods are counted in fixed 7/14-day blocks from
// anchor, the first day of any known pay period. All other kinds are
// calendar based and ignore anchor: semimonthly splits on the 15th,
// quarterly and semiannual follow calendar quarters and halves.
func (s PayPeriodSchedule) PeriodContaining(anchor, date Date) (Period, error) {
	switch s.Kind {
	case PayPeriodDaily:
		return Period{Start: date, End: date}, nil

	case PayPeriodWeekly:
		return blockPeriod(anchor, date, 7), nil

	case PayPeriodBiweekly:
		return blockPeriod(anchor, date, 14), nil

	case PayPeriodSemimonthly:
		if date.Day() <= 15 {
			return Period{
				Start: StartOfMonth(date.Year(), date.Month()),
				End:   NewDate(date.Year(), date.Month(), 15),
			}, nil
		}
		return Period{
			Start: NewDate(date.Year(), date.Month(), 16),
			End:   EndOfMonth(date.Year(), date.Month()),
		}, nil

	case PayPeriodMonthly:
		return monthsPeriod(date.Year(), date.Month(), 1), nil

	case PayPeriodQuarterly:
		first := time.Month((int(date.Month())-1)/3*3 + 1)
		return monthsPeriod(date.Year(), first, 3), nil

	case PayPeriodSemiannual:
		first := time.January
		if date.Month() > time.June {
			first = time.July
		}
		return monthsPeriod(date.Year(), first, 6), nil

	default:
		return Period{}, &StateError{Kind: s.Kind}
	}
}

func blockPeriod(anchor, date Date, length int) Period {
	offset := DaysBetween(anchor, date)
	index := offset / length
	if offset < 0 && offset%length != 0 {
		index--
	}
	start := anchor.AddDays(index * length)
	return Period{Start: start, End: start.AddDays(length - 1)}
}

func monthsPeriod(year int, first time.Month, months int) Period {
	start := StartOfMonth(year, first)
	return Period{Start: start, End: start.AddMonths(months).AddDays(-1)}
}

// =============================================================================
// WORKING DAYS & PRORATION
// =============================================================================

// WorkingDays counts weekdays in p that are not holidays. cal may be nil.
func WorkingDays(p Period, cal HolidayCalendar) int {
	n := 0
	for _, d := range p.Days() {
		if d.IsWorkday(cal) {
			n++
		}
	}
	return n
}

// ProrationDays returns the working days an employee was employed during p
// and the working days in p, ready for GrossWagesForPartialPeriod.
// employedTo is the termination date, or nil while still employed.
//
// A period with no working days (a weekend-only daily period, say) counts
// every calendar day instead, so the daily rate stays defined.
func ProrationDays(p Period, employedFrom Date, employedTo *Date, cal HolidayCalendar) (daysWorked, daysInPeriod int, err error) {
	if p.End.Before(p.Start) {
		return 0, 0, &InputError{Field: "period", Value: p.String(), Reason: "end before start"}
	}
	if employedTo != nil && employedTo.Before(employedFrom) {
		return 0, 0, &InputError{Field: "termination_date", Value: employedTo.String(), Reason: "before hire date"}
	}

	countAll := WorkingDays(p, cal) == 0
	for _, d := range p.Days() {
		if !countAll && !d.IsWorkday(cal) {
			continue
		}
		daysInPeriod++
		if d.Before(employedFrom) || (employedTo != nil && d.After(*employedTo)) {
			continue
		}
		daysWorked++
	}
	return daysWorked, daysInPeriod, nil
}

// PeriodLabel renders a short identifier such as "2020-biweekly-2020-01-06".
func PeriodLabel(kind PayPeriodKind, p Period) string {
	return strconv.Itoa(p.Start.Year()) + "-" + string(kind) + "-" + p.Start.String()
}
