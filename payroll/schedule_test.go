package payroll_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// PERIODS PER YEAR
// =============================================================================

func TestPeriodsPerYear(t *testing.T) {
	cases := map[payroll.PayPeriodKind]int{
		payroll.PayPeriodDaily:       365,
		payroll.PayPeriodWeekly:      52,
		payroll.PayPeriodBiweekly:    26,
		payroll.PayPeriodSemimonthly: 24,
		payroll.PayPeriodMonthly:     12,
		payroll.PayPeriodQuarterly:   4,
		payroll.PayPeriodSemiannual:  2,
	}
	for kind, want := range cases {
		got, err := payroll.PeriodsPerYear(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, want, got, kind)
	}
}

func TestPeriodsPerYear_UndefinedFails(t *testing.T) {
	// The undefined kind has no count; it must not fall back to daily.
	for _, kind := range []payroll.PayPeriodKind{payroll.PayPeriodUndefined, "", "fortnightly"} {
		_, err := payroll.PeriodsPerYear(kind)
		assert.ErrorIs(t, err, payroll.ErrInvalidState, "kind %q", kind)

		var stateErr *payroll.StateError
		require.True(t, errors.As(err, &stateErr))
		assert.Equal(t, kind, stateErr.Kind)
	}
}

func TestParsePayPeriodKind(t *testing.T) {
	k, err := payroll.ParsePayPeriodKind(" BiWeekly ")
	require.NoError(t, err)
	assert.Equal(t, payroll.PayPeriodBiweekly, k)

	k, err = payroll.ParsePayPeriodKind("")
	require.NoError(t, err)
	assert.Equal(t, payroll.PayPeriodUndefined, k)
	assert.False(t, k.IsConcrete())

	_, err = payroll.ParsePayPeriodKind("fortnightly")
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestFixedPeriodCount_IgnoresLeapYears(t *testing.T) {
	// 2020 has 27 biweekly Fridays for some anchors; the count stays 26.
	got, err := payroll.FixedPeriodCount{}.PeriodsPerYear(payroll.PayPeriodBiweekly, 2020)

	require.NoError(t, err)
	assert.Equal(t, 26, got)
}

type twentySevenPeriods struct{}

func (twentySevenPeriods) PeriodsPerYear(kind payroll.PayPeriodKind, year payroll.TaxYear) (int, error) {
	if kind == payroll.PayPeriodBiweekly && year == 2026 {
		return 27, nil
	}
	return payroll.PeriodsPerYear(kind)
}

func TestPayPeriodSchedule_CustomCountPolicy(t *testing.T) {
	s := payroll.PayPeriodSchedule{Kind: payroll.PayPeriodBiweekly, Year: 2026, Counts: twentySevenPeriods{}}

	got, err := s.GrossWagesForPeriod(money("54000"))

	require.NoError(t, err)
	assertMoney(t, "2000.00", got)
}

// =============================================================================
// GROSS WAGES
// =============================================================================

func TestGrossWagesForPeriod(t *testing.T) {
	got, err := payroll.GrossWagesForPeriod(money("50000"), payroll.PayPeriodBiweekly)
	require.NoError(t, err)
	assertMoney(t, "1923.08", got)

	got, err = payroll.GrossWagesForPeriod(money("60000"), payroll.PayPeriodMonthly)
	require.NoError(t, err)
	assertMoney(t, "5000.00", got)

	got, err = payroll.GrossWagesForPeriod(decimal.Zero, payroll.PayPeriodWeekly)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestGrossWagesForPeriod_Errors(t *testing.T) {
	_, err := payroll.GrossWagesForPeriod(money("-1"), payroll.PayPeriodMonthly)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)

	_, err = payroll.GrossWagesForPeriod(money("50000"), payroll.PayPeriodUndefined)
	assert.ErrorIs(t, err, payroll.ErrInvalidState)

	var zero payroll.PayPeriodSchedule
	_, err = zero.GrossWagesForPeriod(money("50000"))
	assert.ErrorIs(t, err, payroll.ErrInvalidState, "zero-value schedule must not compute")
}

func TestGrossWagesForPartialPeriod_NewHireExample(t *testing.T) {
	// GIVEN: $50,000 salary, biweekly, 10 working days in the period
	// WHEN: The new hire works 4 days
	// THEN: Daily rate 192.31, gross 769.24
	got, err := payroll.GrossWagesForPartialPeriod(money("50000"), payroll.PayPeriodBiweekly, 4, 10)

	require.NoError(t, err)
	assertMoney(t, "769.24", got)
}

func TestGrossWagesForPartialPeriod_FullPeriodRoundTrip(t *testing.T) {
	for _, kind := range payroll.PayPeriodKinds() {
		for _, wage := range []string{"50000", "123456.78", "31415.92", "1"} {
			full, err := payroll.GrossWagesForPeriod(money(wage), kind)
			require.NoError(t, err)

			for _, days := range []int{1, 5, 10, 11, 22} {
				prorated, err := payroll.GrossWagesForPartialPeriod(money(wage), kind, days, days)
				require.NoError(t, err)
				assert.True(t, full.Equal(prorated), "%s %s over %d days: full %s prorated %s", kind, wage, days, full, prorated)
			}
		}
	}
}

func TestGrossWagesForPartialPeriod_ZeroAndMonotonic(t *testing.T) {
	wage := money("87000")
	full, err := payroll.GrossWagesForPeriod(wage, payroll.PayPeriodSemimonthly)
	require.NoError(t, err)

	prev := decimal.Zero
	for worked := 0; worked <= 11; worked++ {
		got, err := payroll.GrossWagesForPartialPeriod(wage, payroll.PayPeriodSemimonthly, worked, 11)
		require.NoError(t, err)

		if worked == 0 {
			assert.True(t, got.IsZero())
		}
		assert.True(t, got.GreaterThanOrEqual(prev), "worked=%d", worked)
		assert.True(t, got.LessThanOrEqual(full), "worked=%d exceeds full period", worked)
		prev = got
	}
}

func TestGrossWagesForPartialPeriod_Errors(t *testing.T) {
	kind := payroll.PayPeriodBiweekly

	_, err := payroll.GrossWagesForPartialPeriod(money("50000"), kind, 11, 10)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput, "days worked above period")

	_, err = payroll.GrossWagesForPartialPeriod(money("50000"), kind, -1, 10)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput, "negative days worked")

	_, err = payroll.GrossWagesForPartialPeriod(money("50000"), kind, 0, 0)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput, "empty period")

	_, err = payroll.GrossWagesForPartialPeriod(money("-50000"), kind, 4, 10)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput, "negative wage")

	_, err = payroll.GrossWagesForPartialPeriod(money("50000"), payroll.PayPeriodUndefined, 4, 10)
	assert.ErrorIs(t, err, payroll.ErrInvalidState)
}
