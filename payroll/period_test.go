package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func date(y int, m time.Month, d int) payroll.Date { return payroll.NewDate(y, m, d) }

// 2020-01-06 is a Monday.
var biweeklyAnchor = date(2020, time.January, 6)

func TestPeriodContaining(t *testing.T) {
	cases := []struct {
		kind       payroll.PayPeriodKind
		on         payroll.Date
		start, end payroll.Date
	}{
		{payroll.PayPeriodDaily, date(2020, 3, 4), date(2020, 3, 4), date(2020, 3, 4)},
		{payroll.PayPeriodWeekly, date(2020, 1, 15), date(2020, 1, 13), date(2020, 1, 19)},
		{payroll.PayPeriodBiweekly, date(2020, 1, 6), date(2020, 1, 6), date(2020, 1, 19)},
		{payroll.PayPeriodBiweekly, date(2020, 1, 20), date(2020, 1, 20), date(2020, 2, 2)},
		{payroll.PayPeriodBiweekly, date(2020, 1, 5), date(2019, 12, 23), date(2020, 1, 5)},
		{payroll.PayPeriodSemimonthly, date(2020, 2, 15), date(2020, 2, 1), date(2020, 2, 15)},
		{payroll.PayPeriodSemimonthly, date(2020, 2, 16), date(2020, 2, 16), date(2020, 2, 29)},
		{payroll.PayPeriodMonthly, date(2021, 2, 10), date(2021, 2, 1), date(2021, 2, 28)},
		{payroll.PayPeriodQuarterly, date(2020, 8, 31), date(2020, 7, 1), date(2020, 9, 30)},
		{payroll.PayPeriodSemiannual, date(2020, 6, 30), date(2020, 1, 1), date(2020, 6, 30)},
		{payroll.PayPeriodSemiannual, date(2020, 7, 1), date(2020, 7, 1), date(2020, 12, 31)},
	}

	for _, tc := range cases {
		p, err := payroll.NewPayPeriodSchedule(tc.kind).PeriodContaining(biweeklyAnchor, tc.on)
		require.NoError(t, err, "%s %s", tc.kind, tc.on)
		assert.Equal(t, tc.start.String(), p.Start.String(), "%s %s start", tc.kind, tc.on)
		assert.Equal(t, tc.end.String(), p.End.String(), "%s %s end", tc.kind, tc.on)
		assert.True(t, p.Contains(tc.on))
	}
}

func TestPeriodContaining_Undefined(t *testing.T) {
	_, err := payroll.NewPayPeriodSchedule(payroll.PayPeriodUndefined).PeriodContaining(biweeklyAnchor, date(2020, 1, 1))

	assert.ErrorIs(t, err, payroll.ErrInvalidState)
}

func TestWorkingDays(t *testing.T) {
	p := payroll.Period{Start: date(2020, 1, 6), End: date(2020, 1, 19)}

	assert.Equal(t, 14, p.Length())
	assert.Equal(t, 10, payroll.WorkingDays(p, nil))

	holidays := payroll.NewHolidaySet(map[payroll.Date]string{
		date(2020, 1, 13): "Company offsite",
		date(2020, 1, 18): "Saturday holiday",
	})
	assert.Equal(t, 9, payroll.WorkingDays(p, holidays))
}

func TestProrationDays_MidPeriodHire(t *testing.T) {
	// GIVEN: Biweekly period Jan 6-19 2020 (10 working days)
	// WHEN: Employee starts Thursday Jan 16
	// THEN: 2 days worked (Thu, Fri)
	p := payroll.Period{Start: date(2020, 1, 6), End: date(2020, 1, 19)}

	worked, inPeriod, err := payroll.ProrationDays(p, date(2020, 1, 16), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, worked)
	assert.Equal(t, 10, inPeriod)
}

func TestProrationDays_Termination(t *testing.T) {
	p := payroll.Period{Start: date(2020, 1, 6), End: date(2020, 1, 19)}
	last := date(2020, 1, 9)

	worked, inPeriod, err := payroll.ProrationDays(p, date(2019, 3, 1), &last, nil)

	require.NoError(t, err)
	assert.Equal(t, 4, worked)
	assert.Equal(t, 10, inPeriod)

	gross, err := payroll.GrossWagesForPartialPeriod(money("50000"), payroll.PayPeriodBiweekly, worked, inPeriod)
	require.NoError(t, err)
	assertMoney(t, "769.24", gross)
}

func TestProrationDays_WeekendOnlyPeriodCountsCalendarDays(t *testing.T) {
	saturday := date(2020, 1, 11)
	p := payroll.Period{Start: saturday, End: saturday}

	worked, inPeriod, err := payroll.ProrationDays(p, date(2019, 1, 1), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, worked)
	assert.Equal(t, 1, inPeriod)
}

func TestProrationDays_Errors(t *testing.T) {
	p := payroll.Period{Start: date(2020, 1, 6), End: date(2020, 1, 19)}
	before := date(2020, 1, 1)

	_, _, err := payroll.ProrationDays(p, date(2020, 1, 8), &before, nil)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)

	_, _, err = payroll.ProrationDays(payroll.Period{Start: p.End, End: p.Start}, before, nil, nil)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestDate_JSON(t *testing.T) {
	d := date(2020, 2, 29)

	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2020-02-29"`, string(b))

	var back payroll.Date
	require.NoError(t, back.UnmarshalJSON(b))
	assert.True(t, back.Equal(d))

	assert.ErrorIs(t, back.UnmarshalJSON([]byte(`"02/29/2020"`)), payroll.ErrInvalidInput)
}
