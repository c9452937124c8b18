package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func TestStatutoryRates_Lookup(t *testing.T) {
	rates := payroll.StatutoryRates()

	futa, err := rates.Lookup(2020, payroll.TaxFUTA, payroll.SideEmployer)
	require.NoError(t, err)
	assertMoney(t, "0.06", futa.Rate)
	assertMoney(t, "7000", futa.WageCap.Amount)
	ceiling, _ := futa.MaxContribution()
	assertMoney(t, "420", ceiling)

	employer, err := rates.Lookup(2024, payroll.TaxOASDI, payroll.SideEmployer)
	require.NoError(t, err)
	assertMoney(t, "168600", employer.WageCap.Amount)

	_, err = rates.Lookup(1999, payroll.TaxOASDI, payroll.SideEmployee)
	assert.ErrorIs(t, err, payroll.ErrRateNotFound)
	assert.True(t, payroll.IsNotFound(err))
}

func TestRateTable_YearsAndForYear(t *testing.T) {
	rates := payroll.StatutoryRates()

	years := rates.Years()
	require.NotEmpty(t, years)
	assert.Equal(t, payroll.TaxYear(2017), years[0])
	assert.Equal(t, payroll.TaxYear(2024), years[len(years)-1])

	configs := rates.ForYear(2020)
	require.Len(t, configs, 3)
	assert.Equal(t, payroll.TaxFUTA, configs[0].Kind)
	assert.Equal(t, payroll.SideEmployee, configs[1].Side)
	assert.Equal(t, payroll.SideEmployer, configs[2].Side)
}

func TestNewRateTable_Validation(t *testing.T) {
	valid := payroll.TaxRateConfig{
		Year: 2020, Kind: payroll.TaxOASDI, Side: payroll.SideEmployee,
		Rate: money("0.062"), WageCap: payroll.CappedAt(money("137700")),
	}

	_, err := payroll.NewRateTable(valid, valid)
	assert.Error(t, err, "duplicate key")

	futaEmployee := valid
	futaEmployee.Kind = payroll.TaxFUTA
	_, err = payroll.NewRateTable(futaEmployee)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput, "FUTA has no employee side")

	negativeCap := valid
	negativeCap.WageCap = payroll.CappedAt(money("-1"))
	_, err = payroll.NewRateTable(negativeCap)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)

	table, err := payroll.NewRateTable(valid)
	require.NoError(t, err)
	got, err := table.Lookup(2020, payroll.TaxOASDI, payroll.SideEmployee)
	require.NoError(t, err)
	assert.Equal(t, "oasdi/employee 2020: rate 0.062, cap 137700.00", got.String())
}

func TestRateTable_NilLookup(t *testing.T) {
	var table *payroll.RateTable

	_, err := table.Lookup(2020, payroll.TaxFUTA, payroll.SideEmployer)

	assert.ErrorIs(t, err, payroll.ErrRateNotFound)
	assert.Empty(t, table.Years())
	assert.Empty(t, table.ForYear(2020))
}
