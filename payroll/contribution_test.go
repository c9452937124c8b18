package payroll_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) decimal.Decimal { return payroll.MustParseMoney(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, money(want).Equal(got), "expected %s, got %s", want, got.String())
}

func oasdi2020(t *testing.T) payroll.TaxRateConfig {
	t.Helper()
	cfg, err := payroll.StatutoryRates().Lookup(2020, payroll.TaxOASDI, payroll.SideEmployee)
	require.NoError(t, err)
	return cfg
}

// =============================================================================
// MAXIMUM CONTRIBUTION
// =============================================================================

func TestMaxContribution_OASDI2020(t *testing.T) {
	cfg := oasdi2020(t)

	ceiling, capped := cfg.MaxContribution()

	require.True(t, capped)
	assertMoney(t, "8537.40", ceiling)
}

func TestMaxContribution_DerivedPerConfig(t *testing.T) {
	// GIVEN: Two configs from different years used side by side
	// THEN: Each yields its own maximum (no value carried over between configs)
	rates := payroll.StatutoryRates()
	cfg2019, err := rates.Lookup(2019, payroll.TaxOASDI, payroll.SideEmployee)
	require.NoError(t, err)
	cfg2020, err := rates.Lookup(2020, payroll.TaxOASDI, payroll.SideEmployee)
	require.NoError(t, err)

	max2020, _ := cfg2020.MaxContribution()
	max2019, _ := cfg2019.MaxContribution()
	max2020Again, _ := cfg2020.MaxContribution()

	assertMoney(t, "8537.40", max2020)
	assertMoney(t, "8239.80", max2019)
	assertMoney(t, "8537.40", max2020Again)
}

func TestMaxContribution_Uncapped(t *testing.T) {
	cfg := payroll.TaxRateConfig{Rate: money("0.0145"), WageCap: payroll.Uncapped()}

	_, capped := cfg.MaxContribution()

	assert.False(t, capped)
}

// =============================================================================
// COMPUTE CONTRIBUTION - Cap handling
// =============================================================================

func TestComputeContribution_HugePaymentClipsToCap(t *testing.T) {
	// GIVEN: No contributions yet this year
	// WHEN: A single 150,000 payment is taxed
	// THEN: Exactly the maximum contribution is due
	got, err := payroll.ComputeContribution(oasdi2020(t), decimal.Zero, money("150000"))

	require.NoError(t, err)
	assertMoney(t, "8537.40", got)
}

func TestComputeContribution_CapAlreadyReached(t *testing.T) {
	got, err := payroll.ComputeContribution(oasdi2020(t), money("8537.40"), money("150000"))

	require.NoError(t, err)
	assert.True(t, got.IsZero(), "expected 0, got %s", got)
}

func TestComputeContribution_ClipsToCloseRemainingGap(t *testing.T) {
	// GIVEN: 100.00 short of the cap
	got, err := payroll.ComputeContribution(oasdi2020(t), money("8437.40"), money("150000"))

	require.NoError(t, err)
	assertMoney(t, "100.00", got)
}

func TestComputeContribution_SubCentCapClipsUnrounded(t *testing.T) {
	// 7000.55 × 0.062 = 434.0341: the maximum is not a whole number of cents
	cfg := payroll.TaxRateConfig{Year: 2020, Kind: payroll.TaxOASDI, Side: payroll.SideEmployee,
		Rate: money("0.062"), WageCap: payroll.CappedAt(money("7000.55"))}
	ceiling, _ := cfg.MaxContribution()
	assertMoney(t, "434.0341", ceiling)

	got, err := payroll.ComputeContribution(cfg, money("400"), money("1000"))
	require.NoError(t, err)

	// The clip is the exact remaining gap, not rounded to cents
	assertMoney(t, "34.0341", got)
	assertMoney(t, "434.0341", money("400").Add(got))

	after, err := payroll.ComputeContribution(cfg, money("400").Add(got), money("1000"))
	require.NoError(t, err)
	assert.True(t, after.IsZero())
}

func TestComputeContribution_BelowCap(t *testing.T) {
	got, err := payroll.ComputeContribution(oasdi2020(t), money("1000"), money("5296.15"))

	require.NoError(t, err)
	// 5296.15 × 0.062 = 328.3613 → 328.36
	assertMoney(t, "328.36", got)
}

func TestComputeContribution_FUTA(t *testing.T) {
	futa := payroll.FUTA{Rates: payroll.StatutoryRates()}

	first, err := futa.EmployerContribution(2020, decimal.Zero, money("5000"))
	require.NoError(t, err)
	assertMoney(t, "300.00", first)

	// 300 + 5000 × 0.06 = 600 > 420 → clipped to 120
	second, err := futa.EmployerContribution(2020, first, money("5000"))
	require.NoError(t, err)
	assertMoney(t, "120.00", second)

	third, err := futa.EmployerContribution(2020, first.Add(second), money("5000"))
	require.NoError(t, err)
	assert.True(t, third.IsZero())
}

func TestComputeContribution_FUTAHasNoEmployeeShare(t *testing.T) {
	tax := payroll.CappedContributionTax{Kind: payroll.TaxFUTA, Rates: payroll.StatutoryRates()}

	_, err := tax.Compute(2020, payroll.SideEmployee, decimal.Zero, money("1000"))

	assert.ErrorIs(t, err, payroll.ErrRateNotFound)
}

func TestComputeContribution_OASDISidesAreIndependent(t *testing.T) {
	// GIVEN: Employee side already at cap, employer side not
	oasdi := payroll.OASDI{Rates: payroll.StatutoryRates()}
	acc := payroll.SideAmounts{Employee: money("8537.40"), Employer: money("8000")}

	got, err := oasdi.Contributions(2020, acc, money("10000"))

	require.NoError(t, err)
	assert.True(t, got.Employee.IsZero())
	assertMoney(t, "537.40", got.Employer)
	assertMoney(t, "537.40", got.Total())
}

func TestComputeContribution_Uncapped(t *testing.T) {
	cfg := payroll.TaxRateConfig{Rate: money("0.0145"), WageCap: payroll.Uncapped()}

	got, err := payroll.ComputeContribution(cfg, money("999999"), money("10000"))

	require.NoError(t, err)
	assertMoney(t, "145.00", got)
}

func TestComputeContribution_ZeroCapIsNotUncapped(t *testing.T) {
	// GIVEN: A zero-valued cap (not Uncapped)
	// THEN: Nothing is taxable
	cfg := payroll.TaxRateConfig{Rate: money("0.06")}

	got, err := payroll.ComputeContribution(cfg, decimal.Zero, money("10000"))

	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

// =============================================================================
// COMPUTE CONTRIBUTION - Errors
// =============================================================================

func TestComputeContribution_RejectsNegativeInputs(t *testing.T) {
	cfg := oasdi2020(t)

	_, err := payroll.ComputeContribution(cfg, money("-1"), money("100"))
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)

	_, err = payroll.ComputeContribution(cfg, decimal.Zero, money("-0.01"))
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)

	var in *payroll.InputError
	require.True(t, errors.As(err, &in))
	assert.Equal(t, "wages", in.Field)
}

func TestComputeContribution_RejectsRateOutOfRange(t *testing.T) {
	cfg := payroll.TaxRateConfig{Rate: money("1.5"), WageCap: payroll.CappedAt(money("1000"))}

	_, err := payroll.ComputeContribution(cfg, decimal.Zero, money("100"))

	assert.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestComputeContribution_AccumulatedAboveCapIsMismatch(t *testing.T) {
	// GIVEN: A 2020 ledger (8537.40) computed against the 2017 config (max 7886.40)
	cfg2017, err := payroll.StatutoryRates().Lookup(2017, payroll.TaxOASDI, payroll.SideEmployee)
	require.NoError(t, err)

	_, err = payroll.ComputeContribution(cfg2017, money("8537.40"), money("100"))

	assert.ErrorIs(t, err, payroll.ErrConfigurationMismatch)
	var mismatch *payroll.ConfigurationMismatchError
	require.True(t, errors.As(err, &mismatch))
	assertMoney(t, "7886.40", mismatch.MaxContribution)
	assert.True(t, payroll.IsClientError(err))
}

// =============================================================================
// INVARIANTS
// =============================================================================

func TestComputeContribution_NeverExceedsCap(t *testing.T) {
	cfg := oasdi2020(t)
	ceiling, _ := cfg.MaxContribution()

	accumulated := []string{"0", "0.01", "4000", "8437.40", "8537.39", "8537.40"}
	wages := []string{"0", "0.01", "0.08", "1", "1613.21", "10000", "137700", "1000000"}

	for _, a := range accumulated {
		for _, w := range wages {
			got, err := payroll.ComputeContribution(cfg, money(a), money(w))
			require.NoError(t, err)

			assert.False(t, got.IsNegative(), "acc=%s wages=%s", a, w)
			total := money(a).Add(got)
			assert.True(t, total.LessThanOrEqual(ceiling), "acc=%s wages=%s total=%s", a, w, total)

			// Equality whenever the unclipped amount would overshoot
			if money(a).Add(payroll.Cents(money(w).Mul(cfg.Rate))).GreaterThan(ceiling) {
				assert.True(t, total.Equal(ceiling), "acc=%s wages=%s should land on cap", a, w)
			}
		}
	}
}

func TestComputeContribution_MonotonicInWages(t *testing.T) {
	cfg := oasdi2020(t)
	accumulated := money("8000")

	prev := decimal.Zero
	for w := int64(0); w <= 20000; w += 250 {
		got, err := payroll.ComputeContribution(cfg, accumulated, decimal.NewFromInt(w))
		require.NoError(t, err)
		assert.True(t, got.GreaterThanOrEqual(prev), "wages=%d got=%s prev=%s", w, got, prev)
		prev = got
	}
}

func TestComputeContribution_ConcurrentConfigs(t *testing.T) {
	// GIVEN: Many goroutines using different year configs at once
	// THEN: Every result matches its own config
	rates := payroll.StatutoryRates()
	want := map[payroll.TaxYear]string{2017: "7886.40", 2018: "7960.80", 2019: "8239.80", 2020: "8537.40"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for year, expected := range want {
			wg.Add(1)
			go func(year payroll.TaxYear, expected string) {
				defer wg.Done()
				cfg, err := rates.Lookup(year, payroll.TaxOASDI, payroll.SideEmployer)
				if !assert.NoError(t, err) {
					return
				}
				got, err := payroll.ComputeContribution(cfg, decimal.Zero, money("1000000"))
				if assert.NoError(t, err) {
					assert.True(t, money(expected).Equal(got), "year %d: got %s", year, got)
				}
			}(year, expected)
		}
	}
	wg.Wait()
}
