package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// WAGE CAP - Annual wage base, possibly unlimited
// =============================================================================

// WageCap is the maximum annual wage subject to a tax.
// The zero value is a cap of 0 (nothing taxable); "no cap" must be asked for
// explicitly with Uncapped.
type WageCap struct {
	Amount    decimal.Decimal
	Unlimited bool
}

// CappedAt returns a wage cap of the given amount.
func CappedAt(amount decimal.Decimal) WageCap { return WageCap{Amount: amount} }

// Uncapped returns a wage cap with no ceiling.
func Uncapped() WageCap { return WageCap{Unlimited: true} }

func (c WageCap) String() string {
	if c.Unlimited {
		return "unlimited"
	}
	return c.Amount.StringFixed(CentPlaces)
}

// =============================================================================
// TAX RATE CONFIG - Rate and cap for one tax, one side, one year
// =============================================================================

// TaxRateConfig holds the constants for one capped contribution tax.
// Values are treated as immutable once selected for a calculation.
type TaxRateConfig struct {
	Year    TaxYear
	Kind    TaxKind
	Side    Side
	Rate    decimal.Decimal // fraction, e.g. 0.062
	WageCap WageCap
}

// Validate checks the rate is within [0,1] and the cap is not negative.
func (c TaxRateConfig) Validate() error {
	if c.Rate.IsNegative() || c.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return &InputError{Field: "rate", Value: c.Rate.String(), Reason: "must be within [0, 1]"}
	}
	if !c.WageCap.Unlimited && c.WageCap.Amount.IsNegative() {
		return negativeAmount("wage_cap", c.WageCap.Amount)
	}
	return nil
}

// MaxContribution returns wageCap × rate. The second return value is false
// when the cap is unlimited, in which case there is no maximum.
//
// The value is derived from the receiver on every call. Nothing is cached,
// so configs for different years can be used side by side.
func (c TaxRateConfig) MaxContribution() (decimal.Decimal, bool) {
	if c.WageCap.Unlimited {
		return decimal.Zero, false
	}
	return c.WageCap.Amount.Mul(c.Rate), true
}

func (c TaxRateConfig) String() string {
	return fmt.Sprintf("%s/%s %s: rate %s, cap %s", c.Kind, c.Side, c.Year, c.Rate, c.WageCap)
}
