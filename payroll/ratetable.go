package payroll

import (
	"fmt"
	"sort"
)

// =============================================================================
// RATE TABLE - Explicit lookup of rate configs by tax year
// =============================================================================

type rateKey struct {
	Year TaxYear
	Kind TaxKind
	Side Side
}

// RateTable maps (year, kind, side) to a TaxRateConfig.
// A table is built once and never modified, so it can be shared across
// goroutines without locking.
type RateTable struct {
	configs map[rateKey]TaxRateConfig
}

// NewRateTable builds a table from configs. Every config is validated and
// each (year, kind, side) may appear only once.
func NewRateTable(configs ...TaxRateConfig) (*RateTable, error) {
	t := &RateTable{configs: make(map[rateKey]TaxRateConfig, len(configs))}
	for _, c := range configs {
		if !c.Kind.Valid() {
			return nil, &InputError{Field: "kind", Value: string(c.Kind), Reason: "unknown tax kind"}
		}
		if !c.Side.Valid() {
			return nil, &InputError{Field: "side", Value: string(c.Side), Reason: "unknown side"}
		}
		if c.Kind == TaxFUTA && c.Side != SideEmployer {
			return nil, &InputError{Field: "side", Value: string(c.Side), Reason: "FUTA is employer-paid only"}
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		k := rateKey{Year: c.Year, Kind: c.Kind, Side: c.Side}
		if _, dup := t.configs[k]; dup {
			return nil, fmt.Errorf("duplicate rate config for %s/%s %s", c.Kind, c.Side, c.Year)
		}
		t.configs[k] = c
	}
	return t, nil
}

// Lookup returns the config in force for the given year, kind and side.
func (t *RateTable) Lookup(year TaxYear, kind TaxKind, side Side) (TaxRateConfig, error) {
	if t == nil {
		return TaxRateConfig{}, &RateNotFoundError{Year: year, Kind: kind, Side: side}
	}
	c, ok := t.configs[rateKey{Year: year, Kind: kind, Side: side}]
	if !ok {
		return TaxRateConfig{}, &RateNotFoundError{Year: year, Kind: kind, Side: side}
	}
	return c, nil
}

// Years returns the tax years present in the table, ascending.
func (t *RateTable) Years() []TaxYear {
	if t == nil {
		return nil
	}
	seen := make(map[TaxYear]bool)
	var years []TaxYear
	for k := range t.configs {
		if !seen[k.Year] {
			seen[k.Year] = true
			years = append(years, k.Year)
		}
	}
	sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })
	return years
}

// ForYear returns every config of a tax year ordered by kind then side.
func (t *RateTable) ForYear(year TaxYear) []TaxRateConfig {
	if t == nil {
		return nil
	}
	var out []TaxRateConfig
	for k, c := range t.configs {
		if k.Year == year {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Side < out[j].Side
	})
	return out
}

// =============================================================================
// STATUTORY RATES - Published federal constants
// =============================================================================

// IRS Pub 15: social security is 6.2% each for employer and employee up to
// the wage base; FUTA is 6.0% of the first $7,000 paid to each employee.
var oasdiWageBase = map[TaxYear]int64{
	2017: 127200,
	2018: 128400,
	2019: 132900,
	2020: 137700,
	2021: 142800,
	2022: 147000,
	2023: 160200,
	2024: 168600,
}

const (
	futaRate     = "0.06"
	futaWageBase = 7000
	oasdiRate    = "0.062"
)

// StatutoryRates returns a new table of the published federal rates.
// Callers pick the year explicitly; there is no "current year".
func StatutoryRates() *RateTable {
	var configs []TaxRateConfig
	for year, base := range oasdiWageBase {
		configs = append(configs,
			TaxRateConfig{
				Year:    year,
				Kind:    TaxFUTA,
				Side:    SideEmployer,
				Rate:    MustParseMoney(futaRate),
				WageCap: CappedAt(NewMoneyFromInt(futaWageBase)),
			},
			TaxRateConfig{
				Year:    year,
				Kind:    TaxOASDI,
				Side:    SideEmployee,
				Rate:    MustParseMoney(oasdiRate),
				WageCap: CappedAt(NewMoneyFromInt(base)),
			},
			TaxRateConfig{
				Year:    year,
				Kind:    TaxOASDI,
				Side:    SideEmployer,
				Rate:    MustParseMoney(oasdiRate),
				WageCap: CappedAt(NewMoneyFromInt(base)),
			},
		)
	}
	t, err := NewRateTable(configs...)
	if err != nil {
		panic(err)
	}
	return t
}
