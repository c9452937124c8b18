/*
contribution.go - Capped contribution tax

PURPOSE:
  Computes the tax due for one pay period for a tax that accrues at a fixed
  rate up to an annual wage-base cap. FUTA and OASDI are both this tax with
  different constants.

ALGORITHM (ComputeContribution):
  1. max = wageCap × rate (no maximum when uncapped)
  2. accumulated == max  → 0, the cap is already reached
     accumulated  > max  → ConfigurationMismatch
  3. tentative = wages × rate, rounded to cents
  4. accumulated + tentative > max → max − accumulated (lands exactly on the cap)
     not rounded, so a max below cent precision yields a sub-cent clip
  5. otherwise tentative

GUARANTEES:
  - result ≥ 0
  - accumulated + result ≤ max
  - non-decreasing in wages for a fixed accumulated value
  - pure: the caller owns the ledger and applies the returned delta

SPECIALIZATIONS:
  FUTA:  employer-only. There is no employee share to attribute.
  OASDI: dual-sided. Employee-withheld and employer-paid shares use two
         independent configs and two independent ledgers.

SEE ALSO:
  - rates.go: TaxRateConfig and WageCap
  - ratetable.go: configs per tax year
  - ../payrun: the pipeline that owns ledgers and applies the deltas
*/
package payroll

import "github.com/shopspring/decimal"

// ComputeContribution returns the contribution due this period without
// exceeding the annual cap of cfg.
func ComputeContribution(cfg TaxRateConfig, accumulated, wages decimal.Decimal) (decimal.Decimal, error) {
	if err := cfg.Validate(); err != nil {
		return decimal.Zero, err
	}
	if accumulated.IsNegative() {
		return decimal.Zero, negativeAmount("accumulated", accumulated)
	}
	if wages.IsNegative() {
		return decimal.Zero, negativeAmount("wages", wages)
	}

	tentative := Cents(wages.Mul(cfg.Rate))

	ceiling, capped := cfg.MaxContribution()
	if !capped {
		return tentative, nil
	}

	if accumulated.GreaterThan(ceiling) {
		return decimal.Zero, &ConfigurationMismatchError{
			Year:            cfg.Year,
			Kind:            cfg.Kind,
			Side:            cfg.Side,
			Accumulated:     accumulated,
			MaxContribution: ceiling,
		}
	}
	if accumulated.Equal(ceiling) {
		return decimal.Zero, nil
	}

	if accumulated.Add(tentative).GreaterThan(ceiling) {
		return ceiling.Sub(accumulated), nil
	}
	return tentative, nil
}

// =============================================================================
// CAPPED CONTRIBUTION TAX - Rate table injected
// =============================================================================

// CappedContributionTax computes one kind of capped tax using configs looked
// up from an injected rate table.
type CappedContributionTax struct {
	Kind  TaxKind
	Rates *RateTable
}

// Compute looks up the config for (year, Kind, side) and computes the
// contribution due.
func (t CappedContributionTax) Compute(year TaxYear, side Side, accumulated, wages decimal.Decimal) (decimal.Decimal, error) {
	cfg, err := t.Rates.Lookup(year, t.Kind, side)
	if err != nil {
		return decimal.Zero, err
	}
	return ComputeContribution(cfg, accumulated, wages)
}

// =============================================================================
// FUTA - Employer-only unemployment tax
// =============================================================================

// FUTA computes federal unemployment tax. The whole tax is paid by the
// employer, so there is only one ledger per employee per year.
type FUTA struct {
	Rates *RateTable
}

// EmployerContribution returns the FUTA due this period.
func (f FUTA) EmployerContribution(year TaxYear, accumulated, wages decimal.Decimal) (decimal.Decimal, error) {
	return CappedContributionTax{Kind: TaxFUTA, Rates: f.Rates}.Compute(year, SideEmployer, accumulated, wages)
}

// =============================================================================
// OASDI - Dual-sided social security tax
// =============================================================================

// OASDI computes social security tax. Each side is computed against its own
// config and its own accumulated contribution; an overpaid employee may get a
// refund at filing time but the business does not, so the sides never share
// a ledger.
type OASDI struct {
	Rates *RateTable
}

// Contributions returns the employee and employer shares due this period.
func (o OASDI) Contributions(year TaxYear, accumulated SideAmounts, wages decimal.Decimal) (SideAmounts, error) {
	tax := CappedContributionTax{Kind: TaxOASDI, Rates: o.Rates}

	employee, err := tax.Compute(year, SideEmployee, accumulated.Employee, wages)
	if err != nil {
		return SideAmounts{}, err
	}
	employer, err := tax.Compute(year, SideEmployer, accumulated.Employer, wages)
	if err != nil {
		return SideAmounts{}, err
	}
	return SideAmounts{Employee: employee, Employer: employer}, nil
}
