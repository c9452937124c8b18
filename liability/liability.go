/*
Package liability decides whether an employer owes FUTA for a tax year.

RULE:
  An employer is liable for FUTA if, during the year or the prior year, it
  paid wages of at least $1,500 in any calendar quarter, or had at least one
  employee for some part of a day in 20 or more different weeks.

  The test is a JSON Logic expression over the employer's activity so that a
  rate file can override it per tax year without a code change:

    {"or": [
      {">=": [{"var": "max_quarter_wages"}, 1500]},
      {">=": [{"var": "weeks_with_employees"}, 20]}
    ]}

CREDIT:
  Employers that pay state unemployment tax on time get a credit of up to
  5.4%, so the usual effective FUTA rate is 6.0% − 5.4% = 0.6%.

SEE ALSO:
  - ../ratetable: per-year rule overrides
  - ../payroll: the FUTA contribution itself
*/
package liability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// DefaultRule is the statutory FUTA liability test.
const DefaultRule = `{"or": [
	{">=": [{"var": "max_quarter_wages"}, 1500]},
	{">=": [{"var": "weeks_with_employees"}, 20]}
]}`

// MaxStateCredit is the largest credit against FUTA for state unemployment tax paid.
const MaxStateCredit = "0.054"

// =============================================================================
// ACTIVITY & RESULT
// =============================================================================

// Activity summarizes an employer's payroll for the liability test.
type Activity struct {
	QuarterlyWages     [4]decimal.Decimal
	WeeksWithEmployees int
}

// MaxQuarterWages returns the largest quarterly wage total.
func (a Activity) MaxQuarterWages() decimal.Decimal {
	highest := decimal.Zero
	for _, w := range a.QuarterlyWages {
		if w.GreaterThan(highest) {
			highest = w
		}
	}
	return highest
}

func (a Activity) validate() error {
	for i, w := range a.QuarterlyWages {
		if w.IsNegative() {
			return &payroll.InputError{Field: fmt.Sprintf("quarterly_wages[%d]", i), Value: w.String(), Reason: "must not be negative"}
		}
	}
	if a.WeeksWithEmployees < 0 || a.WeeksWithEmployees > 53 {
		return &payroll.InputError{Field: "weeks_with_employees", Value: fmt.Sprint(a.WeeksWithEmployees), Reason: "must be within [0, 53]"}
	}
	return nil
}

type Result struct {
	Year   payroll.TaxYear
	Liable bool
	Rule   string
}

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator applies the liability rule in force for a tax year.
// Built once and read-only afterwards.
type Evaluator struct {
	rules map[payroll.TaxYear]string
}

// NewEvaluator validates the per-year overrides. Years without an override
// use DefaultRule.
func NewEvaluator(overrides map[payroll.TaxYear]string) (*Evaluator, error) {
	e := &Evaluator{rules: make(map[payroll.TaxYear]string, len(overrides))}
	for year, rule := range overrides {
		if !jsonlogic.IsValid(strings.NewReader(rule)) {
			return nil, &payroll.InputError{Field: "liability_rule", Value: year.String(), Reason: "not a valid JSON Logic rule"}
		}
		e.rules[year] = rule
	}
	return e, nil
}

// RuleFor returns the rule in force for year.
func (e *Evaluator) RuleFor(year payroll.TaxYear) string {
	if e != nil {
		if rule, ok := e.rules[year]; ok {
			return rule
		}
	}
	return DefaultRule
}

// Evaluate runs the liability test for year.
func (e *Evaluator) Evaluate(year payroll.TaxYear, activity Activity) (Result, error) {
	if err := activity.validate(); err != nil {
		return Result{}, err
	}

	data, err := json.Marshal(map[string]any{
		"max_quarter_wages":    activity.MaxQuarterWages().InexactFloat64(),
		"weeks_with_employees": activity.WeeksWithEmployees,
	})
	if err != nil {
		return Result{}, err
	}

	rule := e.RuleFor(year)
	var out bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(rule), bytes.NewReader(data), &out); err != nil {
		return Result{}, fmt.Errorf("failed to apply liability rule for %s: %w", year, err)
	}

	var liable bool
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &liable); err != nil {
		return Result{}, fmt.Errorf("liability rule for %s must return a boolean, got %s", year, strings.TrimSpace(out.String()))
	}
	return Result{Year: year, Liable: liable, Rule: rule}, nil
}

// EffectiveRate returns the FUTA rate after the state unemployment credit.
// The credit is limited to MaxStateCredit and the result never goes below 0.
func EffectiveRate(rate, stateCredit decimal.Decimal) (decimal.Decimal, error) {
	if rate.IsNegative() {
		return decimal.Zero, &payroll.InputError{Field: "rate", Value: rate.String(), Reason: "must not be negative"}
	}
	if stateCredit.IsNegative() {
		return decimal.Zero, &payroll.InputError{Field: "state_credit", Value: stateCredit.String(), Reason: "must not be negative"}
	}
	credit := decimal.Min(stateCredit, decimal.RequireFromString(MaxStateCredit))
	return decimal.Max(rate.Sub(credit), decimal.Zero), nil
}
