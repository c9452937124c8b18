/*
Package ratetable loads tax rate tables from configuration files.

PURPOSE:
  Rate constants change every tax year. Keeping them in a versioned file
  means a new wage base is a data change, not a code change. This package
  converts a file into a payroll.RateTable plus the per-year FUTA liability
  rule overrides.

FILE SCHEMA (YAML shown; JSON uses the same keys):
  years:
    - year: 2020
      futa:
        rate: 0.06
        wage_cap: 7000
        liability_rule: '{">=": [{"var": "max_quarter_wages"}, 1500]}'
      oasdi:
        employee: {rate: 0.062, wage_cap: 137700}
        employer: {rate: 0.062, wage_cap: 137700}

  Numbers may be written as numbers or strings; they are parsed as decimals,
  never floats. wage_cap may be "unlimited". A wage_cap that is omitted is an
  error: "no cap" has to be written out.

USAGE:
  file, err := ratetable.Load("rates/statutory.yaml")
  cfg, err := file.Rates.Lookup(2020, payroll.TaxFUTA, payroll.SideEmployer)

SEE ALSO:
  - payroll/ratetable.go: RateTable and the built-in statutory table
  - liability: consumes LiabilityRules
*/
package ratetable

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// FILE SCHEMA TYPES
// =============================================================================

// Number is a decimal written either as a JSON/YAML number or a string.
type Number string

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	*n = Number(s)
	return nil
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	*n = Number(node.Value)
	return nil
}

// FileJSON is the document root.
type FileJSON struct {
	Years []YearJSON `json:"years" yaml:"years"`
}

type YearJSON struct {
	Year  int        `json:"year" yaml:"year"`
	FUTA  *FUTAJSON  `json:"futa,omitempty" yaml:"futa,omitempty"`
	OASDI *OASDIJSON `json:"oasdi,omitempty" yaml:"oasdi,omitempty"`
}

type RateJSON struct {
	Rate    Number `json:"rate" yaml:"rate"`
	WageCap Number `json:"wage_cap" yaml:"wage_cap"`
}

type FUTAJSON struct {
	RateJSON      `yaml:",inline"`
	LiabilityRule string `json:"liability_rule,omitempty" yaml:"liability_rule,omitempty"`
}

type OASDIJSON struct {
	Employee *RateJSON `json:"employee" yaml:"employee"`
	Employer *RateJSON `json:"employer" yaml:"employer"`
}

// =============================================================================
// FORMAT
// =============================================================================

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported rate file extension %q", filepath.Ext(path))
	}
}

// =============================================================================
// LOADING
// =============================================================================

// File is a parsed rate file.
type File struct {
	Rates          *payroll.RateTable
	LiabilityRules map[payroll.TaxYear]string
}

// Load reads and parses a rate file, choosing the format by extension.
func Load(path string) (*File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate file: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes a rate document and builds the rate table.
func Parse(data []byte, format Format) (*File, error) {
	var doc FileJSON
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse rate JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse rate YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown rate file format %q", format)
	}
	return FromJSON(doc)
}

// FromJSON converts a decoded document into a File.
func FromJSON(doc FileJSON) (*File, error) {
	if len(doc.Years) == 0 {
		return nil, fmt.Errorf("rate file has no years")
	}

	var configs []payroll.TaxRateConfig
	rules := make(map[payroll.TaxYear]string)

	for _, y := range doc.Years {
		year := payroll.TaxYear(y.Year)
		if y.Year <= 0 {
			return nil, fmt.Errorf("invalid tax year %d", y.Year)
		}

		if y.FUTA != nil {
			cfg, err := toConfig(year, payroll.TaxFUTA, payroll.SideEmployer, y.FUTA.RateJSON)
			if err != nil {
				return nil, err
			}
			configs = append(configs, cfg)
			if y.FUTA.LiabilityRule != "" {
				rules[year] = y.FUTA.LiabilityRule
			}
		}

		if y.OASDI != nil {
			if y.OASDI.Employee == nil || y.OASDI.Employer == nil {
				return nil, fmt.Errorf("oasdi %s: both employee and employer rates are required", year)
			}
			employee, err := toConfig(year, payroll.TaxOASDI, payroll.SideEmployee, *y.OASDI.Employee)
			if err != nil {
				return nil, err
			}
			employer, err := toConfig(year, payroll.TaxOASDI, payroll.SideEmployer, *y.OASDI.Employer)
			if err != nil {
				return nil, err
			}
			configs = append(configs, employee, employer)
		}
	}

	table, err := payroll.NewRateTable(configs...)
	if err != nil {
		return nil, err
	}
	return &File{Rates: table, LiabilityRules: rules}, nil
}

func toConfig(year payroll.TaxYear, kind payroll.TaxKind, side payroll.Side, r RateJSON) (payroll.TaxRateConfig, error) {
	where := fmt.Sprintf("%s/%s %s", kind, side, year)

	rate, err := decimal.NewFromString(string(r.Rate))
	if err != nil {
		return payroll.TaxRateConfig{}, fmt.Errorf("%s: invalid rate %q: %w", where, r.Rate, err)
	}

	wageCap, err := ParseWageCap(string(r.WageCap))
	if err != nil {
		return payroll.TaxRateConfig{}, fmt.Errorf("%s: %w", where, err)
	}

	return payroll.TaxRateConfig{Year: year, Kind: kind, Side: side, Rate: rate, WageCap: wageCap}, nil
}

// ParseWageCap parses a wage cap amount or "unlimited".
func ParseWageCap(value string) (payroll.WageCap, error) {
	s := strings.TrimSpace(value)
	switch strings.ToLower(s) {
	case "":
		return payroll.WageCap{}, fmt.Errorf("wage_cap is required (use \"unlimited\" for no cap)")
	case "unlimited":
		return payroll.Uncapped(), nil
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return payroll.WageCap{}, fmt.Errorf("invalid wage_cap %q: %w", s, err)
	}
	return payroll.CappedAt(amount), nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ToJSON renders a rate table in the file schema, years ascending.
func ToJSON(table *payroll.RateTable, rules map[payroll.TaxYear]string) FileJSON {
	var doc FileJSON
	for _, year := range table.Years() {
		y := YearJSON{Year: int(year)}
		for _, cfg := range table.ForYear(year) {
			r := RateJSON{Rate: Number(cfg.Rate.String()), WageCap: Number(cfg.WageCap.String())}
			switch {
			case cfg.Kind == payroll.TaxFUTA:
				y.FUTA = &FUTAJSON{RateJSON: r, LiabilityRule: rules[year]}
			case cfg.Side == payroll.SideEmployee:
				if y.OASDI == nil {
					y.OASDI = &OASDIJSON{}
				}
				y.OASDI.Employee = &r
			default:
				if y.OASDI == nil {
					y.OASDI = &OASDIJSON{}
				}
				y.OASDI.Employer = &r
			}
		}
		doc.Years = append(doc.Years, y)
	}
	return doc
}
