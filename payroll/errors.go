/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match categories with errors.Is and inspect details with errors.As.

ERROR CATEGORIES:
  1. InvalidInput - negative wages/contributions, out-of-range days worked
  2. InvalidState - pay period kind left undefined
  3. ConfigurationMismatch - accumulated contribution already above the cap
  4. Lookup/ledger errors - missing rate config, duplicate idempotency key

Engine errors are never retried: there is no I/O inside the engine, so a
failure is always a caller problem.

USAGE:
  if errors.Is(err, payroll.ErrInvalidInput) {
      var in *payroll.InputError
      errors.As(err, &in)
      log.Printf("bad %s: %s", in.Field, in.Reason)
  }
*/
package payroll

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for negative amounts, rates outside [0,1]
	// and days-worked values outside the pay period.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState is returned when a wage calculation is requested while
	// the pay period kind is undefined.
	ErrInvalidState = errors.New("invalid state")

	// ErrConfigurationMismatch is returned when the accumulated contribution
	// already exceeds the maximum contribution of the supplied config.
	ErrConfigurationMismatch = errors.New("configuration mismatch")

	// ErrRateNotFound is returned when the rate table has no config for the
	// requested year, kind and side.
	ErrRateNotFound = errors.New("rate config not found")

	// ErrDuplicateIdempotencyKey is returned when a ledger entry with the same
	// idempotency key already exists. Expected for retried pay runs.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InputError describes which argument was rejected and why.
type InputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s=%s: %s", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func negativeAmount(field string, v decimal.Decimal) error {
	return &InputError{Field: field, Value: v.String(), Reason: "must not be negative"}
}

// StateError reports a calculation attempted on a non-concrete pay period.
type StateError struct {
	Kind PayPeriodKind
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state: pay period %q is not defined", string(e.Kind))
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// ConfigurationMismatchError reports a ledger that is already past the cap of
// the config it is being computed against, usually a config from another year.
type ConfigurationMismatchError struct {
	Year            TaxYear
	Kind            TaxKind
	Side            Side
	Accumulated     decimal.Decimal
	MaxContribution decimal.Decimal
}

func (e *ConfigurationMismatchError) Error() string {
	return fmt.Sprintf("configuration mismatch: %s/%s %s accumulated %s exceeds maximum contribution %s",
		e.Kind, e.Side, e.Year, e.Accumulated, e.MaxContribution)
}

func (e *ConfigurationMismatchError) Unwrap() error { return ErrConfigurationMismatch }

// RateNotFoundError identifies the missing rate table entry.
type RateNotFoundError struct {
	Year TaxYear
	Kind TaxKind
	Side Side
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no %s rate for %s side in tax year %s", e.Kind, e.Side, e.Year)
}

func (e *RateNotFoundError) Unwrap() error { return ErrRateNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrConfigurationMismatch)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRateNotFound) ||
		errors.Is(err, ErrEmployeeNotFound)
}
