package payroll

import "context"

// =============================================================================
// STORE - Interface for contribution persistence (append-only)
// =============================================================================

// Store persists contribution entries.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete.
type Store interface {
	// AppendBatch persists entries atomically. Either all succeed or none do.
	// Returns ErrDuplicateIdempotencyKey if any key already exists.
	AppendBatch(ctx context.Context, entries []ContributionEntry) error

	// Load returns the entries of an employee for a tax year, ordered by pay date.
	Load(ctx context.Context, employeeID EmployeeID, year TaxYear) ([]ContributionEntry, error)

	// Exists checks if an idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}
