/*
Package sqlite provides a SQLite-backed implementation of the payroll storage.

PURPOSE:
  Persists the contribution ledger, the employee roster, company holidays
  and the pay-run log. In production, the same patterns apply to
  PostgreSQL with only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  payroll.Store:           Contribution ledger persistence
  payroll.HolidayCalendar: Company holidays for proration

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the contributions table
  - No DELETE statements on the contributions table
  - A contribution is corrected by the next pay run, never in place

KEY TABLES:
  contributions: Immutable ledger of applied FUTA/OASDI contributions
  employees:     Payroll roster (annual wage, pay period, hire/termination)
  holidays:      Company holidays, optionally recurring every year
  pay_runs:      One row per batch pay run, for audit and the scheduler

INDEXES:
  - idx_contributions_employee_year: Year-to-date totals (hot path)
  - contributions.idempotency_key UNIQUE: a pay run applies once

DECIMALS:
  Money and rates are stored as TEXT and parsed with shopspring/decimal.
  REAL would lose cents.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := payroll.NewLedger(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go: Interface definition
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payrun"
)

// Store implements the payroll storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every ":memory:" connection is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Contributions (append-only ledger)
	CREATE TABLE IF NOT EXISTS contributions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		tax_year INTEGER NOT NULL,
		tax_kind TEXT NOT NULL,
		side TEXT NOT NULL,
		pay_date TEXT NOT NULL,
		wages TEXT NOT NULL,
		amount TEXT NOT NULL,
		pay_run_id TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contributions_employee_year
		ON contributions(employee_id, tax_year, pay_date);
	CREATE INDEX IF NOT EXISTS idx_contributions_pay_run
		ON contributions(pay_run_id) WHERE pay_run_id IS NOT NULL;

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		annual_wage TEXT NOT NULL,
		pay_period TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		termination_date TEXT,
		created_at TEXT NOT NULL
	);

	-- Holidays (non-working days for proration)
	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL,
		PRIMARY KEY (date, name)
	);

	-- Pay runs (batch audit log)
	CREATE TABLE IF NOT EXISTS pay_runs (
		id TEXT PRIMARY KEY,
		pay_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		processed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pay_runs_status
		ON pay_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONTRIBUTION STORE (payroll.Store interface)
// =============================================================================

func (s *Store) appendEntry(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, e payroll.ContributionEntry) error {
	query := `
		INSERT INTO contributions
		(id, employee_id, tax_year, tax_kind, side, pay_date, wages, amount,
		 pay_run_id, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, query,
		e.ID,
		e.EmployeeID,
		int(e.Year),
		e.Kind,
		e.Side,
		e.PayDate.String(),
		e.Wages.String(),
		e.Amount.String(),
		nullString(e.PayRunID),
		nullString(e.IdempotencyKey),
		createdAt.Format(time.RFC3339Nano),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return payroll.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append contribution: %w", err)
	}

	return nil
}

// AppendBatch adds multiple entries atomically.
func (s *Store) AppendBatch(ctx context.Context, entries []payroll.ContributionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicate idempotency keys within the batch first
	idempotencyKeys := make(map[string]bool)
	for _, e := range entries {
		if e.IdempotencyKey != "" {
			if idempotencyKeys[e.IdempotencyKey] {
				return payroll.ErrDuplicateIdempotencyKey
			}
			idempotencyKeys[e.IdempotencyKey] = true
		}
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, e := range entries {
		if err := s.appendEntry(ctx, sqlTx, e); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// Load returns an employee's contributions for a tax year.
func (s *Store) Load(ctx context.Context, employeeID payroll.EmployeeID, year payroll.TaxYear) ([]payroll.ContributionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, tax_year, tax_kind, side, pay_date, wages, amount,
		       pay_run_id, idempotency_key, created_at
		FROM contributions
		WHERE employee_id = ? AND tax_year = ?
		ORDER BY pay_date ASC, created_at ASC, rowid ASC
	`

	return s.queryEntries(ctx, query, employeeID, int(year))
}

// LoadByPayRun returns every contribution recorded by a pay run.
func (s *Store) LoadByPayRun(ctx context.Context, payRunID string) ([]payroll.ContributionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, tax_year, tax_kind, side, pay_date, wages, amount,
		       pay_run_id, idempotency_key, created_at
		FROM contributions
		WHERE pay_run_id = ?
		ORDER BY employee_id ASC, tax_kind ASC, side ASC
	`

	return s.queryEntries(ctx, query, payRunID)
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM contributions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]payroll.ContributionEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer rows.Close()

	var entries []payroll.ContributionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (payroll.ContributionEntry, error) {
	var (
		e              payroll.ContributionEntry
		year           int
		payDate        string
		wages          string
		amount         string
		payRunID       sql.NullString
		idempotencyKey sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&e.ID, &e.EmployeeID, &year, &e.Kind, &e.Side, &payDate,
		&wages, &amount, &payRunID, &idempotencyKey, &createdAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan contribution: %w", err)
	}

	e.Year = payroll.TaxYear(year)
	if e.PayDate, err = payroll.ParseDate(payDate); err != nil {
		return e, fmt.Errorf("contribution %s: %w", e.ID, err)
	}
	if e.Wages, err = decimal.NewFromString(wages); err != nil {
		return e, fmt.Errorf("contribution %s: bad wages %q: %w", e.ID, wages, err)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return e, fmt.Errorf("contribution %s: bad amount %q: %w", e.ID, amount, err)
	}
	e.PayRunID = payRunID.String
	e.IdempotencyKey = idempotencyKey.String
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	return e, nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp payrun.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, annual_wage, pay_period, hire_date, termination_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			annual_wage = excluded.annual_wage,
			pay_period = excluded.pay_period,
			hire_date = excluded.hire_date,
			termination_date = excluded.termination_date
	`

	var termination sql.NullString
	if emp.TerminationDate != nil {
		termination = nullString(emp.TerminationDate.String())
	}

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.AnnualWage.String(), emp.PayPeriod,
		emp.HireDate.String(), termination,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID.
// Returns payroll.ErrEmployeeNotFound if there is none.
func (s *Store) GetEmployee(ctx context.Context, id payroll.EmployeeID) (*payrun.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, annual_wage, pay_period, hire_date, termination_date FROM employees WHERE id = ?",
		id,
	)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, payroll.ErrEmployeeNotFound)
	}
	if err != nil {
		return nil, err
	}
	return emp, nil
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]payrun.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, annual_wage, pay_period, hire_date, termination_date FROM employees ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []payrun.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee. Their contributions stay in the ledger.
func (s *Store) DeleteEmployee(ctx context.Context, id payroll.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (*payrun.Employee, error) {
	var (
		emp         payrun.Employee
		annualWage  string
		hireDate    string
		termination sql.NullString
	)
	if err := row.Scan(&emp.ID, &emp.Name, &annualWage, &emp.PayPeriod, &hireDate, &termination); err != nil {
		return nil, err
	}

	var err error
	if emp.AnnualWage, err = decimal.NewFromString(annualWage); err != nil {
		return nil, fmt.Errorf("employee %s: bad annual wage %q: %w", emp.ID, annualWage, err)
	}
	if emp.HireDate, err = payroll.ParseDate(hireDate); err != nil {
		return nil, fmt.Errorf("employee %s: %w", emp.ID, err)
	}
	if termination.Valid {
		d, err := payroll.ParseDate(termination.String)
		if err != nil {
			return nil, fmt.Errorf("employee %s: %w", emp.ID, err)
		}
		emp.TerminationDate = &d
	}
	return &emp, nil
}

// =============================================================================
// HOLIDAY CALENDAR (payroll.HolidayCalendar interface)
// =============================================================================

// Holiday is a non-working day. A recurring holiday repeats on the same
// month and day every year.
type Holiday struct {
	Date      payroll.Date
	Name      string
	Recurring bool
}

// SaveHoliday saves a holiday.
func (s *Store) SaveHoliday(ctx context.Context, h Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (date, name, recurring, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query,
		h.Date.String(), h.Name, h.Recurring,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListHolidays returns every stored holiday ordered by date.
func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT date, name, recurring FROM holidays ORDER BY date ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		var date string
		if err := rows.Scan(&date, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		if h.Date, err = payroll.ParseDate(date); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// IsHoliday checks if a date is a holiday. Lookup errors count as a
// working day.
func (s *Store) IsHoliday(date payroll.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM holidays
		WHERE (recurring = FALSE AND date = ?)
		   OR (recurring = TRUE AND strftime('%m-%d', date) = ?)
	`

	var count int
	err := s.db.QueryRow(query, date.String(), date.Time.Format("01-02")).Scan(&count)
	if err != nil {
		log.Printf("[Store] Holiday lookup for %s failed, counting it as a working day: %v", date, err)
		return false
	}
	return count > 0
}

// =============================================================================
// PAY RUN LOG
// =============================================================================

// Pay run statuses.
const (
	PayRunRunning   = "running"
	PayRunCompleted = "completed"
	PayRunFailed    = "failed"
)

// PayRunRecord is the audit row of one batch pay run.
type PayRunRecord struct {
	ID          string
	PayDate     payroll.Date
	Status      string
	Processed   int
	Skipped     int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// SavePayRun inserts or updates a pay run record.
func (s *Store) SavePayRun(ctx context.Context, r PayRunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO pay_runs (id, pay_date, status, processed, skipped, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			processed = excluded.processed,
			skipped = excluded.skipped,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt sql.NullString
	if r.CompletedAt != nil {
		completedAt = nullString(r.CompletedAt.Format(time.RFC3339))
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.PayDate.String(), r.Status, r.Processed, r.Skipped,
		nullString(r.Error), r.StartedAt.Format(time.RFC3339), completedAt,
	)
	return err
}

// GetPayRun returns a pay run record, or nil if there is none.
func (s *Store) GetPayRun(ctx context.Context, id string) (*PayRunRecord, error) {
	runs, err := s.queryPayRuns(ctx, "WHERE id = ?", id)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// ListPayRuns returns pay runs, newest first. An empty status matches all.
func (s *Store) ListPayRuns(ctx context.Context, status string) ([]PayRunRecord, error) {
	if status == "" {
		return s.queryPayRuns(ctx, "")
	}
	return s.queryPayRuns(ctx, "WHERE status = ?", status)
}

func (s *Store) queryPayRuns(ctx context.Context, where string, args ...any) ([]PayRunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, pay_date, status, processed, skipped, error, started_at, completed_at
		FROM pay_runs ` + where + `
		ORDER BY started_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []PayRunRecord
	for rows.Next() {
		var r PayRunRecord
		var payDate, startedAt string
		var runErr, completedAt sql.NullString
		if err := rows.Scan(&r.ID, &payDate, &r.Status, &r.Processed, &r.Skipped,
			&runErr, &startedAt, &completedAt); err != nil {
			return nil, err
		}

		if r.PayDate, err = payroll.ParseDate(payDate); err != nil {
			return nil, err
		}
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data, the ledger included. For demos and tests only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"contributions", "employees", "holidays", "pay_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
