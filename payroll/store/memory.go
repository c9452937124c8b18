// Package store provides in-memory payroll.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	entries     map[key][]payroll.ContributionEntry
	idempotency map[string]bool
}

type key struct {
	EmployeeID payroll.EmployeeID
	Year       payroll.TaxYear
}

func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[key][]payroll.ContributionEntry),
		idempotency: make(map[string]bool),
	}
}

// AppendBatch adds entries atomically.
func (m *Memory) AppendBatch(_ context.Context, entries []payroll.ContributionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all idempotency keys first, including duplicates inside the batch
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[e.IdempotencyKey] || seen[e.IdempotencyKey] {
			return payroll.ErrDuplicateIdempotencyKey
		}
		seen[e.IdempotencyKey] = true
	}

	for _, e := range entries {
		m.appendLocked(e)
	}
	return nil
}

func (m *Memory) appendLocked(e payroll.ContributionEntry) {
	k := key{EmployeeID: e.EmployeeID, Year: e.Year}
	entries := m.entries[k]

	// Binary search keeps entries ordered by pay date, stable for equal dates
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].PayDate.After(e.PayDate)
	})

	entries = append(entries, payroll.ContributionEntry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	m.entries[k] = entries

	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
}

func (m *Memory) Load(_ context.Context, employeeID payroll.EmployeeID, year payroll.TaxYear) ([]payroll.ContributionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := key{EmployeeID: employeeID, Year: year}
	result := make([]payroll.ContributionEntry, len(m.entries[k]))
	copy(result, m.entries[k])
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}
