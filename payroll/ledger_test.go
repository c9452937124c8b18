package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

func newTestLedger() *payroll.Ledger {
	return payroll.NewLedger(store.NewMemory())
}

func entry(emp string, year payroll.TaxYear, kind payroll.TaxKind, side payroll.Side, payDate payroll.Date, amount, key string) payroll.ContributionEntry {
	return payroll.ContributionEntry{
		ID:             payroll.EntryID(key),
		EmployeeID:     payroll.EmployeeID(emp),
		Year:           year,
		Kind:           kind,
		Side:           side,
		PayDate:        payDate,
		Wages:          money("1000"),
		Amount:         money(amount),
		IdempotencyKey: key,
	}
}

func TestLedger_AccumulatedPerKindSideAndYear(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()

	require.NoError(t, ledger.AppendBatch(ctx, []payroll.ContributionEntry{
		entry("emp-1", 2020, payroll.TaxOASDI, payroll.SideEmployee, date(2020, 1, 17), "62.00", "k1"),
		entry("emp-1", 2020, payroll.TaxOASDI, payroll.SideEmployer, date(2020, 1, 17), "62.00", "k2"),
		entry("emp-1", 2020, payroll.TaxFUTA, payroll.SideEmployer, date(2020, 1, 17), "60.00", "k3"),
		entry("emp-1", 2020, payroll.TaxOASDI, payroll.SideEmployee, date(2020, 1, 31), "62.00", "k4"),
		entry("emp-1", 2021, payroll.TaxOASDI, payroll.SideEmployee, date(2021, 1, 15), "62.00", "k5"),
		entry("emp-2", 2020, payroll.TaxOASDI, payroll.SideEmployee, date(2020, 1, 17), "10.00", "k6"),
	}))

	got, err := ledger.Accumulated(ctx, "emp-1", 2020, payroll.TaxOASDI, payroll.SideEmployee)
	require.NoError(t, err)
	assertMoney(t, "124.00", got)

	got, err = ledger.Accumulated(ctx, "emp-1", 2020, payroll.TaxFUTA, payroll.SideEmployer)
	require.NoError(t, err)
	assertMoney(t, "60.00", got)

	// A new tax year starts from zero
	got, err = ledger.Accumulated(ctx, "emp-1", 2022, payroll.TaxOASDI, payroll.SideEmployee)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestLedger_DuplicateIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	e := entry("emp-1", 2020, payroll.TaxFUTA, payroll.SideEmployer, date(2020, 1, 17), "60.00", "run-1")

	require.NoError(t, ledger.Append(ctx, e))
	err := ledger.Append(ctx, e)

	assert.ErrorIs(t, err, payroll.ErrDuplicateIdempotencyKey)
	got, _ := ledger.Accumulated(ctx, "emp-1", 2020, payroll.TaxFUTA, payroll.SideEmployer)
	assertMoney(t, "60.00", got)
}

func TestLedger_BatchIsAtomic(t *testing.T) {
	// GIVEN: A batch whose second entry repeats a key inside the batch
	// THEN: Nothing is written
	ctx := context.Background()
	ledger := newTestLedger()

	err := ledger.AppendBatch(ctx, []payroll.ContributionEntry{
		entry("emp-1", 2020, payroll.TaxFUTA, payroll.SideEmployer, date(2020, 1, 17), "60.00", "same"),
		entry("emp-1", 2020, payroll.TaxOASDI, payroll.SideEmployee, date(2020, 1, 17), "62.00", "same"),
	})

	assert.ErrorIs(t, err, payroll.ErrDuplicateIdempotencyKey)
	entries, err := ledger.Entries(ctx, "emp-1", 2020)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedger_RejectsNegativeAmounts(t *testing.T) {
	err := newTestLedger().Append(context.Background(),
		entry("emp-1", 2020, payroll.TaxFUTA, payroll.SideEmployer, date(2020, 1, 17), "-1", "neg"))

	assert.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestLedger_EntriesOrderedByPayDate(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()

	for i, d := range []int{20, 3, 11} {
		e := entry("emp-1", 2020, payroll.TaxFUTA, payroll.SideEmployer, date(2020, time.March, d), "1", string(rune('a'+i)))
		require.NoError(t, ledger.Append(ctx, e))
	}

	entries, err := ledger.Entries(ctx, "emp-1", 2020)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 3, entries[0].PayDate.Day())
	assert.Equal(t, 11, entries[1].PayDate.Day())
	assert.Equal(t, 20, entries[2].PayDate.Day())
}

func TestLedger_Summary(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	require.NoError(t, ledger.AppendBatch(ctx, []payroll.ContributionEntry{
		entry("emp-1", 2020, payroll.TaxOASDI, payroll.SideEmployer, date(2020, 1, 17), "62.00", "k1"),
		entry("emp-1", 2020, payroll.TaxOASDI, payroll.SideEmployee, date(2020, 1, 17), "62.00", "k2"),
		entry("emp-1", 2020, payroll.TaxFUTA, payroll.SideEmployer, date(2020, 1, 17), "60.00", "k3"),
		entry("emp-1", 2020, payroll.TaxFUTA, payroll.SideEmployer, date(2020, 1, 31), "60.00", "k4"),
	}))

	summary, err := ledger.Summary(ctx, "emp-1", 2020)

	require.NoError(t, err)
	assert.Equal(t, 4, summary.Entries)
	require.Len(t, summary.Totals, 3)
	assert.Equal(t, payroll.TaxFUTA, summary.Totals[0].Kind)
	assertMoney(t, "120.00", summary.Totals[0].Contribution)
	assertMoney(t, "2000", summary.Totals[0].Wages)
	assert.Equal(t, payroll.SideEmployee, summary.Totals[1].Side)
	assert.Equal(t, payroll.SideEmployer, summary.Totals[2].Side)
}
