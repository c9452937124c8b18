/*
scheduler.go - Automated pay-run scheduler

PURPOSE:
  Periodically looks for pay periods that have ended and runs payroll for
  them, so employees are paid without a manual POST /api/payruns.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - For every employee, finds the latest CatchUp pay periods ending on or
    before today (only the most recent one by default)
  - Groups employees sharing that period into one pay run, paid on the
    period's last day
  - Skips runs already completed in the pay-run log; the ledger's
    idempotency keys make a repeated run a no-op anyway
  - Records every run for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)
  - CatchUp: Ended periods to look back per employee (default: 1). A
    server down for longer than one period pays the missed periods only
    when CatchUp covers them
  - Now: Clock, replaceable in tests

USAGE:
  scheduler := NewPayRunScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunBatchPayroll endpoint (manual pay run)
  - payrun/processor.go: Processor
*/
package api

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payrun"
	"github.com/warp/payroll-engine/store/sqlite"
)

// PayRunScheduler runs payroll for pay periods as they end.
type PayRunScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool
	CatchUp       int
	Now           func() time.Time

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// CheckSummary reports one scheduler pass.
type CheckSummary struct {
	Runs      int
	Processed int
	Skipped   int
	Failed    int
}

// NewPayRunScheduler creates a new scheduler.
func NewPayRunScheduler(handler *Handler) *PayRunScheduler {
	return &PayRunScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		CatchUp:       1,
		Now:           time.Now,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ps *PayRunScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.wg.Add(1)

	go ps.run()

	log.Printf("[Scheduler] Started with check interval: %v", ps.CheckInterval)
}

// Stop stops the scheduler.
func (ps *PayRunScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		ps.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (ps *PayRunScheduler) run() {
	defer ps.wg.Done()

	// Run immediately on start
	ps.RunNow(context.Background())

	for {
		select {
		case <-ps.ticker.C:
			ps.RunNow(context.Background())
		case <-ps.stop:
			return
		}
	}
}

// pendingRun is one pay run the scheduler has found.
type pendingRun struct {
	run       payrun.Run
	employees []payrun.Employee
}

// RunNow triggers an immediate check (for testing/admin).
func (ps *PayRunScheduler) RunNow(ctx context.Context) CheckSummary {
	var summary CheckSummary
	today := payroll.DateOf(ps.Now())
	store := ps.Handler.Store

	log.Printf("[Scheduler] Checking for ended pay periods as of %s", today)

	employees, err := store.ListEmployees(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing employees: %v", err)
		return summary
	}

	catchUp := max(ps.CatchUp, 1)
	pending := make(map[string]*pendingRun)
	for _, emp := range employees {
		asOf := today
		for n := 0; n < catchUp; n++ {
			period, err := ps.Handler.Processor.LastCompletedPeriod(emp, asOf)
			if err != nil {
				log.Printf("[Scheduler] Error finding pay period for %s: %v", emp.ID, err)
				break
			}
			// Not hired until after the period; nothing to pay.
			if emp.HireDate.After(period.End) {
				break
			}

			runID := payrun.NewRunID(emp.PayPeriod, period)
			pr, ok := pending[runID]
			if !ok {
				pr = &pendingRun{run: payrun.Run{ID: runID, PayDate: period.End}}
				pending[runID] = pr
			}
			pr.employees = append(pr.employees, emp)
			asOf = period.Start.AddDays(-1)
		}
	}

	// Oldest pay date first.
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := pending[ids[i]].run.PayDate, pending[ids[j]].run.PayDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		pr := pending[id]

		previous, err := store.GetPayRun(ctx, id)
		if err != nil {
			log.Printf("[Scheduler] Error checking pay run %s: %v", id, err)
			continue
		}
		if previous != nil && previous.Status == sqlite.PayRunCompleted {
			continue
		}

		result, err := ps.Handler.runBatch(ctx, pr.run, pr.employees)
		summary.Runs++
		if err != nil {
			summary.Failed++
			if !errors.Is(err, context.Canceled) {
				log.Printf("[Scheduler] Pay run %s failed: %v", id, err)
			}
			continue
		}
		summary.Processed += len(result.Stubs)
		summary.Skipped += len(result.Skipped)
	}

	if summary.Runs > 0 {
		log.Printf("[Scheduler] Completed: %d runs, %d employees paid, %d skipped, %d failed",
			summary.Runs, summary.Processed, summary.Skipped, summary.Failed)
	}
	return summary
}

// GetNextRunTime returns when the next scheduled check will occur.
func (ps *PayRunScheduler) GetNextRunTime() time.Time {
	return ps.Now().Add(ps.CheckInterval)
}
