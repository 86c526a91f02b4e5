/*
replayer.go - Background cost-accrual replayer

PURPOSE:
  Periodically re-attempts cost transitions whose delivery to the
  project store failed at approval time, so a transient outage never
  loses an accrual.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Sweeps the transition log for unapplied records
  - A record becomes invisible to the next sweep only after the project
    store accepted its delta, so each transition applies at most once
    through this path

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 minute)
  - Enabled: Whether the replayer is active (default: true)

USAGE:
  replayer := NewAccrualReplayer(ledger.Propagator())
  replayer.Start()
  // ... later
  replayer.Stop()

SEE ALSO:
  - handlers.go: ReplayAccruals endpoint (manual sweep)
  - timesheet/cost.go: CostPropagator.ReplayPending
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/timesheet-engine/timesheet"
)

// AccrualReplayer re-delivers failed cost accruals on a timer.
type AccrualReplayer struct {
	Propagator    *timesheet.CostPropagator
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAccrualReplayer creates a new replayer around the propagator.
func NewAccrualReplayer(propagator *timesheet.CostPropagator) *AccrualReplayer {
	return &AccrualReplayer{
		Propagator:    propagator,
		CheckInterval: 1 * time.Minute,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the replayer.
func (ar *AccrualReplayer) Start() {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if !ar.Enabled {
		log.Println("[Replayer] Disabled, not starting")
		return
	}

	ar.ticker = time.NewTicker(ar.CheckInterval)
	ar.wg.Add(1)

	go ar.run()

	log.Printf("[Replayer] Started with check interval: %v", ar.CheckInterval)
}

// Stop stops the replayer.
func (ar *AccrualReplayer) Stop() {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if ar.ticker != nil {
		ar.ticker.Stop()
		close(ar.stop)
		ar.wg.Wait()
		log.Println("[Replayer] Stopped")
	}
}

func (ar *AccrualReplayer) run() {
	defer ar.wg.Done()

	// Sweep immediately on start
	ar.sweep()

	for {
		select {
		case <-ar.ticker.C:
			ar.sweep()
		case <-ar.stop:
			return
		}
	}
}

func (ar *AccrualReplayer) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	applied, err := ar.Propagator.ReplayPending(ctx)
	if err != nil {
		log.Printf("[Replayer] Sweep applied %d, stopped on: %v", applied, err)
		return
	}
	if applied > 0 {
		log.Printf("[Replayer] Applied %d pending accruals", applied)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (ar *AccrualReplayer) RunNow() {
	ar.sweep()
}
