// Package network implements the Network Phase Oracle: a
// single-writer counter over total registered users that resolves the
// current mining phase and guarantees phase transitions are monotone and
// non-reversing. Grounded on infra/flywheel/flywheel.go's Tracker shape —
// mutex-protected state, an injectable clock, a single writer entry point —
// stripped of the flywheel's multi-metric health scoring and ring-buffer
// history, neither of which this oracle's much narrower job needs.
package network

import (
	"sync"
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
)

// Oracle is the dedicated single writer for global user count and mining
// phase: the network-state counter is a single-writer resource, and
// readers call Snapshot to see an eventually-consistent view.
type Oracle struct {
	mu         sync.RWMutex
	state      domain.NetworkState
	thresholds domain.PhaseThresholds
	now        func() time.Time
}

// NewOracle constructs an Oracle seeded at phase 1 with zero users.
// Callers restore real state via Seed before serving traffic.
func NewOracle(thresholds domain.PhaseThresholds) *Oracle {
	return &Oracle{
		state: domain.NetworkState{
			Phase:          domain.Phase1,
			PhaseEnteredAt: map[domain.NetworkPhase]time.Time{},
		},
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Seed restores the oracle's state from durable storage at startup
// (internal/infra/store.DB.CountActiveUsers), recomputing phase from the
// restored count so a restart never regresses phase.
func (o *Oracle) Seed(totalUsers uint64, now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.TotalUsers = totalUsers
	phase := domain.PhaseForUserCount(totalUsers, o.thresholds)
	o.state.Phase = phase
	if o.state.PhaseEnteredAt == nil {
		o.state.PhaseEnteredAt = map[domain.NetworkPhase]time.Time{}
	}
	o.state.PhaseEnteredAt[phase] = now
}

// RecordUserCreated increments the total user count and, if the new count
// crosses a threshold, advances the phase. Called exactly once per user
// creation.
func (o *Oracle) RecordUserCreated(now time.Time) domain.NetworkState {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.TotalUsers++
	next := domain.PhaseForUserCount(o.state.TotalUsers, o.thresholds)
	if next > o.state.Phase {
		o.state.Phase = next
		o.state.PhaseEnteredAt[next] = now
	}
	return o.snapshotLocked()
}

// Snapshot returns the oracle's current view. Safe for concurrent readers;
// the phase read here is advisory and may be stale by one user (:
// "a stale read produces a lower or equal rate, never higher").
func (o *Oracle) Snapshot() domain.NetworkState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshotLocked()
}

func (o *Oracle) snapshotLocked() domain.NetworkState {
	entered := make(map[domain.NetworkPhase]time.Time, len(o.state.PhaseEnteredAt))
	for k, v := range o.state.PhaseEnteredAt {
		entered[k] = v
	}
	return domain.NetworkState{
		TotalUsers:     o.state.TotalUsers,
		Phase:          o.state.Phase,
		PhaseEnteredAt: entered,
	}
}
