// Package sweeper runs the periodic background passes a reward engine
// needs: a forced-accrual sweep (≤1-minute cadence) on users whose
// last-accrual age exceeds a threshold, effect expiry (with its
// forced-accrual-before-removal rule), and retry-queue drains. It keeps
// the familiar background-goroutine daemon shape, but driven by
// github.com/robfig/cron/v3 instead of a bare time.Ticker, so operators
// get a configurable cron cadence rather than a fixed interval baked
// into the binary.
package sweeper

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/finova-network/reward-engine/internal/app/ledger"
	"github.com/finova-network/reward-engine/internal/app/network"
	"github.com/finova-network/reward-engine/internal/app/worker"
	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
	"github.com/finova-network/reward-engine/internal/infra/metrics"
	"github.com/finova-network/reward-engine/internal/infra/store"
)

// DefaultSchedule matches "≤1-minute cadence" requirement.
const DefaultSchedule = "@every 1m"

// DefaultStaleAfter is how long a user's last accrual can go unrefreshed
// before the sweeper forces one, so long-idle users still see rate changes
// land before they claim.
const DefaultStaleAfter = 15 * time.Minute

// RateFunc resolves a user's current instantaneous rate for a forced
// accrual step. Supplied by the caller (the wiring layer) since computing
// it requires reading XP/RP/staking/effects state this package has no
// business knowing about — see internal/app/mining.Rate for the formula.
type RateFunc func(userID string, phase domain.NetworkPhase) fixedpoint.Amount

// Sweeper owns the cron schedule and the dependencies each tick needs.
type Sweeper struct {
	db      *store.DB
	ledger  *ledger.Service
	oracle  *network.Oracle
	workers *worker.Pool
	rateFor RateFunc

	staleAfter time.Duration
	cron       *cron.Cron
	now        func() time.Time
}

// New constructs a Sweeper. rateFor must not be nil; everything else is
// required for the sweep to do real work, but a nil oracle or worker pool
// only narrows which sub-sweep runs (useful in tests that exercise one
// pass at a time).
func New(db *store.DB, ledgerSvc *ledger.Service, oracle *network.Oracle, workers *worker.Pool, rateFor RateFunc, staleAfter time.Duration) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Sweeper{
		db:         db,
		ledger:     ledgerSvc,
		oracle:     oracle,
		workers:    workers,
		rateFor:    rateFor,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Start schedules Tick on the given cron expression (spec string, e.g.
// DefaultSchedule) and begins running it in the background. Cancel via
// Stop.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.Tick(s.now()); err != nil {
			log.Printf("[sweeper] tick error: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop cancels the cron schedule and waits for the running job, if any, to
// finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

// Tick runs one full sweep pass: phase refresh, effect expiry, stale-user
// accrual, then retry drain, in that order so a user's forced accrual
// always sees the freshest phase and effect set available this tick.
func (s *Sweeper) Tick(now time.Time) error {
	start := s.now()
	defer func() { metrics.SweepDuration.Observe(s.now().Sub(start).Seconds()) }()

	phase := s.refreshPhase(now)

	if err := s.expireEffects(now, phase); err != nil {
		return err
	}
	if err := s.accrueStaleUsers(now, phase); err != nil {
		return err
	}
	s.drainRetries(phase)
	return nil
}

// refreshPhase reseeds the oracle from the durable user count, self-healing
// any drift between the oracle's in-memory counter and storage (e.g. after
// a crash restart that lost in-flight RecordUserCreated calls).
func (s *Sweeper) refreshPhase(now time.Time) domain.NetworkPhase {
	if s.oracle == nil {
		return domain.Phase1
	}
	if s.db != nil {
		if total, err := s.db.CountActiveUsers(); err == nil {
			s.oracle.Seed(total, now)
		}
	}
	return s.oracle.Snapshot().Phase
}

// expireEffects forces an accrual step for every user with at least one
// expired effect before deleting those rows, so the old rate is credited up
// to the expiry boundary.
func (s *Sweeper) expireEffects(now time.Time, phase domain.NetworkPhase) error {
	if s.db == nil {
		return nil
	}
	userIDs, err := s.db.ExpiringEffectUserIDs(now.Unix())
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		s.forceAccrual(userID, now, phase, "effect_expiry")
	}
	if _, err := s.db.DeleteExpiredEffects(now.Unix()); err != nil {
		return err
	}
	return nil
}

// accrueStaleUsers forces an accrual step for every mining-eligible user
// whose last accrual predates the staleness threshold.
func (s *Sweeper) accrueStaleUsers(now time.Time, phase domain.NetworkPhase) error {
	if s.db == nil {
		return nil
	}
	userIDs, err := s.db.StaleUsers(now.Add(-s.staleAfter))
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		s.forceAccrual(userID, now, phase, "stale")
	}
	return nil
}

// forceAccrual runs AccrueAndPersist under the user's serialization lock,
// if a worker pool was supplied, and swallows transient storage errors —
// : "Background sweeps swallow transient errors and retry; persistent
// errors escalate." Persistent (non-transient) errors are logged since the
// sweeper has no caller to surface them to.
func (s *Sweeper) forceAccrual(userID string, now time.Time, phase domain.NetworkPhase, cause string) {
	if s.ledger == nil {
		return
	}
	run := func() error {
		_, err := s.ledger.AccrueAndPersist(userID, s.rateFor(userID, phase), now, phase)
		return err
	}

	var err error
	if s.workers != nil {
		err = s.workers.WithUser(userID, run)
	} else {
		err = run()
	}
	if err != nil {
		if !domain.IsTransient(err) {
			log.Printf("[sweeper] forced accrual for %s failed: %v", userID, err)
		}
		return
	}
	metrics.SweepForcedAccruals.WithLabelValues(cause).Inc()
}

// drainRetries re-attempts every retry-ready accrual the ledger parked
// after a transient storage failure.
func (s *Sweeper) drainRetries(phase domain.NetworkPhase) {
	if s.ledger == nil {
		return
	}
	for _, err := range s.ledger.DrainRetries(phase, func(userID string) fixedpoint.Amount {
		return s.rateFor(userID, phase)
	}) {
		log.Printf("[sweeper] retry drain error: %v", err)
	}
	metrics.RetryQueueDepth.Set(float64(s.ledger.RetryQueueDepth()))
}
