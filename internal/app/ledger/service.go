package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
	"github.com/finova-network/reward-engine/internal/infra/scheduler"
	"github.com/finova-network/reward-engine/internal/infra/store"
)

// Service orchestrates accrual and claim settlement against durable
// storage. Grounded on app/credit/credit.go's Service{db} shape, with a
// retry queue added for TransientFailure handling (that credit service
// had no retry path — storage errors simply propagated).
type Service struct {
	db        *store.DB
	retry     *scheduler.RetryQueue
	dailyCaps [4]float64
}

// NewService constructs a ledger service over db with the given retry
// configuration and per-phase daily cap table (config field
// `daily_caps`, exposed via internal/config.EconomicsConfig).
func NewService(db *store.DB, retryCfg scheduler.RetryConfig, dailyCaps [4]float64) *Service {
	return &Service{db: db, retry: scheduler.NewRetryQueue(retryCfg), dailyCaps: dailyCaps}
}

// AccrueAndPersist loads the user, integrates rate over the elapsed
// interval, and persists the updated aggregate. On a storage failure it
// schedules a retry and returns domain.ErrStorageUnavailable in place of the
// underlying error so the caller (worker loop) can decide whether to park the
// event for a later pass.
func (s *Service) AccrueAndPersist(userID string, rate fixedpoint.Amount, now time.Time, phase domain.NetworkPhase) (fixedpoint.Amount, error) {
	u, err := s.db.GetUser(userID)
	if err != nil {
		return fixedpoint.Zero, s.scheduleRetry(domain.DeadLetterEvent, userID, err)
	}

	gain := Accrue(u, rate, now, phase, s.dailyCaps)

	if err := u.Invariant(); err != nil {
		return fixedpoint.Zero, err // Inconsistency — fatal, never retried
	}

	if err := s.db.UpsertUser(*u); err != nil {
		return fixedpoint.Zero, s.scheduleRetry(domain.DeadLetterEvent, userID, err)
	}
	return gain, nil
}

// Claim settles the user's pending balance against a client-supplied claim
// nonce within a single transaction (exactly-once rule). A
// replayed nonce returns the original settlement without re-crediting.
func (s *Service) Claim(userID, nonce string, now time.Time) (domain.RewardClaimed, error) {
	if nonce == "" {
		nonce = uuid.NewString()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return domain.RewardClaimed{}, s.scheduleRetry(domain.DeadLetterClaim, userID, err)
	}

	existing, err := tx.GetClaim(userID, nonce)
	if err != nil {
		tx.Rollback()
		return domain.RewardClaimed{}, s.scheduleRetry(domain.DeadLetterClaim, userID, err)
	}
	if existing != nil {
		tx.Rollback()
		return *existing, nil
	}

	u, err := tx.GetUser(userID)
	if err != nil {
		tx.Rollback()
		return domain.RewardClaimed{}, s.scheduleRetry(domain.DeadLetterClaim, userID, err)
	}

	amount, err := Claim(u)
	if err != nil {
		tx.Rollback()
		return domain.RewardClaimed{}, err // no pending balance — not retried, not a storage error
	}

	if err := tx.UpsertUser(*u); err != nil {
		tx.Rollback()
		return domain.RewardClaimed{}, s.scheduleRetry(domain.DeadLetterClaim, userID, err)
	}
	if err := tx.InsertClaim(userID, nonce, amount, now); err != nil {
		tx.Rollback()
		if err == domain.ErrClaimAlreadySettled {
			// Lost the race against a concurrent settle of the same nonce;
			// the other writer's commit is authoritative.
			return domain.RewardClaimed{}, err
		}
		return domain.RewardClaimed{}, s.scheduleRetry(domain.DeadLetterClaim, userID, err)
	}

	if err := tx.Commit(); err != nil {
		return domain.RewardClaimed{}, s.scheduleRetry(domain.DeadLetterClaim, userID, err)
	}

	return domain.RewardClaimed{
		UserID:           userID,
		Amount:           amount,
		CumulativeEarned: u.CumulativeEarned,
		ClaimNonce:       nonce,
		Status:           domain.ClaimSettled,
		Timestamp:        now,
	}, nil
}

// scheduleRetry queues a transient storage error for backoff retry,
// dead-lettering it once the retry budget is exhausted, and returns
// domain.ErrStorageUnavailable in place of the cause (the cause is kept only
// in the retry or dead-letter record).
func (s *Service) scheduleRetry(kind domain.DeadLetterKind, userID string, cause error) error {
	ok := s.retry.ScheduleRetry(scheduler.RetryEntry{
		Kind:    kind,
		UserID:  userID,
		Payload: fmt.Sprintf("%v", cause),
		Error:   cause.Error(),
	})
	if !ok {
		dl := domain.DeadLetter{
			ID:        uuid.NewString(),
			Kind:      kind,
			UserID:    userID,
			Payload:   fmt.Sprintf("%v", cause),
			LastError: cause.Error(),
			FailedAt:  time.Now(),
		}
		if err := s.db.InsertDeadLetter(dl); err != nil {
			return fmt.Errorf("dead-letter after retry exhaustion: %w (original: %v)", err, cause)
		}
	}
	return domain.ErrStorageUnavailable
}

// RetryQueueDepth reports the current size of the in-memory retry queue, for
// the retry_queue_depth gauge.
func (s *Service) RetryQueueDepth() int {
	return s.retry.Len()
}

// DrainRetries processes every retry-ready work item by re-attempting
// accrual; callers (the sweeper) invoke this on a timer. Only
// accrual retries are replayable this way since they are idempotent given
// the same rate and timestamp inputs; claim retries rely on the caller
// re-invoking Claim with the original nonce.
func (s *Service) DrainRetries(phase domain.NetworkPhase, rateFor func(userID string) fixedpoint.Amount) []error {
	var errs []error
	for _, entry := range s.retry.DrainReady() {
		if entry.Kind != domain.DeadLetterEvent {
			continue
		}
		if _, err := s.AccrueAndPersist(entry.UserID, rateFor(entry.UserID), time.Now(), phase); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
