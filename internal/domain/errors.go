package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Organized by the
// four error kinds of , not by the component that raises them.

var (
	// IngestError
	ErrDuplicateEvent   = errors.New("duplicate event")
	ErrStaleEvent       = errors.New("event is stale (older than last accrual by more than the grace window)")
	ErrMalformedEvent   = errors.New("malformed event")
	ErrEventTooFarFuture = errors.New("event timestamp too far in the future")

	// PolicyViolation
	ErrSelfReferral        = errors.New("self-referral is not permitted")
	ErrReferrerAlreadySet  = errors.New("user already has a direct referrer")
	ErrInsufficientStake   = errors.New("insufficient staked amount for operation")
	ErrDailyCapExceeded    = errors.New("daily cap exceeded; excess forfeited")
	ErrSuspendedUser       = errors.New("user is suspended")

	// TransientFailure
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrOperationTimeout   = errors.New("operation timed out")
	ErrContention         = errors.New("resource contention")

	// Inconsistency — fatal, halt processing of the affected aggregate.
	ErrDedupRecordMissing   = errors.New("dedup record missing for a previously accepted event")
	ErrAncestorCycleDetected = errors.New("ancestor cycle detected in referral graph")
	ErrNegativeBalance      = errors.New("pending balance went negative")

	// Claim / propagation
	ErrClaimAlreadySettled = errors.New("claim already settled for this nonce")
	ErrNoPendingBalance    = errors.New("no pending balance to claim")

	// Model/user lookups
	ErrUserNotFound = errors.New("user not found")
)

// IsInconsistency reports whether err is one of the fatal Inconsistency
// kind errors that must halt further processing of the aggregate.
func IsInconsistency(err error) bool {
	return errors.Is(err, ErrDedupRecordMissing) ||
		errors.Is(err, ErrAncestorCycleDetected) ||
		errors.Is(err, ErrNegativeBalance)
}

// IsTransient reports whether err is a TransientFailure-kind error eligible
// for retry with exponential backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrOperationTimeout) ||
		errors.Is(err, ErrContention)
}
