package domain

import (
	"context"
	"time"

	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// ─── Boundary Interfaces ────────────────────────────────────────────────────
// These define the consumed/exposed contracts at the edges of the reward
// engine. Infrastructure implements them; the application layer depends on
// them, matching a familiar "InferenceEngine / ModelStore" boundary-interface
// pattern.

// UserCreated is consumed from an external collaborator.
type UserCreated struct {
	UserID     string
	ReferrerID string // optional
	CreatedAt  time.Time
}

// KYCStatusChanged is consumed from an external collaborator.
type KYCStatusChanged struct {
	UserID   string
	Verified bool
}

// StakeOperationKind distinguishes stake from unstake.
type StakeOperationKind string

const (
	StakeOpStake   StakeOperationKind = "STAKE"
	StakeOpUnstake StakeOperationKind = "UNSTAKE"
)

// StakeOperation is consumed from an external collaborator.
type StakeOperation struct {
	UserID    string
	Delta     fixedpoint.Amount
	Kind      StakeOperationKind
	Timestamp time.Time
}

// EffectGranted is consumed from an external collaborator.
type EffectGranted struct {
	UserID    string
	Source    string
	Class     EffectClass
	MiningMul fixedpoint.Ratio
	XPMul     fixedpoint.Ratio
	RPMul     fixedpoint.Ratio
	Expiry    time.Time
}

// ClaimRequested is consumed from an external collaborator.
type ClaimRequested struct {
	UserID     string
	ClaimNonce string
}

// ClaimStatus distinguishes a first settlement from an idempotent replay.
type ClaimStatus string

const (
	ClaimSettled        ClaimStatus = "settled"
	ClaimAlreadySettled ClaimStatus = "already_settled"
)

// RewardClaimed is exposed to external collaborators: the append-only sink
// for downstream token issuance.
type RewardClaimed struct {
	UserID           string
	Amount           fixedpoint.Amount
	CumulativeEarned fixedpoint.Amount
	ClaimNonce       string
	Status           ClaimStatus
	Timestamp        time.Time
}

// UserStateSnapshot is exposed to external collaborators: a read-only query
// over one user's current reward state.
type UserStateSnapshot struct {
	UserID         string
	XP             XPState
	RP             RPState
	Staking        StakingState
	PendingBalance fixedpoint.Amount
	CurrentRate    fixedpoint.Ratio // $FIN/hour, as a ratio over 1 $FIN
	ActiveEffects  []EffectEntry
}

// NetworkSnapshot is exposed to external collaborators: a read-only query
// over the global network phase and user count.
type NetworkSnapshot struct {
	TotalUsers uint64
	Phase      NetworkPhase
	BaseRate   float64
}

// EventSink is the boundary an external transport uses to push verified
// events into the core.
type EventSink interface {
	IngestUserCreated(ctx context.Context, e UserCreated) error
	IngestKYCStatusChanged(ctx context.Context, e KYCStatusChanged) error
	IngestSocialActivity(ctx context.Context, e EventRecord) (IngestResult, error)
	IngestStakeOperation(ctx context.Context, e StakeOperation) error
	IngestEffectGranted(ctx context.Context, e EffectGranted) error
}

// ClaimSink is the boundary an external transport uses to request and
// observe claims.
type ClaimSink interface {
	Claim(ctx context.Context, req ClaimRequested) (RewardClaimed, error)
}

// SnapshotReader is the boundary an external transport uses for read-only
// queries.
type SnapshotReader interface {
	UserSnapshot(ctx context.Context, userID string) (UserStateSnapshot, error)
	NetworkState(ctx context.Context) (NetworkSnapshot, error)
	DeadLetters(ctx context.Context, kind DeadLetterKind, limit int) ([]DeadLetter, error)
}
