// Package domain holds the pure types of the Finova Reward Engine Core: no
// infrastructure dependency, no I/O. Infrastructure packages implement the
// interfaces declared here; application packages depend on them.
package domain

import (
	"time"

	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// UserStatus tracks the user lifecycle state machine:
// Created → KYCPending → KYCVerified → (Suspended | Active) → Closed.
type UserStatus string

const (
	UserCreated     UserStatus = "CREATED"
	UserKYCPending  UserStatus = "KYC_PENDING"
	UserKYCVerified UserStatus = "KYC_VERIFIED"
	UserActive      UserStatus = "ACTIVE"
	UserSuspended   UserStatus = "SUSPENDED"
	UserClosed      UserStatus = "CLOSED"
)

// IsMiningEligible reports whether the user accrues mining rate. Only
// Active users do — matching state machine note verbatim.
func (s UserStatus) IsMiningEligible() bool { return s == UserActive }

// User is the consistency unit — the User Aggregate. At most one
// worker mutates a given User at a time (see internal/app/worker).
type User struct {
	ID                 string
	Status             UserStatus
	KYCVerified        bool
	MiningPhaseEntry   time.Time
	CumulativeEarned   fixedpoint.Amount
	PendingBalance     fixedpoint.Amount
	LastAccrualTS      time.Time
	LastDailyResetTS   time.Time
	DailyAccruedAmount fixedpoint.Amount // gains credited to pending since LastDailyResetTS
	StreakDays         int
	LastActivityTS     time.Time
	SuspectedBot       bool
	CreatedAt          time.Time
}

// Invariant checks that the pending balance is not negative. It does not
// check that cumulative earned never decreases. Callers invoke this after
// every mutation in tests.
func (u *User) Invariant() error {
	if u.PendingBalance.IsNegative() {
		return ErrNegativeBalance
	}
	return nil
}
