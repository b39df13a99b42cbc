package domain

import (
	"time"

	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// EffectClass is the stacking class an Effect Entry occupies. At most one
// entry per class is active for a user at a time.
type EffectClass string

const (
	EffectClassMiningCard    EffectClass = "MINING_CARD"
	EffectClassXPCard        EffectClass = "XP_CARD"
	EffectClassReferralCard  EffectClass = "REFERRAL_CARD"
	EffectClassEventPromo    EffectClass = "EVENT_PROMO"
)

// MultiplierVector is the {mining, xp, rp} multiplier triple an Effect Entry
// carries ( "Effect Entry").
type MultiplierVector struct {
	Mining fixedpoint.Ratio
	XP     fixedpoint.Ratio
	RP     fixedpoint.Ratio
}

// Product returns the product of the three axes, used by the
// replace-if-stronger policy.
func (v MultiplierVector) Product() float64 {
	return v.Mining.Float() * v.XP.Float() * v.RP.Float()
}

// EffectEntry is a time-bounded multiplier ("card"), also called an
// Effect Entry.
type EffectEntry struct {
	UserID     string
	Source     string
	Class      EffectClass
	Multiplier MultiplierVector
	StartAt    time.Time
	Expiry     time.Time
}

// EffectLifecycle mirrors : Pending → Active(now>=start) →
// Expired(now>=expiry).
type EffectLifecycle string

const (
	EffectPending EffectLifecycle = "PENDING"
	EffectActive  EffectLifecycle = "ACTIVE"
	EffectExpired EffectLifecycle = "EXPIRED"
)

// IsExpired reports whether the entry's expiry has passed.
func (e EffectEntry) IsExpired(now time.Time) bool {
	return !now.Before(e.Expiry)
}

// Lifecycle resolves the entry's current state per 's
// Pending -> Active(now>=start) -> Expired(now>=expiry) machine.
func (e EffectEntry) Lifecycle(now time.Time) EffectLifecycle {
	if e.IsExpired(now) {
		return EffectExpired
	}
	if !now.Before(e.StartAt) {
		return EffectActive
	}
	return EffectPending
}

// StrongerThan implements the replace-if-stronger policy: higher product
// wins; on a tie, the later expiry wins.
func (e EffectEntry) StrongerThan(other EffectEntry) bool {
	ep, op := e.Multiplier.Product(), other.Multiplier.Product()
	if ep != op {
		return ep > op
	}
	return e.Expiry.After(other.Expiry)
}
