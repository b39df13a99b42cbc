// Package mining implements the Mining Rate Calculator: a pure
// function combining every other component's state into an instantaneous
// $FIN/hour rate. Grounded on app/credit.EarningAmount's shape — a single
// exported function over a constants block and plain scalar inputs, no
// storage dependency — generalized from credit's 4-factor formula to a
// 9-factor chained-ratio product.
package mining

import (
	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// DefaultProductCeiling bounds intermediate products to an absolute
// ceiling (default 100x) to prevent overflow and economic exploit.
const DefaultProductCeiling = 100.0

// XPMultiplierByLevel is a monotone function of level: linear ramp from 1.0
// at level 1 to 2.0 at the 200-level cap, never decreasing.
func XPMultiplierByLevel(level int) fixedpoint.Ratio {
	if level < 1 {
		level = 1
	}
	if level > domain.MaxLevel {
		level = domain.MaxLevel
	}
	f := 1.0 + float64(level-1)/float64(domain.MaxLevel-1)
	return fixedpoint.FromFloatRatio(f)
}

// RPMultiplierByTier is a monotone function of tier.
var RPMultiplierByTier = map[domain.RPTier]float64{
	domain.TierExplorer:   1.0,
	domain.TierConnector:  1.1,
	domain.TierInfluencer: 1.25,
	domain.TierLeader:     1.5,
	domain.TierAmbassador: 2.0,
}

// Input bundles every upstream signal the rate formula needs. All of it is
// already-computed state owned by other components (J, F, G, D, E) — this
// package performs no lookups of its own.
type Input struct {
	Phase              domain.NetworkPhase
	TotalUsers         uint64
	ActiveReferrals    int
	KYCVerified        bool
	CumulativeEarned   fixedpoint.Amount
	Level              int
	RPTier             domain.RPTier
	StakingMultiplier  fixedpoint.Ratio // from internal/app/staking.Multiplier
	EffectsMultiplier  fixedpoint.Ratio // from internal/app/effects.Registry.CombinedMultiplier (Mining axis)
	SuspectedBot       bool             // from domain.User.SuspectedBot, set by the abuse scorer
}

// suspectedBotFloor is the fixed multiplier applied across every reward
// output once a user's persistent suspected_bot flag is set, independent of
// and on top of whatever human_score this particular event scored.
const suspectedBotFloor = 0.1

// Rate computes the instantaneous mining rate:
//
//	rate = base_rate(phase) * pioneer_bonus * referral_bonus * security_bonus
//	       * regression_factor * xp_multiplier * rp_multiplier
//	       * staking_multiplier * effects_mining_multiplier * bot_floor
//
// expressed as a chained fixedpoint.Ratio product computed in fixed-point.
// The xp, rp, staking and effects factors are each saturated at ceiling, and
// the product before bot_floor is clamped to base_rate * ceiling.
// bot_floor is exempt from that ceiling: it only ever attenuates, never
// inflates, so there is nothing for the ceiling to guard against.
func Rate(in Input, baseRates [4]float64, ceiling float64) fixedpoint.Amount {
	base := fixedpoint.FromFloat(domain.BaseRate(in.Phase, baseRates))

	rate := base
	rate = rate.Apply(pioneerBonus(in.TotalUsers))
	rate = rate.Apply(referralBonus(in.ActiveReferrals))
	rate = rate.Apply(securityBonus(in.KYCVerified))
	rate = rate.Apply(regressionFactor(in.CumulativeEarned))
	rate = rate.Apply(XPMultiplierByLevel(in.Level).Saturate(ceiling))
	rate = rate.Apply(fixedpoint.FromFloatRatio(RPMultiplierByTier[in.RPTier]).Saturate(ceiling))
	rate = rate.Apply(in.StakingMultiplier.Saturate(ceiling))
	rate = rate.Apply(in.EffectsMultiplier.Saturate(ceiling))
	if maxRate := base.Apply(fixedpoint.FromFloatRatio(ceiling)); rate > maxRate {
		rate = maxRate
	}
	if in.SuspectedBot {
		rate = rate.Apply(fixedpoint.FromFloatRatio(suspectedBotFloor))
	}

	return rate
}

// pioneerBonus is max(1.0, 2.0 - total_users/1_000_000).
func pioneerBonus(totalUsers uint64) fixedpoint.Ratio {
	f := 2.0 - float64(totalUsers)/1_000_000.0
	if f < 1.0 {
		f = 1.0
	}
	return fixedpoint.FromFloatRatio(f)
}

// referralBonus is min(1 + 0.1*active_referrals, 3.5).
func referralBonus(activeReferrals int) fixedpoint.Ratio {
	f := 1.0 + 0.1*float64(activeReferrals)
	if f > 3.5 {
		f = 3.5
	}
	return fixedpoint.FromFloatRatio(f)
}

// securityBonus is 1.2 if KYC-verified else 0.8.
func securityBonus(kycVerified bool) fixedpoint.Ratio {
	if kycVerified {
		return fixedpoint.FromFloatRatio(1.2)
	}
	return fixedpoint.FromFloatRatio(0.8)
}

// regressionFactor is the whale brake: exp(-0.001 * cumulative_fin_earned).
// This must never be skipped.
func regressionFactor(cumulativeEarned fixedpoint.Amount) fixedpoint.Ratio {
	return fixedpoint.ExpNeg(0.001, cumulativeEarned.Float())
}
