// Package staking implements the Staking State component. It
// is grounded on the pack's gas-bank Account lifecycle (status transitions
// gated by a minimum-balance threshold table), repurposed here from a
// deposit/withdrawal wallet to a stake/unstake/claim position with a
// cooldown state and continuous APY accrual.
package staking

import (
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// MultiplierByTier implements `staking_multiplier ∈ [1.0, 2.0]`
// table. Tier thresholds are configuration (see internal/config); this
// table is the matching multiplier ladder for each of those tiers.
var MultiplierByTier = map[domain.StakingTier]float64{
	domain.StakeTierNone:     1.0,
	domain.StakeTierBronze:   1.1,
	domain.StakeTierSilver:   1.3,
	domain.StakeTierGold:     1.5,
	domain.StakeTierPlatinum: 1.75,
	domain.StakeTierDiamond:  2.0,
}

// AnnualAPYByTier is the APY(tier) table, the continuous staking
// reward rate paid from a separate bucket than mining accrual. Exposed as
// config-overridable defaults, consistent with the tier thresholds
// themselves being configuration.
var AnnualAPYByTier = map[domain.StakingTier]float64{
	domain.StakeTierNone:     0.0,
	domain.StakeTierBronze:   0.04,
	domain.StakeTierSilver:   0.06,
	domain.StakeTierGold:     0.08,
	domain.StakeTierPlatinum: 0.10,
	domain.StakeTierDiamond:  0.12,
}

const year = 365 * 24 * time.Hour

// Stake implements stake(amount) operation: it accrues any
// pending APY reward up to now (so the old, lower tier's rate is never
// retroactively upgraded), adds amount to the position, recomputes the
// tier, and transitions the lifecycle to Staked.
func Stake(state *domain.StakingState, amount fixedpoint.Amount, now time.Time, thresholds []domain.StakingTierThreshold) {
	accruePending(state, now)

	if state.Staked == fixedpoint.Zero {
		state.StakeStartTS = now
	}
	state.Staked = state.Staked.Add(amount)
	state.Tier = domain.TierForStake(state.Staked, thresholds)
	state.Lifecycle = domain.StakeStaked
	state.LoyaltyMonths = domain.LoyaltyMonths(state.StakeStartTS, now)
}

// Unstake implements unstake(amount) operation. A partial
// unstake keeps the position Staked at the reduced amount and recomputes
// tier; a full unstake (amount >= staked) transitions to Cooldown (rewards
// keep accruing through the cooldown) and resets loyalty to 0 once the
// cooldown later clears to Unstaked via ClearCooldown.
func Unstake(state *domain.StakingState, amount fixedpoint.Amount, now time.Time, thresholds []domain.StakingTierThreshold) {
	accruePending(state, now)

	if amount >= state.Staked {
		state.Staked = fixedpoint.Zero
		state.Lifecycle = domain.StakeCooldown
		state.Tier = domain.TierForStake(state.Staked, thresholds)
		return
	}
	state.Staked = state.Staked.Sub(amount)
	state.Tier = domain.TierForStake(state.Staked, thresholds)
}

// ClearCooldown completes a full unstake once the cooldown period has
// elapsed, resetting loyalty months and stake start timestamp to zero.
func ClearCooldown(state *domain.StakingState, now time.Time) {
	state.Lifecycle = domain.StakeUnstaked
	state.StakeStartTS = time.Time{}
	state.LoyaltyMonths = 0
}

// accruePending integrates the continuous APY reward over the elapsed
// interval since LastClaimTS, same piecewise-constant-rate approach as the
// ledger's mining accrual.
func accruePending(state *domain.StakingState, now time.Time) {
	if state.LastClaimTS.IsZero() {
		state.LastClaimTS = now
		return
	}
	if !now.After(state.LastClaimTS) || state.Staked == fixedpoint.Zero {
		state.LastClaimTS = now
		return
	}

	apy := AnnualAPYByTier[state.Tier]
	if apy == 0 {
		state.LastClaimTS = now
		return
	}

	elapsed := now.Sub(state.LastClaimTS)
	fraction := float64(elapsed) / float64(year)
	reward := state.Staked.Apply(fixedpoint.FromFloatRatio(apy * fraction))
	state.PendingRewards = state.PendingRewards.Add(reward)
	state.LastClaimTS = now
}

// ClaimStakingRewards implements claim_staking_rewards()
// operation: it accrues up to now, then atomically zeroes and returns the
// pending bucket.
func ClaimStakingRewards(state *domain.StakingState, now time.Time) fixedpoint.Amount {
	accruePending(state, now)
	amount := state.PendingRewards
	state.PendingRewards = fixedpoint.Zero
	return amount
}

// Multiplier returns the mining-rate staking_multiplier for the state's
// current tier, optionally augmented by the loyalty bonus
// `1 + min(loyalty_months * 0.05, 0.5)`.
func Multiplier(state domain.StakingState) fixedpoint.Ratio {
	base := MultiplierByTier[state.Tier]
	loyalty := 1.0 + min(float64(state.LoyaltyMonths)*0.05, 0.5)
	return fixedpoint.FromFloatRatio(base * loyalty)
}
