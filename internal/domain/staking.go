package domain

import (
	"time"

	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// StakingTier is the staked-amount tier ladder (Glossary default thresholds
// {100, 500, 1000, 5000, 10000} $FIN). Grounded on the pack's gas-bank
// Account status-by-threshold shape, repurposed from a wallet lifecycle to
// a stake position.
type StakingTier string

const (
	StakeTierNone     StakingTier = "NONE"
	StakeTierBronze   StakingTier = "BRONZE"
	StakeTierSilver   StakingTier = "SILVER"
	StakeTierGold     StakingTier = "GOLD"
	StakeTierPlatinum StakingTier = "PLATINUM"
	StakeTierDiamond  StakingTier = "DIAMOND"
)

// StakeLifecycle mirrors : Unstaked → Staked(tier) →
// Cooldown(on unstake request) → Unstaked. Rewards keep accruing in Cooldown.
type StakeLifecycle string

const (
	StakeUnstaked StakeLifecycle = "UNSTAKED"
	StakeStaked   StakeLifecycle = "STAKED"
	StakeCooldown StakeLifecycle = "COOLDOWN"
)

// StakingTierThreshold pairs a tier with its minimum staked amount.
type StakingTierThreshold struct {
	Tier     StakingTier
	MinStake fixedpoint.Amount
}

// DefaultStakingTierThresholds is the Glossary's default ladder, exposed as
// configuration per open question on tier thresholds.
var DefaultStakingTierThresholds = []StakingTierThreshold{
	{StakeTierNone, fixedpoint.Zero},
	{StakeTierBronze, fixedpoint.FromFloat(100)},
	{StakeTierSilver, fixedpoint.FromFloat(500)},
	{StakeTierGold, fixedpoint.FromFloat(1000)},
	{StakeTierPlatinum, fixedpoint.FromFloat(5000)},
	{StakeTierDiamond, fixedpoint.FromFloat(10000)},
}

// TierForStake resolves a staking tier from the staked amount.
func TierForStake(staked fixedpoint.Amount, thresholds []StakingTierThreshold) StakingTier {
	tier := StakeTierNone
	for _, t := range thresholds {
		if staked >= t.MinStake {
			tier = t.Tier
		}
	}
	return tier
}

// StakingState is one user's stake position ( "Staking State").
type StakingState struct {
	UserID           string
	Staked           fixedpoint.Amount
	Tier             StakingTier
	Lifecycle        StakeLifecycle
	StakeStartTS     time.Time
	LastClaimTS      time.Time
	LoyaltyMonths    int
	PendingRewards   fixedpoint.Amount
}

// LoyaltyMonths computes floor((now - stakeStart) / 30 days).
func LoyaltyMonths(stakeStart, now time.Time) int {
	if stakeStart.IsZero() || now.Before(stakeStart) {
		return 0
	}
	return int(now.Sub(stakeStart) / (30 * 24 * time.Hour))
}
