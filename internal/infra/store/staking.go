package store

import (
	"database/sql"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// UpsertStakingState inserts or updates a user's staking position.
func (d *DB) UpsertStakingState(s domain.StakingState) error {
	_, err := d.db.Exec(
		`INSERT INTO staking_state (user_id, staked, tier, lifecycle, stake_start_ts,
			last_claim_ts, loyalty_months, pending_rewards)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			staked=excluded.staked,
			tier=excluded.tier,
			lifecycle=excluded.lifecycle,
			stake_start_ts=excluded.stake_start_ts,
			last_claim_ts=excluded.last_claim_ts,
			loyalty_months=excluded.loyalty_months,
			pending_rewards=excluded.pending_rewards`,
		s.UserID, int64(s.Staked), string(s.Tier), string(s.Lifecycle),
		nullableUnix(s.StakeStartTS), nullableUnix(s.LastClaimTS), s.LoyaltyMonths, int64(s.PendingRewards),
	)
	return err
}

// GetStakingState retrieves a user's staking position.
func (d *DB) GetStakingState(userID string) (*domain.StakingState, error) {
	var s domain.StakingState
	var tier, lifecycle string
	var staked, pendingRewards int64
	var stakeStart, lastClaim sql.NullInt64

	err := d.db.QueryRow(
		`SELECT user_id, staked, tier, lifecycle, stake_start_ts, last_claim_ts, loyalty_months, pending_rewards
		 FROM staking_state WHERE user_id = ?`, userID,
	).Scan(&s.UserID, &staked, &tier, &lifecycle, &stakeStart, &lastClaim, &s.LoyaltyMonths, &pendingRewards)
	if err == sql.ErrNoRows {
		return &domain.StakingState{UserID: userID, Tier: domain.StakeTierNone, Lifecycle: domain.StakeUnstaked}, nil
	}
	if err != nil {
		return nil, err
	}

	s.Staked = fixedpoint.Amount(staked)
	s.Tier = domain.StakingTier(tier)
	s.Lifecycle = domain.StakeLifecycle(lifecycle)
	s.StakeStartTS = timeFromNullable(stakeStart)
	s.LastClaimTS = timeFromNullable(lastClaim)
	s.PendingRewards = fixedpoint.Amount(pendingRewards)
	return &s, nil
}
