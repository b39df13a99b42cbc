package store

import (
	"database/sql"

	"github.com/finova-network/reward-engine/internal/domain"
)

// UpsertRPState inserts or updates a user's RP state.
func (d *DB) UpsertRPState(s domain.RPState) error {
	_, err := d.db.Exec(
		`INSERT INTO rp_state (user_id, total_rp, tier, referrer_id, direct_count,
			indirect_count, great_indirect_count, active_referrals, network_quality,
			direct_rp_raw, indirect_rp_raw)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			total_rp=excluded.total_rp,
			tier=excluded.tier,
			referrer_id=excluded.referrer_id,
			direct_count=excluded.direct_count,
			indirect_count=excluded.indirect_count,
			great_indirect_count=excluded.great_indirect_count,
			active_referrals=excluded.active_referrals,
			network_quality=excluded.network_quality,
			direct_rp_raw=excluded.direct_rp_raw,
			indirect_rp_raw=excluded.indirect_rp_raw`,
		s.UserID, s.TotalRP, string(s.Tier), s.ReferrerID, s.DirectCount,
		s.IndirectCount, s.GreatIndirectCount, s.ActiveReferrals, s.NetworkQuality,
		s.DirectRPRaw, s.IndirectRPRaw,
	)
	return err
}

// GetRPState retrieves a user's RP state.
func (d *DB) GetRPState(userID string) (*domain.RPState, error) {
	var s domain.RPState
	var tier string
	err := d.db.QueryRow(
		`SELECT user_id, total_rp, tier, referrer_id, direct_count,
			indirect_count, great_indirect_count, active_referrals, network_quality,
			direct_rp_raw, indirect_rp_raw
		 FROM rp_state WHERE user_id = ?`, userID,
	).Scan(&s.UserID, &s.TotalRP, &tier, &s.ReferrerID, &s.DirectCount,
		&s.IndirectCount, &s.GreatIndirectCount, &s.ActiveReferrals, &s.NetworkQuality,
		&s.DirectRPRaw, &s.IndirectRPRaw)
	if err == sql.ErrNoRows {
		return &domain.RPState{UserID: userID, Tier: domain.TierExplorer}, nil
	}
	if err != nil {
		return nil, err
	}
	s.Tier = domain.RPTier(tier)
	return &s, nil
}
