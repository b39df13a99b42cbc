package store

import (
	"database/sql"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// UpsertEffect inserts a new effect entry row. Effects are append-only at
// the storage layer — expiry and replacement are resolved in memory by
// app/effects.Registry, which reloads the active set via ListActiveEffects.
func (d *DB) UpsertEffect(e domain.EffectEntry) error {
	_, err := d.db.Exec(
		`INSERT INTO effects (user_id, source, class, mining_num, mining_den,
			xp_num, xp_den, rp_num, rp_den, start_at, expiry)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Source, string(e.Class),
		e.Multiplier.Mining.Num, e.Multiplier.Mining.Den,
		e.Multiplier.XP.Num, e.Multiplier.XP.Den,
		e.Multiplier.RP.Num, e.Multiplier.RP.Den,
		e.StartAt.Unix(), e.Expiry.Unix(),
	)
	return err
}

// ListActiveEffects returns every effect entry for a user whose expiry has
// not yet passed, as of now (the caller still runs the Pending/Active
// lifecycle check — this is a coarse pre-filter to avoid loading history).
func (d *DB) ListActiveEffects(userID string, now int64) ([]domain.EffectEntry, error) {
	rows, err := d.db.Query(
		`SELECT user_id, source, class, mining_num, mining_den, xp_num, xp_den,
			rp_num, rp_den, start_at, expiry
		 FROM effects WHERE user_id = ? AND expiry > ?`, userID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EffectEntry
	for rows.Next() {
		e, err := scanEffect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// ExpiringEffectUserIDs returns the distinct user ids with at least one
// effect row whose expiry has already passed, as of now. The sweeper reads
// this before DeleteExpiredEffects so it can force an accrual step for each
// affected user first.
func (d *DB) ExpiringEffectUserIDs(now int64) ([]string, error) {
	rows, err := d.db.Query(`SELECT DISTINCT user_id FROM effects WHERE expiry <= ?`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteExpiredEffects removes effect rows whose expiry has passed, called
// periodically by the sweeper to keep the table from growing unbounded.
func (d *DB) DeleteExpiredEffects(now int64) (int64, error) {
	res, err := d.db.Exec(`DELETE FROM effects WHERE expiry <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanEffect(s scanner) (*domain.EffectEntry, error) {
	var e domain.EffectEntry
	var class string
	var miningNum, miningDen, xpNum, xpDen, rpNum, rpDen int64
	var startAt, expiry int64

	err := s.Scan(&e.UserID, &e.Source, &class, &miningNum, &miningDen,
		&xpNum, &xpDen, &rpNum, &rpDen, &startAt, &expiry)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	e.Class = domain.EffectClass(class)
	e.Multiplier = domain.MultiplierVector{
		Mining: fixedpoint.Ratio{Num: miningNum, Den: miningDen},
		XP:     fixedpoint.Ratio{Num: xpNum, Den: xpDen},
		RP:     fixedpoint.Ratio{Num: rpNum, Den: rpDen},
	}
	e.StartAt = timeFromNullable(sql.NullInt64{Int64: startAt, Valid: true})
	e.Expiry = timeFromNullable(sql.NullInt64{Int64: expiry, Valid: true})
	return &e, nil
}
