package store

import (
	"database/sql"
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// execer is satisfied by both *sql.DB and *sql.Tx, letting entity writes
// run either standalone or inside a caller-managed transaction (the
// ledger's claim settlement and the propagator's multi-ancestor credit
// both need the latter).
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// UpsertUser inserts or updates a user aggregate record.
func (d *DB) UpsertUser(u domain.User) error {
	return upsertUser(d.db, u)
}

// UpsertUser is the transaction-scoped variant, used when a caller must
// commit a user mutation atomically alongside other writes.
func (t *Tx) UpsertUser(u domain.User) error {
	return upsertUser(t.tx, u)
}

func upsertUser(q execer, u domain.User) error {
	_, err := q.Exec(
		`INSERT INTO users (user_id, status, kyc_verified, mining_phase_entry, cumulative_earned,
			pending_balance, last_accrual_ts, last_daily_reset_ts, daily_accrued_amount,
			streak_days, last_activity_ts, suspected_bot, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			status=excluded.status,
			kyc_verified=excluded.kyc_verified,
			mining_phase_entry=excluded.mining_phase_entry,
			cumulative_earned=excluded.cumulative_earned,
			pending_balance=excluded.pending_balance,
			last_accrual_ts=excluded.last_accrual_ts,
			last_daily_reset_ts=excluded.last_daily_reset_ts,
			daily_accrued_amount=excluded.daily_accrued_amount,
			streak_days=excluded.streak_days,
			last_activity_ts=excluded.last_activity_ts,
			suspected_bot=excluded.suspected_bot`,
		u.ID, string(u.Status), u.KYCVerified, nullableUnix(u.MiningPhaseEntry),
		int64(u.CumulativeEarned), int64(u.PendingBalance),
		nullableUnix(u.LastAccrualTS), nullableUnix(u.LastDailyResetTS), int64(u.DailyAccruedAmount),
		u.StreakDays, nullableUnix(u.LastActivityTS), u.SuspectedBot, u.CreatedAt.Unix(),
	)
	return err
}

// GetUser retrieves a user aggregate by ID.
func (d *DB) GetUser(userID string) (*domain.User, error) {
	return getUser(d.db, userID)
}

// GetUser is the transaction-scoped variant, so a caller can read-then-write
// a user within a single transaction without an intervening commit.
func (t *Tx) GetUser(userID string) (*domain.User, error) {
	return getUser(t.tx, userID)
}

func getUser(q execer, userID string) (*domain.User, error) {
	row := q.QueryRow(
		`SELECT user_id, status, kyc_verified, mining_phase_entry, cumulative_earned,
			pending_balance, last_accrual_ts, last_daily_reset_ts, daily_accrued_amount,
			streak_days, last_activity_ts, suspected_bot, created_at
		 FROM users WHERE user_id = ?`, userID,
	)
	return scanUser(row)
}

// CountActiveUsers returns the total registered user count the Network
// Phase Oracle reads to resolve the current phase.
func (d *DB) CountActiveUsers() (uint64, error) {
	var count uint64
	err := d.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// StaleUsers returns the ids of mining-eligible users whose last accrual is
// older than threshold (or who have never accrued at all), for the
// sweeper's forced-accrual pass.
func (d *DB) StaleUsers(threshold time.Time) ([]string, error) {
	rows, err := d.db.Query(
		`SELECT user_id FROM users
		 WHERE status = ?
		   AND (last_accrual_ts IS NULL OR last_accrual_ts < ?)`,
		string(domain.UserActive), threshold.Unix(),
	)
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

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	var status string
	var miningPhaseEntry, lastAccrual, lastDailyReset, lastActivity sql.NullInt64
	var cumulativeEarned, pendingBalance, dailyAccrued int64
	var createdAt int64

	err := s.Scan(&u.ID, &status, &u.KYCVerified, &miningPhaseEntry, &cumulativeEarned,
		&pendingBalance, &lastAccrual, &lastDailyReset, &dailyAccrued,
		&u.StreakDays, &lastActivity, &u.SuspectedBot, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	u.Status = domain.UserStatus(status)
	u.MiningPhaseEntry = timeFromNullable(miningPhaseEntry)
	u.CumulativeEarned = fixedpoint.Amount(cumulativeEarned)
	u.PendingBalance = fixedpoint.Amount(pendingBalance)
	u.LastAccrualTS = timeFromNullable(lastAccrual)
	u.LastDailyResetTS = timeFromNullable(lastDailyReset)
	u.DailyAccruedAmount = fixedpoint.Amount(dailyAccrued)
	u.LastActivityTS = timeFromNullable(lastActivity)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}
