package store

import (
	"database/sql"
	"encoding/json"

	"github.com/finova-network/reward-engine/internal/domain"
)

// UpsertXPState inserts or updates a user's XP state.
func (d *DB) UpsertXPState(s domain.XPState) error {
	countsJSON, err := json.Marshal(s.DailyCounts)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(
		`INSERT INTO xp_state (user_id, total_xp, level, streak_days, last_streak_date,
			daily_activity_tz, daily_counts_json, daily_count_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			total_xp=excluded.total_xp,
			level=excluded.level,
			streak_days=excluded.streak_days,
			last_streak_date=excluded.last_streak_date,
			daily_activity_tz=excluded.daily_activity_tz,
			daily_counts_json=excluded.daily_counts_json,
			daily_count_date=excluded.daily_count_date`,
		s.UserID, s.TotalXP, s.Level, s.StreakDays, s.LastStreakDate,
		s.DailyActivityTZ, string(countsJSON), s.DailyCountDate,
	)
	return err
}

// GetXPState retrieves a user's XP state.
func (d *DB) GetXPState(userID string) (*domain.XPState, error) {
	row := d.db.QueryRow(
		`SELECT user_id, total_xp, level, streak_days, last_streak_date,
			daily_activity_tz, daily_counts_json, daily_count_date
		 FROM xp_state WHERE user_id = ?`, userID,
	)

	var s domain.XPState
	var countsJSON string
	err := row.Scan(&s.UserID, &s.TotalXP, &s.Level, &s.StreakDays, &s.LastStreakDate,
		&s.DailyActivityTZ, &countsJSON, &s.DailyCountDate)
	if err == sql.ErrNoRows {
		return &domain.XPState{UserID: userID, Level: 1, DailyActivityTZ: "UTC", DailyCounts: map[string]int{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(countsJSON), &s.DailyCounts); err != nil {
		return nil, err
	}
	return &s, nil
}
