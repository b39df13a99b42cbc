package store

import (
	"database/sql"
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
)

// InsertReferralEdge records a user's direct referrer. Keyed on user_id
// — a second insert for the same user_id fails, since
// assigning a referrer to a user who already has one is refused
// (callers check domain.RPState.ReferrerID first; this is the durability
// backstop).
func (d *DB) InsertReferralEdge(userID, referrerID string, now time.Time) error {
	_, err := d.db.Exec(
		`INSERT INTO referral_edges (user_id, referrer_id, created_at) VALUES (?, ?, ?)`,
		userID, referrerID, now.Unix(),
	)
	return err
}

// AncestorChain walks up to 3 hops of referrer edges starting from userID,
// stopping at the first missing or closed ancestor.
func (d *DB) AncestorChain(userID string) (domain.AncestorChain, error) {
	chain := domain.AncestorChain{UserID: userID}
	current := userID

	for hop := 0; hop < 3; hop++ {
		var referrerID string
		err := d.db.QueryRow(`SELECT referrer_id FROM referral_edges WHERE user_id = ?`, current).Scan(&referrerID)
		if err == sql.ErrNoRows {
			break
		}
		if err != nil {
			return chain, err
		}

		var status string
		err = d.db.QueryRow(`SELECT status FROM users WHERE user_id = ?`, referrerID).Scan(&status)
		if err == sql.ErrNoRows || status == string(domain.UserClosed) {
			break
		}
		if err != nil {
			return chain, err
		}

		chain.Ancestors = append(chain.Ancestors, referrerID)
		current = referrerID
	}
	return chain, nil
}

// DirectReferees returns the user IDs this user directly referred, used by
// the RP Engine's active-referral trailing-window counter.
func (d *DB) DirectReferees(referrerID string) ([]string, error) {
	rows, err := d.db.Query(`SELECT user_id FROM referral_edges WHERE referrer_id = ?`, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var referees []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		referees = append(referees, id)
	}
	return referees, rows.Err()
}
