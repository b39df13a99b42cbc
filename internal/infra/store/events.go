package store

import (
	"database/sql"
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
)

// InsertEventDedup records an ingested event keyed on (user_id,
// external_id). Returns domain.ErrDuplicateEvent if the key already
// exists, giving the Event Intake & Deduplicator its idempotency guarantee
//.
func (d *DB) InsertEventDedup(ev domain.EventRecord, ingestedAt time.Time) error {
	_, err := d.db.Exec(
		`INSERT INTO events (user_id, external_id, platform, activity_type, timestamp,
			content_fingerprint, likes, comments, shares, views, device_info, sequence, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.UserID, ev.ExternalID, string(ev.Platform), string(ev.ActivityType), ev.Timestamp.Unix(),
		ev.ContentFingerprint, ev.Engagement.Likes, ev.Engagement.Comments, ev.Engagement.Shares,
		ev.Engagement.Views, ev.DeviceInfo, ev.Sequence, ingestedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEvent
	}
	return err
}

// LastSequence returns the highest sequence number assigned to a user's
// events, used to resume monotonic sequencing after a restart.
func (d *DB) LastSequence(userID string) (uint64, error) {
	var seq sql.NullInt64
	err := d.db.QueryRow(`SELECT MAX(sequence) FROM events WHERE user_id = ?`, userID).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

// RecentContentFingerprints returns the content fingerprints a user has
// submitted, most recent first, bounded by limit — feeds the abuse
// scorer's duplicate-content check on restart.
func (d *DB) RecentContentFingerprints(userID string, limit int) ([]string, error) {
	rows, err := d.db.Query(
		`SELECT content_fingerprint FROM events
		 WHERE user_id = ? AND content_fingerprint != ''
		 ORDER BY sequence DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}
