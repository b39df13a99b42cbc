package store

import (
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
)

// InsertDeadLetter parks a work item that exhausted its retry budget
// (a transient failure: domain.IsTransient reports true).
func (d *DB) InsertDeadLetter(dl domain.DeadLetter) error {
	_, err := d.db.Exec(
		`INSERT INTO dead_letters (id, kind, user_id, payload, attempts, last_error, failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dl.ID, string(dl.Kind), dl.UserID, dl.Payload, dl.Attempts, dl.LastError, dl.FailedAt.Unix(),
	)
	return err
}

// ListDeadLetters returns parked work items, most recent first, optionally
// filtered by kind (pass "" for all kinds).
func (d *DB) ListDeadLetters(kind domain.DeadLetterKind, limit int) ([]domain.DeadLetter, error) {
	query := `SELECT id, kind, user_id, payload, attempts, last_error, failed_at FROM dead_letters`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY failed_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DeadLetter
	for rows.Next() {
		var dl domain.DeadLetter
		var kindStr string
		var failedAt int64
		if err := rows.Scan(&dl.ID, &kindStr, &dl.UserID, &dl.Payload, &dl.Attempts, &dl.LastError, &failedAt); err != nil {
			return nil, err
		}
		dl.Kind = domain.DeadLetterKind(kindStr)
		dl.FailedAt = time.Unix(failedAt, 0).UTC()
		out = append(out, dl)
	}
	return out, rows.Err()
}

// DeleteDeadLetter removes a dead letter once an operator has manually
// resolved it.
func (d *DB) DeleteDeadLetter(id string) error {
	_, err := d.db.Exec(`DELETE FROM dead_letters WHERE id = ?`, id)
	return err
}
