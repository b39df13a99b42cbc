package store

import (
	"database/sql"
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// InsertClaim records a settled claim keyed on (user_id, claim_nonce). A
// second insert for the same nonce returns domain.ErrClaimAlreadySettled,
// giving the ledger's claim path idempotent replay semantics (:
// "replaying a settled claim nonce returns the original result, it does
// not double-pay").
func (d *DB) InsertClaim(userID, nonce string, amount fixedpoint.Amount, settledAt time.Time) error {
	return insertClaim(d.db, userID, nonce, amount, settledAt)
}

// InsertClaim is the transaction-scoped variant — the ledger commits the
// claim row and the user's zeroed pending balance in the same transaction
// (exactly-once rule).
func (t *Tx) InsertClaim(userID, nonce string, amount fixedpoint.Amount, settledAt time.Time) error {
	return insertClaim(t.tx, userID, nonce, amount, settledAt)
}

func insertClaim(q execer, userID, nonce string, amount fixedpoint.Amount, settledAt time.Time) error {
	_, err := q.Exec(
		`INSERT INTO claims (user_id, claim_nonce, amount, settled_at) VALUES (?, ?, ?, ?)`,
		userID, nonce, int64(amount), settledAt.Unix(),
	)
	if isUniqueViolation(err) {
		return domain.ErrClaimAlreadySettled
	}
	return err
}

// GetClaim retrieves a previously settled claim by nonce, or nil if none
// exists yet for that (userID, nonce) pair.
func (d *DB) GetClaim(userID, nonce string) (*domain.RewardClaimed, error) {
	return getClaim(d.db, userID, nonce)
}

// GetClaim is the transaction-scoped variant, used to check for a prior
// settlement before writing a new one in the same transaction.
func (t *Tx) GetClaim(userID, nonce string) (*domain.RewardClaimed, error) {
	return getClaim(t.tx, userID, nonce)
}

func getClaim(q execer, userID, nonce string) (*domain.RewardClaimed, error) {
	var amount int64
	var settledAt int64
	err := q.QueryRow(
		`SELECT amount, settled_at FROM claims WHERE user_id = ? AND claim_nonce = ?`,
		userID, nonce,
	).Scan(&amount, &settledAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.RewardClaimed{
		UserID:     userID,
		Amount:     fixedpoint.Amount(amount),
		ClaimNonce: nonce,
		Status:     domain.ClaimAlreadySettled,
	}, nil
}
