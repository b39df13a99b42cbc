// Package propagator implements the Reward Propagator: for each accepted
// content-bearing event, award L1/L2/L3 percentages of the originating
// user's own mining-rate-integrated $FIN gain to their referral ancestors,
// as long as they are active and non-suspended. The originating user's own
// balance is credited once, by the ledger's accrual step, never here —
// propagation only ever moves additional credit to ancestors. All ancestor
// credits commit in a single transaction, or none do. Grounded on
// app/credit/credit.go's transaction-scoped multi-write pattern —
// generalized from a single DEBIT/CREDIT pair per call to up to three
// CREDIT writes (one per ancestor hop) in one store.Tx.
package propagator

import (
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
	"github.com/finova-network/reward-engine/internal/infra/store"
)

// AncestorSource resolves a user's ancestor chain — satisfied by
// internal/infra/store.DB.AncestorChain, abstracted so tests can supply an
// in-memory chain without a database.
type AncestorSource interface {
	AncestorChain(userID string) (domain.AncestorChain, error)
}

// Service propagates event-generated credit to a user's referral ancestors.
type Service struct {
	db        *store.DB
	ancestors AncestorSource
	split     domain.ReferralSplit
}

// NewService constructs a propagator over db, using db itself as the
// ancestor-chain source.
func NewService(db *store.DB, split domain.ReferralSplit) *Service {
	return &Service{db: db, ancestors: db, split: split}
}

// Credit is one line of the propagation result: which ancestor was
// credited, how much, and at what hop (1 = direct referrer).
type Credit struct {
	UserID string
	Hop    int
	Amount fixedpoint.Amount
}

// Propagate awards the L1/L2/L3 percentages of baseValue — the $FIN the
// originating user's own event just mined through the ledger's accrual
// step — to their active, non-suspended referral ancestors, committing all
// writes in one transaction. userID itself is never credited here: its
// balance was already credited once by the caller's accrual step, and
// crediting it again here would double-mint against a single event. The
// ancestor walk halts at the first missing or suspended ancestor — later
// ancestors in the chain are not credited even if they would otherwise
// qualify, matching the referral graph's own halt-on-gap rule.
func (s *Service) Propagate(userID string, baseValue fixedpoint.Amount, now time.Time) ([]Credit, error) {
	chain, err := s.ancestors.AncestorChain(userID)
	if err != nil {
		return nil, err
	}
	if len(chain.Ancestors) == 0 || baseValue <= 0 {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}

	var credits []Credit
	perMille := []int64{s.split.L1PerMille, s.split.L2PerMille, s.split.L3PerMille}
	for hop, ancestorID := range chain.Ancestors {
		if hop >= len(perMille) {
			break
		}

		u, err := tx.GetUser(ancestorID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if u.Status != domain.UserActive {
			break // halt: missing/suspended/closed ancestor stops the walk, not just this hop
		}

		share := baseValue.MulRatio(perMille[hop], 1000)
		if err := creditUser(tx, ancestorID, share, now); err != nil {
			tx.Rollback()
			return nil, err
		}
		credits = append(credits, Credit{UserID: ancestorID, Hop: hop + 1, Amount: share})
	}

	if len(credits) == 0 {
		tx.Rollback()
		return nil, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return credits, nil
}

// creditUser adds amount to the user's pending balance only. The
// cumulative_earned field is reserved for what claim() has actually moved out of
// pending — crediting it here too would double-count at claim time (spec
// property: "the sum of all claims ever emitted for a user equals
// cumulative_earned at the time of the latest claim").
func creditUser(tx *store.Tx, userID string, amount fixedpoint.Amount, now time.Time) error {
	u, err := tx.GetUser(userID)
	if err != nil {
		return err
	}
	u.PendingBalance = u.PendingBalance.Add(amount)
	u.LastActivityTS = now
	if err := u.Invariant(); err != nil {
		return err
	}
	return tx.UpsertUser(*u)
}
