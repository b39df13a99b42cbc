// Package rpengine implements the RP Engine, the largest
// greenfield component: nothing upstream has a referral graph at all. It
// is grounded structurally on app/credit.Service's "small pure operations over
// a persisted aggregate" shape — Earn/Spend here become
// CreditReferralActivity/Recompute — and on xpengine's storage-agnostic
// function style (mutate a *domain state value, let the caller persist it),
// kept consistent across both engines.
package rpengine

import (
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// RPCredit is one ancestor's RP award from a single downline activity.
type RPCredit struct {
	AncestorID string
	Hop        int // 1, 2, or 3
	RP         uint64
}

// CreditReferralActivity implements credit_referral_activity:
// it awards split.L1/L2/L3 PerMille of baseValue RP to each ancestor in the
// chain, in order. The chain is already truncated at the first
// missing/closed ancestor (domain.AncestorChain's invariant), so a shorter
// chain naturally short-circuits the traversal — no extra check needed here.
func CreditReferralActivity(chain domain.AncestorChain, baseValue fixedpoint.Amount, split domain.ReferralSplit) []RPCredit {
	perMille := []int64{split.L1PerMille, split.L2PerMille, split.L3PerMille}

	credits := make([]RPCredit, 0, len(chain.Ancestors))
	for i, ancestorID := range chain.Ancestors {
		if i >= len(perMille) {
			break
		}
		share := baseValue.MulRatio(perMille[i], 1000)
		rp := share.Float()
		if rp < 0 {
			rp = 0
		}
		credits = append(credits, RPCredit{
			AncestorID: ancestorID,
			Hop:        i + 1,
			RP:         uint64(rp),
		})
	}
	return credits
}

// Recompute implements total_RP formula:
//
//	total_RP = (direct_rp_contribution + indirect_rp_contribution + quality_bonus)
//	           * exp(-0.0001 * total_network_size * (1 - quality_score))
//
// and resolves the resulting tier via the fixed threshold table. It mutates
// state in place and returns the new tier.
func Recompute(state *domain.RPState, directRP, indirectRP, qualityBonus uint64, totalNetworkSize uint64, thresholds []domain.RPTierThreshold) domain.RPTier {
	sum := fixedpoint.FromFloat(float64(directRP + indirectRP + qualityBonus))

	quality := state.NetworkQuality
	if quality < 0 {
		quality = 0
	}
	if quality > 1 {
		quality = 1
	}
	regression := fixedpoint.ExpNeg(0.0001*float64(totalNetworkSize), 1.0-quality)

	adjusted := sum.Apply(regression).Float()
	if adjusted < 0 {
		adjusted = 0
	}

	state.TotalRP = uint64(adjusted)
	state.Tier = domain.TierForRP(state.TotalRP, thresholds)
	return state.Tier
}

// ActiveReferralWindow is the trailing 30-day window for what counts as
// an active referral.
const ActiveReferralWindow = 30 * 24 * time.Hour

// CountActiveReferrals implements the Glossary's "Active referral: a
// referee with at least one non-abusive activity event in the trailing 30
// days" rule. lastActivity maps referee user ID to their last-activity
// timestamp; suspectedBot flags referees the abuse scorer has already
// flipped, excluding their activity from counting toward the referrer.
func CountActiveReferrals(refereeIDs []string, lastActivity map[string]time.Time, suspectedBot map[string]bool, now time.Time) int {
	cutoff := now.Add(-ActiveReferralWindow)
	count := 0
	for _, id := range refereeIDs {
		if suspectedBot[id] {
			continue
		}
		ts, ok := lastActivity[id]
		if ok && ts.After(cutoff) {
			count++
		}
	}
	return count
}

// AssignReferrer implements tie-break rule: self-referral is
// refused, and a user who already has a referrer keeps it.
func AssignReferrer(state *domain.RPState, userID, referrerID string) error {
	if userID == referrerID {
		return domain.ErrSelfReferral
	}
	if state.ReferrerID != "" {
		return domain.ErrReferrerAlreadySet
	}
	state.ReferrerID = referrerID
	return nil
}
