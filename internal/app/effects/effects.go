// Package effects implements the Effect Registry: time-bounded multiplier
// stacking with replace-if-stronger-per-class semantics. It borrows the
// static-table idiom used elsewhere for level unlocks (see
// domain.CardCatalog) plus a gas-bank-style record shape for
// expiry-bearing entries; the registry itself is new, since nothing
// upstream has an effect/card concept to start from.
package effects

import (
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// DefaultCeilingPerAxis caps the combined multiplier at 10.0 per axis.
const DefaultCeilingPerAxis = 10.0

// Registry holds one user's active effect entries, keyed by class — at
// most one entry per class.
type Registry struct {
	Entries map[domain.EffectClass]domain.EffectEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{Entries: make(map[domain.EffectClass]domain.EffectEntry)}
}

// AddEffect implements add_effect(source, class, multiplier_vec,
// expiry) operation: on insertion into an already-occupied class, the
// stronger entry wins (domain.EffectEntry.StrongerThan's higher-product,
// later-expiry-on-tie rule). Returns true if entry became (or remained) the
// active occupant of its class.
func (r *Registry) AddEffect(entry domain.EffectEntry) bool {
	existing, occupied := r.Entries[entry.Class]
	if !occupied || entry.StrongerThan(existing) {
		r.Entries[entry.Class] = entry
		return true
	}
	return false
}

// GrantCard is a convenience wrapper around AddEffect for callers that
// reference a domain.CardCatalog template by name instead of hand-building
// a MultiplierVector.
func (r *Registry) GrantCard(userID, cardName string, now time.Time, duration time.Duration) (bool, error) {
	tmpl, ok := domain.LookupCard(cardName)
	if !ok {
		return false, domain.ErrMalformedEvent
	}
	return r.AddEffect(domain.EffectEntry{
		UserID:     userID,
		Source:     cardName,
		Class:      tmpl.Class,
		Multiplier: tmpl.Multiplier,
		StartAt:    now,
		Expiry:     now.Add(duration),
	}), nil
}

// PurgeExpired implements purge_expired(now) operation. Per
// Effect lifecycle ("Expiry triggers a forced accrual step
// before removal so the user is credited under the old rate up to the
// boundary"), this only removes the entries and returns them — the caller
// is responsible for running the forced accrual step against each returned
// entry's Expiry before dropping it. The sweeper's effect-expiry pass does its
// forced accrual through the store, not through this method.
func (r *Registry) PurgeExpired(now time.Time) []domain.EffectEntry {
	var expired []domain.EffectEntry
	for class, entry := range r.Entries {
		if entry.IsExpired(now) {
			expired = append(expired, entry)
			delete(r.Entries, class)
		}
	}
	return expired
}

// CombinedMultiplier returns the product across all active (non-pending,
// non-expired) classes, capped per axis at ceiling.
func (r *Registry) CombinedMultiplier(now time.Time, ceiling float64) domain.MultiplierVector {
	combined := domain.MultiplierVector{Mining: fixedpoint.One, XP: fixedpoint.One, RP: fixedpoint.One}
	for _, entry := range r.Entries {
		if entry.Lifecycle(now) != domain.EffectActive {
			continue
		}
		combined.Mining = combined.Mining.Mul(entry.Multiplier.Mining)
		combined.XP = combined.XP.Mul(entry.Multiplier.XP)
		combined.RP = combined.RP.Mul(entry.Multiplier.RP)
	}
	combined.Mining = combined.Mining.Saturate(ceiling)
	combined.XP = combined.XP.Saturate(ceiling)
	combined.RP = combined.RP.Saturate(ceiling)
	return combined
}
