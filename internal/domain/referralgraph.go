package domain

// AncestorChain is the bounded-depth-3 ancestor list of a user, ordered
// nearest-first (L1, L2, L3). Shorter than 3 entries when the chain is
// truncated by a missing or closed ancestor.
// Built fresh from the referral edges by store.AncestorChain on every
// call; it is not cached.
type AncestorChain struct {
	UserID    string
	Ancestors []string // up to 3 entries: [L1, L2, L3]
}

// ReferralSplit is the fixed L1/L2/L3 percentage split (config field
// `referral_split`), expressed as numerator/1000 ratios so RP/credit math
// stays integer-exact.
type ReferralSplit struct {
	L1PerMille int64 // 100 = 10%
	L2PerMille int64 // 50  = 5%
	L3PerMille int64 // 30  = 3%
}

// DefaultReferralSplit is `referral_split = {L1: 0.10, L2: 0.05, L3: 0.03}`.
var DefaultReferralSplit = ReferralSplit{L1PerMille: 100, L2PerMille: 50, L3PerMille: 30}
