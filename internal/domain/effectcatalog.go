package domain

import "github.com/finova-network/reward-engine/internal/fixedpoint"

// CardTemplate is a named, pre-defined Effect Entry shape ("NFT card") that
// EffectGranted producers reference by name instead of hand-assembling a
// MultiplierVector every time. This is a supplemental, additive lookup
// table — grounded on the engagement.UnlocksForLevel static-table
// idiom — and does not change the Effect Registry's contract: a
// granted card still flows through add_effect/purge_expired like any other
// EffectEntry.
type CardTemplate struct {
	Name       string
	Class      EffectClass
	Multiplier MultiplierVector
}

// CardCatalog is the static set of known card templates.
var CardCatalog = map[string]CardTemplate{
	"double_mining": {
		Name:  "double_mining",
		Class: EffectClassMiningCard,
		Multiplier: MultiplierVector{
			Mining: fixedpoint.FromFloatRatio(2.0),
			XP:     fixedpoint.One,
			RP:     fixedpoint.One,
		},
	},
	"xp_accelerator": {
		Name:  "xp_accelerator",
		Class: EffectClassXPCard,
		Multiplier: MultiplierVector{
			Mining: fixedpoint.One,
			XP:     fixedpoint.FromFloatRatio(1.5),
			RP:     fixedpoint.One,
		},
	},
	"referral_boost": {
		Name:  "referral_boost",
		Class: EffectClassReferralCard,
		Multiplier: MultiplierVector{
			Mining: fixedpoint.One,
			XP:     fixedpoint.One,
			RP:     fixedpoint.FromFloatRatio(1.5),
		},
	},
	"triple_combo": {
		Name:  "triple_combo",
		Class: EffectClassEventPromo,
		Multiplier: MultiplierVector{
			Mining: fixedpoint.FromFloatRatio(1.3),
			XP:     fixedpoint.FromFloatRatio(1.3),
			RP:     fixedpoint.FromFloatRatio(1.3),
		},
	},
}

// LookupCard returns a card template by name.
func LookupCard(name string) (CardTemplate, bool) {
	c, ok := CardCatalog[name]
	return c, ok
}
