package mining

import (
	"testing"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

func baseInput() Input {
	return Input{
		Phase:             domain.Phase1,
		TotalUsers:        1000,
		ActiveReferrals:   0,
		KYCVerified:       true,
		CumulativeEarned:  fixedpoint.Zero,
		Level:             1,
		RPTier:            domain.TierExplorer,
		StakingMultiplier: fixedpoint.One,
		EffectsMultiplier: fixedpoint.One,
	}
}

func TestRateIsPositive(t *testing.T) {
	rate := Rate(baseInput(), domain.DefaultBaseRates, DefaultProductCeiling)
	if rate.Float() <= 0 {
		t.Errorf("rate = %f, want > 0", rate.Float())
	}
}

func TestRateHigherForKYCVerified(t *testing.T) {
	verified := baseInput()
	unverified := baseInput()
	unverified.KYCVerified = false

	rv := Rate(verified, domain.DefaultBaseRates, DefaultProductCeiling)
	ru := Rate(unverified, domain.DefaultBaseRates, DefaultProductCeiling)
	if rv.Float() <= ru.Float() {
		t.Errorf("KYC-verified rate (%f) should exceed unverified (%f)", rv.Float(), ru.Float())
	}
}

func TestRateDecreasesWithCumulativeEarned(t *testing.T) {
	low := baseInput()
	high := baseInput()
	high.CumulativeEarned = fixedpoint.FromFloat(100_000)

	rLow := Rate(low, domain.DefaultBaseRates, DefaultProductCeiling)
	rHigh := Rate(high, domain.DefaultBaseRates, DefaultProductCeiling)
	if rHigh.Float() >= rLow.Float() {
		t.Errorf("regression factor should reduce rate at high cumulative earned: low=%f high=%f", rLow.Float(), rHigh.Float())
	}
}

func TestRateDecreasesAcrossPhases(t *testing.T) {
	p1 := baseInput()
	p4 := baseInput()
	p4.Phase = domain.Phase4

	r1 := Rate(p1, domain.DefaultBaseRates, DefaultProductCeiling)
	r4 := Rate(p4, domain.DefaultBaseRates, DefaultProductCeiling)
	if r4.Float() >= r1.Float() {
		t.Errorf("phase 4 rate (%f) should be lower than phase 1 (%f)", r4.Float(), r1.Float())
	}
}

func TestRateIncreasesWithActiveReferralsUpToCap(t *testing.T) {
	none := baseInput()
	some := baseInput()
	some.ActiveReferrals = 10
	capped := baseInput()
	capped.ActiveReferrals = 25 // 1 + 0.1*25 = 3.5, the cap
	lots := baseInput()
	lots.ActiveReferrals = 1000

	rNone := Rate(none, domain.DefaultBaseRates, DefaultProductCeiling)
	rSome := Rate(some, domain.DefaultBaseRates, DefaultProductCeiling)
	rCapped := Rate(capped, domain.DefaultBaseRates, DefaultProductCeiling)
	rLots := Rate(lots, domain.DefaultBaseRates, DefaultProductCeiling)

	if rSome.Float() <= rNone.Float() {
		t.Error("referral bonus should increase rate")
	}
	// referral_bonus caps at 3.5x regardless of how many referrals, so an
	// enormous referral count should not exceed the rate an already-capped
	// count produces.
	if rLots.Float() > rCapped.Float() {
		t.Error("referral bonus cap was not applied")
	}
}

func TestRateNeverSkipsRegressionFactor(t *testing.T) {
	extreme := baseInput()
	extreme.CumulativeEarned = fixedpoint.FromFloat(10_000_000)
	rate := Rate(extreme, domain.DefaultBaseRates, DefaultProductCeiling)
	if rate.Float() >= 0.001 {
		t.Errorf("regression factor should crush the rate for an extreme whale, got %f", rate.Float())
	}
}

func TestRateAppliesSuspectedBotFloor(t *testing.T) {
	clean := baseInput()
	bot := baseInput()
	bot.SuspectedBot = true

	rClean := Rate(clean, domain.DefaultBaseRates, DefaultProductCeiling)
	rBot := Rate(bot, domain.DefaultBaseRates, DefaultProductCeiling)

	if rBot.Float() >= rClean.Float() {
		t.Fatalf("suspected_bot rate (%f) should be far below clean rate (%f)", rBot.Float(), rClean.Float())
	}
	got := rBot.Float() / rClean.Float()
	if got < 0.099 || got > 0.101 {
		t.Errorf("suspected_bot ratio = %f, want ~0.1 (the fixed bot floor)", got)
	}
}

func TestXPMultiplierByLevelMonotone(t *testing.T) {
	prev := 0.0
	for level := 1; level <= domain.MaxLevel; level += 10 {
		m := XPMultiplierByLevel(level).Float()
		if m < prev {
			t.Fatalf("xp_multiplier regressed at level %d: %f -> %f", level, prev, m)
		}
		prev = m
	}
}
