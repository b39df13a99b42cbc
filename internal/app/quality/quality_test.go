package quality

import (
	"testing"

	"github.com/finova-network/reward-engine/internal/domain"
)

func TestScoreDefaultIsNeutral(t *testing.T) {
	s := Score(Input{OriginalityScore: 0.5, Platform: domain.PlatformFacebook})
	if s < Min || s > Max {
		t.Fatalf("score %f out of bounds [%f,%f]", s, Min, Max)
	}
}

func TestScoreBoundedAtMin(t *testing.T) {
	s := Score(Input{OriginalityScore: 0, Platform: domain.PlatformFacebook, BrandUnsafe: true})
	if s != Min {
		t.Errorf("score = %f, want floor %f", s, Min)
	}
}

func TestScoreBoundedAtMax(t *testing.T) {
	s := Score(Input{
		OriginalityScore: 1.0,
		Platform:         domain.PlatformYouTube,
		Engagement:       domain.EngagementCounters{Likes: 1000, Comments: 500, Shares: 200, Views: 1000},
	})
	if s > Max {
		t.Errorf("score = %f, exceeds ceiling %f", s, Max)
	}
}

func TestScoreHighOriginalityBeatsLow(t *testing.T) {
	low := Score(Input{OriginalityScore: 0.1, Platform: domain.PlatformX})
	high := Score(Input{OriginalityScore: 0.9, Platform: domain.PlatformX})
	if high <= low {
		t.Errorf("high originality (%f) should score above low (%f)", high, low)
	}
}

func TestScoreBrandUnsafePenalized(t *testing.T) {
	safe := Score(Input{OriginalityScore: 0.8, Platform: domain.PlatformTikTok})
	unsafe := Score(Input{OriginalityScore: 0.8, Platform: domain.PlatformTikTok, BrandUnsafe: true})
	if unsafe >= safe {
		t.Errorf("brand-unsafe content should score lower: safe=%f unsafe=%f", safe, unsafe)
	}
}

func TestContainsBannedTerm(t *testing.T) {
	if !ContainsBannedTerm("this is a SCAM giveaway") {
		t.Error("expected banned term match")
	}
	if ContainsBannedTerm("a wholesome cooking tutorial") {
		t.Error("expected no banned term match")
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	in := Input{OriginalityScore: 0.7, Platform: domain.PlatformInstagram, Engagement: domain.EngagementCounters{Likes: 10, Views: 100}}
	a := Score(in)
	b := Score(in)
	if a != b {
		t.Errorf("Score is not deterministic: %f != %f", a, b)
	}
}
