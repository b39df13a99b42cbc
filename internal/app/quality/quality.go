// Package quality implements the content-quality scorer: a pure,
// deterministic function producing a [0.5, 2.0] multiplier for
// content-bearing events. Scoring social content rather than task
// execution outcomes has no direct analog elsewhere in this codebase, so
// it is shaped like the other small pure scoring helpers here: a
// stateless function over a value type, no storage dependency.
package quality

import (
	"strings"

	"github.com/finova-network/reward-engine/internal/domain"
)

const (
	// Min and Max bound the quality multiplier (spec Glossary: "Quality
	// score: [0.5, 2.0] multiplier for content-bearing events").
	Min     = 0.5
	Max     = 2.0
	Default = 1.0
)

// Input carries every signal the quality scorer combines. OriginalityScore
// comes from the abuse scorer's content-fingerprint repeat-penalty
// (1.0 = never seen before, lower = repeat/near-duplicate); BrandUnsafe
// flags content matched against a banned-terms list.
type Input struct {
	OriginalityScore float64
	Platform         domain.Platform
	Engagement       domain.EngagementCounters
	BrandUnsafe      bool
}

// bannedTerms is a small illustrative brand-safety denylist; production
// deployments are expected to swap this for a moderation-service call, but
// the scorer itself stays a pure function either way.
var bannedTerms = []string{"scam", "giveaway-fraud"}

// Score combines originality, platform-relevance, brand-safety, and
// engagement-velocity sub-scores into the final [0.5, 2.0] multiplier.
func Score(in Input) float64 {
	score := Default

	score *= originalityFactor(in.OriginalityScore)
	score *= platformRelevance(in.Platform)
	score *= engagementVelocity(in.Engagement)

	if in.BrandUnsafe {
		score *= 0.25
	}

	return clamp(score, Min, Max)
}

// ContainsBannedTerm is a helper callers can run over raw content text
// before building an Input; kept separate from Score so the scorer itself
// stays a pure function over already-extracted signals.
func ContainsBannedTerm(content string) bool {
	lower := strings.ToLower(content)
	for _, term := range bannedTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// originalityFactor maps the abuse scorer's [0,1] originality signal onto a
// [0.5, 1.5] range: repeat/near-duplicate content drags quality down,
// never-before-seen content is rewarded but not inflated beyond neutral+0.5.
func originalityFactor(originality float64) float64 {
	if originality < 0 {
		originality = 0
	}
	if originality > 1 {
		originality = 1
	}
	return 0.5 + originality
}

// platformRelevance mirrors the platform weighting already applied to XP
// (platform_multiplier table), scaled down so it nudges rather
// than dominates the quality score.
func platformRelevance(p domain.Platform) float64 {
	switch p {
	case domain.PlatformYouTube:
		return 1.15 // long-form video content rewarded for production effort
	case domain.PlatformTikTok:
		return 1.1
	case domain.PlatformInstagram:
		return 1.05
	default:
		return 1.0
	}
}

// engagementVelocity rewards content with engagement proportional to its
// view count (a high like/comment-to-view ratio signals resonance),
// diminishing on a log-like curve so viral outliers don't dominate.
func engagementVelocity(c domain.EngagementCounters) float64 {
	if c.Views <= 0 {
		return 1.0
	}
	interactions := c.Likes + c.Comments*2 + c.Shares*3
	ratio := float64(interactions) / float64(c.Views)

	switch {
	case ratio >= 0.5:
		return 1.3
	case ratio >= 0.2:
		return 1.15
	case ratio >= 0.05:
		return 1.0
	default:
		return 0.9
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
