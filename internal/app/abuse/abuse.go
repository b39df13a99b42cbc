// Package abuse computes the continuous human_score used to
// attenuate rewards for bot-like and farmed event streams. It is grounded
// almost wholesale on internal/infra/anomaly's per-node anomaly detector:
// the same Welford's-algorithm running mean/variance, 3-sigma outlier rule,
// and consecutive-anomaly escalation, but keyed per-user instead of
// per-node and reduced to a continuous score instead of a discrete
// anomaly/severity pair.
package abuse

import (
	"math"
	"sync"
	"time"
)

// Config tunes the scorer. Mirrors the familiar DetectorConfig shape.
type Config struct {
	MinSamples            int     // minimum interval samples before z-score checks engage
	SigmaThreshold         float64 // interval regularity outlier threshold
	MaxConsecutiveLowScore int     // consecutive sub-threshold events before suspected_bot flips
	LowScoreThreshold      float64 // human_score below this counts as "low" for escalation
	FanOutLimit            int     // referral fan-out count above which penalty applies
	ProfileTTL             time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MinSamples:             5,
		SigmaThreshold:         3.0,
		MaxConsecutiveLowScore: 5,
		LowScoreThreshold:      0.3,
		FanOutLimit:            20,
		ProfileTTL:             90 * 24 * time.Hour,
	}
}

// Event is one unit of social activity submitted for scoring. Engagement
// fields are the same shape used by the event intake pipeline.
type Event struct {
	UserID             string
	Timestamp          time.Time
	DeviceFingerprint  string
	NetworkFingerprint string
	ContentFingerprint string
	ReferralFanOut     int // number of direct referrals created by this user in the trailing window
}

// Result is the per-event scoring outcome.
type Result struct {
	HumanScore     float64 // in [0,1]
	SuspectedBot   bool     // sticky per-user flag once tripped
	Reasons        []string
}

// userProfile tracks Welford's online mean/variance for one user's
// inter-event interval, plus device/network consistency and escalation
// state. Field-for-field analog of a node-reputation profile.
type userProfile struct {
	lastEventAt time.Time

	intervalCount int64
	intervalMean  float64
	intervalM2    float64

	knownDevices  map[string]int64
	knownNetworks map[string]int64
	knownContent  map[string]int64

	consecutiveLowScore int
	totalLowScore       int64
	suspectedBot        bool

	lastSeen time.Time
}

// Scorer is the concurrency-safe per-user abuse detector.
type Scorer struct {
	mu       sync.RWMutex
	config   Config
	profiles map[string]*userProfile
	now      func() time.Time
}

// New creates a Scorer with the given config.
func New(cfg Config) *Scorer {
	return &Scorer{
		config:   cfg,
		profiles: make(map[string]*userProfile),
		now:      time.Now,
	}
}

// Score evaluates one event against the user's running profile, updates
// the profile (Welford update + escalation), and returns the human_score
// plus the sticky suspected_bot state.
func (s *Scorer) Score(ev Event) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[ev.UserID]
	if !ok {
		p = &userProfile{
			knownDevices:  make(map[string]int64),
			knownNetworks: make(map[string]int64),
			knownContent:  make(map[string]int64),
		}
		s.profiles[ev.UserID] = p
	}
	p.lastSeen = s.now()

	score := 1.0
	var reasons []string

	// Inter-event interval regularity: perfectly periodic gaps (bots) or
	// implausibly tight gaps both drag the score down via a z-score check,
	// the same rule used for task-duration anomaly detection.
	if !p.lastEventAt.IsZero() {
		interval := ev.Timestamp.Sub(p.lastEventAt).Seconds()
		if interval < 0 {
			interval = 0
		}
		if p.intervalCount >= int64(s.config.MinSamples) {
			stddev := math.Sqrt(p.intervalM2 / float64(p.intervalCount))
			if stddev > 0 {
				z := math.Abs(interval-p.intervalMean) / stddev
				if z < 0.1 {
					// suspiciously machine-regular cadence
					score *= 0.3
					reasons = append(reasons, "regular_cadence")
				} else if z > s.config.SigmaThreshold {
					score *= 0.7
					reasons = append(reasons, "irregular_interval")
				}
			} else if interval == p.intervalMean {
				// every gap so far identical, and this one too
				score *= 0.3
				reasons = append(reasons, "regular_cadence")
			}
		}
		updateWelford(&p.intervalCount, &p.intervalMean, &p.intervalM2, interval)
	}
	p.lastEventAt = ev.Timestamp

	// Device/network consistency: a user whose events arrive from many
	// distinct device or network fingerprints looks like a farm account.
	score *= consistencyFactor(p.knownDevices, ev.DeviceFingerprint)
	score *= consistencyFactor(p.knownNetworks, ev.NetworkFingerprint)

	// Content-originality: repeated identical fingerprints (same content
	// reposted/resubmitted) are penalized, escalating with repeat count.
	if ev.ContentFingerprint != "" {
		seen := p.knownContent[ev.ContentFingerprint]
		p.knownContent[ev.ContentFingerprint] = seen + 1
		if seen > 0 {
			penalty := 1.0 / float64(seen+1)
			score *= penalty
			reasons = append(reasons, "duplicate_content")
		}
	}

	// Referral fan-out: the model forbids cycles outright upstream (see
	// domain.ErrAncestorCycleDetected), so the only shape anomaly left to
	// penalize here is an extreme star-burst of referrals.
	if ev.ReferralFanOut > s.config.FanOutLimit {
		excess := float64(ev.ReferralFanOut-s.config.FanOutLimit) / float64(s.config.FanOutLimit)
		score *= 1.0 / (1.0 + excess)
		reasons = append(reasons, "referral_fan_out")
	}

	score = clamp01(score)

	if score < s.config.LowScoreThreshold {
		p.totalLowScore++
		p.consecutiveLowScore++
		if p.consecutiveLowScore >= s.config.MaxConsecutiveLowScore {
			p.suspectedBot = true
		}
	} else {
		p.consecutiveLowScore = 0
	}

	return Result{
		HumanScore:   score,
		SuspectedBot: p.suspectedBot,
		Reasons:      reasons,
	}
}

// consistencyFactor penalizes fingerprints the profile hasn't seen before,
// proportional to how many distinct ones have already accumulated — one
// new device is normal, a dozen is a farm.
func consistencyFactor(known map[string]int64, fingerprint string) float64 {
	if fingerprint == "" {
		return 1.0
	}
	if _, ok := known[fingerprint]; ok {
		known[fingerprint]++
		return 1.0
	}
	known[fingerprint] = 1
	distinct := len(known)
	if distinct <= 2 {
		return 1.0
	}
	return 1.0 / (1.0 + float64(distinct-2)*0.15)
}

// updateWelford applies one step of Welford's online mean/variance update.
func updateWelford(count *int64, mean, m2 *float64, x float64) {
	*count++
	delta := x - *mean
	*mean += delta / float64(*count)
	delta2 := x - *mean
	*m2 += delta * delta2
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// IsSuspectedBot reports whether the user currently carries the sticky
// suspected_bot flag, without scoring a new event.
func (s *Scorer) IsSuspectedBot(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	return ok && p.suspectedBot
}

// ClearSuspectedBot lifts the sticky flag, e.g. after a manual review
// clears a false positive.
func (s *Scorer) ClearSuspectedBot(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		p.suspectedBot = false
		p.consecutiveLowScore = 0
	}
}

// CleanupStaleProfiles drops profiles untouched for longer than ProfileTTL,
// the same eviction policy used by anomaly detectors elsewhere.
func (s *Scorer) CleanupStaleProfiles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.config.ProfileTTL)
	removed := 0
	for id, p := range s.profiles {
		if p.lastSeen.Before(cutoff) {
			delete(s.profiles, id)
			removed++
		}
	}
	return removed
}

// ProfileCount returns the number of tracked user profiles.
func (s *Scorer) ProfileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
