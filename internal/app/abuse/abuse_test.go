package abuse

import (
	"testing"
	"time"
)

func TestScoreNewUserStartsHigh(t *testing.T) {
	s := New(DefaultConfig())
	res := s.Score(Event{UserID: "u1", Timestamp: time.Now(), DeviceFingerprint: "d1", NetworkFingerprint: "n1"})
	if res.HumanScore < 0.9 {
		t.Errorf("human_score = %f, want near 1.0 for a fresh profile", res.HumanScore)
	}
	if res.SuspectedBot {
		t.Error("fresh user should not be suspected_bot")
	}
}

func TestScoreRegularCadencePenalized(t *testing.T) {
	s := New(DefaultConfig())
	base := time.Now()
	var last Result
	for i := 0; i < 10; i++ {
		last = s.Score(Event{
			UserID:    "bot1",
			Timestamp: base.Add(time.Duration(i) * 10 * time.Second),
		})
	}
	if last.HumanScore >= 0.5 {
		t.Errorf("perfectly periodic cadence should score low, got %f", last.HumanScore)
	}
}

func TestScoreDuplicateContentPenalized(t *testing.T) {
	s := New(DefaultConfig())
	base := time.Now()
	first := s.Score(Event{UserID: "u2", Timestamp: base, ContentFingerprint: "fp-1"})
	second := s.Score(Event{UserID: "u2", Timestamp: base.Add(time.Minute), ContentFingerprint: "fp-1"})
	if second.HumanScore >= first.HumanScore {
		t.Errorf("resubmitting identical content should reduce score: first=%f second=%f", first.HumanScore, second.HumanScore)
	}
}

func TestScoreDeviceFarmPenalized(t *testing.T) {
	s := New(DefaultConfig())
	base := time.Now()
	var last Result
	for i := 0; i < 10; i++ {
		last = s.Score(Event{
			UserID:            "u3",
			Timestamp:         base.Add(time.Duration(i) * time.Hour),
			DeviceFingerprint: string(rune('a' + i)),
		})
	}
	if last.HumanScore >= 0.8 {
		t.Errorf("cycling through many devices should reduce score, got %f", last.HumanScore)
	}
}

func TestScoreReferralFanOutPenalized(t *testing.T) {
	s := New(DefaultConfig())
	res := s.Score(Event{UserID: "u4", Timestamp: time.Now(), ReferralFanOut: 500})
	if res.HumanScore >= 0.9 {
		t.Errorf("extreme referral fan-out should reduce score, got %f", res.HumanScore)
	}
	found := false
	for _, r := range res.Reasons {
		if r == "referral_fan_out" {
			found = true
		}
	}
	if !found {
		t.Error("expected referral_fan_out reason")
	}
}

func TestSuspectedBotEscalation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConsecutiveLowScore = 3
	s := New(cfg)
	base := time.Now()

	for i := 0; i < 3; i++ {
		s.Score(Event{UserID: "persistent", Timestamp: base.Add(time.Duration(i) * time.Hour), ReferralFanOut: 1000})
	}

	if !s.IsSuspectedBot("persistent") {
		t.Error("expected suspected_bot to flip after consecutive low-score events")
	}
}

func TestClearSuspectedBot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConsecutiveLowScore = 1
	s := New(cfg)
	s.Score(Event{UserID: "u5", Timestamp: time.Now(), ReferralFanOut: 1000})
	if !s.IsSuspectedBot("u5") {
		t.Fatal("expected suspected_bot after a single extreme event with MaxConsecutiveLowScore=1")
	}
	s.ClearSuspectedBot("u5")
	if s.IsSuspectedBot("u5") {
		t.Error("expected suspected_bot cleared")
	}
}

func TestCleanupStaleProfiles(t *testing.T) {
	s := New(DefaultConfig())
	fixedNow := time.Now()
	s.now = func() time.Time { return fixedNow }
	s.Score(Event{UserID: "stale", Timestamp: fixedNow})

	s.now = func() time.Time { return fixedNow.Add(100 * 24 * time.Hour) }
	removed := s.CleanupStaleProfiles()
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if s.ProfileCount() != 0 {
		t.Errorf("profile count = %d, want 0 after cleanup", s.ProfileCount())
	}
}
