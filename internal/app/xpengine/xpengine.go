// Package xpengine implements the XP Engine. It follows the familiar
// engagement.LevelService/StreakService pair: the same
// "cumulative-threshold table + iterate upward" shape for level lookup and
// the same "load state, apply, persist" shape for streak bookkeeping, but
// the exponential level curve is regenerated for a 200-entry table (up
// from a 100-entry original), the streak bonus formula and per-day
// activity caps are specific to reward accrual, and the old weekly
// streak-freeze allowance is dropped since there's no analog for it here.
package xpengine

import (
	"math"
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// BaseXP is the fixed per-activity-type XP award table (base_xp(activity_type)).
var BaseXP = map[domain.ActivityType]uint64{
	domain.ActivitySocialPost:   50,
	domain.ActivityVideoContent: 150,
	domain.ActivityComment:      10,
	domain.ActivityShare:        20,
	domain.ActivityDailyLogin:   5,
}

// DailyCaps is the fixed per-activity-type daily event cap: once the daily
// count for (user, activity_type) reaches its cap, further events of that
// type award 0 XP.
var DailyCaps = map[domain.ActivityType]int{
	domain.ActivitySocialPost:   20,
	domain.ActivityVideoContent: 10,
	domain.ActivityComment:      100,
	domain.ActivityShare:        30,
	domain.ActivityDailyLogin:   1,
}

var levelTable [domain.MaxLevel + 1]uint64

func init() {
	levelTable[0] = 0
	levelTable[1] = 0
	for level := 2; level <= domain.MaxLevel; level++ {
		levelTable[level] = uint64(50 * math.Pow(float64(level), 2.5))
	}
}

// XPForLevel returns the cumulative XP required to reach a given level.
func XPForLevel(level int) uint64 {
	if level <= 1 {
		return 0
	}
	if level > domain.MaxLevel {
		level = domain.MaxLevel
	}
	return levelTable[level]
}

// LevelForXP returns the level for a given total XP, via the 200-entry
// monotone threshold table.
func LevelForXP(xp uint64) int {
	level := 1
	for level < domain.MaxLevel {
		if xp < levelTable[level+1] {
			return level
		}
		level++
	}
	return domain.MaxLevel
}

// levelProgressionFactor implements diminishing-returns term:
// exp(-0.01 * current_level), evaluated in fixed-point.
func levelProgressionFactor(level int) fixedpoint.Ratio {
	return fixedpoint.ExpNeg(0.01, float64(level))
}

// dayKey renders t in the named timezone (falling back to UTC on an
// invalid/empty name) as a YYYY-MM-DD local-day boundary key.
func dayKey(t time.Time, tz string) string {
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	return t.In(loc).Format("2006-01-02")
}

// ApplyActivity implements the apply_activity operation: it mutates state in
// place, returns the XP gained (0 if the activity's daily cap was already
// hit), and returns a non-nil LevelUp if the user crossed a level boundary.
func ApplyActivity(state *domain.XPState, activityType domain.ActivityType, platform domain.Platform, quality float64, now time.Time) (uint64, *domain.LevelUp) {
	today := dayKey(now, state.DailyActivityTZ)

	if state.DailyCounts == nil {
		state.DailyCounts = make(map[string]int)
	}
	if state.DailyCountDate != today {
		state.DailyCounts = make(map[string]int)
		state.DailyCountDate = today
	}

	updateStreak(state, now, today)

	// A zero-value state starts at the level its XP implies (level 1), so
	// the first activity is not reported as a level-up from 0.
	if state.Level < 1 {
		state.Level = LevelForXP(state.TotalXP)
	}

	key := string(activityType)
	count := state.DailyCounts[key]
	dailyCap := DailyCaps[activityType]

	var gained uint64
	if dailyCap <= 0 || count < dailyCap {
		gained = computeGain(activityType, platform, quality, state.StreakDays, state.Level)
	}
	state.DailyCounts[key] = count + 1

	oldLevel := state.Level
	state.TotalXP += gained
	newLevel := LevelForXP(state.TotalXP)
	state.Level = newLevel

	if newLevel > oldLevel {
		return gained, &domain.LevelUp{UserID: state.UserID, OldLevel: oldLevel, NewLevel: newLevel}
	}
	return gained, nil
}

// computeGain is pure formula:
// base_xp * platform_multiplier * quality * streak_bonus * level_progression_factor.
func computeGain(activityType domain.ActivityType, platform domain.Platform, quality float64, streakDays, level int) uint64 {
	base := BaseXP[activityType]
	if base == 0 {
		return 0
	}

	amount := fixedpoint.FromFloat(float64(base))
	amount = amount.Apply(platform.Multiplier())
	amount = amount.Apply(fixedpoint.FromFloatRatio(quality))
	amount = amount.Apply(streakBonusRatio(streakDays))
	amount = amount.Apply(levelProgressionFactor(level))

	gained := amount.Float()
	if gained < 0 {
		gained = 0
	}
	return uint64(math.Round(gained))
}

// streakBonusRatio is : min(1 + streak_days*0.033, 3.0).
func streakBonusRatio(streakDays int) fixedpoint.Ratio {
	f := 1.0 + float64(streakDays)*0.033
	if f > 3.0 {
		f = 3.0
	}
	return fixedpoint.FromFloatRatio(f)
}

// updateStreak implements the streak rule: increments if the event occurs on
// the day after the last streak-counted event, resets to 1 if a day was
// skipped, and is a no-op if this is the same day as last counted.
func updateStreak(state *domain.XPState, now time.Time, today string) {
	if state.LastStreakDate == today {
		return
	}

	if state.LastStreakDate == "" {
		state.StreakDays = 1
		state.LastStreakDate = today
		return
	}

	last, err := time.Parse("2006-01-02", state.LastStreakDate)
	if err != nil {
		state.StreakDays = 1
		state.LastStreakDate = today
		return
	}

	expectedNext := last.AddDate(0, 0, 1).Format("2006-01-02")
	if today == expectedNext {
		state.StreakDays++
	} else {
		state.StreakDays = 1
	}
	state.LastStreakDate = today
}
