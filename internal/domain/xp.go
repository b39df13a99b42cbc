package domain

// XPSource enumerates what kind of activity produced an XP gain. Grounded on
// the engagement.XPSource enum, generalized from a fixed small set
// to a full activity-type table.
type XPSource string

const (
	XPSourceSocialPost    XPSource = "SOCIAL_POST"
	XPSourceVideoContent  XPSource = "VIDEO_CONTENT"
	XPSourceComment       XPSource = "COMMENT"
	XPSourceShare         XPSource = "SHARE"
	XPSourceReferralBonus XPSource = "REFERRAL_BONUS"
	XPSourceDailyLogin    XPSource = "DAILY_LOGIN"
)

// MaxLevel bounds the monotone threshold table.
const MaxLevel = 200

// XPState is one user's experience-point state ( "XP State").
type XPState struct {
	UserID          string
	TotalXP         uint64
	Level           int
	StreakDays      int
	LastStreakDate  string         // YYYY-MM-DD in the user's local timezone
	DailyActivityTZ string         // IANA timezone name used for day-boundary math
	DailyCounts     map[string]int // activity_type -> count since last reset
	DailyCountDate  string         // YYYY-MM-DD the DailyCounts are valid for
}

// LevelUp is the signal the XP Engine emits on a level transition; the
// Mining Rate Calculator consumes it to recompute xp_multiplier.
type LevelUp struct {
	UserID   string
	OldLevel int
	NewLevel int
}
