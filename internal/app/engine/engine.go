// Package engine wires every component of the reward core together behind
// three boundary interfaces: EventSink, ClaimSink, and SnapshotReader. A
// single struct holds every collaborator, constructed once at process
// start and handed to whatever transport (HTTP, CLI) drives it — the
// familiar single-composition-root daemon shape, narrowed down to exactly
// the application services a reward engine needs.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/finova-network/reward-engine/internal/app/abuse"
	"github.com/finova-network/reward-engine/internal/app/effects"
	"github.com/finova-network/reward-engine/internal/app/ledger"
	"github.com/finova-network/reward-engine/internal/app/mining"
	"github.com/finova-network/reward-engine/internal/app/network"
	"github.com/finova-network/reward-engine/internal/app/propagator"
	"github.com/finova-network/reward-engine/internal/app/quality"
	"github.com/finova-network/reward-engine/internal/app/rpengine"
	"github.com/finova-network/reward-engine/internal/app/staking"
	"github.com/finova-network/reward-engine/internal/app/worker"
	"github.com/finova-network/reward-engine/internal/app/xpengine"
	"github.com/finova-network/reward-engine/internal/config"
	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
	"github.com/finova-network/reward-engine/internal/infra/metrics"
	"github.com/finova-network/reward-engine/internal/infra/store"
)

// Core implements domain.EventSink, domain.ClaimSink, and
// domain.SnapshotReader over the durable store and the pure application
// packages. Every mutating method serializes per affected user through
// workers, matching single-writer-per-aggregate rule.
type Core struct {
	db         *store.DB
	abuse      *abuse.Scorer
	oracle     *network.Oracle
	propagator *propagator.Service
	ledger     *ledger.Service
	workers    *worker.Pool
	economics  config.EconomicsConfig
	now        func() time.Time
}

// New constructs a Core over its collaborators. Callers (the daemon wiring
// layer) own the lifetime of db, abuseScorer, oracle, and workers; Core
// itself holds no goroutines and needs no Close.
func New(db *store.DB, abuseScorer *abuse.Scorer, oracle *network.Oracle, prop *propagator.Service, ledgerSvc *ledger.Service, workers *worker.Pool, economics config.EconomicsConfig) *Core {
	return &Core{
		db:         db,
		abuse:      abuseScorer,
		oracle:     oracle,
		propagator: prop,
		ledger:     ledgerSvc,
		workers:    workers,
		economics:  economics,
		now:        time.Now,
	}
}

var _ domain.EventSink = (*Core)(nil)
var _ domain.ClaimSink = (*Core)(nil)
var _ domain.SnapshotReader = (*Core)(nil)

// IngestUserCreated implements domain.EventSink: it seeds the User Aggregate
// in the CREATED lifecycle state, records the referral edge (if any) under
// the deterministic pair-lock, and advances the Network Phase Oracle.
func (c *Core) IngestUserCreated(ctx context.Context, e domain.UserCreated) error {
	now := e.CreatedAt
	if now.IsZero() {
		now = c.now()
	}

	u := domain.User{
		ID:               e.UserID,
		Status:           domain.UserCreated,
		MiningPhaseEntry: now,
		LastAccrualTS:    now,
		LastDailyResetTS: now,
		CreatedAt:        now,
	}
	if err := c.workers.WithUser(e.UserID, func() error {
		return c.db.UpsertUser(u)
	}); err != nil {
		return err
	}

	if e.ReferrerID != "" {
		if err := c.workers.WithUserPair(e.UserID, e.ReferrerID, func() error {
			if err := c.db.InsertReferralEdge(e.UserID, e.ReferrerID, now); err != nil {
				return err
			}
			rp, err := c.db.GetRPState(e.UserID)
			if err != nil {
				return err
			}
			if err := rpengine.AssignReferrer(rp, e.UserID, e.ReferrerID); err != nil {
				return err
			}
			return c.db.UpsertRPState(*rp)
		}); err != nil {
			return err
		}
	}

	state := c.oracle.RecordUserCreated(now)
	metrics.TotalUsers.Set(float64(state.TotalUsers))
	metrics.NetworkPhase.Set(float64(state.Phase))
	return nil
}

// IngestKYCStatusChanged implements domain.EventSink. The boundary exposes
// no separate "activate" event, so a verified KYC verdict is the sole
// trigger lifecycle has for entering ACTIVE (the only
// mining-eligible state); a revoked verdict returns the account to
// KYC_PENDING unless it has already been administratively suspended or
// closed, which this event must never override.
func (c *Core) IngestKYCStatusChanged(ctx context.Context, e domain.KYCStatusChanged) error {
	return c.workers.WithUser(e.UserID, func() error {
		u, err := c.db.GetUser(e.UserID)
		if err != nil {
			return err
		}
		u.KYCVerified = e.Verified
		if e.Verified {
			if u.Status != domain.UserSuspended && u.Status != domain.UserClosed {
				u.Status = domain.UserActive
			}
		} else if u.Status == domain.UserActive || u.Status == domain.UserKYCVerified {
			u.Status = domain.UserKYCPending
		}
		return c.db.UpsertUser(*u)
	})
}

// contentBearing reports whether an activity type carries propagatable
// content value (: daily-login is an engagement signal, not
// content, so it never feeds the Reward Propagator).
func contentBearing(a domain.ActivityType) bool {
	return a != domain.ActivityDailyLogin
}

// IngestSocialActivity implements domain.EventSink: the full social-activity
// pipeline — abuse scoring, content quality, XP award, referral RP
// credit, mining-rate computation and accrual, then (for content-bearing
// events) reward propagation to referral ancestors. The direct-referee lookup
// and abuse scoring run before the originating user's serialization lock is
// taken; everything from the user read onward runs under that lock, and
// referral credit to ancestors nests
// additional per-ancestor locks, safe because credit only ever flows
// descendant-to-ancestor, never the reverse.
func (c *Core) IngestSocialActivity(ctx context.Context, ev domain.EventRecord) (domain.IngestResult, error) {
	now := ev.Timestamp

	refereeIDs, err := c.db.DirectReferees(ev.UserID)
	if err != nil {
		return domain.IngestResult{}, err
	}

	abuseResult := c.abuse.Score(abuse.Event{
		UserID:             ev.UserID,
		Timestamp:          now,
		DeviceFingerprint:  ev.DeviceInfo,
		NetworkFingerprint: ev.DeviceInfo,
		ContentFingerprint: ev.ContentFingerprint,
		ReferralFanOut:     len(refereeIDs),
	})
	metrics.HumanScore.Observe(abuseResult.HumanScore)
	if abuseResult.SuspectedBot {
		metrics.SuspectedBotFlags.Inc()
	}

	qualityScore := quality.Score(quality.Input{
		OriginalityScore: abuseResult.HumanScore,
		Platform:         ev.Platform,
		Engagement:       ev.Engagement,
	})
	// Anti-Sybil attenuation: a low-confidence human_score drags this
	// event's own reward output down by that same factor, on top of
	// (not instead of) the content-quality score above. The persistent
	// suspected_bot floor is a separate, harsher penalty applied against
	// the user's ongoing mining rate — see mining.Input.SuspectedBot.
	if abuseResult.HumanScore < 0.3 {
		qualityScore *= abuseResult.HumanScore
	}

	var result domain.IngestResult
	err = c.workers.WithUser(ev.UserID, func() error {
		u, err := c.db.GetUser(ev.UserID)
		if err != nil {
			return err
		}

		u.SuspectedBot = abuseResult.SuspectedBot
		u.LastActivityTS = now
		suspended := u.Status == domain.UserSuspended
		if err := c.db.UpsertUser(*u); err != nil {
			return err
		}

		xp, err := c.db.GetXPState(ev.UserID)
		if err != nil {
			return err
		}
		gained, levelUp := xpengine.ApplyActivity(xp, ev.ActivityType, ev.Platform, qualityScore, now)
		if err := c.db.UpsertXPState(*xp); err != nil {
			return err
		}
		if levelUp != nil {
			log.Printf("[engine] user %s leveled up %d -> %d", levelUp.UserID, levelUp.OldLevel, levelUp.NewLevel)
		}

		rp, err := c.db.GetRPState(ev.UserID)
		if err != nil {
			return err
		}
		activeReferrals, err := c.activeReferralCount(refereeIDs, now)
		if err != nil {
			return err
		}
		rp.ActiveReferrals = activeReferrals
		if err := c.db.UpsertRPState(*rp); err != nil {
			return err
		}

		if suspended {
			// PolicyViolation SuspendedUser: zero-credit accept — XP/RP
			// features above still advance, but no $FIN is minted or
			// propagated for this event.
			result = domain.IngestResult{Outcome: domain.OutcomeAccepted, Reason: domain.ErrSuspendedUser.Error()}
			return nil
		}

		chain, err := c.db.AncestorChain(ev.UserID)
		if err != nil {
			return err
		}
		if err := c.creditRP(chain, gained); err != nil {
			return err
		}

		staked, err := c.db.GetStakingState(ev.UserID)
		if err != nil {
			return err
		}
		effectsVec, err := c.loadEffects(ev.UserID, now)
		if err != nil {
			return err
		}

		snap := c.oracle.Snapshot()
		rate := mining.Rate(mining.Input{
			Phase:             snap.Phase,
			TotalUsers:        snap.TotalUsers,
			ActiveReferrals:   rp.ActiveReferrals,
			KYCVerified:       u.KYCVerified,
			CumulativeEarned:  u.CumulativeEarned,
			Level:             xp.Level,
			RPTier:            rp.Tier,
			StakingMultiplier: staking.Multiplier(*staked),
			EffectsMultiplier: effectsVec.Mining,
			SuspectedBot:      u.SuspectedBot,
		}, c.economics.BaseRates, c.economics.MiningProductCeiling)

		gain, err := c.ledger.AccrueAndPersist(ev.UserID, rate, now, snap.Phase)
		if err != nil {
			return err
		}
		metrics.AccrualsProcessed.Inc()

		if contentBearing(ev.ActivityType) && gain > 0 {
			credits, err := c.propagator.Propagate(ev.UserID, gain, now)
			if err != nil {
				return err
			}
			for _, credit := range credits {
				metrics.PropagationCredits.WithLabelValues(hopLabel(credit.Hop)).Inc()
			}
		}

		result = domain.IngestResult{Outcome: domain.OutcomeAccepted}
		return nil
	})
	if err != nil {
		return domain.IngestResult{}, err
	}
	return result, nil
}

// IngestStakeOperation implements domain.EventSink.
func (c *Core) IngestStakeOperation(ctx context.Context, e domain.StakeOperation) error {
	return c.workers.WithUser(e.UserID, func() error {
		s, err := c.db.GetStakingState(e.UserID)
		if err != nil {
			return err
		}
		switch e.Kind {
		case domain.StakeOpStake:
			staking.Stake(s, e.Delta, e.Timestamp, c.economics.StakingTierThresholds)
		case domain.StakeOpUnstake:
			if e.Delta > s.Staked {
				return domain.ErrInsufficientStake
			}
			staking.Unstake(s, e.Delta, e.Timestamp, c.economics.StakingTierThresholds)
		}
		return c.db.UpsertStakingState(*s)
	})
}

// IngestEffectGranted implements domain.EventSink. Effect
// storage is append-only: the replace-if-stronger-per-class policy is
// resolved in memory at read time (see loadEffects), so granting an effect
// never needs to compare it against the user's current occupant here.
func (c *Core) IngestEffectGranted(ctx context.Context, e domain.EffectGranted) error {
	return c.db.UpsertEffect(domain.EffectEntry{
		UserID: e.UserID,
		Source: e.Source,
		Class:  e.Class,
		Multiplier: domain.MultiplierVector{
			Mining: e.MiningMul,
			XP:     e.XPMul,
			RP:     e.RPMul,
		},
		StartAt: c.now(),
		Expiry:  e.Expiry,
	})
}

// Claim implements domain.ClaimSink.
func (c *Core) Claim(ctx context.Context, req domain.ClaimRequested) (domain.RewardClaimed, error) {
	start := c.now()
	var claimed domain.RewardClaimed
	err := c.workers.WithUser(req.UserID, func() error {
		var err error
		claimed, err = c.ledger.Claim(req.UserID, req.ClaimNonce, start)
		return err
	})
	if err != nil {
		return domain.RewardClaimed{}, err
	}
	metrics.ClaimsSettled.WithLabelValues(string(claimed.Status)).Inc()
	metrics.ClaimLatency.Observe(c.now().Sub(start).Seconds())
	return claimed, nil
}

// UserSnapshot implements domain.SnapshotReader: a read-only aggregate view
// across every component's durable state, plus the instantaneous rate the
// Mining Rate Calculator would produce right now.
func (c *Core) UserSnapshot(ctx context.Context, userID string) (domain.UserStateSnapshot, error) {
	u, err := c.db.GetUser(userID)
	if err != nil {
		return domain.UserStateSnapshot{}, err
	}
	xp, err := c.db.GetXPState(userID)
	if err != nil {
		return domain.UserStateSnapshot{}, err
	}
	rp, err := c.db.GetRPState(userID)
	if err != nil {
		return domain.UserStateSnapshot{}, err
	}
	staked, err := c.db.GetStakingState(userID)
	if err != nil {
		return domain.UserStateSnapshot{}, err
	}
	now := c.now()
	active, err := c.db.ListActiveEffects(userID, now.Unix())
	if err != nil {
		return domain.UserStateSnapshot{}, err
	}
	effectsVec, err := c.loadEffects(userID, now)
	if err != nil {
		return domain.UserStateSnapshot{}, err
	}

	snap := c.oracle.Snapshot()
	rate := mining.Rate(mining.Input{
		Phase:             snap.Phase,
		TotalUsers:        snap.TotalUsers,
		ActiveReferrals:   rp.ActiveReferrals,
		KYCVerified:       u.KYCVerified,
		CumulativeEarned:  u.CumulativeEarned,
		Level:             xp.Level,
		RPTier:            rp.Tier,
		StakingMultiplier: staking.Multiplier(*staked),
		EffectsMultiplier: effectsVec.Mining,
		SuspectedBot:      u.SuspectedBot,
	}, c.economics.BaseRates, c.economics.MiningProductCeiling)

	return domain.UserStateSnapshot{
		UserID:         userID,
		XP:             *xp,
		RP:             *rp,
		Staking:        *staked,
		PendingBalance: u.PendingBalance,
		CurrentRate:    fixedpoint.FromFloatRatio(rate.Float()),
		ActiveEffects:  active,
	}, nil
}

// RateFor resolves a user's current instantaneous mining rate, matching
// sweeper.RateFunc's signature so Core can be wired directly as the
// sweeper's rate source without it needing to know about XP/RP/staking/
// effects state. Swallows read errors as a zero rate since a forced
// accrual with no readable state has nothing to integrate anyway; the
// sweeper retries on its next tick.
func (c *Core) RateFor(userID string, phase domain.NetworkPhase) fixedpoint.Amount {
	u, err := c.db.GetUser(userID)
	if err != nil {
		return fixedpoint.Zero
	}
	xp, err := c.db.GetXPState(userID)
	if err != nil {
		return fixedpoint.Zero
	}
	rp, err := c.db.GetRPState(userID)
	if err != nil {
		return fixedpoint.Zero
	}
	staked, err := c.db.GetStakingState(userID)
	if err != nil {
		return fixedpoint.Zero
	}
	now := c.now()
	effectsVec, err := c.loadEffects(userID, now)
	if err != nil {
		return fixedpoint.Zero
	}

	snap := c.oracle.Snapshot()
	return mining.Rate(mining.Input{
		Phase:             phase,
		TotalUsers:        snap.TotalUsers,
		ActiveReferrals:   rp.ActiveReferrals,
		KYCVerified:       u.KYCVerified,
		CumulativeEarned:  u.CumulativeEarned,
		Level:             xp.Level,
		RPTier:            rp.Tier,
		StakingMultiplier: staking.Multiplier(*staked),
		EffectsMultiplier: effectsVec.Mining,
		SuspectedBot:      u.SuspectedBot,
	}, c.economics.BaseRates, c.economics.MiningProductCeiling)
}

// NetworkState implements domain.SnapshotReader.
func (c *Core) NetworkState(ctx context.Context) (domain.NetworkSnapshot, error) {
	snap := c.oracle.Snapshot()
	return domain.NetworkSnapshot{
		TotalUsers: snap.TotalUsers,
		Phase:      snap.Phase,
		BaseRate:   domain.BaseRate(snap.Phase, c.economics.BaseRates),
	}, nil
}

// DeadLetters implements domain.SnapshotReader: lists work items that
// exhausted their retry budget, most recent first, for operator inspection.
func (c *Core) DeadLetters(ctx context.Context, kind domain.DeadLetterKind, limit int) ([]domain.DeadLetter, error) {
	return c.db.ListDeadLetters(kind, limit)
}

// activeReferralCount resolves the Glossary's "active referral" count for
// the referrer's own mining-rate referral_bonus: only the direct (L1)
// referees are examined, since that bonus is defined over direct fan-out,
// not the full referral subtree.
func (c *Core) activeReferralCount(refereeIDs []string, now time.Time) (int, error) {
	if len(refereeIDs) == 0 {
		return 0, nil
	}
	lastActivity := make(map[string]time.Time, len(refereeIDs))
	suspectedBot := make(map[string]bool, len(refereeIDs))
	for _, id := range refereeIDs {
		u, err := c.db.GetUser(id)
		if err != nil {
			if err == domain.ErrUserNotFound {
				continue
			}
			return 0, err
		}
		lastActivity[id] = u.LastActivityTS
		suspectedBot[id] = u.SuspectedBot
	}
	return rpengine.CountActiveReferrals(refereeIDs, lastActivity, suspectedBot, now), nil
}

// loadEffects rebuilds the in-memory Effect Registry from the append-only
// store rows and returns the combined multiplier vector.
func (c *Core) loadEffects(userID string, now time.Time) (domain.MultiplierVector, error) {
	entries, err := c.db.ListActiveEffects(userID, now.Unix())
	if err != nil {
		return domain.MultiplierVector{}, err
	}
	reg := effects.NewRegistry()
	for _, e := range entries {
		reg.AddEffect(e)
	}
	return reg.CombinedMultiplier(now, c.economics.EffectCeiling), nil
}

// creditRP awards each ancestor in chain their RP share of this event's XP
// gain (credit_referral_activity), folds the share into the ancestor's
// running direct (hop 1) or indirect (hop 2+3) raw-contribution sum, and
// re-derives total_RP and tier from those sums via rpengine.Recompute — so
// every credit re-applies the network-size regression factor against the
// ancestor's full contribution history, not just the new share.
func (c *Core) creditRP(chain domain.AncestorChain, gained uint64) error {
	if gained == 0 || len(chain.Ancestors) == 0 {
		return nil
	}
	credits := rpengine.CreditReferralActivity(chain, fixedpoint.FromFloat(float64(gained)), c.economics.ReferralSplit)
	totalNetworkSize := c.oracle.Snapshot().TotalUsers
	for _, credit := range credits {
		rp := credit.RP
		hop := credit.Hop
		ancestorID := credit.AncestorID
		if err := c.workers.WithUser(ancestorID, func() error {
			state, err := c.db.GetRPState(ancestorID)
			if err != nil {
				return err
			}
			if hop == 1 {
				state.DirectRPRaw += rp
			} else {
				state.IndirectRPRaw += rp
			}
			rpengine.Recompute(state, state.DirectRPRaw, state.IndirectRPRaw, 0, totalNetworkSize, c.economics.RPTierThresholds)
			return c.db.UpsertRPState(*state)
		}); err != nil {
			return err
		}
	}
	return nil
}

func hopLabel(hop int) string {
	switch hop {
	case 0:
		return "0"
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	default:
		return "other"
	}
}
