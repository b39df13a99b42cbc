package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/finova-network/reward-engine/internal/app/abuse"
	"github.com/finova-network/reward-engine/internal/app/engine"
	"github.com/finova-network/reward-engine/internal/app/ledger"
	"github.com/finova-network/reward-engine/internal/app/network"
	"github.com/finova-network/reward-engine/internal/app/propagator"
	"github.com/finova-network/reward-engine/internal/app/worker"
	"github.com/finova-network/reward-engine/internal/config"
	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
	"github.com/finova-network/reward-engine/internal/infra/scheduler"
	"github.com/finova-network/reward-engine/internal/infra/store"
)

func init() {
	rootCmd.AddCommand(simulateCmd)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <fixture.json>",
	Short: "Replay a JSON event fixture through the reward pipeline in-process",
	Long: `simulate wires the same Core pipeline "serve" uses over a throwaway
SQLite file, replays every event in the fixture in order, and prints the
resulting user snapshots. No HTTP server is started.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

type simulateEnvelope struct {
	Type       string          `json:"type"`
	UserID     string          `json:"user_id"`
	ReferrerID string          `json:"referrer_id,omitempty"`
	Verified   bool            `json:"verified,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	Delta      float64         `json:"delta,omitempty"`
	Timestamp  time.Time       `json:"timestamp,omitempty"`
	Event      json.RawMessage `json:"event,omitempty"`
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()

	dir, err := os.MkdirTemp("", "rewardengine-simulate-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	db, err := store.Open(dir)
	if err != nil {
		return fmt.Errorf("open scratch store: %w", err)
	}
	defer db.Close()

	oracle := network.NewOracle(cfg.Economics.PhaseThresholds)
	prop := propagator.NewService(db, cfg.Economics.ReferralSplit)
	ledgerSvc := ledger.NewService(db, scheduler.DefaultRetryConfig(), cfg.Economics.DailyCaps)
	workers := worker.NewPool()
	scorer := abuse.New(abuse.DefaultConfig())
	core := engine.New(db, scorer, oracle, prop, ledgerSvc, workers, cfg.Economics)

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	var envelopes []simulateEnvelope
	if err := json.Unmarshal(raw, &envelopes); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}

	ctx := context.Background()
	touched := map[string]struct{}{}
	for i, env := range envelopes {
		if err := replay(ctx, core, env); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, env.Type, err)
		}
		if env.UserID != "" {
			touched[env.UserID] = struct{}{}
		}
	}

	for userID := range touched {
		snap, err := core.UserSnapshot(ctx, userID)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", userID, err)
		}
		fmt.Printf("%s: pending=%s rate=%.4f xp=%d(lvl %d) rp=%d(%s)\n",
			userID, snap.PendingBalance.String(), snap.CurrentRate.Float(),
			snap.XP.TotalXP, snap.XP.Level, snap.RP.TotalRP, snap.RP.Tier)
	}
	return nil
}

func replay(ctx context.Context, core *engine.Core, env simulateEnvelope) error {
	switch env.Type {
	case "user_created":
		return core.IngestUserCreated(ctx, domain.UserCreated{
			UserID: env.UserID, ReferrerID: env.ReferrerID, CreatedAt: env.Timestamp,
		})
	case "kyc_status_changed":
		return core.IngestKYCStatusChanged(ctx, domain.KYCStatusChanged{
			UserID: env.UserID, Verified: env.Verified,
		})
	case "social_activity":
		var rec domain.EventRecord
		if len(env.Event) > 0 {
			if err := json.Unmarshal(env.Event, &rec); err != nil {
				return err
			}
		}
		rec.UserID = env.UserID
		_, err := core.IngestSocialActivity(ctx, rec)
		return err
	case "stake_operation":
		return core.IngestStakeOperation(ctx, domain.StakeOperation{
			UserID: env.UserID, Delta: fixedpoint.FromFloat(env.Delta),
			Kind: domain.StakeOperationKind(env.Kind), Timestamp: env.Timestamp,
		})
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
}
