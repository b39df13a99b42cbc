// Package daemon manages the reward engine process lifecycle: wiring every
// application service over the durable store, then serving the HTTP API
// and background sweeper until shutdown. Keeps the familiar
// Daemon-struct-plus-Serve/Close shape, narrowed down to exactly the
// collaborators a reward-computation process needs.
package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finova-network/reward-engine/internal/api"
	"github.com/finova-network/reward-engine/internal/app/abuse"
	"github.com/finova-network/reward-engine/internal/app/engine"
	"github.com/finova-network/reward-engine/internal/app/intake"
	"github.com/finova-network/reward-engine/internal/app/ledger"
	"github.com/finova-network/reward-engine/internal/app/network"
	"github.com/finova-network/reward-engine/internal/app/propagator"
	"github.com/finova-network/reward-engine/internal/app/sweeper"
	"github.com/finova-network/reward-engine/internal/app/worker"
	"github.com/finova-network/reward-engine/internal/config"
	"github.com/finova-network/reward-engine/internal/domain"
	_ "github.com/finova-network/reward-engine/internal/infra/metrics" // registers Prometheus collectors
	"github.com/finova-network/reward-engine/internal/infra/scheduler"
	"github.com/finova-network/reward-engine/internal/infra/store"
)

// Daemon is the reward engine process: every collaborator engine.Core
// needs, plus the transport and background sweep that drive it.
type Daemon struct {
	Config config.Config
	DB     *store.DB
	Core   *engine.Core
	Intake *intake.Service
	Sweep  *sweeper.Sweeper
	Server *api.Server

	cancel context.CancelFunc
}

// New constructs a Daemon from the on-disk (or default) configuration.
func New() (*Daemon, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig constructs a Daemon over an already-loaded configuration,
// wiring every application service in dependency order: storage, then the
// pure application services, then the composition root, then the
// transports that drive it.
func NewWithConfig(cfg config.Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	db, err := store.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	oracle := network.NewOracle(cfg.Economics.PhaseThresholds)
	if total, err := db.CountActiveUsers(); err == nil {
		oracle.Seed(total, time.Now())
	}

	prop := propagator.NewService(db, cfg.Economics.ReferralSplit)
	ledgerSvc := ledger.NewService(db, scheduler.DefaultRetryConfig(), cfg.Economics.DailyCaps)
	workers := worker.NewPool()
	scorer := abuse.New(abuse.DefaultConfig())

	core := engine.New(db, scorer, oracle, prop, ledgerSvc, workers, cfg.Economics)

	intakeSvc := intake.NewService(db, func(ev domain.EventRecord) error {
		_, err := core.IngestSocialActivity(context.Background(), ev)
		return err
	}, intake.WithGraceWindows(
		time.Duration(cfg.Intake.StaleGraceSecs)*time.Second,
		time.Duration(cfg.Intake.FutureGraceSecs)*time.Second,
	))

	staleAfter := time.Duration(cfg.Sweeper.StaleAfterSecs) * time.Second
	sweep := sweeper.New(db, ledgerSvc, oracle, workers, core.RateFor, staleAfter)

	srv := api.NewServer(core, core, core, intakeSvc)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config: cfg,
		DB:     db,
		Core:   core,
		Intake: intakeSvc,
		Sweep:  sweep,
		Server: srv,
	}, nil
}

// Serve starts the background sweeper and HTTP server and blocks until a
// shutdown signal arrives or ctx is cancelled.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.Sweep.Start(d.Config.Sweeper.Schedule); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		d.Sweep.Stop()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	log.Printf("[daemon] reward engine serving on http://%s", addr)
	if d.Config.Telemetry.Prometheus {
		log.Printf("[daemon] metrics: http://%s/metrics", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources without waiting for a signal,
// used by callers (tests, the CLI) that manage the server lifecycle
// themselves.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	d.Sweep.Stop()
	_ = d.DB.Close()
}
