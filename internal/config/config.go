// Package config holds the reward engine's runtime configuration.
// Grounded on daemon/config.go's shape verbatim: a TOML-tagged struct tree,
// DefaultConfig/LoadConfig/SaveConfig, and an environment-variable home-dir
// override.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/finova-network/reward-engine/internal/domain"
)

// Config holds all reward-engine configuration.
type Config struct {
	Node      NodeConfig      `toml:"node"`
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Sweeper   SweeperConfig   `toml:"sweeper"`
	Intake    IntakeConfig    `toml:"intake"`
	Economics EconomicsConfig `toml:"economics"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// NodeConfig identifies this engine instance.
type NodeConfig struct {
	ID string `toml:"id"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// StorageConfig controls the SQLite-backed store.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// SweeperConfig controls the background sweep cadence.
type SweeperConfig struct {
	Schedule        string `toml:"schedule"`
	StaleAfterSecs  int    `toml:"stale_after_secs"`
}

// IntakeConfig controls event admission.
type IntakeConfig struct {
	StaleGraceSecs   int     `toml:"stale_grace_secs"`
	FutureGraceSecs  int     `toml:"future_grace_secs"`
	LimiterRateHz    float64 `toml:"limiter_rate_hz"`
	LimiterBurst     int     `toml:"limiter_burst"`
}

// EconomicsConfig exposes the reward-formula parameters that belong in
// configuration rather than as constants — this is where the Open Question
// decision on staking/RP tier thresholds lives (see DESIGN.md).
type EconomicsConfig struct {
	PhaseThresholds       domain.PhaseThresholds          `toml:"phase_thresholds"`
	BaseRates             [4]float64                      `toml:"base_rates"`
	DailyCaps             [4]float64                      `toml:"daily_caps"`
	ReferralSplit         domain.ReferralSplit             `toml:"referral_split"`
	StakingTierThresholds []domain.StakingTierThreshold    `toml:"staking_tier_thresholds"`
	RPTierThresholds      []domain.RPTierThreshold          `toml:"rp_tier_thresholds"`
	EffectCeiling         float64                           `toml:"effect_ceiling"`
	MiningProductCeiling  float64                           `toml:"mining_product_ceiling"`
}

// TelemetryConfig controls observability.
type TelemetryConfig struct {
	Prometheus     bool `toml:"prometheus"`
	PrometheusPort int  `toml:"prometheus_port"`
}

// DefaultConfig returns a sensible default configuration, seeded from the
// domain package's Default* tables.
func DefaultConfig() Config {
	home := rewardEngineHome()
	return Config{
		Node: NodeConfig{ID: ""},
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Dir: home,
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      filepath.Join(home, "rewardengine.log"),
			MaxSizeMB: 50,
			MaxFiles:  5,
		},
		Sweeper: SweeperConfig{
			Schedule:       "@every 1m",
			StaleAfterSecs: 15 * 60,
		},
		Intake: IntakeConfig{
			StaleGraceSecs:  5 * 60,
			FutureGraceSecs: 2 * 60,
			LimiterRateHz:   0.5,
			LimiterBurst:    5,
		},
		Economics: EconomicsConfig{
			PhaseThresholds:       domain.DefaultPhaseThresholds,
			BaseRates:             domain.DefaultBaseRates,
			DailyCaps:             domain.DefaultDailyCaps,
			ReferralSplit:         domain.DefaultReferralSplit,
			StakingTierThresholds: domain.DefaultStakingTierThresholds,
			RPTierThresholds:      domain.DefaultRPTierThresholds,
			EffectCeiling:         10.0,
			MiningProductCeiling:  100.0,
		},
		Telemetry: TelemetryConfig{
			Prometheus:     false,
			PrometheusPort: 9090,
		},
	}
}

// LoadConfig reads config from <home>/config.toml, falling back to
// defaults when no file exists yet, and rejects an invalid economics table
// before it ever reaches the engine.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(rewardEngineHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects a config whose economics table cannot drive the Mining
// Rate Calculator or Network Phase Oracle.
func (c Config) Validate() error {
	t := c.Economics.PhaseThresholds
	if t.Phase2At == 0 || t.Phase3At == 0 || t.Phase4At == 0 {
		return fmt.Errorf("economics.phase_thresholds must not be empty")
	}
	if t.Phase2At >= t.Phase3At || t.Phase3At >= t.Phase4At {
		return fmt.Errorf("economics.phase_thresholds must be strictly increasing")
	}
	if c.Economics.MiningProductCeiling <= 0 {
		return fmt.Errorf("economics.mining_product_ceiling must be > 0")
	}
	if c.Economics.EffectCeiling <= 0 {
		return fmt.Errorf("economics.effect_ceiling must be > 0")
	}
	for _, rate := range c.Economics.BaseRates {
		if rate <= 0 {
			return fmt.Errorf("economics.base_rates entries must be > 0")
		}
	}
	for _, dailyCap := range c.Economics.DailyCaps {
		if dailyCap <= 0 {
			return fmt.Errorf("economics.daily_caps entries must be > 0")
		}
	}
	return nil
}

// SaveConfig writes cfg to <home>/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(rewardEngineHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// rewardEngineHome returns the engine's data directory, overridable via
// REWARDENGINE_HOME.
func rewardEngineHome() string {
	if env := os.Getenv("REWARDENGINE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rewardengine")
}

// Home is exported for use by other packages (cli, api).
func Home() string {
	return rewardEngineHome()
}
