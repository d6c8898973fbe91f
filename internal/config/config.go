// Package config bundles every tuning knob of the controller into one
// structure with defaults, an optional YAML overlay, and validation, so the
// transition algorithm itself carries no magic numbers.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/confidence-gate/internal/engine"
	"github.com/danielpatrickdp/confidence-gate/internal/session"
	"github.com/danielpatrickdp/confidence-gate/internal/signal"
	"github.com/danielpatrickdp/confidence-gate/internal/tier"
)

// #region config

// StoreConfig tunes persistence and locking.
type StoreConfig struct {
	DBPath        string `yaml:"db_path"`
	LockTimeoutMS int    `yaml:"lock_timeout_ms"`
	HistoryLimit  int    `yaml:"history_limit"`
}

// Config is the full controller configuration.
type Config struct {
	Store   StoreConfig              `yaml:"store"`
	Engine  engine.Config            `yaml:"engine"`
	Tiers   []tier.Tier              `yaml:"tiers"`
	Signals map[string]signal.Tuning `yaml:"signals"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			DBPath:        "confidence.db",
			LockTimeoutMS: 5000,
			HistoryLimit:  50,
		},
		Engine: engine.DefaultConfig(),
		Tiers:  tier.DefaultTiers(),
	}
}

// #endregion config

// #region load

// Load returns the defaults overlaid with the YAML file at path. An empty
// path or a missing file yields pure defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// #endregion load

// #region validate

// Validate checks the cross-field invariants the engine relies on.
func (c Config) Validate() error {
	if c.Engine.BaseCap <= 0 {
		return fmt.Errorf("base_cap must be positive, got %d", c.Engine.BaseCap)
	}
	if c.Engine.RecoveryCap < c.Engine.BaseCap {
		return fmt.Errorf("recovery_cap %d below base_cap %d", c.Engine.RecoveryCap, c.Engine.BaseCap)
	}
	if c.Engine.StartScore < c.Engine.MinScore || c.Engine.StartScore > c.Engine.MaxScore {
		return fmt.Errorf("start_score %d outside [%d,%d]", c.Engine.StartScore, c.Engine.MinScore, c.Engine.MaxScore)
	}
	if c.Engine.Decay.TargetLow > c.Engine.Decay.TargetHigh {
		return fmt.Errorf("decay target_low %d above target_high %d", c.Engine.Decay.TargetLow, c.Engine.Decay.TargetHigh)
	}
	for i := 1; i < len(c.Engine.Compounding); i++ {
		if c.Engine.Compounding[i].MinReducers <= c.Engine.Compounding[i-1].MinReducers {
			return fmt.Errorf("compounding table not ascending at row %d", i)
		}
	}
	for i := 1; i < len(c.Engine.StreakTable); i++ {
		if c.Engine.StreakTable[i].MinCount <= c.Engine.StreakTable[i-1].MinCount {
			return fmt.Errorf("streak table not ascending at row %d", i)
		}
	}
	if err := tier.ValidatePartition(c.Tiers); err != nil {
		return fmt.Errorf("tiers: %w", err)
	}
	return nil
}

// #endregion validate

// #region build

// BuildEngine assembles the validated engine from the configuration.
func (c Config) BuildEngine() (*engine.Engine, error) {
	catalog := signal.Default()
	if len(c.Signals) > 0 {
		var err error
		catalog, err = catalog.Override(c.Signals)
		if err != nil {
			return nil, fmt.Errorf("signal tuning: %w", err)
		}
	}
	resolver, err := tier.NewResolver(c.Tiers)
	if err != nil {
		return nil, fmt.Errorf("tiers: %w", err)
	}
	return engine.New(catalog, resolver, c.Engine), nil
}

// SessionConfig derives the store configuration.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		LockTimeout:  time.Duration(c.Store.LockTimeoutMS) * time.Millisecond,
		HistoryLimit: c.Store.HistoryLimit,
		StartScore:   c.Engine.StartScore,
	}
}

// #endregion build
