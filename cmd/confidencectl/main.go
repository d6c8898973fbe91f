// confidencectl is the operator CLI: inspect the session, browse the decision
// log, file disputes, reset, and run the long-lived daemon. All commands work
// directly against the session database; pass --addr to go through a running
// daemon instead.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/confidence-gate/internal/config"
	"github.com/danielpatrickdp/confidence-gate/internal/engine"
	"github.com/danielpatrickdp/confidence-gate/internal/session"
)

// #region root

var (
	cfgPath    string
	dbPath     string
	daemonAddr string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "confidencectl",
	Short: "Inspect and operate the confidence controller",
	Long: `confidencectl manages the confidence session used to gate agent actions.

The session lives in a SQLite database shared with the per-event hook. Most
commands open it directly; with --addr they talk to a running daemon instead.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("CONFIDENCE_CONFIG"), "path to YAML config overlay")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "session database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&daemonAddr, "addr", "", "daemon address; route through gRPC instead of the local database")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	rootCmd.AddCommand(statusCmd, historyCmd, disputeCmd, disputesCmd, resetCmd, signalsCmd, tiersCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// #endregion root

// #region wiring

// loadConfig resolves the effective configuration, letting --db win over the
// config file and the file win over defaults.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.Store.DBPath = dbPath
	}
	if env := os.Getenv("CONFIDENCE_DB"); env != "" && dbPath == "" {
		cfg.Store.DBPath = env
	}
	return cfg, nil
}

// openStore opens the session database plus the engine built from config.
func openStore() (*session.Store, *engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	eng, err := cfg.BuildEngine()
	if err != nil {
		return nil, nil, err
	}
	store, err := session.Open(cfg.Store.DBPath, cfg.SessionConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return store, eng, nil
}

// #endregion wiring
