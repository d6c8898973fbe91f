// confidence-hook is the per-event entry point: the host spawns it once per
// agent action, pipes one event JSON on stdin, and reads the decision JSON on
// stdout. Exit codes carry the verdict for hosts that ignore stdout:
// 0 allow, 3 deny, 4 lock timeout (also a deny).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/danielpatrickdp/confidence-gate/internal/config"
	"github.com/danielpatrickdp/confidence-gate/internal/engine"
	"github.com/danielpatrickdp/confidence-gate/internal/event"
	"github.com/danielpatrickdp/confidence-gate/internal/session"
)

// #region exit-codes

const (
	exitAllow       = 0
	exitUsage       = 2
	exitDeny        = 3
	exitLockTimeout = 4
)

// #endregion exit-codes

// #region main

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := envOr("CONFIDENCE_CONFIG", "")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitUsage
	}
	dbPath := envOr("CONFIDENCE_DB", cfg.Store.DBPath)

	eng, err := cfg.BuildEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		return exitUsage
	}

	store, err := session.Open(dbPath, cfg.SessionConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return exitUsage
	}
	defer store.Close()

	// A malformed event is not an input error: the turn still happens,
	// decay-only, so a broken host cannot freeze the clock.
	ev, decodeErr := event.Decode(os.Stdin)
	if decodeErr != nil {
		fmt.Fprintf(os.Stderr, "event: %v\n", decodeErr)
	}

	trace, err := store.EvaluateEvent(eng, ev)
	if errors.Is(err, session.ErrLockTimeout) {
		emit(engine.HostDecision{
			Decision:     string(engine.DecisionDeny),
			FiredSignals: []engine.FiredSignal{},
			Reason:       "session lock unavailable within bound, failing closed",
		})
		return exitLockTimeout
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluate: %v\n", err)
		return exitUsage
	}

	emit(trace.Host())
	if trace.Decision == engine.DecisionDeny {
		return exitDeny
	}
	return exitAllow
}

// #endregion main

// #region helpers

func emit(d engine.HostDecision) {
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(d); err != nil {
		fmt.Fprintf(os.Stderr, "encode decision: %v\n", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
