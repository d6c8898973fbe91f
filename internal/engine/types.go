package engine

import (
	"time"

	"github.com/danielpatrickdp/confidence-gate/internal/cooldown"
	"github.com/danielpatrickdp/confidence-gate/internal/decay"
	"github.com/danielpatrickdp/confidence-gate/internal/event"
	"github.com/danielpatrickdp/confidence-gate/internal/streak"
	"github.com/danielpatrickdp/confidence-gate/internal/tier"
)

// #region compounding

// CompoundStep is one row of the multi-reducer compounding table.
type CompoundStep struct {
	MinReducers int     `yaml:"min_reducers"`
	Factor      float64 `yaml:"factor"`
}

// DefaultCompounding returns the fixed table: 2 reducers → 1.5×, 3 → 2.0×,
// 4 and beyond → 3.0×.
func DefaultCompounding() []CompoundStep {
	return []CompoundStep{
		{MinReducers: 2, Factor: 1.5},
		{MinReducers: 3, Factor: 2.0},
		{MinReducers: 4, Factor: 3.0},
	}
}

// #endregion compounding

// #region config

// Config holds every tuning knob of the transition function so the algorithm
// itself stays generic.
type Config struct {
	StartScore  int            `yaml:"start_score"`   // initial session score
	BaseCap     int            `yaml:"base_cap"`      // per-turn |delta| limit
	RecoveryCap int            `yaml:"recovery_cap"`  // positive cap below the stasis floor
	Compounding []CompoundStep `yaml:"compounding"`   // multi-reducer escalation
	StreakTable []streak.Step  `yaml:"streak"`        // clean-turn multiplier steps
	Decay       decay.Config   `yaml:"decay"`         // mean-reversion tuning
	MinScore    int            `yaml:"min_score"`     // score floor, 0
	MaxScore    int            `yaml:"max_score"`     // score ceiling, 100
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		StartScore:  85,
		BaseCap:     15,
		RecoveryCap: 30,
		Compounding: DefaultCompounding(),
		StreakTable: streak.DefaultTable(),
		Decay:       decay.DefaultConfig(),
		MinScore:    0,
		MaxScore:    100,
	}
}

// #endregion config

// #region state

// State is the full session transition state. EvaluateTurn treats it as an
// immutable input and returns a fresh value; the caller owns persistence and
// locking.
type State struct {
	Score        int
	Turn         int
	LastActivity time.Time
	Cooldowns    cooldown.State
	Streak       streak.State
	History      event.History
}

// Initial returns the starting state for a new session.
func Initial(config Config) State {
	return State{
		Score:     config.StartScore,
		Turn:      0,
		Cooldowns: cooldown.State{},
		Streak:    streak.Initial(),
		History:   event.History{Limit: event.DefaultHistoryLimit},
	}
}

// #endregion state

// #region trace

// Decision is the permission verdict returned to the host.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// FiredSignal records one catalog hit in the decision trace, including hits
// suppressed by cooldown.
type FiredSignal struct {
	Name       string `json:"name"`
	Delta      int    `json:"delta"`
	Suppressed bool   `json:"suppressed"`
	Reason     string `json:"reason,omitempty"` // "suppressed: cooldown" when suppressed
}

// Trace is the structured record of one evaluated turn. Denial is never a
// bare boolean: Reason always narrates what fired and where the score landed.
type Trace struct {
	Turn        int             `json:"turn"`
	ScoreBefore int             `json:"score_before"`
	ScoreAfter  int             `json:"score_after"`
	RawDelta    int             `json:"raw_delta"`
	DecayDelta  int             `json:"decay_delta"`
	Fired       []FiredSignal   `json:"fired_signals"`
	Tier        tier.Tier       `json:"tier"`
	Required    tier.Capability `json:"required_capability"`
	Decision    Decision        `json:"decision"`
	Reason      string          `json:"reason"`
	Malformed   bool            `json:"malformed,omitempty"`
}

// #endregion trace

// #region host-decision

// HostDecision is the external decision shape handed back to the host
// collaborator, by the hook binary and the daemon alike.
type HostDecision struct {
	NewScore     int           `json:"new_score"`
	Tier         string        `json:"tier"`
	Decision     string        `json:"decision"`
	FiredSignals []FiredSignal `json:"fired_signals"`
	Reason       string        `json:"reason"`
}

// Host projects a trace onto the external decision shape.
func (t Trace) Host() HostDecision {
	fired := t.Fired
	if fired == nil {
		fired = []FiredSignal{}
	}
	return HostDecision{
		NewScore:     t.ScoreAfter,
		Tier:         t.Tier.Name,
		Decision:     string(t.Decision),
		FiredSignals: fired,
		Reason:       t.Reason,
	}
}

// #endregion host-decision
