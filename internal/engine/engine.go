// Package engine implements the confidence transition function: one event in,
// one new state and decision trace out. The function is pure; persistence and
// cross-process locking belong to the caller.
package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/confidence-gate/internal/cooldown"
	"github.com/danielpatrickdp/confidence-gate/internal/decay"
	"github.com/danielpatrickdp/confidence-gate/internal/event"
	"github.com/danielpatrickdp/confidence-gate/internal/signal"
	"github.com/danielpatrickdp/confidence-gate/internal/streak"
	"github.com/danielpatrickdp/confidence-gate/internal/tier"
)

// #region engine

// Engine bundles the static collaborators of the transition function.
type Engine struct {
	catalog  signal.Catalog
	resolver *tier.Resolver
	config   Config
}

// New creates an engine over a validated catalog and tier partition.
func New(catalog signal.Catalog, resolver *tier.Resolver, config Config) *Engine {
	return &Engine{catalog: catalog, resolver: resolver, config: config}
}

// Config returns the engine tuning.
func (e *Engine) Config() Config { return e.config }

// Catalog returns the signal registry for inspection tooling.
func (e *Engine) Catalog() signal.Catalog { return e.catalog }

// Resolver returns the tier resolver for permission queries.
func (e *Engine) Resolver() *tier.Resolver { return e.resolver }

// #endregion engine

// #region evaluate-turn

// EvaluateTurn runs the full ordered pipeline for one event: catalog →
// cooldown filter → partition → compounding → streak scaling → rate limit →
// decay → clamp. A malformed event degrades to a decay-only turn rather than
// an error; that is the expected steady state.
func (e *Engine) EvaluateTurn(ev event.Event, st State) (State, Trace) {
	turn := st.Turn + 1
	idle := idleSeconds(st, ev)

	if err := ev.Validate(); err != nil {
		return e.decayOnlyTurn(ev, st, turn, idle)
	}

	// 1. Classify against the full catalog, independent of cooldown.
	hits := e.catalog.Evaluate(signal.Input{Event: ev, History: st.History, Turn: turn})

	// 2. Cooldown filter. Suppressed hits stay in the trace.
	fired := make([]FiredSignal, 0, len(hits))
	cds := st.Cooldowns
	var active []signal.Fired
	for _, h := range hits {
		def, _ := e.catalog.Lookup(h.Name)
		if cooldown.ShouldFire(cds, h.Name, def.Cooldown, turn) {
			fired = append(fired, FiredSignal{Name: h.Name, Delta: h.Delta})
			active = append(active, h)
			cds = cooldown.Advance(cds, h.Name, turn)
		} else {
			fired = append(fired, FiredSignal{Name: h.Name, Delta: h.Delta, Suppressed: true, Reason: "suppressed: cooldown"})
		}
	}

	// 3. Partition counted signals.
	var reducerSum, increaserSum, criticalSum int
	var reducerCount, increaserCount int
	for _, h := range active {
		switch h.Class {
		case signal.ClassReducer:
			reducerSum += h.Delta
			reducerCount++
		case signal.ClassCritical:
			criticalSum += h.Delta
		case signal.ClassIncreaser:
			increaserSum += h.Delta
			increaserCount++
		}
	}

	// 4. Compounding escalates the ordinary reducer sum before the clamp.
	// Critical reducers bypass both compounding and the clamp.
	reducerSum = compound(reducerSum, reducerCount, e.config.Compounding)

	// 5. Streak scaling on the increaser side only. Critical reducers break
	// the streak the same as ordinary ones.
	reducersFired := reducerCount > 0 || criticalSum < 0
	scaledIncrease, newStreak := streak.Apply(increaserSum, reducersFired, increaserCount > 0, st.Streak, e.config.StreakTable)

	// 6. Per-turn rate limit, widened upward in recovery mode.
	posCap := e.config.BaseCap
	if st.Score < e.config.Decay.TargetLow {
		posCap = e.config.RecoveryCap
	}
	raw := clampDelta(reducerSum+scaledIncrease, -e.config.BaseCap, posCap)
	raw += criticalSum

	// 7. Apply, decay, clamp.
	score := st.Score + raw
	decayed := decay.Apply(score, idle, turn, e.config.Decay)
	decayDelta := decayed - score
	score = clampScore(decayed, e.config)

	newState := State{
		Score:        score,
		Turn:         turn,
		LastActivity: ev.Timestamp,
		Cooldowns:    cds,
		Streak:       newStreak,
		History: st.History.Append(event.HistoryEntry{
			Turn:   turn,
			Tool:   ev.Tool,
			Path:   ev.Path,
			Status: ev.Status,
		}),
	}

	trace := e.buildTrace(turn, st.Score, score, raw, decayDelta, fired, ev, false)
	if run := newState.History.FailureRun(); run >= 3 {
		trace.Reason += fmt.Sprintf("; %d consecutive failures", run)
	}
	return newState, trace
}

// #endregion evaluate-turn

// #region decay-only

// decayOnlyTurn handles malformed events: the clock advances and decay still
// applies, but no signals are evaluated and the history is untouched.
func (e *Engine) decayOnlyTurn(ev event.Event, st State, turn int, idle float64) (State, Trace) {
	decayed := decay.Apply(st.Score, idle, turn, e.config.Decay)
	score := clampScore(decayed, e.config)

	newState := st
	newState.Score = score
	newState.Turn = turn
	newState.Cooldowns = st.Cooldowns.Clone()
	if !ev.Timestamp.IsZero() {
		newState.LastActivity = ev.Timestamp
	}

	trace := e.buildTrace(turn, st.Score, score, 0, score-st.Score, nil, ev, true)
	return newState, trace
}

// #endregion decay-only

// #region decision

// requiredCapability infers the capability the event needs from its tool and
// the signals it raised. Destructive content escalates to the gated
// production class even when the matching signal was cooldown-suppressed.
func requiredCapability(ev event.Event, fired []FiredSignal) tier.Capability {
	for _, f := range fired {
		if f.Name == signal.NameDestructiveCommand {
			return tier.CapProductionGated
		}
	}
	tool := strings.ToLower(ev.Tool)
	switch {
	case strings.Contains(tool, "deploy") || strings.Contains(tool, "release"):
		return tier.CapProductionGated
	case strings.Contains(tool, "edit") || strings.Contains(tool, "write") || strings.Contains(tool, "patch"):
		if strings.HasPrefix(ev.Path, "/tmp/") || strings.Contains(ev.Path, "scratch") {
			return tier.CapScratchWrite
		}
		return tier.CapWorkspaceWrite
	default:
		return tier.CapRead
	}
}

func (e *Engine) buildTrace(turn, before, after, raw, decayDelta int, fired []FiredSignal, ev event.Event, malformed bool) Trace {
	resolved := e.resolver.Resolve(after)
	required := requiredCapability(ev, fired)
	if malformed {
		required = tier.CapRead
	}

	decision := DecisionAllow
	if !resolved.Allows(required) {
		decision = DecisionDeny
	}

	return Trace{
		Turn:        turn,
		ScoreBefore: before,
		ScoreAfter:  after,
		RawDelta:    raw,
		DecayDelta:  decayDelta,
		Fired:       fired,
		Tier:        resolved,
		Required:    required,
		Decision:    decision,
		Reason:      traceReason(resolved, required, decision, fired, malformed),
		Malformed:   malformed,
	}
}

// traceReason renders the human-readable narration attached to every
// decision.
func traceReason(resolved tier.Tier, required tier.Capability, decision Decision, fired []FiredSignal, malformed bool) string {
	var b strings.Builder
	if malformed {
		b.WriteString("malformed event, decay-only turn; ")
	}
	switch decision {
	case DecisionAllow:
		fmt.Fprintf(&b, "tier %s permits %s", resolved.Name, required)
	default:
		fmt.Fprintf(&b, "tier %s does not permit %s", resolved.Name, required)
	}
	if len(fired) > 0 {
		parts := make([]string, 0, len(fired))
		for _, f := range fired {
			if f.Suppressed {
				parts = append(parts, fmt.Sprintf("%s(%+d, %s)", f.Name, f.Delta, f.Reason))
			} else {
				parts = append(parts, fmt.Sprintf("%s(%+d)", f.Name, f.Delta))
			}
		}
		fmt.Fprintf(&b, "; signals: %s", strings.Join(parts, ", "))
	}
	return b.String()
}

// #endregion decision

// #region helpers

// idleSeconds measures inactivity between the previous turn and this event.
func idleSeconds(st State, ev event.Event) float64 {
	if st.LastActivity.IsZero() || ev.Timestamp.IsZero() {
		return 0
	}
	d := ev.Timestamp.Sub(st.LastActivity).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

// compound escalates the reducer sum per the compounding table.
func compound(reducerSum, reducerCount int, table []CompoundStep) int {
	if reducerCount < 2 || reducerSum >= 0 {
		return reducerSum
	}
	factor := 1.0
	for _, step := range table {
		if reducerCount >= step.MinReducers {
			factor = step.Factor
		}
	}
	return int(math.Round(float64(reducerSum) * factor))
}

func clampDelta(d, lo, hi int) int {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func clampScore(score int, config Config) int {
	if score < config.MinScore {
		return config.MinScore
	}
	if score > config.MaxScore {
		return config.MaxScore
	}
	return score
}

// #endregion helpers
