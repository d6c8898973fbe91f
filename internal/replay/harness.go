// Package replay runs recorded event sequences through the pure engine
// entirely in memory, for regression fixtures and tuning experiments. No
// database is touched.
package replay

import (
	"fmt"

	"github.com/danielpatrickdp/confidence-gate/internal/cooldown"
	"github.com/danielpatrickdp/confidence-gate/internal/engine"
	"github.com/danielpatrickdp/confidence-gate/internal/event"
)

// #region types

// TurnResult captures one replayed turn.
type TurnResult struct {
	Turn     int
	Score    int
	Tier     string
	Decision string
	Trace    engine.Trace
}

// Summary aggregates a replay run.
type Summary struct {
	TotalTurns int
	Allows     int
	Denies     int
	FinalScore int
	FinalTier  string
	Mismatches []string // non-empty when expectations failed
}

// #endregion types

// #region replay

// Replay feeds events through the engine from a fresh or overridden start
// state and returns per-turn results.
func Replay(eng *engine.Engine, startScore int, events []event.Event) []TurnResult {
	st := engine.Initial(eng.Config())
	if startScore > 0 {
		st.Score = startScore
	}
	return ReplayFrom(eng, st, events)
}

// ReplayFrom feeds events through the engine from an explicit start state.
func ReplayFrom(eng *engine.Engine, st engine.State, events []event.Event) []TurnResult {
	results := make([]TurnResult, 0, len(events))
	for _, ev := range events {
		var trace engine.Trace
		st, trace = eng.EvaluateTurn(ev, st)
		results = append(results, TurnResult{
			Turn:     trace.Turn,
			Score:    trace.ScoreAfter,
			Tier:     trace.Tier.Name,
			Decision: string(trace.Decision),
			Trace:    trace,
		})
	}
	return results
}

// #endregion replay

// #region run-fixture

// StartState builds the fixture's initial engine state: overridden score plus
// pre-seeded dispute counts, so fixtures can exercise dispute-stretched
// suppression.
func StartState(eng *engine.Engine, f Fixture) engine.State {
	st := engine.Initial(eng.Config())
	if f.StartScore > 0 {
		st.Score = f.StartScore
	}
	for name, n := range f.Disputes {
		for i := 0; i < n; i++ {
			st.Cooldowns = cooldown.RecordDispute(st.Cooldowns, name)
		}
	}
	return st
}

// RunFixture replays a fixture and checks its expectations.
func RunFixture(eng *engine.Engine, f Fixture) Summary {
	results := ReplayFrom(eng, StartState(eng, f), f.ToEvents())

	summary := Summary{TotalTurns: len(results)}
	for _, r := range results {
		if r.Decision == string(engine.DecisionAllow) {
			summary.Allows++
		} else {
			summary.Denies++
		}
	}
	if len(results) > 0 {
		last := results[len(results)-1]
		summary.FinalScore = last.Score
		summary.FinalTier = last.Tier
	}

	byTurn := make(map[int]TurnResult, len(results))
	for _, r := range results {
		byTurn[r.Turn] = r
	}
	for _, exp := range f.Expected {
		got, ok := byTurn[exp.Turn]
		if !ok {
			summary.Mismatches = append(summary.Mismatches, fmt.Sprintf("turn %d: no result", exp.Turn))
			continue
		}
		if exp.Score != got.Score {
			summary.Mismatches = append(summary.Mismatches, fmt.Sprintf("turn %d: score %d, want %d", exp.Turn, got.Score, exp.Score))
		}
		if exp.Tier != "" && exp.Tier != got.Tier {
			summary.Mismatches = append(summary.Mismatches, fmt.Sprintf("turn %d: tier %s, want %s", exp.Turn, got.Tier, exp.Tier))
		}
		if exp.Decision != "" && exp.Decision != got.Decision {
			summary.Mismatches = append(summary.Mismatches, fmt.Sprintf("turn %d: decision %s, want %s", exp.Turn, got.Decision, exp.Decision))
		}
	}
	return summary
}

// #endregion run-fixture
