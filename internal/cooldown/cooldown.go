// Package cooldown decides whether a signal may fire again, inflating the
// per-signal cooldown as disputes accumulate so a noisy signal mutes itself
// instead of being disabled outright.
package cooldown

import "math"

// #region entry

// Entry is the per-signal firing history.
type Entry struct {
	LastFired    int `json:"last_fired"`    // turn the signal last fired; 0 = never
	DisputeCount int `json:"dispute_count"` // accumulated false-positive claims
}

// State maps signal name → firing history. Entries appear lazily on first
// fire or first dispute.
type State map[string]Entry

// Clone returns an independent copy.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// #endregion entry

// #region formula

// DisputeStep is the cooldown growth per recorded dispute.
const DisputeStep = 0.5

// MaxMultiplier caps the adaptive inflation at 3x the default cooldown.
const MaxMultiplier = 3.0

// Effective returns the dispute-inflated cooldown for a signal:
// default × min(3.0, 1 + 0.5×disputes), rounded to the nearest turn.
// It grows monotonically with disputes and never drops below the default.
func Effective(defaultCooldown, disputeCount int) int {
	if defaultCooldown < 1 {
		defaultCooldown = 1
	}
	if disputeCount < 0 {
		disputeCount = 0
	}
	mult := 1.0 + DisputeStep*float64(disputeCount)
	if mult > MaxMultiplier {
		mult = MaxMultiplier
	}
	return int(math.Round(float64(defaultCooldown) * mult))
}

// #endregion formula

// #region should-fire

// ShouldFire reports whether a signal that last fired at state[name].LastFired
// may fire at currentTurn. A signal that never fired always may.
func ShouldFire(state State, name string, defaultCooldown, currentTurn int) bool {
	entry, ok := state[name]
	if !ok || entry.LastFired == 0 {
		return true
	}
	return currentTurn-entry.LastFired >= Effective(defaultCooldown, entry.DisputeCount)
}

// #endregion should-fire

// #region advance

// Advance records a fire at currentTurn, preserving the dispute count.
func Advance(state State, name string, currentTurn int) State {
	out := state.Clone()
	entry := out[name]
	entry.LastFired = currentTurn
	out[name] = entry
	return out
}

// RecordDispute bumps the dispute count for a signal. The count only ever
// grows; an administrative session reset is the sole way back down.
func RecordDispute(state State, name string) State {
	out := state.Clone()
	entry := out[name]
	entry.DisputeCount++
	out[name] = entry
	return out
}

// #endregion advance
