package signal

import (
	"github.com/danielpatrickdp/confidence-gate/internal/event"
)

// #region class

// Class partitions signals by the sign and clamp treatment of their delta.
type Class string

const (
	ClassReducer   Class = "reducer"
	ClassIncreaser Class = "increaser"
	// ClassCritical is a reducer that bypasses the per-turn rate limit.
	ClassCritical Class = "critical"
)

// #endregion class

// #region predicate-input

// Input bundles the event and the read-only session history a predicate may
// consult. Turn is the authoritative session-clock turn being evaluated.
type Input struct {
	Event   event.Event
	History event.History
	Turn    int
}

// Predicate is a pure, side-effect-free trigger condition.
type Predicate func(in Input) bool

// #endregion predicate-input

// #region signal

// Signal is one named, independently triggerable rule.
type Signal struct {
	Name     string
	Delta    int // sign must match class: reducer/critical < 0, increaser > 0
	Cooldown int // default cooldown in turns before it may fire again
	Class    Class
	Fires    Predicate
}

// Fired records one catalog hit, before cooldown filtering.
type Fired struct {
	Name  string
	Delta int
	Class Class
}

// #endregion signal
