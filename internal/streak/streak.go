// Package streak tracks consecutive clean turns and the multiplier they earn
// on increaser deltas. Reducer deltas are never scaled, so a streak cannot
// soften penalties.
package streak

// #region state

// State is the persisted streak bookkeeping.
type State struct {
	Count      int     `json:"count"`
	Multiplier float64 `json:"multiplier"`
}

// Initial returns the neutral streak state.
func Initial() State {
	return State{Count: 0, Multiplier: 1.0}
}

// #endregion state

// #region table

// Step is one row of the streak multiplier table.
type Step struct {
	MinCount   int     `yaml:"min_count"`
	Multiplier float64 `yaml:"multiplier"`
}

// DefaultTable is the fixed step table: 2 clean turns → 1.25×, 3 → 1.5×,
// 5 and beyond → 2.0×.
func DefaultTable() []Step {
	return []Step{
		{MinCount: 2, Multiplier: 1.25},
		{MinCount: 3, Multiplier: 1.5},
		{MinCount: 5, Multiplier: 2.0},
	}
}

// multiplierFor resolves the multiplier for a streak count against a table
// sorted by ascending MinCount.
func multiplierFor(count int, table []Step) float64 {
	mult := 1.0
	for _, step := range table {
		if count >= step.MinCount {
			mult = step.Multiplier
		}
	}
	return mult
}

// #endregion table

// #region apply

// Apply advances the streak for one evaluated turn and scales the increaser
// aggregate. Any fired reducer resets the streak before scaling, so the turn
// that breaks a streak gets no bonus. A clean turn with at least one
// increaser extends the streak and earns that count's multiplier immediately.
func Apply(increaserSum int, reducersFired, increasersFired bool, st State, table []Step) (scaled int, next State) {
	if reducersFired {
		next = Initial()
		return increaserSum, next
	}
	if !increasersFired {
		// Nothing to scale and nothing to extend; streak carries over.
		return increaserSum, normalize(st, table)
	}
	next = State{Count: st.Count + 1}
	next.Multiplier = multiplierFor(next.Count, table)
	return int(float64(increaserSum) * next.Multiplier), next
}

// normalize recomputes the stored multiplier from the count, guarding against
// stale persisted values.
func normalize(st State, table []Step) State {
	if st.Count < 0 {
		return Initial()
	}
	st.Multiplier = multiplierFor(st.Count, table)
	return st
}

// #endregion apply
