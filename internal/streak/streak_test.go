package streak

import "testing"

func TestApplyReducerResets(t *testing.T) {
	st := State{Count: 4, Multiplier: 1.5}
	scaled, next := Apply(5, true, true, st, DefaultTable())
	if scaled != 5 {
		t.Fatalf("scaled = %d, want unscaled 5 on the breaking turn", scaled)
	}
	if next.Count != 0 || next.Multiplier != 1.0 {
		t.Fatalf("next = %+v, want neutral", next)
	}
}

func TestApplyCleanTurnExtends(t *testing.T) {
	table := DefaultTable()
	st := Initial()

	// Five consecutive clean increaser turns walk the step table.
	wantMult := []float64{1.0, 1.25, 1.5, 1.5, 2.0}
	for i, want := range wantMult {
		var scaled int
		scaled, st = Apply(10, false, true, st, table)
		if st.Count != i+1 {
			t.Fatalf("turn %d: count = %d, want %d", i+1, st.Count, i+1)
		}
		if st.Multiplier != want {
			t.Fatalf("turn %d: multiplier = %v, want %v", i+1, st.Multiplier, want)
		}
		if wantScaled := int(10 * want); scaled != wantScaled {
			t.Fatalf("turn %d: scaled = %d, want %d", i+1, scaled, wantScaled)
		}
	}

	// The table tops out at 2.0 regardless of streak length.
	for i := 0; i < 20; i++ {
		_, st = Apply(10, false, true, st, table)
	}
	if st.Multiplier != 2.0 {
		t.Fatalf("multiplier = %v, want capped 2.0", st.Multiplier)
	}
}

func TestApplyNeutralTurnCarries(t *testing.T) {
	st := State{Count: 2, Multiplier: 1.25}
	scaled, next := Apply(0, false, false, st, DefaultTable())
	if scaled != 0 {
		t.Fatalf("scaled = %d, want 0", scaled)
	}
	if next.Count != 2 || next.Multiplier != 1.25 {
		t.Fatalf("next = %+v, want carried streak", next)
	}
}

func TestNormalizeRepairsStaleMultiplier(t *testing.T) {
	// Persisted multiplier disagrees with the count; a neutral turn recomputes.
	st := State{Count: 3, Multiplier: 9.0}
	_, next := Apply(0, false, false, st, DefaultTable())
	if next.Multiplier != 1.5 {
		t.Fatalf("multiplier = %v, want recomputed 1.5", next.Multiplier)
	}

	st = State{Count: -2, Multiplier: 1.0}
	_, next = Apply(0, false, false, st, DefaultTable())
	if next.Count != 0 || next.Multiplier != 1.0 {
		t.Fatalf("next = %+v, want neutral for negative count", next)
	}
}
