package signal

import (
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/confidence-gate/internal/event"
)

func inputFor(ev event.Event) Input {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return Input{Event: ev, Turn: 1}
}

func firedNames(fired []Fired) []string {
	names := make([]string, len(fired))
	for i, f := range fired {
		names[i] = f.Name
	}
	return names
}

func assertFires(t *testing.T, c Catalog, ev event.Event, name string) {
	t.Helper()
	for _, f := range c.Evaluate(inputFor(ev)) {
		if f.Name == name {
			return
		}
	}
	t.Fatalf("expected %s to fire for %+v", name, ev)
}

func assertNotFires(t *testing.T, c Catalog, ev event.Event, name string) {
	t.Helper()
	for _, f := range c.Evaluate(inputFor(ev)) {
		if f.Name == name {
			t.Fatalf("%s fired unexpectedly for %+v", name, ev)
		}
	}
}

func TestDefaultCatalogValid(t *testing.T) {
	c := Default()
	if c.Len() != 15 {
		t.Fatalf("catalog size = %d, want 15", c.Len())
	}
	for _, name := range c.Names() {
		s, ok := c.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%s) missing", name)
		}
		switch s.Class {
		case ClassReducer, ClassCritical:
			if s.Delta >= 0 {
				t.Fatalf("%s: non-negative reducer delta %d", name, s.Delta)
			}
		case ClassIncreaser:
			if s.Delta <= 0 {
				t.Fatalf("%s: non-positive increaser delta %d", name, s.Delta)
			}
		}
	}
}

func TestNewRejectsBadDefinitions(t *testing.T) {
	pred := func(Input) bool { return false }
	cases := []struct {
		name string
		defs []Signal
	}{
		{"empty name", []Signal{{Name: "", Delta: -1, Cooldown: 1, Class: ClassReducer, Fires: pred}}},
		{"duplicate", []Signal{
			{Name: "x", Delta: -1, Cooldown: 1, Class: ClassReducer, Fires: pred},
			{Name: "x", Delta: -2, Cooldown: 1, Class: ClassReducer, Fires: pred},
		}},
		{"positive reducer", []Signal{{Name: "x", Delta: 1, Cooldown: 1, Class: ClassReducer, Fires: pred}}},
		{"negative increaser", []Signal{{Name: "x", Delta: -1, Cooldown: 1, Class: ClassIncreaser, Fires: pred}}},
		{"zero cooldown", []Signal{{Name: "x", Delta: -1, Cooldown: 0, Class: ClassReducer, Fires: pred}}},
		{"nil predicate", []Signal{{Name: "x", Delta: -1, Cooldown: 1, Class: ClassReducer}}},
		{"unknown class", []Signal{{Name: "x", Delta: -1, Cooldown: 1, Class: "weird", Fires: pred}}},
	}
	for _, tc := range cases {
		if _, err := New(tc.defs); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestReducerPredicates(t *testing.T) {
	c := Default()

	assertFires(t, c, event.Event{Tool: "bash", Status: event.StatusFailure}, "tool_failure")
	assertNotFires(t, c, event.Event{Tool: "bash", Status: event.StatusSuccess}, "tool_failure")

	assertFires(t, c, event.Event{Tool: "bash", Status: event.StatusFailure, ExitCode: 127}, "command_error")
	assertFires(t, c, event.Event{Tool: "bash", Status: event.StatusFailure, Content: "bash: foo: command not found"}, "command_error")

	assertFires(t, c, event.Event{Tool: "go test", Status: event.StatusFailure}, "test_failure")
	assertFires(t, c, event.Event{Tool: "bash", Status: event.StatusFailure, Content: "--- FAIL: TestThing"}, "test_failure")

	assertFires(t, c, event.Event{Tool: "bash", Status: event.StatusFailure, Content: "Build failed with 3 errors"}, "build_failure")
	assertFires(t, c, event.Event{Tool: "bash", Status: event.StatusFailure, Content: "golangci-lint found issues"}, "lint_failure")
	assertNotFires(t, c, event.Event{Tool: "bash", Status: event.StatusSuccess, Content: "golangci-lint found issues"}, "lint_failure")

	assertFires(t, c, event.Event{Tool: "message", Status: event.StatusSuccess, Content: "No, that's wrong, revert that"}, "user_correction")
	assertFires(t, c, event.Event{Tool: "bash", Status: event.StatusSuccess, Content: "rm -rf /var/lib/data"}, "destructive_command")
	assertFires(t, c, event.Event{Tool: "message", Status: event.StatusSuccess, Content: "I will abandon the task for now"}, "goal_abandonment")
}

func TestIncreaserPredicates(t *testing.T) {
	c := Default()

	assertFires(t, c, event.Event{Tool: "go test", Status: event.StatusSuccess, Content: "all tests passed"}, "tests_passed")
	assertNotFires(t, c, event.Event{Tool: "go test", Status: event.StatusFailure, Content: "all tests passed"}, "tests_passed")

	assertFires(t, c, event.Event{Tool: "bash", Status: event.StatusSuccess, Content: "Build complete in 2.1s"}, "build_success")
	assertFires(t, c, event.Event{Tool: "bash", Status: event.StatusSuccess, ExitCode: 0}, "clean_exit")
	assertNotFires(t, c, event.Event{Tool: "edit", Status: event.StatusSuccess, ExitCode: 0}, "clean_exit")

	assertFires(t, c, event.Event{Tool: "message", Status: event.StatusSuccess, Content: "Task complete, moving on"}, "task_completed")
	assertFires(t, c, event.Event{Tool: "message", Status: event.StatusSuccess, Content: "LGTM, ship it"}, "user_approval")
	assertFires(t, c, event.Event{Tool: "bash", Status: event.StatusSuccess, Content: "confirmed by running the repro"}, "verified_claim")
}

func TestEditThrash(t *testing.T) {
	c := Default()

	h := event.History{Limit: 10}
	h = h.Append(event.HistoryEntry{Turn: 4, Tool: "edit", Path: "pkg/a.go", Status: event.StatusSuccess})
	h = h.Append(event.HistoryEntry{Turn: 5, Tool: "edit", Path: "pkg/a.go", Status: event.StatusSuccess})

	in := Input{
		Event:   event.Event{Tool: "edit", Status: event.StatusSuccess, Path: "pkg/a.go", Timestamp: time.Now()},
		History: h,
		Turn:    6,
	}
	found := false
	for _, f := range c.Evaluate(in) {
		if f.Name == "edit_thrash" {
			found = true
		}
	}
	if !found {
		t.Fatal("third touch of the same path within the window must fire edit_thrash")
	}

	// A different path does not thrash.
	in.Event.Path = "pkg/b.go"
	for _, f := range c.Evaluate(in) {
		if f.Name == "edit_thrash" {
			t.Fatal("edit_thrash fired for an untouched path")
		}
	}
}

func TestEvaluateDeclarationOrder(t *testing.T) {
	c := Default()
	ev := event.Event{Tool: "go test", Status: event.StatusFailure, ExitCode: 1, Content: "--- FAIL: TestX"}
	names := firedNames(c.Evaluate(inputFor(ev)))

	want := []string{"tool_failure", "command_error", "test_failure"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("fired %v, want %v", names, want)
	}
}

func TestOverride(t *testing.T) {
	c := Default()

	tuned, err := c.Override(map[string]Tuning{
		"tool_failure": {Delta: -9, Cooldown: 4},
		"tests_passed": {Cooldown: 2},
	})
	if err != nil {
		t.Fatalf("Override: %v", err)
	}
	s, _ := tuned.Lookup("tool_failure")
	if s.Delta != -9 || s.Cooldown != 4 {
		t.Fatalf("tool_failure = %+v, want delta -9 cooldown 4", s)
	}
	s, _ = tuned.Lookup("tests_passed")
	if s.Delta != 5 || s.Cooldown != 2 {
		t.Fatalf("tests_passed = %+v, want delta kept, cooldown 2", s)
	}

	if _, err := c.Override(map[string]Tuning{"no_such_signal": {Delta: -1}}); err == nil {
		t.Fatal("expected error for unknown signal")
	}
	// Sign flips are rejected by revalidation.
	if _, err := c.Override(map[string]Tuning{"tool_failure": {Delta: 5}}); err == nil {
		t.Fatal("expected error for sign-flipping delta")
	}
}
