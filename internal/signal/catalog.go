package signal

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/confidence-gate/internal/event"
)

// #region catalog

// Catalog is the fixed, explicitly enumerated signal registry. It is built
// once from configuration and never mutated at runtime.
type Catalog struct {
	signals []Signal
	byName  map[string]Signal
}

// New validates definitions and builds a catalog. Names must be unique and
// delta signs must match the declared class.
func New(defs []Signal) (Catalog, error) {
	byName := make(map[string]Signal, len(defs))
	for _, s := range defs {
		if s.Name == "" {
			return Catalog{}, fmt.Errorf("signal with empty name")
		}
		if _, dup := byName[s.Name]; dup {
			return Catalog{}, fmt.Errorf("duplicate signal name %q", s.Name)
		}
		switch s.Class {
		case ClassReducer, ClassCritical:
			if s.Delta >= 0 {
				return Catalog{}, fmt.Errorf("signal %q: %s delta must be negative, got %d", s.Name, s.Class, s.Delta)
			}
		case ClassIncreaser:
			if s.Delta <= 0 {
				return Catalog{}, fmt.Errorf("signal %q: increaser delta must be positive, got %d", s.Name, s.Delta)
			}
		default:
			return Catalog{}, fmt.Errorf("signal %q: unknown class %q", s.Name, s.Class)
		}
		if s.Cooldown < 1 {
			return Catalog{}, fmt.Errorf("signal %q: cooldown must be >= 1, got %d", s.Name, s.Cooldown)
		}
		if s.Fires == nil {
			return Catalog{}, fmt.Errorf("signal %q: nil predicate", s.Name)
		}
		byName[s.Name] = s
	}
	return Catalog{signals: append([]Signal(nil), defs...), byName: byName}, nil
}

// Evaluate runs every predicate against the input, independent of cooldown
// state, and returns hits in declaration order.
func (c Catalog) Evaluate(in Input) []Fired {
	var fired []Fired
	for _, s := range c.signals {
		if s.Fires(in) {
			fired = append(fired, Fired{Name: s.Name, Delta: s.Delta, Class: s.Class})
		}
	}
	return fired
}

// Lookup returns the definition for a name.
func (c Catalog) Lookup(name string) (Signal, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// Names returns all signal names in declaration order.
func (c Catalog) Names() []string {
	names := make([]string, len(c.signals))
	for i, s := range c.signals {
		names[i] = s.Name
	}
	return names
}

// Len reports the catalog size.
func (c Catalog) Len() int { return len(c.signals) }

// #endregion catalog

// #region override

// Override retunes delta and cooldown for named signals. Zero fields keep the
// existing value. The resulting catalog is revalidated.
func (c Catalog) Override(tuning map[string]Tuning) (Catalog, error) {
	defs := append([]Signal(nil), c.signals...)
	for i := range defs {
		t, ok := tuning[defs[i].Name]
		if !ok {
			continue
		}
		if t.Delta != 0 {
			defs[i].Delta = t.Delta
		}
		if t.Cooldown != 0 {
			defs[i].Cooldown = t.Cooldown
		}
	}
	for name := range tuning {
		if _, ok := c.byName[name]; !ok {
			return Catalog{}, fmt.Errorf("tuning for unknown signal %q", name)
		}
	}
	return New(defs)
}

// Tuning overrides a signal's delta and/or cooldown.
type Tuning struct {
	Delta    int `yaml:"delta"`
	Cooldown int `yaml:"cooldown"`
}

// #endregion override

// #region default-catalog

// NameDestructiveCommand is the one catalog name referenced outside this
// package: a destructive firing escalates the capability an event requires.
const NameDestructiveCommand = "destructive_command"

// Default returns the standard catalog. Panics only on a programming error in
// the static definitions, which the test suite pins.
func Default() Catalog {
	c, err := New(defaultDefs())
	if err != nil {
		panic(fmt.Sprintf("default catalog invalid: %v", err))
	}
	return c
}

func defaultDefs() []Signal {
	return []Signal{
		// Reducers
		{Name: "tool_failure", Delta: -5, Cooldown: 1, Class: ClassReducer, Fires: firesToolFailure},
		{Name: "command_error", Delta: -3, Cooldown: 1, Class: ClassReducer, Fires: firesCommandError},
		{Name: "test_failure", Delta: -7, Cooldown: 2, Class: ClassReducer, Fires: firesTestFailure},
		{Name: "build_failure", Delta: -6, Cooldown: 2, Class: ClassReducer, Fires: firesBuildFailure},
		{Name: "lint_failure", Delta: -2, Cooldown: 3, Class: ClassReducer, Fires: firesLintFailure},
		{Name: "edit_thrash", Delta: -4, Cooldown: 3, Class: ClassReducer, Fires: firesEditThrash},
		{Name: "user_correction", Delta: -10, Cooldown: 1, Class: ClassReducer, Fires: firesUserCorrection},
		{Name: NameDestructiveCommand, Delta: -8, Cooldown: 2, Class: ClassReducer, Fires: firesDestructiveCommand},
		{Name: "goal_abandonment", Delta: -40, Cooldown: 1, Class: ClassCritical, Fires: firesGoalAbandonment},

		// Increasers
		{Name: "tests_passed", Delta: 5, Cooldown: 1, Class: ClassIncreaser, Fires: firesTestsPassed},
		{Name: "build_success", Delta: 4, Cooldown: 2, Class: ClassIncreaser, Fires: firesBuildSuccess},
		{Name: "clean_exit", Delta: 2, Cooldown: 1, Class: ClassIncreaser, Fires: firesCleanExit},
		{Name: "task_completed", Delta: 8, Cooldown: 3, Class: ClassIncreaser, Fires: firesTaskCompleted},
		{Name: "user_approval", Delta: 6, Cooldown: 2, Class: ClassIncreaser, Fires: firesUserApproval},
		{Name: "verified_claim", Delta: 3, Cooldown: 3, Class: ClassIncreaser, Fires: firesVerifiedClaim},
	}
}

// #endregion default-catalog

// #region predicates

// thrashWindow and thrashEdits define the repeated-edit heuristic: the same
// path touched thrashEdits times within the last thrashWindow turns.
const (
	thrashWindow = 6
	thrashEdits  = 3
)

func firesToolFailure(in Input) bool {
	return in.Event.Status == event.StatusFailure
}

func firesCommandError(in Input) bool {
	if in.Event.ExitCode != 0 {
		return true
	}
	return containsAny(lower(in), errorKeywords)
}

func firesTestFailure(in Input) bool {
	if toolIs(in.Event.Tool, "test") && in.Event.Status == event.StatusFailure {
		return true
	}
	return containsAny(lower(in), testFailureKeywords)
}

func firesBuildFailure(in Input) bool {
	return containsAny(lower(in), buildFailureKeywords)
}

func firesLintFailure(in Input) bool {
	return in.Event.Status == event.StatusFailure && containsAny(lower(in), lintKeywords)
}

func firesEditThrash(in Input) bool {
	if !toolIs(in.Event.Tool, "edit", "write", "patch") {
		return false
	}
	// Count includes the current event, appended by the caller's store only
	// after evaluation, so the history holds prior turns.
	return in.History.EditCount(in.Event.Path, in.Turn, thrashWindow) >= thrashEdits-1
}

func firesUserCorrection(in Input) bool {
	return containsAny(lower(in), correctionKeywords)
}

func firesDestructiveCommand(in Input) bool {
	return containsAny(lower(in), destructiveKeywords)
}

func firesGoalAbandonment(in Input) bool {
	return containsAny(lower(in), abandonmentKeywords)
}

func firesTestsPassed(in Input) bool {
	return in.Event.Status == event.StatusSuccess && containsAny(lower(in), testPassKeywords)
}

func firesBuildSuccess(in Input) bool {
	return in.Event.Status == event.StatusSuccess && containsAny(lower(in), buildSuccessKeywords)
}

func firesCleanExit(in Input) bool {
	return in.Event.Status == event.StatusSuccess &&
		in.Event.ExitCode == 0 &&
		toolIs(in.Event.Tool, "bash", "shell", "exec", "run")
}

func firesTaskCompleted(in Input) bool {
	return in.Event.Status == event.StatusSuccess && containsAny(lower(in), completionKeywords)
}

func firesUserApproval(in Input) bool {
	return containsAny(lower(in), approvalKeywords)
}

func firesVerifiedClaim(in Input) bool {
	return in.Event.Status == event.StatusSuccess && containsAny(lower(in), verificationKeywords)
}

// #endregion predicates

// #region helpers

func lower(in Input) string {
	return strings.ToLower(in.Event.Content)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func toolIs(tool string, names ...string) bool {
	t := strings.ToLower(tool)
	for _, n := range names {
		if strings.Contains(t, n) {
			return true
		}
	}
	return false
}

// #endregion helpers
