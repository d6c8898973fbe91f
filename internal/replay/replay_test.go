package replay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/confidence-gate/internal/engine"
	"github.com/danielpatrickdp/confidence-gate/internal/signal"
	"github.com/danielpatrickdp/confidence-gate/internal/tier"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	resolver, err := tier.NewResolver(tier.DefaultTiers())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return engine.New(signal.Default(), resolver, engine.DefaultConfig())
}

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const failureFixture = `{
	"description": "three consecutive tool failures",
	"start_score": 70,
	"events": [
		{"tool": "bash", "status": "failure", "offset_seconds": 0},
		{"tool": "bash", "status": "failure", "offset_seconds": 1},
		{"tool": "bash", "status": "failure", "offset_seconds": 2}
	],
	"expected": [
		{"turn": 1, "score": 65},
		{"turn": 3, "score": 55, "tier": "WORKING", "decision": "allow"}
	]
}`

func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, failureFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.StartScore != 70 || len(f.Events) != 3 || len(f.Expected) != 2 {
		t.Fatalf("fixture = %+v", f)
	}
	// A missing base time gets the fixed default so replays stay stable.
	if f.BaseTime.IsZero() {
		t.Fatal("base time not defaulted")
	}

	events := f.ToEvents()
	if events[1].Timestamp.Sub(events[0].Timestamp) != time.Second {
		t.Fatalf("offsets not applied: %v", events[1].Timestamp)
	}
	if events[0].Tool != "bash" || string(events[0].Status) != "failure" {
		t.Fatalf("event = %+v", events[0])
	}
}

func TestLoadFixtureRejectsEmpty(t *testing.T) {
	if _, err := LoadFixture(writeFixture(t, `{"description": "empty", "events": []}`)); err == nil {
		t.Fatal("expected error for fixture without events")
	}
	if _, err := LoadFixture(writeFixture(t, `{broken`)); err == nil {
		t.Fatal("expected error for malformed json")
	}
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRunFixtureMeetsExpectations(t *testing.T) {
	eng := testEngine(t)
	f, err := LoadFixture(writeFixture(t, failureFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	summary := RunFixture(eng, f)
	if len(summary.Mismatches) != 0 {
		t.Fatalf("unexpected mismatches: %v", summary.Mismatches)
	}
	if summary.TotalTurns != 3 || summary.Allows != 3 || summary.Denies != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.FinalScore != 55 || summary.FinalTier != "WORKING" {
		t.Fatalf("final = %d %s, want 55 WORKING", summary.FinalScore, summary.FinalTier)
	}
}

func TestRunFixtureReportsMismatch(t *testing.T) {
	eng := testEngine(t)
	f, err := LoadFixture(writeFixture(t, failureFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	f.Expected = append(f.Expected, ExpectedOutcome{Turn: 2, Score: 99, Tier: "AUTONOMOUS"})
	f.Expected = append(f.Expected, ExpectedOutcome{Turn: 42, Score: 1})

	summary := RunFixture(eng, f)
	if len(summary.Mismatches) != 3 {
		t.Fatalf("mismatches = %v, want score, tier and missing-turn entries", summary.Mismatches)
	}
	joined := strings.Join(summary.Mismatches, "; ")
	if !strings.Contains(joined, "turn 2") || !strings.Contains(joined, "turn 42") {
		t.Fatalf("mismatch narration incomplete: %s", joined)
	}
}

func TestFixtureDisputesStretchCooldown(t *testing.T) {
	eng := testEngine(t)

	// test_failure has default cooldown 2; two pre-seeded disputes stretch it
	// to 4, so after firing at turn 1 it stays quiet until turn 5. Each turn
	// also fires tool_failure (-5); the combined turns compound and clamp to
	// the -15 cap.
	fixture := `{
		"description": "disputed signal fires less often",
		"start_score": 70,
		"disputes": {"test_failure": 2},
		"events": [
			{"tool": "go test", "status": "failure", "offset_seconds": 0},
			{"tool": "go test", "status": "failure", "offset_seconds": 1},
			{"tool": "go test", "status": "failure", "offset_seconds": 2},
			{"tool": "go test", "status": "failure", "offset_seconds": 3},
			{"tool": "go test", "status": "failure", "offset_seconds": 4}
		],
		"expected": [
			{"turn": 1, "score": 55},
			{"turn": 3, "score": 45},
			{"turn": 5, "score": 25, "tier": "IGNORANCE"}
		]
	}`
	f, err := LoadFixture(writeFixture(t, fixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	summary := RunFixture(eng, f)
	if len(summary.Mismatches) != 0 {
		t.Fatalf("mismatches: %v", summary.Mismatches)
	}
}

func TestReplayFreshStart(t *testing.T) {
	eng := testEngine(t)
	f, _ := LoadFixture(writeFixture(t, failureFixture))

	// A zero start score means the engine's configured start.
	f.StartScore = 0
	results := Replay(eng, f.StartScore, f.ToEvents())
	if results[0].Trace.ScoreBefore != eng.Config().StartScore {
		t.Fatalf("start = %d, want %d", results[0].Trace.ScoreBefore, eng.Config().StartScore)
	}
}
