package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/confidence-gate/internal/event"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a recorded session replay.
// Disputes pre-seed per-signal dispute counts before the first event.
type Fixture struct {
	Description string            `json:"description"`
	StartScore  int               `json:"start_score"`
	BaseTime    time.Time         `json:"base_time"`
	Disputes    map[string]int    `json:"disputes,omitempty"`
	Events      []FixtureEvent    `json:"events"`
	Expected    []ExpectedOutcome `json:"expected"`
}

// FixtureEvent mirrors event.Event with a relative clock so fixtures stay
// stable: OffsetSeconds is added to BaseTime to form the event timestamp.
type FixtureEvent struct {
	Tool          string  `json:"tool"`
	Status        string  `json:"status"`
	ExitCode      int     `json:"exit_code"`
	Content       string  `json:"content"`
	Path          string  `json:"path"`
	OffsetSeconds float64 `json:"offset_seconds"`
}

// ExpectedOutcome captures the asserted result for one turn.
type ExpectedOutcome struct {
	Turn     int    `json:"turn"`
	Score    int    `json:"score"`
	Tier     string `json:"tier"`
	Decision string `json:"decision"`
}

// #endregion fixture-types

// #region load

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Events) == 0 {
		return Fixture{}, fmt.Errorf("fixture %s has no events", path)
	}
	if f.BaseTime.IsZero() {
		f.BaseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return f, nil
}

// #endregion load

// #region to-events

// ToEvents converts fixture events to engine events with absolute timestamps.
func (f Fixture) ToEvents() []event.Event {
	events := make([]event.Event, len(f.Events))
	for i, fe := range f.Events {
		events[i] = event.Event{
			Tool:      fe.Tool,
			Status:    event.Status(fe.Status),
			ExitCode:  fe.ExitCode,
			Content:   fe.Content,
			Path:      fe.Path,
			Timestamp: f.BaseTime.Add(time.Duration(fe.OffsetSeconds * float64(time.Second))),
		}
	}
	return events
}

// #endregion to-events
