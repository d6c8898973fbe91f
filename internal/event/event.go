package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// #region event

// Status is the reported outcome of a host action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Event is one host-reported action record. The host assigns HostTurn for
// correlation only; the persisted session clock is authoritative.
type Event struct {
	Tool      string    `json:"tool"`
	Status    Status    `json:"status"`
	ExitCode  int       `json:"exit_code"`
	Content   string    `json:"content"`
	Path      string    `json:"path"`
	HostTurn  int       `json:"turn"`
	Timestamp time.Time `json:"timestamp"`
}

// #endregion event

// #region validation

// ErrMalformed marks an event missing required fields. Callers treat a
// malformed event as a decay-only turn, never as a hard failure.
var ErrMalformed = errors.New("malformed event")

// Validate checks the fields every predicate depends on.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Tool) == "" {
		return fmt.Errorf("%w: missing tool", ErrMalformed)
	}
	if e.Status != StatusSuccess && e.Status != StatusFailure {
		return fmt.Errorf("%w: status %q", ErrMalformed, e.Status)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrMalformed)
	}
	return nil
}

// #endregion validation

// #region decode

// Decode reads a single JSON event from r. A decode error is reported as
// ErrMalformed so the caller can fall through to the decay-only path.
func Decode(r io.Reader) (Event, error) {
	var ev Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ev, nil
}

// #endregion decode
