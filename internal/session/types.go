package session

import (
	"errors"
	"time"
)

// #region errors

var (
	// ErrLockTimeout means the exclusive store lock was not acquired within
	// the configured bound. Callers must fail closed: deny the action, do not
	// skip the state update silently.
	ErrLockTimeout = errors.New("session lock timeout")

	// ErrStateCorrupt means the persisted record failed validation. The store
	// recovers by resetting to defaults with an audit row, never silently.
	ErrStateCorrupt = errors.New("session state corrupt")

	// ErrSchemaMismatch means the persisted schema version has no migration
	// path to the current version.
	ErrSchemaMismatch = errors.New("session schema version mismatch")
)

// #endregion errors

// #region config

// Config holds store tuning.
type Config struct {
	LockTimeout  time.Duration // bound on exclusive-lock acquisition
	HistoryLimit int           // bounded recent-event window
	StartScore   int           // initial score for a fresh session
}

// DefaultConfig returns sensible store defaults.
func DefaultConfig() Config {
	return Config{
		LockTimeout:  5 * time.Second,
		HistoryLimit: 50,
		StartScore:   85,
	}
}

// #endregion config

// #region dispute-record

// DisputeRecord is one immutable false-positive claim against a signal.
type DisputeRecord struct {
	DisputeID string
	Signal    string
	Reason    string
	CreatedAt time.Time
}

// #endregion dispute-record

// #region decision-row

// DecisionRow is one persisted decision-log entry.
type DecisionRow struct {
	ID          int64
	Turn        int
	Tool        string
	ScoreBefore int
	ScoreAfter  int
	RawDelta    int
	DecayDelta  int
	Tier        string
	Decision    string
	Required    string
	FiredJSON   string
	Reason      string
	CreatedAt   time.Time
}

// #endregion decision-row

// #region status

// Status is a read-only snapshot of the persisted session.
type Status struct {
	SessionID    string
	SchemaVer    int
	Score        int
	Turn         int
	Tier         string
	StreakCount  int
	StreakMult   float64
	LastActivity time.Time
	StartedAt    time.Time
}

// #endregion status
