// Package session persists the confidence state across independent process
// invocations. SQLite is the single source of truth; every mutation runs in
// one transaction that takes the write lock before reading, so overlapping
// processes serialize instead of interleaving, and a bounded busy timeout
// turns contention into an explicit fail-closed error.
package session

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/confidence-gate/internal/cooldown"
	"github.com/danielpatrickdp/confidence-gate/internal/engine"
	"github.com/danielpatrickdp/confidence-gate/internal/event"
	"github.com/danielpatrickdp/confidence-gate/internal/streak"
)

// SchemaVersion is the current persisted schema. Version 1 lacked the streak
// multiplier column and the history window; migrateV1 upgrades it in place.
const SchemaVersion = 2

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS session (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	schema_version  INTEGER NOT NULL,
	session_id      TEXT NOT NULL,
	score           INTEGER NOT NULL,
	turn            INTEGER NOT NULL,
	last_activity   TEXT,
	streak_count    INTEGER NOT NULL DEFAULT 0,
	streak_mult     REAL NOT NULL DEFAULT 1.0,
	started_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cooldowns (
	signal         TEXT PRIMARY KEY,
	last_fired     INTEGER NOT NULL DEFAULT 0,
	dispute_count  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS disputes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	dispute_id  TEXT NOT NULL,
	signal      TEXT NOT NULL,
	reason      TEXT,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	turn          INTEGER NOT NULL,
	tool          TEXT,
	score_before  INTEGER NOT NULL,
	score_after   INTEGER NOT NULL,
	raw_delta     INTEGER NOT NULL,
	decay_delta   INTEGER NOT NULL,
	tier          TEXT NOT NULL,
	decision      TEXT NOT NULL,
	required      TEXT,
	fired_json    TEXT,
	reason        TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS history (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	turn    INTEGER NOT NULL,
	tool    TEXT NOT NULL,
	path    TEXT,
	status  TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct

// Store manages the durable session record.
type Store struct {
	db     *sql.DB
	config Config
}

// #endregion store-struct

// #region constructor

// Open opens the session database, applies pragmas, and runs migrations.
// Pragmas ride on the DSN so every pooled connection carries them; the busy
// timeout bounds how long a second process waits for the exclusive lock
// before failing closed.
func Open(dbPath string, config Config) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(wal)&_pragma=foreign_keys(1)",
		dbPath, config.LockTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	s := &Store{db: db, config: config}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for read-only inspection tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region lock

// withExclusive runs fn inside one transaction spanning the whole
// read-modify-write. A sentinel write right after Begin promotes the
// transaction to the database's single write lock, standing in for BEGIN
// IMMEDIATE, which database/sql does not expose. A busy timeout surfaces as
// ErrLockTimeout.
func (s *Store) withExclusive(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return lockErr(err)
	}
	defer tx.Rollback()

	// Take the write lock up front so concurrent evaluators serialize at the
	// start of the turn, not at commit.
	if _, err := tx.Exec("UPDATE session SET id = 1 WHERE id = 1"); err != nil {
		return lockErr(err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return lockErr(err)
	}
	return nil
}

// lockErr translates SQLite contention errors into ErrLockTimeout.
func lockErr(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	return err
}

// #endregion lock

// #region ensure-session

// ensureSession creates the initial session row when none exists and returns
// its current schema version.
func (s *Store) ensureSession(tx *sql.Tx) (int, error) {
	var version int
	err := tx.QueryRow(`SELECT schema_version FROM session WHERE id = 1`).Scan(&version)
	if err == sql.ErrNoRows {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		_, err = tx.Exec(
			`INSERT INTO session (id, schema_version, session_id, score, turn, streak_count, streak_mult, started_at, updated_at)
			 VALUES (1, ?, ?, ?, 0, 0, 1.0, ?, ?)`,
			SchemaVersion, uuid.New().String(), s.config.StartScore, now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("init session: %w", err)
		}
		return SchemaVersion, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// #endregion ensure-session

// #region load-state

// loadState reads the persisted record into the engine's transition state and
// validates its invariants.
func (s *Store) loadState(tx *sql.Tx) (engine.State, error) {
	var (
		st           engine.State
		lastActivity sql.NullString
		streakCount  int
		streakMult   float64
	)
	err := tx.QueryRow(
		`SELECT score, turn, last_activity, streak_count, streak_mult FROM session WHERE id = 1`,
	).Scan(&st.Score, &st.Turn, &lastActivity, &streakCount, &streakMult)
	if err != nil {
		return engine.State{}, fmt.Errorf("load session: %w", err)
	}

	if st.Score < 0 || st.Score > 100 || st.Turn < 0 || streakCount < 0 {
		return engine.State{}, fmt.Errorf("%w: score=%d turn=%d streak=%d", ErrStateCorrupt, st.Score, st.Turn, streakCount)
	}

	if lastActivity.Valid && lastActivity.String != "" {
		st.LastActivity, err = time.Parse(time.RFC3339Nano, lastActivity.String)
		if err != nil {
			return engine.State{}, fmt.Errorf("%w: last_activity %q", ErrStateCorrupt, lastActivity.String)
		}
	}
	st.Streak = streak.State{Count: streakCount, Multiplier: streakMult}

	st.Cooldowns = cooldown.State{}
	rows, err := tx.Query(`SELECT signal, last_fired, dispute_count FROM cooldowns`)
	if err != nil {
		return engine.State{}, fmt.Errorf("load cooldowns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var entry cooldown.Entry
		if err := rows.Scan(&name, &entry.LastFired, &entry.DisputeCount); err != nil {
			return engine.State{}, fmt.Errorf("scan cooldown: %w", err)
		}
		st.Cooldowns[name] = entry
	}
	if err := rows.Err(); err != nil {
		return engine.State{}, fmt.Errorf("iterate cooldowns: %w", err)
	}

	st.History = event.History{Limit: s.config.HistoryLimit}
	hrows, err := tx.Query(`SELECT turn, tool, path, status FROM history ORDER BY turn ASC, id ASC`)
	if err != nil {
		return engine.State{}, fmt.Errorf("load history: %w", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var entry event.HistoryEntry
		var path sql.NullString
		if err := hrows.Scan(&entry.Turn, &entry.Tool, &path, &entry.Status); err != nil {
			return engine.State{}, fmt.Errorf("scan history: %w", err)
		}
		entry.Path = path.String
		st.History.Entries = append(st.History.Entries, entry)
	}
	if err := hrows.Err(); err != nil {
		return engine.State{}, fmt.Errorf("iterate history: %w", err)
	}

	return st, nil
}

// #endregion load-state

// #region save-state

// saveState writes the full transition state back. Cooldowns and history are
// small bounded sets; replacing them wholesale keeps the write path simple
// and atomic within the surrounding transaction.
func (s *Store) saveState(tx *sql.Tx, st engine.State) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var lastActivity interface{}
	if !st.LastActivity.IsZero() {
		lastActivity = st.LastActivity.UTC().Format(time.RFC3339Nano)
	}
	_, err := tx.Exec(
		`UPDATE session SET score = ?, turn = ?, last_activity = ?, streak_count = ?, streak_mult = ?, updated_at = ? WHERE id = 1`,
		st.Score, st.Turn, lastActivity, st.Streak.Count, st.Streak.Multiplier, now,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM cooldowns`); err != nil {
		return fmt.Errorf("clear cooldowns: %w", err)
	}
	for name, entry := range st.Cooldowns {
		_, err := tx.Exec(
			`INSERT INTO cooldowns (signal, last_fired, dispute_count) VALUES (?, ?, ?)`,
			name, entry.LastFired, entry.DisputeCount,
		)
		if err != nil {
			return fmt.Errorf("save cooldown %s: %w", name, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for _, entry := range st.History.Entries {
		_, err := tx.Exec(
			`INSERT INTO history (turn, tool, path, status) VALUES (?, ?, ?, ?)`,
			entry.Turn, entry.Tool, nullIfEmpty(entry.Path), string(entry.Status),
		)
		if err != nil {
			return fmt.Errorf("save history: %w", err)
		}
	}
	return nil
}

// #endregion save-state

// #region helpers

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
