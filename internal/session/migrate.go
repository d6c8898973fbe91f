package session

import (
	"database/sql"
	"fmt"
	"time"
)

// #region migrations

// migrations maps a stored schema version to the step that upgrades it by
// one. A stored version with no entry here has no migration path and is
// handled as corruption: reset to defaults with an audit row.
var migrations = map[int]func(tx *sql.Tx) error{
	1: migrateV1,
}

// migrateV1 upgrades v1 sessions, which predate the streak multiplier column
// and the bounded history window.
func migrateV1(tx *sql.Tx) error {
	if _, err := tx.Exec(`ALTER TABLE session ADD COLUMN streak_mult REAL NOT NULL DEFAULT 1.0`); err != nil {
		return fmt.Errorf("add streak_mult: %w", err)
	}
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			turn    INTEGER NOT NULL,
			tool    TEXT NOT NULL,
			path    TEXT,
			status  TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	return nil
}

// #endregion migrations

// #region migrate

// migrate walks the stored session forward to SchemaVersion. An unknown
// version is never silently reinterpreted: the session resets to defaults and
// the reset is recorded in the decision log.
func (s *Store) migrate() error {
	return s.withExclusive(func(tx *sql.Tx) error {
		var version int
		err := tx.QueryRow(`SELECT schema_version FROM session WHERE id = 1`).Scan(&version)
		if err == sql.ErrNoRows {
			// Fresh database; ensureSession creates it at the current version.
			return nil
		}
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}

		for version < SchemaVersion {
			step, ok := migrations[version]
			if !ok {
				return s.resetTx(tx, fmt.Sprintf("%v: version %d has no migration path, reset to defaults", ErrSchemaMismatch, version))
			}
			if err := step(tx); err != nil {
				return fmt.Errorf("migrate v%d: %w", version, err)
			}
			version++
			if _, err := tx.Exec(`UPDATE session SET schema_version = ? WHERE id = 1`, version); err != nil {
				return fmt.Errorf("bump schema version: %w", err)
			}
		}

		if version > SchemaVersion {
			// Downgrade attempt: written by a newer build.
			return s.resetTx(tx, fmt.Sprintf("%v: version %d is newer than supported %d, reset to defaults", ErrSchemaMismatch, version, SchemaVersion))
		}
		return nil
	})
}

// #endregion migrate

// #region audit

// auditLog writes an administrative row to the decision log so resets and
// migrations are never silent.
func auditLog(tx *sql.Tx, turn int, kind, reason string) error {
	_, err := tx.Exec(
		`INSERT INTO decision_log (turn, tool, score_before, score_after, raw_delta, decay_delta, tier, decision, required, fired_json, reason, created_at)
		 VALUES (?, ?, 0, 0, 0, 0, '', ?, '', '', ?, ?)`,
		turn, kind, kind, reason, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("audit log: %w", err)
	}
	return nil
}

// #endregion audit
