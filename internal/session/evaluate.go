package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/confidence-gate/internal/engine"
	"github.com/danielpatrickdp/confidence-gate/internal/event"
)

// #region evaluate-event

// EvaluateEvent runs one full turn under the exclusive lock: load state, run
// the pure transition, persist the result, and append the decision trace.
// A corrupt persisted record is reset to defaults first and the recovery is
// noted in the returned trace, never hidden.
func (s *Store) EvaluateEvent(eng *engine.Engine, ev event.Event) (engine.Trace, error) {
	var trace engine.Trace
	err := s.withExclusive(func(tx *sql.Tx) error {
		if _, err := s.ensureSession(tx); err != nil {
			return err
		}

		var recovery string
		st, err := s.loadState(tx)
		if errors.Is(err, ErrStateCorrupt) {
			recovery = fmt.Sprintf("state corrupt (%v), reset to defaults", err)
			if err := s.resetTx(tx, recovery); err != nil {
				return err
			}
			st = engine.Initial(eng.Config())
		} else if err != nil {
			return err
		}

		newState, t := eng.EvaluateTurn(ev, st)
		if recovery != "" {
			t.Reason = recovery + "; " + t.Reason
		}

		if err := s.saveState(tx, newState); err != nil {
			return err
		}
		if err := s.logDecision(tx, ev, t); err != nil {
			return err
		}
		trace = t
		return nil
	})
	if err != nil {
		return engine.Trace{}, err
	}
	return trace, nil
}

// #endregion evaluate-event

// #region log-decision

// logDecision appends the per-turn trace to the decision log.
func (s *Store) logDecision(tx *sql.Tx, ev event.Event, t engine.Trace) error {
	firedJSON, err := json.Marshal(t.Fired)
	if err != nil {
		return fmt.Errorf("marshal fired signals: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO decision_log (turn, tool, score_before, score_after, raw_delta, decay_delta, tier, decision, required, fired_json, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Turn, nullIfEmpty(ev.Tool), t.ScoreBefore, t.ScoreAfter, t.RawDelta, t.DecayDelta,
		t.Tier.Name, string(t.Decision), string(t.Required), string(firedJSON), t.Reason,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region dispute

// RecordDispute appends an immutable ledger row and bumps the signal's
// dispute count. The score is deliberately untouched: disputes only change
// future suppression, never past deltas.
func (s *Store) RecordDispute(signalName, reason string) (DisputeRecord, error) {
	rec := DisputeRecord{
		DisputeID: uuid.New().String(),
		Signal:    signalName,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	err := s.withExclusive(func(tx *sql.Tx) error {
		if _, err := s.ensureSession(tx); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO disputes (dispute_id, signal, reason, created_at) VALUES (?, ?, ?, ?)`,
			rec.DisputeID, rec.Signal, nullIfEmpty(rec.Reason), rec.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert dispute: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO cooldowns (signal, last_fired, dispute_count) VALUES (?, 0, 1)
			 ON CONFLICT(signal) DO UPDATE SET dispute_count = dispute_count + 1`,
			rec.Signal,
		)
		if err != nil {
			return fmt.Errorf("bump dispute count: %w", err)
		}
		var turn int
		if err := tx.QueryRow(`SELECT turn FROM session WHERE id = 1`).Scan(&turn); err != nil {
			return fmt.Errorf("read turn: %w", err)
		}
		return auditLog(tx, turn, "dispute", fmt.Sprintf("dispute recorded against %s: %s", rec.Signal, rec.Reason))
	})
	if err != nil {
		return DisputeRecord{}, err
	}
	return rec, nil
}

// #endregion dispute

// #region reset

// Reset wipes the session back to defaults. This is the only operation that
// destroys state, and it always leaves an audit row behind.
func (s *Store) Reset(reason string) error {
	return s.withExclusive(func(tx *sql.Tx) error {
		if _, err := s.ensureSession(tx); err != nil {
			return err
		}
		return s.resetTx(tx, reason)
	})
}

// resetTx reinitializes all tables inside an open transaction.
func (s *Store) resetTx(tx *sql.Tx, reason string) error {
	var turn int
	_ = tx.QueryRow(`SELECT turn FROM session WHERE id = 1`).Scan(&turn)

	for _, table := range []string{"session", "cooldowns", "history"} {
		if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := tx.Exec(
		`INSERT INTO session (id, schema_version, session_id, score, turn, streak_count, streak_mult, started_at, updated_at)
		 VALUES (1, ?, ?, ?, 0, 0, 1.0, ?, ?)`,
		SchemaVersion, uuid.New().String(), s.config.StartScore, now, now,
	)
	if err != nil {
		return fmt.Errorf("reinit session: %w", err)
	}
	return auditLog(tx, turn, "session_reset", reason)
}

// #endregion reset

// #region status

// GetStatus returns a read-only snapshot. tierName is resolved by the caller
// so the store stays independent of the tier partition.
func (s *Store) GetStatus() (Status, error) {
	var (
		status       Status
		lastActivity sql.NullString
		startedAt    string
	)
	err := s.db.QueryRow(
		`SELECT session_id, schema_version, score, turn, streak_count, streak_mult, last_activity, started_at FROM session WHERE id = 1`,
	).Scan(&status.SessionID, &status.SchemaVer, &status.Score, &status.Turn,
		&status.StreakCount, &status.StreakMult, &lastActivity, &startedAt)
	if err == sql.ErrNoRows {
		return Status{Score: s.config.StartScore, SchemaVer: SchemaVersion}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("read status: %w", err)
	}
	if lastActivity.Valid && lastActivity.String != "" {
		status.LastActivity, _ = time.Parse(time.RFC3339Nano, lastActivity.String)
	}
	status.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	return status, nil
}

// #endregion status

// #region listings

// ListDecisions returns the most recent decision-log rows, newest first.
func (s *Store) ListDecisions(limit int) ([]DecisionRow, error) {
	rows, err := s.db.Query(
		`SELECT id, turn, tool, score_before, score_after, raw_delta, decay_delta, tier, decision, required, fired_json, reason, created_at
		 FROM decision_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRow
	for rows.Next() {
		var r DecisionRow
		var tool, required, firedJSON, reason sql.NullString
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Turn, &tool, &r.ScoreBefore, &r.ScoreAfter, &r.RawDelta, &r.DecayDelta,
			&r.Tier, &r.Decision, &required, &firedJSON, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		r.Tool = tool.String
		r.Required = required.String
		r.FiredJSON = firedJSON.String
		r.Reason = reason.String
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListDisputes returns the full append-only dispute ledger, oldest first.
func (s *Store) ListDisputes() ([]DisputeRecord, error) {
	rows, err := s.db.Query(`SELECT dispute_id, signal, reason, created_at FROM disputes ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	var out []DisputeRecord
	for rows.Next() {
		var r DisputeRecord
		var reason sql.NullString
		var createdAt string
		if err := rows.Scan(&r.DisputeID, &r.Signal, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		r.Reason = reason.String
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion listings
