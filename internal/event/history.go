package event

// #region history-entry

// HistoryEntry is the compact per-turn record kept for history predicates.
type HistoryEntry struct {
	Turn   int    `json:"turn"`
	Tool   string `json:"tool"`
	Path   string `json:"path"`
	Status Status `json:"status"`
}

// #endregion history-entry

// #region history

// History is a bounded, chronologically ordered window of recent entries.
// Predicates read it; only the session store appends to it.
type History struct {
	Entries []HistoryEntry
	Limit   int
}

// DefaultHistoryLimit bounds the persisted window.
const DefaultHistoryLimit = 50

// Append adds an entry and drops the oldest beyond the limit.
func (h History) Append(entry HistoryEntry) History {
	limit := h.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries := append(append([]HistoryEntry(nil), h.Entries...), entry)
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return History{Entries: entries, Limit: limit}
}

// EditCount counts entries touching path within the last window turns,
// measured back from currentTurn inclusive.
func (h History) EditCount(path string, currentTurn, window int) int {
	if path == "" || window <= 0 {
		return 0
	}
	count := 0
	for _, e := range h.Entries {
		if e.Path == path && e.Turn > currentTurn-window {
			count++
		}
	}
	return count
}

// FailureRun returns the length of the trailing run of failed entries.
func (h History) FailureRun() int {
	run := 0
	for i := len(h.Entries) - 1; i >= 0; i-- {
		if h.Entries[i].Status != StatusFailure {
			break
		}
		run++
	}
	return run
}

// #endregion history
