package reporting

import (
	"sync"
	"time"
)

// JournalEntry is one executed connector flow.
type JournalEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	TraceID      string    `json:"trace_id"`
	MerchantID   string    `json:"merchant_id"`
	Connector    string    `json:"connector"` // e.g. "wave"
	Flow         string    `json:"flow"`      // e.g. "authorize", "refund"
	Outcome      string    `json:"outcome"`   // "SUCCESS", "PENDING" or "FAILURE"
	Amount       int64     `json:"amount"`    // Minor units; 0 for flows without an amount
	Currency     string    `json:"currency,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
}

// Journal is an append-only, in-memory record of executed flows. Safe for concurrent use.
type Journal struct {
	mu      sync.RWMutex
	entries []JournalEntry
	limit   int
}

// NewJournal creates a journal keeping at most limit entries (0 means unbounded).
// When full, the oldest entries are dropped.
func NewJournal(limit int) *Journal {
	return &Journal{limit: limit}
}

// Record appends an entry.
func (j *Journal) Record(e JournalEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	if j.limit > 0 && len(j.entries) > j.limit {
		j.entries = append([]JournalEntry(nil), j.entries[len(j.entries)-j.limit:]...)
	}
}

// Entries returns a copy of the recorded entries, oldest first.
func (j *Journal) Entries() []JournalEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]JournalEntry(nil), j.entries...)
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}
