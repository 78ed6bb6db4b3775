package txstore

import (
	"github.com/roach88/propstore/internal/property"
	"github.com/roach88/propstore/internal/value"
)

// payload is a logged write: a value, or a tombstone meaning "delete".
type payload struct {
	value     value.Value
	tombstone bool
}

// logEntry is one change record. It references the transaction's state, not
// its handle, so a handle can be reclaimed while its records are still logged.
type logEntry struct {
	tx  *txState
	key *property.Key
	payload
	seq int64
}

// changeLog is the ordered record of writes not yet folded into the baseline.
// Records are never reordered. Callers hold the store guard.
type changeLog struct {
	entries []*logEntry
}

func newChangeLog() *changeLog {
	return &changeLog{entries: make([]*logEntry, 0, 64)}
}

func (l *changeLog) append(e *logEntry) {
	l.entries = append(l.entries, e)
}

func (l *changeLog) len() int {
	return len(l.entries)
}

// dropFront removes the n oldest records.
func (l *changeLog) dropFront(n int) {
	if n == 0 {
		return
	}
	// Clear the slots so the backing array does not pin transaction state.
	clear(l.entries[:n])
	if n == len(l.entries) {
		l.entries = l.entries[:0]
		return
	}
	l.entries = l.entries[n:]
}

// removeTx drops every record owned by st, keeping the order of the rest.
// Returns the number removed.
func (l *changeLog) removeTx(st *txState) int {
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.tx != st {
			kept = append(kept, e)
		}
	}
	removed := len(l.entries) - len(kept)
	clear(l.entries[len(kept):])
	l.entries = kept
	return removed
}

// owned returns st's records in log order.
func (l *changeLog) owned(st *txState) []*logEntry {
	var out []*logEntry
	for _, e := range l.entries {
		if e.tx == st {
			out = append(out, e)
		}
	}
	return out
}
