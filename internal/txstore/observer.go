package txstore

import (
	"sync"

	"github.com/roach88/propstore/internal/property"
	"github.com/roach88/propstore/internal/value"
)

// Change is one write of a committed transaction, in the order it was issued.
type Change struct {
	Key     *property.Key
	Value   value.Value // nil when Deleted
	Deleted bool
	Seq     int64
}

// CommitEvent describes a committed transaction.
type CommitEvent struct {
	TxID  string
	TxSeq int64
	// Seq orders commit events; it is drawn from the same sequencer as
	// transaction and record sequence numbers.
	Seq int64
	// Forced is set when the transaction was abandoned and force-committed.
	Forced  bool
	Changes []Change
}

// Observer receives commit notifications. OnCommit runs on the committing
// goroutine after the store guard is released, so it may read the store. A
// returned error or panic is logged and dropped; it never affects the commit.
//
// Forced commits of handles that were dropped without Close are delivered on
// the runtime's cleanup goroutine, which runs all cleanups in sequence. Slow
// observers (the SQLite journal, for one) delay every other pending cleanup.
type Observer interface {
	OnCommit(event CommitEvent) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(event CommitEvent) error

// OnCommit calls f.
func (f ObserverFunc) OnCommit(event CommitEvent) error {
	return f(event)
}

type observerEntry struct {
	id  int
	obs Observer
}

// observerList keeps subscribers in subscription order. It has its own guard
// so observers can subscribe or unsubscribe from inside a callback.
type observerList struct {
	mu      sync.Mutex
	nextID  int
	entries []observerEntry
}

func (l *observerList) add(o Observer) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.entries = append(l.entries, observerEntry{id: l.nextID, obs: o})
	return l.nextID
}

func (l *observerList) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *observerList) snapshot() []Observer {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Observer, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.obs
	}
	return out
}

// Subscribe registers o for commit events. The returned function unsubscribes;
// calling it more than once is harmless.
func (s *Store) Subscribe(o Observer) (unsubscribe func()) {
	id := s.observers.add(o)
	var once sync.Once
	return func() {
		once.Do(func() { s.observers.remove(id) })
	}
}

func (s *Store) notify(event *CommitEvent) {
	if event == nil {
		return
	}
	for _, o := range s.observers.snapshot() {
		s.deliver(o, *event)
	}
}

func (s *Store) deliver(o Observer, event CommitEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("commit observer panicked", "tx", event.TxID, "seq", event.Seq, "panic", r)
		}
	}()
	if err := o.OnCommit(event); err != nil {
		s.logger.Error("commit observer failed", "tx", event.TxID, "seq", event.Seq, "error", err)
	}
}
