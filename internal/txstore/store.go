package txstore

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/roach88/propstore/internal/property"
	"github.com/roach88/propstore/internal/value"
)

// Store is the transactional property store. The zero value is not usable;
// construct with New. A Store holds no global state, so any number can coexist.
type Store struct {
	mu       sync.RWMutex
	baseline *property.PlainStore
	pending  *pendingView
	log      *changeLog
	open     int

	clock  Sequencer
	ids    IDGenerator
	logger *slog.Logger

	observers observerList
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithIDGenerator sets the transaction ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithSequencer sets the source of sequence numbers. Default: NewClock().
// Tests pass a resettable clock for reproducible traces.
func WithSequencer(c Sequencer) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithObserver subscribes o to commit events from construction on.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observers.add(o)
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		baseline: property.NewPlainStore(),
		pending:  newPendingView(),
		log:      newChangeLog(),
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current merged value of k: the latest logged write if any
// (including uncommitted ones), else the baseline. A logged delete reads as
// not found.
func (s *Store) Get(k *property.Key) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.pending.get(k); ok {
		if p.tombstone {
			return nil, false
		}
		return p.value, true
	}
	return s.baseline.TryGet(k)
}

// Lookup is the strict form of Get: KEY_NOT_FOUND when k has no value.
func (s *Store) Lookup(k *property.Key) (value.Value, error) {
	v, ok := s.Get(k)
	if !ok {
		return nil, property.NotFound(k)
	}
	return v, nil
}

// GetCommitted reads the baseline only, ignoring everything still in the log.
func (s *Store) GetCommitted(k *property.Key) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseline.TryGet(k)
}

// Snapshot returns the merged state, pending view over baseline, in key
// creation order.
func (s *Store) Snapshot() []property.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := s.baseline.Clone()
	s.pending.ascend(func(item pendingItem) bool {
		if item.tombstone {
			merged.Delete(item.key)
		} else if err := merged.Set(item.key, item.value); err != nil {
			s.logger.Error("pending value failed type check", "key", item.key.Name(), "error", err)
		}
		return true
	})
	return merged.Entries()
}

// Stats describes the store's internal sizes.
type Stats struct {
	LogEntries       int `json:"log_entries"`
	PendingKeys      int `json:"pending_keys"`
	BaselineKeys     int `json:"baseline_keys"`
	OpenTransactions int `json:"open_transactions"`
}

// Stats returns current sizes. Useful for asserting that the log drains.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		LogEntries:       s.log.len(),
		PendingKeys:      s.pending.len(),
		BaselineKeys:     s.baseline.Len(),
		OpenTransactions: s.open,
	}
}

// CreateTransaction starts a new transaction bound to this store.
func (s *Store) CreateTransaction() *Transaction {
	st := &txState{
		store: s,
		id:    s.ids.Generate(),
	}

	s.mu.Lock()
	st.seq = s.clock.Next()
	s.open++
	s.mu.Unlock()

	s.logger.Debug("transaction created", "tx", st.id, "seq", st.seq)
	return newTransaction(st)
}

// CreateManager returns a Manager writing through this store.
func (s *Store) CreateManager() *Manager {
	return &Manager{store: s}
}

// Update runs fn inside a new transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error, unless fn already
// completed it. If fn panics the transaction is resolved as abandoned (forced
// commit) and the panic continues.
func (s *Store) Update(fn func(tx *Transaction) error) error {
	tx := s.CreateTransaction()
	defer tx.Close()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !IsClosed(rbErr) {
			s.logger.Error("rollback after failed update", "tx", tx.ID(), "error", rbErr)
		}
		return err
	}
	if tx.Completed() {
		return nil
	}
	return tx.Commit()
}

// Commit completes tx as committed and runs Refresh. Observers are notified
// after the store guard is released.
//
// Fails with FOREIGN_TRANSACTION if tx belongs to another store and with
// TRANSACTION_ALREADY_CLOSED if tx has completed.
func (s *Store) Commit(tx *Transaction) error {
	if tx == nil || tx.state == nil || tx.state.store != s {
		return foreignError(tx)
	}
	event, err := s.complete(tx.state, true, false)
	runtime.KeepAlive(tx)
	if err != nil {
		return err
	}
	s.notify(event)
	return nil
}

// Rollback completes tx as rolled back, removes its records from the log and
// runs Refresh. Same failure modes as Commit.
func (s *Store) Rollback(tx *Transaction) error {
	if tx == nil || tx.state == nil || tx.state.store != s {
		return foreignError(tx)
	}
	_, err := s.complete(tx.state, false, false)
	runtime.KeepAlive(tx)
	return err
}

// forceCommit resolves an abandoned transaction. No-op if already completed.
func (s *Store) forceCommit(st *txState, reason string) {
	event, err := s.complete(st, true, true)
	if err != nil {
		return
	}
	s.logger.Warn("open transaction force-committed",
		"tx", st.id,
		"reason", reason,
		"changes", len(event.Changes),
	)
	s.notify(event)
}

// complete flips st to completed under the store guard then the transaction
// guard, and compacts. For commits it returns the event to publish.
func (s *Store) complete(st *txState, commit, forced bool) (*CommitEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.mu.Lock()
	if st.completed {
		err := alreadyClosedError(st)
		st.mu.Unlock()
		return nil, err
	}
	st.completed = true
	st.committed = commit
	st.forced = forced
	st.mu.Unlock()
	s.open--

	var event *CommitEvent
	removed := 0
	if commit {
		event = s.buildEvent(st)
	} else {
		removed = s.log.removeTx(st)
	}

	rs := s.refreshLocked()

	if commit {
		s.logger.Debug("transaction committed",
			"tx", st.id,
			"seq", event.Seq,
			"changes", len(event.Changes),
			"folded", rs.folded,
			"blocked", rs.blocked,
			"log_len", s.log.len(),
		)
	} else {
		s.logger.Debug("transaction rolled back",
			"tx", st.id,
			"discarded", removed,
			"folded", rs.folded,
			"log_len", s.log.len(),
		)
	}
	return event, nil
}

// appendRecord logs one write for st and patches the pending view.
func (s *Store) appendRecord(st *txState, k *property.Key, p payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.completed {
		return closedError(st)
	}

	s.log.append(&logEntry{tx: st, key: k, payload: p, seq: s.clock.Next()})
	// The new record is the newest in the log, so it shadows whatever the
	// view held for k; no rebuild needed.
	s.pending.set(k, p)
	return nil
}

// Refresh compacts the change log and rebuilds the pending view. Commit and
// Rollback already call it; explicit calls are only needed by tests and tools.
func (s *Store) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
}

type refreshStats struct {
	folded    int
	discarded int
	blocked   bool
}

// refreshLocked is the compaction algorithm. Caller holds s.mu for writing.
func (s *Store) refreshLocked() refreshStats {
	var rs refreshStats
	s.pending.clear()

	// Pass 1: drain the completed prefix of the log into the baseline.
	drained := 0
	for _, e := range s.log.entries {
		completed, committed := e.tx.status()
		if !completed {
			// Anything after this record may overwrite it; folding it first
			// would apply writes out of log order.
			rs.blocked = true
			break
		}
		if committed {
			s.fold(e)
			rs.folded++
		} else {
			rs.discarded++
		}
		drained++
	}
	s.log.dropFront(drained)

	// Pass 2: replay the remainder so later records shadow earlier ones.
	for _, e := range s.log.entries {
		completed, committed := e.tx.status()
		if completed && !committed {
			continue
		}
		s.pending.set(e.key, e.payload)
	}
	return rs
}

func (s *Store) fold(e *logEntry) {
	if e.tombstone {
		s.baseline.Delete(e.key)
		return
	}
	if err := s.baseline.Set(e.key, e.value); err != nil {
		// Set already type-checked the value; reaching this is a bug.
		s.logger.Error("committed value failed type check", "key", e.key.Name(), "tx", e.tx.id, "error", err)
	}
}

// buildEvent collects st's logged changes. Caller holds s.mu.
func (s *Store) buildEvent(st *txState) *CommitEvent {
	owned := s.log.owned(st)
	changes := make([]Change, len(owned))
	for i, e := range owned {
		changes[i] = Change{Key: e.key, Value: e.value, Deleted: e.tombstone, Seq: e.seq}
	}
	return &CommitEvent{
		TxID:    st.id,
		TxSeq:   st.seq,
		Seq:     s.clock.Next(),
		Forced:  st.forced,
		Changes: changes,
	}
}
