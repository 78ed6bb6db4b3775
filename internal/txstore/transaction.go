package txstore

import (
	"runtime"
	"sync"

	"github.com/roach88/propstore/internal/property"
	"github.com/roach88/propstore/internal/value"
)

// txState is the part of a transaction the change log refers to. Its guard
// protects only the completion flags and is always taken after the store
// guard.
type txState struct {
	mu        sync.Mutex
	store     *Store
	id        string
	seq       int64
	completed bool
	committed bool
	forced    bool
}

func (st *txState) status() (completed, committed bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.completed, st.committed
}

// outcome describes a completed transaction. Caller holds st.mu.
func (st *txState) outcome() string {
	switch {
	case !st.completed:
		return "pending"
	case st.committed:
		return "committed"
	default:
		return "rolled back"
	}
}

// Transaction is a unit of work against one Store. Writes are visible to all
// readers as soon as they are logged; Commit or Rollback decides whether they
// survive compaction.
//
// A Transaction is safe for concurrent use. Callers should `defer tx.Close()`
// so the transaction resolves even on early returns.
type Transaction struct {
	state *txState
}

func newTransaction(st *txState) *Transaction {
	tx := &Transaction{state: st}
	runtime.AddCleanup(tx, resolveAbandoned, st)
	return tx
}

// resolveAbandoned runs when a handle becomes unreachable. Completed
// transactions are skipped without touching the store guard.
func resolveAbandoned(st *txState) {
	if completed, _ := st.status(); completed {
		return
	}
	st.store.forceCommit(st, "unreachable")
}

// ID returns the transaction's identifier.
func (tx *Transaction) ID() string { return tx.state.id }

// Seq returns the creation sequence number. Lower Seq means created earlier.
func (tx *Transaction) Seq() int64 { return tx.state.seq }

// Completed reports whether Commit or Rollback has run.
func (tx *Transaction) Completed() bool {
	completed, _ := tx.state.status()
	return completed
}

// Committed reports whether the transaction completed by committing.
func (tx *Transaction) Committed() bool {
	completed, committed := tx.state.status()
	return completed && committed
}

// Set logs v under k. The write is visible to every reader on return.
//
// Fails with TYPE_MISMATCH before anything is logged if v does not satisfy k,
// and with TRANSACTION_CLOSED if the transaction has completed.
func (tx *Transaction) Set(k *property.Key, v value.Value) error {
	if err := k.Check(v); err != nil {
		return err
	}
	err := tx.state.store.appendRecord(tx.state, k, payload{value: v})
	// Keep the handle alive until the record is logged; otherwise the cleanup
	// could force-commit the transaction mid-call.
	runtime.KeepAlive(tx)
	return err
}

// Delete logs a tombstone for k. Readers see k as absent on return.
func (tx *Transaction) Delete(k *property.Key) error {
	err := tx.state.store.appendRecord(tx.state, k, payload{tombstone: true})
	runtime.KeepAlive(tx)
	return err
}

// Commit completes the transaction and compacts the log.
func (tx *Transaction) Commit() error {
	return tx.state.store.Commit(tx)
}

// Rollback completes the transaction, discards its records and compacts the
// log.
func (tx *Transaction) Rollback() error {
	return tx.state.store.Rollback(tx)
}

// Close force-commits the transaction if it is still open. It is a no-op on a
// completed transaction and always returns nil, so it can be deferred after an
// explicit Commit or Rollback.
func (tx *Transaction) Close() error {
	tx.state.store.forceCommit(tx.state, "closed without commit or rollback")
	return nil
}
