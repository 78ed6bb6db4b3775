package txstore

import (
	"sync"

	"github.com/roach88/propstore/internal/property"
	"github.com/roach88/propstore/internal/value"
)

// Manager lets a caller keep writing through one long-lived handle across
// commit/rollback cycles. After the held transaction completes, the next
// write starts a new one.
//
// Manager methods are serialized by the manager's guard, which is taken
// before the store guard and held while commit observers run. An observer must
// not write through the Manager whose commit notified it.
type Manager struct {
	mu      sync.Mutex
	store   *Store
	current *Transaction
}

// Current returns the held transaction, first replacing it with a new one if
// there is none or it has completed.
func (m *Manager) Current() *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

// Held returns the transaction the manager is holding, completed or not,
// without starting a new one. Nil before the first write.
func (m *Manager) Held() *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) currentLocked() *Transaction {
	if m.current == nil || m.current.Completed() {
		m.current = m.store.CreateTransaction()
	}
	return m.current
}

// Set writes through the current transaction.
func (m *Manager) Set(k *property.Key, v value.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked().Set(k, v)
}

// Delete deletes through the current transaction.
func (m *Manager) Delete(k *property.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked().Delete(k)
}

// Commit commits the held transaction, the one callers have been writing
// through. It never starts a fresh transaction: with nothing held it is a
// no-op, and committing an already completed held transaction fails with
// TRANSACTION_ALREADY_CLOSED.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.Commit()
}

// Rollback rolls back the held transaction. Same rules as Commit.
func (m *Manager) Rollback() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.Rollback()
}

// Close force-commits the held transaction if it is still open.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.Close()
}
