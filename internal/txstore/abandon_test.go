package txstore

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propstore/internal/property"
	"github.com/roach88/propstore/internal/value"
)

func TestClose_ForceCommitsOpenTransaction(t *testing.T) {
	rec := &recordingObserver{}
	s := newTestStore(t, WithObserver(rec))
	k := property.NewKey("K", value.KindInt)

	tx := s.CreateTransaction()
	require.NoError(t, tx.Set(k, value.Int(3)))
	require.NoError(t, tx.Close())

	assert.True(t, tx.Committed())
	v, ok := s.GetCommitted(k)
	require.True(t, ok)
	assert.Equal(t, value.Int(3), v)

	events := rec.all()
	require.Len(t, events, 1)
	assert.True(t, events[0].Forced)
}

func TestClose_NoOpAfterCompletion(t *testing.T) {
	rec := &recordingObserver{}
	s := newTestStore(t, WithObserver(rec))
	k := property.NewKey("K", value.KindInt)

	tx := s.CreateTransaction()
	require.NoError(t, tx.Set(k, value.Int(3)))
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Close())
	require.NoError(t, tx.Close())

	assert.False(t, tx.Committed())
	assert.Empty(t, rec.all())
}

func TestClose_UnblocksLaterTransactions(t *testing.T) {
	s := newTestStore(t)
	k := property.NewKey("K", value.KindInt)

	stalled := s.CreateTransaction()
	require.NoError(t, stalled.Set(k, value.Int(1)))

	later := s.CreateTransaction()
	require.NoError(t, later.Set(k, value.Int(2)))
	require.NoError(t, later.Commit())
	assert.Equal(t, 2, s.Stats().LogEntries, "drain blocked by the open transaction")

	require.NoError(t, stalled.Close())
	assert.Equal(t, 0, s.Stats().LogEntries)
	v, _ := s.GetCommitted(k)
	assert.Equal(t, value.Int(2), v)
}

func TestUpdate_PanicForceCommits(t *testing.T) {
	s := newTestStore(t)
	k := property.NewKey("K", value.KindInt)

	assert.PanicsWithValue(t, "handler bug", func() {
		_ = s.Update(func(tx *Transaction) error {
			if err := tx.Set(k, value.Int(9)); err != nil {
				return err
			}
			panic("handler bug")
		})
	})

	v, ok := s.GetCommitted(k)
	require.True(t, ok)
	assert.Equal(t, value.Int(9), v)
	assert.Equal(t, 0, s.Stats().OpenTransactions)
}

// abandonTransaction writes through a transaction and drops the handle.
//
//go:noinline
func abandonTransaction(t *testing.T, s *Store, k *property.Key) {
	tx := s.CreateTransaction()
	require.NoError(t, tx.Set(k, value.Int(11)))
}

func TestCleanup_UnreachableTransactionForceCommits(t *testing.T) {
	rec := &recordingObserver{}
	s := newTestStore(t, WithObserver(rec))
	k := property.NewKey("K", value.KindInt)

	abandonTransaction(t, s, k)

	later := s.CreateTransaction()
	require.NoError(t, later.Set(k, value.Int(12)))
	require.NoError(t, later.Commit())

	require.Eventually(t, func() bool {
		runtime.GC()
		return s.Stats().OpenTransactions == 0
	}, 5*time.Second, 10*time.Millisecond, "cleanup should resolve the abandoned transaction")

	assert.Equal(t, 0, s.Stats().LogEntries)
	v, _ := s.GetCommitted(k)
	assert.Equal(t, value.Int(12), v, "records still fold in log order")

	forced := 0
	for _, ev := range rec.all() {
		if ev.Forced {
			forced++
		}
	}
	assert.Equal(t, 1, forced)
}

func TestResolveAbandoned_SkipsCompletedWithoutLocking(t *testing.T) {
	rec := &recordingObserver{}
	s := newTestStore(t, WithObserver(rec))
	k := property.NewKey("K", value.KindInt)

	tx := s.CreateTransaction()
	require.NoError(t, tx.Set(k, value.Int(1)))
	require.NoError(t, tx.Commit())
	st := tx.state

	s.mu.Lock()
	done := make(chan struct{})
	go func() {
		resolveAbandoned(st)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.mu.Unlock()
		t.Fatal("resolveAbandoned waited on the store guard for a completed transaction")
	}
	s.mu.Unlock()

	assert.Len(t, rec.all(), 1, "only the explicit commit is published")
}
