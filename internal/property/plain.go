package property

import (
	"github.com/google/btree"

	"github.com/roach88/propstore/internal/value"
)

// Entry is one stored (key, value) pair.
type Entry struct {
	Key   *Key
	Value value.Value
}

func lessEntry(a, b Entry) bool {
	return a.Key.ordinal < b.Key.ordinal
}

// PlainStore is a type-checked mapping from *Key to value.Value with no
// transactions. Entries iterate in key creation order.
//
// PlainStore is not safe for concurrent use; callers provide their own
// locking.
type PlainStore struct {
	tree *btree.BTreeG[Entry]
}

// btreeDegree matches the degree ShardDB's memory store uses; property sets are
// small and this keeps nodes shallow.
const btreeDegree = 32

// NewPlainStore returns an empty store.
func NewPlainStore() *PlainStore {
	return &PlainStore{tree: btree.NewG(btreeDegree, lessEntry)}
}

// TryGet returns the value stored under k and whether one exists.
func (s *PlainStore) TryGet(k *Key) (value.Value, bool) {
	e, ok := s.tree.Get(Entry{Key: k})
	if !ok || e.Key != k {
		return nil, false
	}
	return e.Value, true
}

// Get is the strict read: KEY_NOT_FOUND when nothing is stored under k.
func (s *PlainStore) Get(k *Key) (value.Value, error) {
	v, ok := s.TryGet(k)
	if !ok {
		return nil, NotFound(k)
	}
	return v, nil
}

// Set stores v under k. Fails with TYPE_MISMATCH, storing nothing, when v does
// not satisfy k.
func (s *PlainStore) Set(k *Key, v value.Value) error {
	if err := k.Check(v); err != nil {
		return err
	}
	s.tree.ReplaceOrInsert(Entry{Key: k, Value: v})
	return nil
}

// Delete removes k. Deleting an absent key is a no-op.
func (s *PlainStore) Delete(k *Key) {
	s.tree.Delete(Entry{Key: k})
}

// Len returns the number of stored entries.
func (s *PlainStore) Len() int {
	return s.tree.Len()
}

// Clear removes every entry.
func (s *PlainStore) Clear() {
	s.tree.Clear(false)
}

// Ascend calls fn for each entry in key creation order until fn returns false.
func (s *PlainStore) Ascend(fn func(Entry) bool) {
	s.tree.Ascend(fn)
}

// Entries returns all entries in key creation order.
func (s *PlainStore) Entries() []Entry {
	out := make([]Entry, 0, s.tree.Len())
	s.tree.Ascend(func(e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Clone returns an independent copy. Values are shared; they are treated as
// immutable once stored.
//
// Clone only reads s, so it may run alongside other readers. btree's own
// Clone is not used: it resets the source's copy-on-write context.
func (s *PlainStore) Clone() *PlainStore {
	c := NewPlainStore()
	s.tree.Ascend(func(e Entry) bool {
		c.tree.ReplaceOrInsert(e)
		return true
	})
	return c
}
