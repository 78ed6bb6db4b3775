package txstore

import (
	"github.com/google/btree"

	"github.com/roach88/propstore/internal/property"
)

type pendingItem struct {
	key *property.Key
	payload
}

func lessPending(a, b pendingItem) bool {
	return a.key.Ordinal() < b.key.Ordinal()
}

// pendingView caches the latest logged payload per key, tombstones included.
// It is derived from the change log: Refresh rebuilds it, and the only
// incremental update is for a record just appended to the end of the log.
type pendingView struct {
	tree *btree.BTreeG[pendingItem]
}

func newPendingView() *pendingView {
	return &pendingView{tree: btree.NewG(16, lessPending)}
}

func (v *pendingView) get(k *property.Key) (payload, bool) {
	item, ok := v.tree.Get(pendingItem{key: k})
	if !ok {
		return payload{}, false
	}
	return item.payload, true
}

func (v *pendingView) set(k *property.Key, p payload) {
	v.tree.ReplaceOrInsert(pendingItem{key: k, payload: p})
}

func (v *pendingView) clear() {
	v.tree.Clear(true)
}

func (v *pendingView) len() int {
	return v.tree.Len()
}

func (v *pendingView) ascend(fn func(pendingItem) bool) {
	v.tree.Ascend(fn)
}
