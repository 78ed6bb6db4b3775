package txstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/propstore/internal/property"
	"github.com/roach88/propstore/internal/value"
)

func seqs(l *changeLog) []int64 {
	out := make([]int64, 0, l.len())
	for _, e := range l.entries {
		out = append(out, e.seq)
	}
	return out
}

func TestChangeLog_AppendAndDrop(t *testing.T) {
	k := property.NewKey("k", value.KindInt)
	a, b := &txState{id: "a"}, &txState{id: "b"}
	l := newChangeLog()

	for i, st := range []*txState{a, b, a, b} {
		l.append(&logEntry{tx: st, key: k, seq: int64(i + 1)})
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, seqs(l))

	l.dropFront(1)
	assert.Equal(t, []int64{2, 3, 4}, seqs(l))
	l.dropFront(0)
	assert.Equal(t, 3, l.len())
	l.dropFront(3)
	assert.Equal(t, 0, l.len())
}

func TestChangeLog_RemoveTxKeepsOrder(t *testing.T) {
	k := property.NewKey("k", value.KindInt)
	a, b := &txState{id: "a"}, &txState{id: "b"}
	l := newChangeLog()
	for i, st := range []*txState{a, b, a, b, b} {
		l.append(&logEntry{tx: st, key: k, seq: int64(i + 1)})
	}

	assert.Len(t, l.owned(a), 2)
	assert.Equal(t, 2, l.removeTx(a))
	assert.Equal(t, []int64{2, 4, 5}, seqs(l))
	assert.Empty(t, l.owned(a))
	assert.Equal(t, 0, l.removeTx(a))
}
