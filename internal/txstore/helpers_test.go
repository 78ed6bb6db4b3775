package txstore

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/propstore/internal/property"
	"github.com/roach88/propstore/internal/testutil"
	"github.com/roach88/propstore/internal/value"
)

// newTestStore builds a store with deterministic IDs and silent logging.
func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(testutil.NewFixedIDGenerator("tx")),
		WithSequencer(testutil.NewDeterministicClock()),
	}
	return New(append(base, opts...)...)
}

// mustGet fails the test if k has no value.
func mustGet(t *testing.T, s *Store, k *property.Key) value.Value {
	t.Helper()
	v, ok := s.Get(k)
	if !ok {
		t.Fatalf("Get(%s): not found", k)
	}
	return v
}
