package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/propstore/internal/value"
)

// AssertionError describes a final state mismatch.
type AssertionError struct {
	Key      string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "final_state %s:\n", e.Key)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// compareState checks the snapshot against the expected state exactly: every
// expected key must be present with an equal value and no other key may hold
// a value. Messages are sorted by key name.
func compareState(expected, actual map[string]value.Value) []string {
	var errs []*AssertionError
	for name, want := range expected {
		got, ok := actual[name]
		switch {
		case !ok:
			errs = append(errs, &AssertionError{Key: name, Expected: describe(want), Actual: "<missing>"})
		case !value.Equal(want, got):
			errs = append(errs, &AssertionError{Key: name, Expected: describe(want), Actual: describe(got)})
		}
	}
	for name, got := range actual {
		if _, ok := expected[name]; !ok {
			errs = append(errs, &AssertionError{Key: name, Expected: "<missing>", Actual: describe(got)})
		}
	}

	slices.SortFunc(errs, func(a, b *AssertionError) int { return strings.Compare(a.Key, b.Key) })
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return msgs
}
