package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propstore/internal/value"
)

func TestCompareState(t *testing.T) {
	tests := []struct {
		name     string
		expected map[string]value.Value
		actual   map[string]value.Value
		errs     int
	}{
		{"both empty", map[string]value.Value{}, map[string]value.Value{}, 0},
		{
			"equal nested",
			map[string]value.Value{"o": value.Object{"a": value.Array{value.Int(1)}}},
			map[string]value.Value{"o": value.Object{"a": value.Array{value.Int(1)}}},
			0,
		},
		{
			"null is a value",
			map[string]value.Value{"n": value.Null{}},
			map[string]value.Value{},
			1,
		},
		{
			"different value",
			map[string]value.Value{"k": value.Int(1)},
			map[string]value.Value{"k": value.Int(2)},
			1,
		},
		{
			"extra actual",
			map[string]value.Value{},
			map[string]value.Value{"k": value.Bool(false)},
			1,
		},
		{
			"kind differs",
			map[string]value.Value{"k": value.String("1")},
			map[string]value.Value{"k": value.Int(1)},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, compareState(tt.expected, tt.actual), tt.errs)
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	msgs := compareState(
		map[string]value.Value{"count": value.Int(5)},
		map[string]value.Value{"count": value.Int(9)},
	)
	require.Len(t, msgs, 1)
	assert.Equal(t, "final_state count:\n  Expected: 5\n  Actual: 9", msgs[0])
}

func TestCompareState_Missing(t *testing.T) {
	msgs := compareState(
		map[string]value.Value{"k": value.String("v")},
		map[string]value.Value{},
	)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Actual: <missing>")
}
