package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propstore/internal/value"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"count", "overlap", "type-errors"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_Canonical(t *testing.T) {
	found := true
	result := &Result{
		Trace: []TraceEvent{
			{Step: 0, Op: OpSet, TxID: "tx-1", Key: "k", Value: value.Null{}, LogLen: 1},
			{Step: 1, Op: OpGet, Key: "k", Value: value.Null{}, Found: &found, LogLen: 1},
		},
		State: map[string]value.Value{"k": value.Null{}},
	}

	data, err := MarshalTrace("t", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario":"t","state":{"k":null},"trace":[`+
			`{"key":"k","log_len":1,"op":"set","step":0,"tx_id":"tx-1","value":null},`+
			`{"found":true,"key":"k","log_len":1,"op":"get","step":1,"value":null}]}`,
		string(data))
}
