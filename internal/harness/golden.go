package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/propstore/internal/value"
)

// TraceSnapshot is the golden-file form of a run.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	State        map[string]value.Value
}

// toCanonicalMap converts the snapshot to plain data for canonical JSON.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"step":    int64(ev.Step),
			"op":      ev.Op,
			"log_len": int64(ev.LogLen),
		}
		if ev.Tx != "" {
			m["tx"] = ev.Tx
		}
		if ev.TxID != "" {
			m["tx_id"] = ev.TxID
		}
		if ev.Key != "" {
			m["key"] = ev.Key
		}
		if ev.Value != nil {
			m["value"] = ev.Value
		}
		if ev.Found != nil {
			m["found"] = *ev.Found
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		trace[i] = m
	}

	state := make(map[string]any, len(s.State))
	for k, v := range s.State {
		state[k] = v
	}
	return map[string]any{
		"scenario": s.ScenarioName,
		"trace":    trace,
		"state":    state,
	}
}

// MarshalTrace renders a result as canonical JSON.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		State:        result.State,
	}
	return value.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden runs a scenario and compares its canonical trace against
// testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalTrace(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
