package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propstore/internal/txstore"
	"github.com/roach88/propstore/internal/value"
)

func mustParse(t *testing.T, content string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(content))
	require.NoError(t, err)
	return s
}

func TestRun_CountScenarioPasses(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/count.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Trace, len(s.Steps))
	assert.Equal(t, map[string]value.Value{"Count": value.Int(5)}, result.State)
	assert.Equal(t, 0, result.Stats.LogEntries)
	assert.Equal(t, 0, result.Stats.OpenTransactions)
}

func TestRun_ExpectationMismatch(t *testing.T) {
	s := mustParse(t, `
name: mismatch
description: wrong expectation
keys: [{name: k, kind: int}]
steps:
  - {op: set, key: k, value: 1}
  - {op: get, key: k, expect: 2}
  - {op: get, key: k, missing: true}
  - {op: commit}
  - {op: committed, key: k, expect: 1}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "step 1 (get k): expected 2, got 1")
	assert.Contains(t, result.Errors[1], "step 2 (get k): expected missing, got 1")
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	s := mustParse(t, `
name: no-error
description: error expected but the write succeeds
keys: [{name: k, kind: int}]
steps:
  - {op: set, key: k, value: 1, error: TYPE_MISMATCH}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected TYPE_MISMATCH, got success")
}

func TestRun_UnexpectedError(t *testing.T) {
	s := mustParse(t, `
name: unexpected
description: write of the wrong kind
keys: [{name: k, kind: int}]
steps:
  - {op: set, key: k, value: text}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Equal(t, "TYPE_MISMATCH", result.Trace[0].Error)
}

func TestRun_WrongErrorCode(t *testing.T) {
	s := mustParse(t, `
name: wrong-code
description: commit twice, expecting the wrong code
steps:
  - {op: begin, tx: t1}
  - {op: commit, tx: t1}
  - {op: commit, tx: t1, error: TRANSACTION_CLOSED}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected TRANSACTION_CLOSED, got TRANSACTION_ALREADY_CLOSED")
}

func TestRun_FinalStateMismatch(t *testing.T) {
	s := mustParse(t, `
name: final
description: final state differs
keys:
  - {name: a, kind: int}
  - {name: b, kind: int}
  - {name: c, kind: int}
steps:
  - {op: set, key: a, value: 1}
  - {op: set, key: c, value: 3}
  - {op: commit}
final_state:
  a: 2
  b: 1
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "final_state a")
	assert.Contains(t, result.Errors[1], "final_state b")
	assert.Contains(t, result.Errors[2], "final_state c")
}

func TestRun_UncommittedWritesAreVisibleInFinalState(t *testing.T) {
	s := mustParse(t, `
name: pending
description: writes are visible before commit
keys: [{name: k, kind: string}]
steps:
  - {op: begin, tx: t1}
  - {op: set, tx: t1, key: k, value: draft}
  - {op: committed, key: k, missing: true}
final_state:
  k: draft
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.Stats.OpenTransactions)
	assert.Equal(t, 1, result.Stats.LogEntries)
}

func TestRun_ManagerStepsReportHeldTransaction(t *testing.T) {
	s := mustParse(t, `
name: manager
description: manager starts a new transaction after each commit
keys: [{name: k, kind: int}]
steps:
  - {op: commit}
  - {op: set, key: k, value: 1}
  - {op: commit}
  - {op: set, key: k, value: 2}
  - {op: rollback}
  - {op: rollback, error: TRANSACTION_ALREADY_CLOSED}
final_state:
  k: 1
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	ids := make([]string, len(result.Trace))
	for i, ev := range result.Trace {
		ids[i] = ev.TxID
	}
	assert.Equal(t, []string{"", "tx-1", "tx-1", "tx-2", "tx-2", "tx-2"}, ids)
}

func TestRun_ObserverSeesCommits(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/overlap.yaml")
	require.NoError(t, err)

	var events []txstore.CommitEvent
	obs := txstore.ObserverFunc(func(ev txstore.CommitEvent) error {
		events = append(events, ev)
		return nil
	})

	result, err := Run(s, WithObserver(obs))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, events, 3)
	assert.Equal(t, "tx-2", events[0].TxID)
	assert.Equal(t, "tx-1", events[1].TxID)
	assert.True(t, events[1].Forced)
	assert.Equal(t, "tx-3", events[2].TxID)
	assert.False(t, events[2].Forced)
}

func TestRun_IsDeterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/overlap.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_StateOrderFollowsKeyDeclaration(t *testing.T) {
	s := mustParse(t, `
name: order
description: snapshot order is declaration order
keys:
  - {name: zeta, kind: int}
  - {name: alpha, kind: int}
steps:
  - {op: set, key: alpha, value: 1}
  - {op: set, key: zeta, value: 2}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, result.StateOrder)
}
