// Package harness runs YAML scenarios against a fresh transactional store and
// records a deterministic trace of every step.
//
// A scenario declares its property keys, then a list of steps. Steps either
// name a transaction (`tx: t1`) or go through the scenario's Manager:
//
//	name: count
//	description: two overlapping transactions
//	keys:
//	  - {name: count, kind: int}
//	steps:
//	  - {op: begin, tx: t1}
//	  - {op: set, tx: t1, key: count, value: 1}
//	  - {op: get, key: count, expect: 1}
//	  - {op: commit, tx: t1}
//	final_state:
//	  count: 1
//
// Scenarios are validated twice: structurally against an embedded CUE schema
// (unknown fields, unknown ops and error codes are rejected), then
// semantically (keys and transactions must be declared before use).
//
// Every run uses a fixed transaction ID generator ("tx-1", "tx-2", ...) and a
// deterministic clock, so the trace is byte-identical across runs and can be
// compared against golden files with RunWithGolden.
package harness
