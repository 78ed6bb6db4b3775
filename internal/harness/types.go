package harness

import (
	"github.com/roach88/propstore/internal/txstore"
	"github.com/roach88/propstore/internal/value"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step int    `json:"step"`
	Op   string `json:"op"`
	// Tx is the scenario's transaction name; empty for Manager steps.
	Tx string `json:"tx,omitempty"`
	// TxID is the store-assigned ID of the transaction the step acted on.
	TxID string `json:"tx_id,omitempty"`
	Key  string `json:"key,omitempty"`
	// Value is the value written by set, or observed by get and committed.
	Value value.Value `json:"value,omitempty"`
	// Found reports whether get or committed found a value.
	Found *bool `json:"found,omitempty"`
	// Error is the error code the step returned.
	Error string `json:"error,omitempty"`
	// LogLen is the change log length after the step.
	LogLen int `json:"log_len"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and the final state matched.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors describes every mismatch. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final snapshot keyed by key name.
	State map[string]value.Value `json:"state"`

	// StateOrder lists State's keys in key ordinal order.
	StateOrder []string `json:"-"`

	Stats txstore.Stats `json:"stats"`
}

// NewResult creates a passing, empty result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]value.Value),
	}
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
