package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/propstore/internal/property"
	"github.com/roach88/propstore/internal/testutil"
	"github.com/roach88/propstore/internal/txstore"
	"github.com/roach88/propstore/internal/value"
)

// Option configures a run.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	observers []txstore.Observer
	seqStart  int64
}

// WithLogger sets the store logger. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver subscribes o to the run's store, e.g. an audit journal.
func WithObserver(o txstore.Observer) Option {
	return func(c *config) {
		c.observers = append(c.observers, o)
	}
}

// WithSeqStart starts the run's sequence numbers after n, so commits of
// successive runs journaled to the same database do not collide.
func WithSeqStart(n int64) Option {
	return func(c *config) {
		c.seqStart = n
	}
}

// Harness holds the state of one run.
type Harness struct {
	store   *txstore.Store
	manager *txstore.Manager
	keys    map[string]*property.Key
	txs     map[string]*txstore.Transaction
	logger  *slog.Logger
}

// Run executes a scenario against a fresh store and returns the result.
//
// Expectation mismatches are reported in Result.Errors, not as an error; the
// returned error is reserved for scenarios that cannot run at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	storeOpts := []txstore.Option{
		txstore.WithLogger(cfg.logger),
		txstore.WithIDGenerator(testutil.NewFixedIDGenerator("tx")),
		txstore.WithSequencer(testutil.NewDeterministicClockAt(cfg.seqStart)),
	}
	for _, o := range cfg.observers {
		storeOpts = append(storeOpts, txstore.WithObserver(o))
	}
	st := txstore.New(storeOpts...)

	h := &Harness{
		store:   st,
		manager: st.CreateManager(),
		keys:    make(map[string]*property.Key, len(scenario.Keys)),
		txs:     make(map[string]*txstore.Transaction),
		logger:  cfg.logger,
	}
	for _, decl := range scenario.Keys {
		kind, err := value.ParseKind(decl.Kind)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", decl.Name, err)
		}
		var kopts []property.KeyOption
		if decl.Nullable {
			kopts = append(kopts, property.Nullable())
		}
		h.keys[decl.Name] = property.NewKey(decl.Name, kind, kopts...)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	h.captureState(result)
	if scenario.FinalState != nil {
		for _, msg := range compareState(scenario.FinalState, result.State) {
			result.AddError(msg)
		}
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"pass", result.Pass,
	)
	return result, nil
}

// execute runs one step, appends its trace event and checks expectations.
func (h *Harness) execute(i int, step Step, result *Result) error {
	ev := TraceEvent{Step: i, Op: step.Op, Tx: step.Tx, Key: step.Key}

	var key *property.Key
	if step.Key != "" {
		key = h.keys[step.Key]
		if key == nil {
			return fmt.Errorf("undeclared key %q", step.Key)
		}
	}
	var tx *txstore.Transaction
	if step.Tx != "" && step.Op != OpBegin {
		tx = h.txs[step.Tx]
		if tx == nil {
			return fmt.Errorf("transaction %q used before begin", step.Tx)
		}
	}

	var err error
	switch step.Op {
	case OpBegin:
		tx = h.store.CreateTransaction()
		h.txs[step.Tx] = tx
	case OpSet:
		ev.Value = step.Value
		if tx != nil {
			err = tx.Set(key, step.Value)
		} else {
			err = h.manager.Set(key, step.Value)
		}
	case OpDelete:
		if tx != nil {
			err = tx.Delete(key)
		} else {
			err = h.manager.Delete(key)
		}
	case OpCommit:
		if tx != nil {
			err = tx.Commit()
		} else {
			err = h.manager.Commit()
		}
	case OpRollback:
		if tx != nil {
			err = tx.Rollback()
		} else {
			err = h.manager.Rollback()
		}
	case OpClose:
		if tx != nil {
			err = tx.Close()
		} else {
			err = h.manager.Close()
		}
	case OpGet:
		var v value.Value
		v, err = h.store.Lookup(key)
		h.observe(&ev, step, v, err, result)
	case OpCommitted:
		v, ok := h.store.GetCommitted(key)
		if !ok {
			err = property.NotFound(key)
		}
		h.observe(&ev, step, v, err, result)
	case OpRefresh:
		h.store.Refresh()
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	if tx == nil && step.Tx == "" {
		tx = h.manager.Held()
	}
	if tx != nil && step.Op != OpGet && step.Op != OpCommitted && step.Op != OpRefresh {
		ev.TxID = tx.ID()
	}
	ev.Error = errorCode(err)
	h.checkError(i, step, err, result)

	ev.LogLen = h.store.Stats().LogEntries
	result.Trace = append(result.Trace, ev)
	return nil
}

// observe records a read and checks expect and missing.
func (h *Harness) observe(ev *TraceEvent, step Step, v value.Value, err error, result *Result) {
	found := err == nil
	ev.Found = &found
	if found {
		ev.Value = v
	}

	switch {
	case step.Missing && found:
		result.AddError(fmt.Sprintf("step %d (%s %s): expected missing, got %s",
			ev.Step, step.Op, step.Key, describe(v)))
	case step.Expect != nil && !found:
		result.AddError(fmt.Sprintf("step %d (%s %s): expected %s, got missing",
			ev.Step, step.Op, step.Key, describe(step.Expect)))
	case step.Expect != nil && !value.Equal(step.Expect, v):
		result.AddError(fmt.Sprintf("step %d (%s %s): expected %s, got %s",
			ev.Step, step.Op, step.Key, describe(step.Expect), describe(v)))
	}
}

// checkError compares a step's error code against the expected one. A
// missing key on a read is an observation, not a failure, unless the step
// expects a different error.
func (h *Harness) checkError(i int, step Step, err error, result *Result) {
	got := errorCode(err)
	if got == step.Error {
		return
	}
	if step.Error == "" && got == string(property.ErrCodeKeyNotFound) &&
		(step.Op == OpGet || step.Op == OpCommitted) {
		return
	}

	switch {
	case step.Error == "":
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i, step.Op, err))
	case got == "":
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got success", i, step.Op, step.Error))
	default:
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s", i, step.Op, step.Error, got))
	}
}

// errorCode maps err to its code; errors without one report UNKNOWN.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := txstore.Code(err); code != "" {
		return code
	}
	return "UNKNOWN"
}

func (h *Harness) captureState(result *Result) {
	for _, e := range h.store.Snapshot() {
		name := e.Key.Name()
		result.State[name] = e.Value
		result.StateOrder = append(result.StateOrder, name)
	}
	result.Stats = h.store.Stats()
}

// describe renders a value as canonical JSON for messages.
func describe(v value.Value) string {
	if v == nil {
		return "<none>"
	}
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
