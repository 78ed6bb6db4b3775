package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/propstore/internal/value"
)

// Scenario is a parsed, validated harness scenario.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string

	Description string

	// Keys are created in declaration order, so key ordinals (and therefore
	// snapshot order) follow this list.
	Keys []KeyDecl

	Steps []Step

	// FinalState is compared against the store snapshot after the last step,
	// keyed by key name. Nil skips the comparison; an empty map asserts an
	// empty store.
	FinalState map[string]value.Value
}

// KeyDecl declares one property key.
type KeyDecl struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Nullable bool   `yaml:"nullable,omitempty"`
}

// Step is one scenario operation.
type Step struct {
	Op string

	// Tx names a transaction opened by an earlier begin step. Empty routes
	// set, delete, commit, rollback and close through the scenario's Manager.
	Tx string

	Key string

	// Value is the value written by set. value.Null{} for an explicit null.
	Value value.Value

	// Expect is the value get or committed must observe. Nil skips the check.
	Expect value.Value

	// Missing asserts that get or committed finds no value.
	Missing bool

	// Error is the expected error code. Empty expects success.
	Error string
}

// Step operations.
const (
	OpBegin     = "begin"
	OpSet       = "set"
	OpDelete    = "delete"
	OpCommit    = "commit"
	OpRollback  = "rollback"
	OpClose     = "close"
	OpGet       = "get"
	OpCommitted = "committed"
	OpRefresh   = "refresh"
)

// ValidationError is one problem found in a scenario.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found, not just the first.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// scenarioDoc mirrors the YAML layout. Value fields stay as nodes so an
// explicit `value: null` can be told apart from an absent field.
type scenarioDoc struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Keys        []KeyDecl `yaml:"keys"`
	Steps       []stepDoc `yaml:"steps"`
	FinalState  yaml.Node `yaml:"final_state"`
}

type stepDoc struct {
	Op      string    `yaml:"op"`
	Tx      string    `yaml:"tx"`
	Key     string    `yaml:"key"`
	Value   yaml.Node `yaml:"value"`
	Expect  yaml.Node `yaml:"expect"`
	Missing bool      `yaml:"missing"`
	Error   string    `yaml:"error"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML. Validation failures are
// returned as ValidationErrors.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, ValidationErrors{{Message: "failed to parse YAML: " + err.Error()}}
	}
	if raw == nil {
		return nil, ValidationErrors{{Message: "scenario is empty"}}
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc scenarioDoc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	s, errs := doc.build()
	errs = append(errs, validateScenario(s)...)
	if len(errs) > 0 {
		return nil, errs
	}
	return s, nil
}

func (d *scenarioDoc) build() (*Scenario, ValidationErrors) {
	var errs ValidationErrors
	s := &Scenario{
		Name:        d.Name,
		Description: d.Description,
		Keys:        d.Keys,
		Steps:       make([]Step, len(d.Steps)),
	}

	for i, sd := range d.Steps {
		field := fmt.Sprintf("steps.%d", i)
		step := Step{
			Op:      sd.Op,
			Tx:      sd.Tx,
			Key:     sd.Key,
			Missing: sd.Missing,
			Error:   sd.Error,
		}
		var err error
		if step.Value, err = nodeValue(&sd.Value); err != nil {
			errs = append(errs, ValidationError{Field: field + ".value", Message: err.Error()})
		}
		if step.Expect, err = nodeValue(&sd.Expect); err != nil {
			errs = append(errs, ValidationError{Field: field + ".expect", Message: err.Error()})
		}
		s.Steps[i] = step
	}

	if d.FinalState.Kind != 0 {
		var fs map[string]any
		if err := d.FinalState.Decode(&fs); err != nil {
			errs = append(errs, ValidationError{Field: "final_state", Message: err.Error()})
		}
		s.FinalState = make(map[string]value.Value, len(fs))
		for name, raw := range fs {
			v, err := value.FromAny(raw)
			if err != nil {
				errs = append(errs, ValidationError{Field: "final_state." + name, Message: err.Error()})
				continue
			}
			s.FinalState[name] = v
		}
	}
	return s, errs
}

// nodeValue converts an optional YAML node. Absent nodes yield nil.
func nodeValue(n *yaml.Node) (value.Value, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	var raw any
	if err := n.Decode(&raw); err != nil {
		return nil, err
	}
	return value.FromAny(raw)
}

// validateScenario checks what the schema cannot: cross references between
// keys, transactions and steps, and per-op required fields.
func validateScenario(s *Scenario) ValidationErrors {
	var errs ValidationErrors
	fail := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	keys := make(map[string]KeyDecl, len(s.Keys))
	for i, k := range s.Keys {
		if _, dup := keys[k.Name]; dup {
			fail(fmt.Sprintf("keys.%d", i), "duplicate key %q", k.Name)
		}
		keys[k.Name] = k
	}

	begun := make(map[string]bool)
	for i, step := range s.Steps {
		field := fmt.Sprintf("steps.%d", i)

		needsKey := step.Op == OpSet || step.Op == OpDelete || step.Op == OpGet || step.Op == OpCommitted
		if needsKey {
			if step.Key == "" {
				fail(field, "%s requires key", step.Op)
			} else if _, ok := keys[step.Key]; !ok {
				fail(field+".key", "undeclared key %q", step.Key)
			}
		} else if step.Key != "" {
			fail(field+".key", "%s takes no key", step.Op)
		}

		switch step.Op {
		case OpBegin:
			if step.Tx == "" {
				fail(field, "begin requires tx")
			} else if begun[step.Tx] {
				fail(field+".tx", "transaction %q already begun", step.Tx)
			}
			begun[step.Tx] = true
		case OpGet, OpCommitted, OpRefresh:
			if step.Tx != "" {
				fail(field+".tx", "%s reads the store, not a transaction", step.Op)
			}
		default:
			if step.Tx != "" && !begun[step.Tx] {
				fail(field+".tx", "transaction %q used before begin", step.Tx)
			}
		}

		if step.Op == OpSet && step.Value == nil {
			fail(field, "set requires value")
		}
		if step.Op != OpSet && step.Value != nil {
			fail(field+".value", "%s takes no value", step.Op)
		}
		if step.Expect != nil || step.Missing {
			if step.Op != OpGet && step.Op != OpCommitted {
				fail(field, "expect and missing apply only to get and committed")
			}
			if step.Expect != nil && step.Missing {
				fail(field, "expect and missing are mutually exclusive")
			}
		}
	}

	if s.FinalState != nil {
		for name := range s.FinalState {
			if _, ok := keys[name]; !ok {
				fail("final_state."+name, "undeclared key %q", name)
			}
		}
	}
	return errs
}
