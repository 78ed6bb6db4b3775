package harness

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed scenario.cue
var scenarioSchemaSource string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error

	// CUE values are not safe for concurrent evaluation.
	schemaMu sync.Mutex
)

// scenarioSchema compiles the embedded schema once per process.
func scenarioSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(scenarioSchemaSource, cue.Filename("scenario.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile scenario schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Scenario"))
		if err := schemaDef.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #Scenario: %w", err)
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

// validateSchema checks decoded YAML data against #Scenario.
func validateSchema(data any) error {
	ctx, def, err := scenarioSchema()
	if err != nil {
		return err
	}

	var errs ValidationErrors
	noSteps := missingSteps(data)
	if noSteps {
		errs = append(errs, ValidationError{Field: "steps", Message: "at least one step is required"})
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	doc := ctx.Encode(data)
	if err := doc.Err(); err != nil {
		return append(errs, schemaErrors(err)...)
	}
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		for _, e := range schemaErrors(err) {
			// CUE reports an absent list against its first element.
			if noSteps && (e.Field == "steps" || strings.HasPrefix(e.Field, "steps.")) {
				continue
			}
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// missingSteps reports whether a document has no steps list or an empty one.
func missingSteps(data any) bool {
	doc, ok := data.(map[string]any)
	if !ok {
		return false
	}
	steps, present := doc["steps"]
	if !present || steps == nil {
		return true
	}
	list, ok := steps.([]any)
	return ok && len(list) == 0
}

// schemaErrors flattens a CUE error list into ValidationErrors keyed by the
// path inside the scenario document.
func schemaErrors(err error) ValidationErrors {
	var out ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, ValidationError{
			Field:   documentPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Message: err.Error()})
	}
	return out
}

// documentPath drops the #Scenario definition label CUE puts in front of
// paths from the unified value.
func documentPath(path []string) string {
	if len(path) > 0 && path[0] == "#Scenario" {
		path = path[1:]
	}
	return strings.Join(path, ".")
}
