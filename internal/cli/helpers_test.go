package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: passing
description: commit then read back
keys:
  - {name: Count, kind: int}
  - {name: Label, kind: string}
steps:
  - {op: begin, tx: t1}
  - {op: set, tx: t1, key: Count, value: 5}
  - {op: set, tx: t1, key: Label, value: five}
  - {op: commit, tx: t1}
  - {op: begin, tx: t2}
  - {op: delete, tx: t2, key: Label}
  - {op: close, tx: t2}
  - {op: get, key: Count, expect: 5}
final_state:
  Count: 5
`

const failingScenario = `
name: failing
description: expects the wrong value
keys:
  - {name: Count, kind: int}
steps:
  - {op: set, key: Count, value: 1}
  - {op: get, key: Count, expect: 2}
`

const invalidScenario = `
name: invalid
description: unknown op
steps:
  - {op: upsert}
`

// writeScenario writes content to dir/name and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// executeCommand runs the root command with args and returns stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
