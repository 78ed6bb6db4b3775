package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/propstore/internal/audit"
	"github.com/roach88/propstore/internal/harness"
	"github.com/roach88/propstore/internal/txstore"
	"github.com/roach88/propstore/internal/value"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// StateEntry is one key of the final snapshot.
type StateEntry struct {
	Key   string      `json:"key"`
	Value value.Value `json:"value"`
}

// RunOutput is the run command's JSON payload.
type RunOutput struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Errors   []string             `json:"errors,omitempty"`
	Trace    []harness.TraceEvent `json:"trace"`
	State    []StateEntry         `json:"state"`
	Stats    txstore.Stats        `json:"stats"`
	Journal  string               `json:"journal,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario against a fresh store",
		Long: `Run a scenario against a fresh in-memory store and report the result.

With --db, every commit (including forced commits of abandoned transactions)
is journaled to a SQLite database. Sequence numbers continue from the last
journaled commit, so one database can hold many runs.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed or is invalid
  2 - Command error (unreadable file, database error)

Examples:
  propstore run ./scenarios/count.yaml
  propstore run ./scenarios/count.yaml --db ./audit.db
  propstore run ./scenarios/count.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal commits to this SQLite database")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return loadFailure(formatter, err)
	}

	if opts.Database == "" {
		opts.Database = opts.defaultDatabase()
	}

	runOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Database != "" {
		journal, err := audit.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := journal.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		last, err := journal.LastSeq(cmd.Context())
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		formatter.VerboseLog("Journaling to %s after seq %d", opts.Database, last)
		runOpts = append(runOpts, harness.WithObserver(journal), harness.WithSeqStart(last))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeScenarioFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunOutput{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Errors:   result.Errors,
		Trace:    result.Trace,
		State:    orderedState(result),
		Stats:    result.Stats,
		Journal:  opts.Database,
	}

	if opts.Format == "json" {
		var cliErr *CLIError
		if !out.Pass {
			cliErr = &CLIError{
				Code:    ErrCodeScenarioFailed,
				Message: fmt.Sprintf("%d expectation(s) failed", len(out.Errors)),
			}
		}
		if err := formatter.JSON(out, cliErr); err != nil {
			return err
		}
	} else {
		writeRunText(formatter.Writer, out, opts.Verbose)
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// loadFailure reports a scenario that could not be loaded. Invalid scenarios
// are failures; unreadable files are command errors.
func loadFailure(formatter *OutputFormatter, err error) error {
	var verrs harness.ValidationErrors
	if errors.As(err, &verrs) {
		_ = formatter.Error(ErrCodeInvalidScenario, err.Error(), verrs)
		return WrapExitError(ExitFailure, "invalid scenario", err)
	}
	_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to load scenario", err)
}

func orderedState(result *harness.Result) []StateEntry {
	entries := make([]StateEntry, 0, len(result.StateOrder))
	for _, name := range result.StateOrder {
		entries = append(entries, StateEntry{Key: name, Value: result.State[name]})
	}
	return entries
}

func writeRunText(w io.Writer, out RunOutput, verbose bool) {
	mark := "✓"
	if !out.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (%d steps)\n", mark, out.Scenario, len(out.Trace))
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
	}

	if verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Trace:")
		for _, ev := range out.Trace {
			fmt.Fprintf(w, "  %s\n", formatTraceEvent(ev))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Final state:")
	if len(out.State) == 0 {
		fmt.Fprintln(w, "  (empty)")
	}
	for _, e := range out.State {
		fmt.Fprintf(w, "  %s = %s\n", e.Key, renderValue(e.Value))
	}
	if out.Journal != "" {
		fmt.Fprintf(w, "\nJournal: %s\n", out.Journal)
	}
}

func formatTraceEvent(ev harness.TraceEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", ev.Step, ev.Op)
	if ev.Tx != "" {
		fmt.Fprintf(&b, " %s", ev.Tx)
	}
	if ev.TxID != "" {
		fmt.Fprintf(&b, " (%s)", ev.TxID)
	}
	if ev.Key != "" {
		fmt.Fprintf(&b, " %s", ev.Key)
	}
	if ev.Found != nil && !*ev.Found {
		b.WriteString(" -> missing")
	} else if ev.Value != nil {
		fmt.Fprintf(&b, " -> %s", renderValue(ev.Value))
	}
	if ev.Error != "" {
		fmt.Fprintf(&b, " !%s", ev.Error)
	}
	fmt.Fprintf(&b, " log=%d", ev.LogLen)
	return b.String()
}

// renderValue prints a value as canonical JSON.
func renderValue(v value.Value) string {
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
