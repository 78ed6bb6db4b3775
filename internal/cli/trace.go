package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/propstore/internal/audit"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Key      string // optional - history of one key name
	TxID     string // optional - commits of one transaction ID
}

// TraceResult holds the trace output.
type TraceResult struct {
	Commits []audit.CommitRecord `json:"commits,omitempty"`
	History []audit.ChangeRecord `json:"history,omitempty"`
	Stats   TraceStats           `json:"stats"`
}

// TraceStats holds summary statistics for the journal.
type TraceStats struct {
	Commits int `json:"commits"`
	Forced  int `json:"forced"`
	Changes int `json:"changes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List journaled commits",
		Long: `List the commits journaled by "propstore run --db", oldest first.

Each commit shows its transaction, whether it was force-committed after being
abandoned, and its writes in issue order.

Examples:
  propstore trace --db ./audit.db
  propstore trace --db ./audit.db --tx tx-2
  propstore trace --db ./audit.db --key Count
  propstore trace --db ./audit.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required unless set in --config)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "show the history of one key name")
	cmd.Flags().StringVar(&opts.TxID, "tx", "", "show only commits of this transaction ID")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	if opts.Database == "" {
		opts.Database = opts.defaultDatabase()
	}
	if opts.Database == "" {
		return NewExitError(ExitCommandError, `required flag(s) "db" not set`)
	}

	// Opening creates missing files; a typo in --db should not leave an empty
	// journal behind.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeDatabase, fmt.Sprintf("journal not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	journal, err := audit.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer journal.Close()

	var result TraceResult
	if opts.Key != "" {
		history, err := journal.KeyHistory(ctx, opts.Key)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		result.History = history
		result.Stats.Changes = len(history)
	} else {
		commits, err := journal.Commits(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		for _, c := range commits {
			if opts.TxID != "" && c.TxID != opts.TxID {
				continue
			}
			result.Commits = append(result.Commits, c)
			result.Stats.Commits++
			result.Stats.Changes += len(c.Changes)
			if c.Forced {
				result.Stats.Forced++
			}
		}
	}

	if opts.Format == "json" {
		return formatter.JSON(result, nil)
	}
	writeTraceText(formatter.Writer, opts, result)
	return nil
}

func writeTraceText(w io.Writer, opts *TraceOptions, result TraceResult) {
	if opts.Key != "" {
		if len(result.History) == 0 {
			fmt.Fprintf(w, "No changes found for key: %s\n", opts.Key)
			return
		}
		fmt.Fprintf(w, "History of %s:\n", opts.Key)
		for _, c := range result.History {
			fmt.Fprintf(w, "  [%d] %s\n", c.Seq, describeChange(c))
		}
		return
	}

	if len(result.Commits) == 0 {
		fmt.Fprintln(w, "No commits found.")
		return
	}
	for _, c := range result.Commits {
		forced := ""
		if c.Forced {
			forced = " (forced)"
		}
		fmt.Fprintf(w, "commit %d  %s%s  %s\n", c.Seq, c.TxID, forced, shortDigest(c.Digest))
		for _, ch := range c.Changes {
			fmt.Fprintf(w, "  [%d] %s %s\n", ch.Seq, ch.Key, describeChange(ch))
		}
	}
	fmt.Fprintf(w, "\n%d commit(s), %d forced, %d change(s)\n",
		result.Stats.Commits, result.Stats.Forced, result.Stats.Changes)
}

func describeChange(c audit.ChangeRecord) string {
	if c.Deleted {
		return "deleted"
	}
	return "= " + renderValue(c.Value)
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
