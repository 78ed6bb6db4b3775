package audit

import (
	"context"
	"fmt"

	"github.com/roach88/propstore/internal/txstore"
	"github.com/roach88/propstore/internal/value"
)

// OnCommit implements txstore.Observer.
func (j *Journal) OnCommit(ev txstore.CommitEvent) error {
	return j.Record(context.Background(), ev)
}

// Record writes a commit event and its changes in one SQL transaction.
// Recording the same commit seq twice is a no-op.
func (j *Journal) Record(ctx context.Context, ev txstore.CommitEvent) error {
	digest, err := commitDigest(ev)
	if err != nil {
		return fmt.Errorf("record commit %d: %w", ev.Seq, err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record commit %d: begin: %w", ev.Seq, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO commits (seq, tx_id, tx_seq, forced, digest)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`, ev.Seq, ev.TxID, ev.TxSeq, boolInt(ev.Forced), digest)
	if err != nil {
		return fmt.Errorf("record commit %d: insert: %w", ev.Seq, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("record commit %d: rows affected: %w", ev.Seq, err)
	} else if n == 0 {
		return nil
	}

	for i, c := range ev.Changes {
		var encoded any
		if !c.Deleted {
			data, err := value.MarshalCanonical(c.Value)
			if err != nil {
				return fmt.Errorf("record commit %d: change %d: %w", ev.Seq, i, err)
			}
			encoded = string(data)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO changes (commit_seq, position, change_seq, key_name, key_kind, deleted, value)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, ev.Seq, i, c.Seq, c.Key.Name(), c.Key.Kind().String(), boolInt(c.Deleted), encoded)
		if err != nil {
			return fmt.Errorf("record commit %d: change %d: %w", ev.Seq, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record commit %d: commit: %w", ev.Seq, err)
	}
	return nil
}

// commitDigest content-addresses a commit so tooling can compare journals
// across runs.
func commitDigest(ev txstore.CommitEvent) (string, error) {
	changes := make(value.Array, len(ev.Changes))
	for i, c := range ev.Changes {
		entry := value.Object{
			"key":  value.String(c.Key.Name()),
			"kind": value.String(c.Key.Kind().String()),
		}
		if c.Deleted {
			entry["deleted"] = value.Bool(true)
		} else {
			entry["value"] = c.Value
		}
		changes[i] = entry
	}
	return value.Hash(value.DomainCommit, value.Object{
		"tx_id":   value.String(ev.TxID),
		"tx_seq":  value.Int(ev.TxSeq),
		"seq":     value.Int(ev.Seq),
		"changes": changes,
	})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
