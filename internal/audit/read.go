package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/propstore/internal/value"
)

// CommitRecord is a journaled commit.
type CommitRecord struct {
	Seq     int64          `json:"seq"`
	TxID    string         `json:"tx_id"`
	TxSeq   int64          `json:"tx_seq"`
	Forced  bool           `json:"forced"`
	Digest  string         `json:"digest"`
	Changes []ChangeRecord `json:"changes"`
}

// ChangeRecord is one journaled write. Value is nil for deletes.
type ChangeRecord struct {
	Seq     int64       `json:"seq"`
	Key     string      `json:"key"`
	Kind    string      `json:"kind"`
	Deleted bool        `json:"deleted"`
	Value   value.Value `json:"value,omitempty"`
}

// Commits returns every journaled commit with its changes, ordered by seq.
// Returns an empty slice, not nil, for an empty journal.
func (j *Journal) Commits(ctx context.Context) ([]CommitRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, tx_id, tx_seq, forced, digest
		FROM commits
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	commits := []CommitRecord{}
	for rows.Next() {
		var c CommitRecord
		var forced int
		if err := rows.Scan(&c.Seq, &c.TxID, &c.TxSeq, &forced, &c.Digest); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		c.Forced = forced == 1
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	rows.Close()

	for i := range commits {
		changes, err := j.Changes(ctx, commits[i].Seq)
		if err != nil {
			return nil, err
		}
		commits[i].Changes = changes
	}
	return commits, nil
}

// LastSeq returns the highest journaled commit seq, or 0 for an empty journal.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM commits`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

// Changes returns the writes of one commit in issue order.
func (j *Journal) Changes(ctx context.Context, commitSeq int64) ([]ChangeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT change_seq, key_name, key_kind, deleted, value
		FROM changes
		WHERE commit_seq = ?
		ORDER BY position ASC
	`, commitSeq)
	if err != nil {
		return nil, fmt.Errorf("query changes for commit %d: %w", commitSeq, err)
	}
	defer rows.Close()
	return scanChanges(rows)
}

// KeyHistory returns every journaled write to keys with the given name, oldest
// first. Names are not identities; distinct keys sharing a name are merged.
func (j *Journal) KeyHistory(ctx context.Context, name string) ([]ChangeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT change_seq, key_name, key_kind, deleted, value
		FROM changes
		WHERE key_name = ?
		ORDER BY commit_seq ASC, position ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query history for %q: %w", name, err)
	}
	defer rows.Close()
	return scanChanges(rows)
}

func scanChanges(rows *sql.Rows) ([]ChangeRecord, error) {
	changes := []ChangeRecord{}
	for rows.Next() {
		var c ChangeRecord
		var deleted int
		var raw sql.NullString
		if err := rows.Scan(&c.Seq, &c.Key, &c.Kind, &deleted, &raw); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.Deleted = deleted == 1
		if raw.Valid {
			v, err := value.Parse([]byte(raw.String))
			if err != nil {
				return nil, fmt.Errorf("decode value of %q: %w", c.Key, err)
			}
			c.Value = v
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return changes, nil
}
