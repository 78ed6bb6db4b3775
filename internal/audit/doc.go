// Package audit records committed transactions in a SQLite journal.
//
// A Journal is a txstore.Observer: subscribe it to a store and every commit
// event (including forced commits of abandoned transactions) is written as
// one commits row plus one changes row per write, in issue order. Values are
// stored as canonical JSON.
//
// The journal is an audit trail for tooling (see `propstore trace`). The
// property store itself stays purely in memory and is never restored from
// the journal.
//
// # Database configuration
//
//   - WAL mode: readers do not block the writer
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package audit
