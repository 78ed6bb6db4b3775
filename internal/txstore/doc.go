// Package txstore implements the transactional property store.
//
// A Store keeps three structures under one guard:
//
//   - the baseline, a property.PlainStore holding compacted state
//   - the change log, an append-only list of (transaction, key, value or
//     tombstone) records
//   - the pending view, a cache derived from the change log
//
// WRITES ARE VISIBLE BEFORE COMMIT:
// Transaction.Set appends to the change log and patches the pending view in
// the same critical section, so every reader sees the write immediately,
// whether or not the writing transaction later commits. Get consults the
// pending view first and falls back to the baseline.
//
// REFRESH:
// Commit and Rollback end with Refresh, which
//  1. walks the log oldest-first, folding committed records into the baseline
//     and dropping rolled-back ones, and stops at the first record owned by a
//     still-open transaction
//  2. rebuilds the pending view from whatever remains, in log order
//
// A still-open transaction therefore blocks compaction of everything logged
// after it, even records of transactions that already committed. Records
// reach the baseline in log order, never in commit-time order.
//
// LOCK ORDER:
// Manager guard, then store guard, then a transaction's own guard. Nothing
// takes them in the reverse order. Get takes only the store guard.
//
// ABANDONED TRANSACTIONS:
// A transaction that is never committed or rolled back would block Refresh
// forever. Transaction.Close force-commits an open transaction and is meant to
// be deferred; a runtime cleanup on the handle does the same if the handle
// becomes unreachable while still open. Abandonment resolves to commit, not
// rollback, because the writes were already visible to readers.
package txstore
