package txstore

import "github.com/google/uuid"

// IDGenerator names transactions for logs, commit events and the audit
// journal. Implemented by UUIDv7Generator and, in tests, by
// testutil.FixedIDGenerator.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator produces time-sortable UUIDv7 transaction IDs.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. Panics if the system random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
