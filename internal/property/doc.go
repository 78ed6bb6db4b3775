// Package property provides identity-keyed, type-checked property slots.
//
// A Key is an opaque token: two keys are the same slot only if they are the
// same *Key. Names are for diagnostics, so independently created keys with the
// same name and kind never collide. This lets a component keep a private key
// that no other component can address.
//
// Each key also takes a creation ordinal from a process-wide counter. The
// ordinal is the only package-level state and is used for nothing but
// iteration order in stores; it never decides whether two keys are equal.
//
// PlainStore is the simplest store over those keys: a mapping with a type check
// on every write and no transactions. The transactional store in
// internal/txstore uses it as its baseline.
package property
