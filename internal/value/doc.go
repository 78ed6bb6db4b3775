// Package value defines the tagged values held by a property store.
//
// Every stored value is one of a closed set of variants (Null, String, Int,
// Bool, Array, Object). Each variant reports its Kind, and property keys carry
// the Kind they accept, so a heterogeneous store still has a fixed type per
// slot.
//
// Floats are not representable. Canonical JSON (MarshalCanonical) and the
// content hash (Hash) must produce identical bytes for identical values, and
// float formatting would break that.
package value
