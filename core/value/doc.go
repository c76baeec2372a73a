// Package value defines the closed, typed value set that source records carry
// through the sync pipeline.
//
// Source systems hand us loosely-typed field maps (decoded JSON). FromAny
// converts such input once, at ingestion, into the sealed Value variant:
// Null, String, Number, Bool, List or Object. Everything downstream (checksum
// computation, change planning, storage) operates on this closed set and never
// sees raw interface{} soup.
//
// # Canonical serialization
//
// MarshalCanonical produces a deterministic byte representation: object keys
// are sorted, strings are NFC-normalized, HTML characters are not escaped, and
// numbers use the shortest round-trip form. Two structurally equal values
// always serialize identically regardless of map iteration order, which is
// what makes content checksums stable across runs.
//
// NaN and infinities cannot be represented and serialization reports an error
// for them, as it does for any type outside the sealed set.
package value
