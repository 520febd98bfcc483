// Package codec converts values between host representation and the
// wire-safe value set shared with the foreign runtime.
//
// The wire-safe set is: nil, bool, int64, float64, string, ordered lists,
// and string-keyed maps, plus tagged marker values for everything that
// cannot be flattened: explicit bytes, tagged dicts (non-string keys),
// object references, tuples, sets, datetimes, and non-finite floats.
//
// Encoding is fail-closed: a host value with no wire representation (a
// function, a channel, an arbitrary struct) is a SerializationError
// carrying the value's path and type, never a degraded stand-in. Decoding
// is the exact inverse and round-trips every tagged value without loss.
//
// Marshaling the wire tree to bytes is a separate concern handled by the
// payload codec registry (JSON and CBOR).
package codec
