package codec

// Marker tag vocabulary. Tagged values travel as maps with a reserved
// "__type__" key; the schema field versions the tag layout itself.
const (
	tagKey    = "__type__"
	schemaKey = "__schema__"

	// schemaVersion is the version of the tagged-value layout, bumped only
	// when an existing tag changes shape.
	schemaVersion = int64(1)

	tagBytes        = "bytes"
	tagTaggedDict   = "tagged_dict"
	tagObjectRef    = "object_ref"
	tagTuple        = "tuple"
	tagSet          = "set"
	tagDatetime     = "datetime"
	tagSpecialFloat = "special_float"
)

// Ref is an opaque handle to a foreign object that cannot be flattened
// into a wire-safe value. It is never dereferenced locally and is only
// valid for the lifetime of its owning session.
type Ref struct {
	SessionID  string
	InstanceID string
}

// Bytes marks a binary payload. Binary data is always explicit on the
// wire; it is never inferred from a text value.
type Bytes []byte

// Tuple is a fixed-shape foreign sequence. It decodes back to Tuple, not
// to a plain list, so the foreign side can reconstruct the original type.
type Tuple []any

// Set is an unordered foreign collection. Element order on the wire is
// the encoder's iteration order; the foreign side rebuilds the set.
type Set []any

// Pair is one ordered key/value entry of a TaggedDict.
type Pair struct {
	Key   any
	Value any
}

// TaggedDict preserves a map whose keys are not all strings: integers,
// tuples, composite keys. Entries stay ordered [key, value] pairs on the
// wire and are never coerced to string keys.
type TaggedDict struct {
	Pairs []Pair
}
