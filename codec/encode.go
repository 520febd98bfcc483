package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/wippyai/bridge-runtime/errors"
)

// Encode converts a host value into the wire-safe value tree. Any value
// with no wire representation fails with a serialization error naming the
// offending value, its Go type, and its path inside the tree.
func Encode(v any) (any, error) {
	return encode(v, nil)
}

// EncodeArgs encodes a positional argument list, reporting failures with
// an args-indexed path.
func EncodeArgs(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		enc, err := encode(a, []string{"args", strconv.Itoa(i)})
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

// EncodeKwargs encodes a keyword argument map, reporting failures with a
// kwargs-keyed path.
func EncodeKwargs(kwargs map[string]any) (map[string]any, error) {
	if kwargs == nil {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		enc, err := encode(v, []string{"kwargs", k})
		if err != nil {
			return nil, err
		}
		out[k] = enc
	}
	return out, nil
}

// childPath copies before extending so sibling paths never alias.
func childPath(path []string, seg string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = seg
	return out
}

func tagged(tag string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	out[tagKey] = tag
	out[schemaKey] = schemaVersion
	return out
}

func encode(v any, path []string) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return encodeUint(uint64(x), path)
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return encodeUint(x, path)
	case float32:
		return encodeFloat(float64(x)), nil
	case float64:
		return encodeFloat(x), nil
	case []byte:
		return tagged(tagBytes, map[string]any{"data": base64.StdEncoding.EncodeToString(x)}), nil
	case Bytes:
		return tagged(tagBytes, map[string]any{"data": base64.StdEncoding.EncodeToString(x)}), nil
	case Ref:
		return encodeRef(x), nil
	case *Ref:
		if x == nil {
			return nil, nil
		}
		return encodeRef(*x), nil
	case time.Time:
		return tagged(tagDatetime, map[string]any{"value": x.Format(time.RFC3339Nano)}), nil
	case Tuple:
		elems, err := encodeSeq([]any(x), path)
		if err != nil {
			return nil, err
		}
		return tagged(tagTuple, map[string]any{"elements": elems}), nil
	case Set:
		elems, err := encodeSeq([]any(x), path)
		if err != nil {
			return nil, err
		}
		return tagged(tagSet, map[string]any{"elements": elems}), nil
	case TaggedDict:
		return encodeTaggedDict(x, path)
	case []any:
		return encodeSeq(x, path)
	case map[string]any:
		return encodeStringMap(x, path)
	}

	return encodeReflect(v, path)
}

func encodeRef(r Ref) map[string]any {
	return tagged(tagObjectRef, map[string]any{
		"session_id":  r.SessionID,
		"instance_id": r.InstanceID,
	})
}

func encodeUint(x uint64, path []string) (any, error) {
	if x > math.MaxInt64 {
		return nil, errors.New(errors.PhaseEncode, errors.KindSerialization).
			Path(path...).
			GoType("uint64").
			Value(x).
			Detail("value overflows the wire integer range").
			Build()
	}
	return int64(x), nil
}

func encodeFloat(f float64) any {
	switch {
	case math.IsInf(f, 1):
		return tagged(tagSpecialFloat, map[string]any{"value": "infinity"})
	case math.IsInf(f, -1):
		return tagged(tagSpecialFloat, map[string]any{"value": "neg_infinity"})
	case math.IsNaN(f):
		return tagged(tagSpecialFloat, map[string]any{"value": "nan"})
	default:
		return f
	}
}

func encodeSeq(items []any, path []string) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		enc, err := encode(item, childPath(path, strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

func encodeStringMap(m map[string]any, path []string) (any, error) {
	// A user map that happens to carry the reserved tag key would be
	// indistinguishable from a marker value; route it through a tagged
	// dict so nothing is ever misread on the other side.
	if _, reserved := m[tagKey]; reserved {
		td := TaggedDict{Pairs: make([]Pair, 0, len(m))}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			td.Pairs = append(td.Pairs, Pair{Key: k, Value: m[k]})
		}
		return encodeTaggedDict(td, path)
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		enc, err := encode(v, childPath(path, k))
		if err != nil {
			return nil, err
		}
		out[k] = enc
	}
	return out, nil
}

func encodeTaggedDict(td TaggedDict, path []string) (any, error) {
	pairs := make([]any, 0, len(td.Pairs))
	for i, p := range td.Pairs {
		k, err := encode(p.Key, childPath(path, fmt.Sprintf("pairs[%d].key", i)))
		if err != nil {
			return nil, err
		}
		v, err := encode(p.Value, childPath(path, fmt.Sprintf("pairs[%d].value", i)))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, []any{k, v})
	}
	return tagged(tagTaggedDict, map[string]any{"pairs": pairs}), nil
}

// encodeReflect handles remaining slices, arrays, maps, and pointers.
// Everything else is unrepresentable and fails fast.
func encodeReflect(v any, path []string) (any, error) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return encode(rv.Elem().Interface(), path)

	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return encodeSeq(items, path)

	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return encodeStringMap(m, path)
		}
		// Non-string keys are preserved as ordered pairs, never coerced
		// to strings. Pairs sort by rendered key so encoding a Go map is
		// deterministic.
		type kv struct {
			label string
			key   any
			value any
		}
		entries := make([]kv, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().Interface()
			entries = append(entries, kv{
				label: fmt.Sprintf("%v", k),
				key:   k,
				value: iter.Value().Interface(),
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].label < entries[j].label })

		td := TaggedDict{Pairs: make([]Pair, len(entries))}
		for i, e := range entries {
			td.Pairs[i] = Pair{Key: e.key, Value: e.value}
		}
		return encodeTaggedDict(td, path)
	}

	return nil, errors.Serialization(errors.PhaseEncode, path, v)
}
