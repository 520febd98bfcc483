package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/wippyai/bridge-runtime/errors"
)

// Decode converts a wire value tree back into host values. It is the
// exact inverse of Encode: bytes decode to Bytes, tagged dicts to
// TaggedDict, object references to Ref, tuples/sets/datetimes to their
// marker types. Unknown tags are a protocol error, not a silent map.
func Decode(v any) (any, error) {
	return decode(v, nil)
}

func decode(v any, path []string) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int64:
		return x, nil
	case float64:
		return x, nil
	case int:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, errors.New(errors.PhaseDecode, errors.KindSerialization).
				Path(path...).
				GoType("uint64").
				Value(x).
				Detail("wire integer overflows int64").
				Build()
		}
		return int64(x), nil
	case json.Number:
		return decodeNumber(x, path)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			dec, err := decode(item, childPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	case map[string]any:
		if tag, ok := x[tagKey].(string); ok {
			return decodeTagged(tag, x, path)
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			dec, err := decode(item, childPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		return out, nil
	}

	return nil, errors.New(errors.PhaseDecode, errors.KindSerialization).
		Path(path...).
		GoType(fmt.Sprintf("%T", v)).
		Value(v).
		Detail("value outside the wire-safe set").
		Build()
}

// decodeNumber normalizes JSON numbers: integral values become int64,
// everything else float64.
func decodeNumber(n json.Number, path []string) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindProtocol).
			Path(path...).
			Detail("unparseable wire number %q", string(n)).
			Build()
	}
	return f, nil
}

func decodeTagged(tag string, m map[string]any, path []string) (any, error) {
	switch tag {
	case tagBytes:
		data, ok := m["data"].(string)
		if !ok {
			return nil, protocolErr(path, "bytes tag without string data")
		}
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindProtocol, err, "bytes tag with invalid base64")
		}
		return Bytes(raw), nil

	case tagObjectRef:
		sid, _ := m["session_id"].(string)
		iid, _ := m["instance_id"].(string)
		if sid == "" || iid == "" {
			return nil, protocolErr(path, "object_ref tag missing session or instance id")
		}
		return Ref{SessionID: sid, InstanceID: iid}, nil

	case tagTuple:
		elems, err := decodeElements(m, path)
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil

	case tagSet:
		elems, err := decodeElements(m, path)
		if err != nil {
			return nil, err
		}
		return Set(elems), nil

	case tagDatetime:
		value, ok := m["value"].(string)
		if !ok {
			return nil, protocolErr(path, "datetime tag without string value")
		}
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindProtocol, err, "datetime tag with invalid timestamp")
		}
		return t, nil

	case tagSpecialFloat:
		switch m["value"] {
		case "infinity":
			return math.Inf(1), nil
		case "neg_infinity":
			return math.Inf(-1), nil
		case "nan":
			return math.NaN(), nil
		default:
			return nil, protocolErr(path, "special_float tag with unknown value")
		}

	case tagTaggedDict:
		rawPairs, ok := m["pairs"].([]any)
		if !ok {
			return nil, protocolErr(path, "tagged_dict without pairs")
		}
		td := TaggedDict{Pairs: make([]Pair, 0, len(rawPairs))}
		for i, rp := range rawPairs {
			pair, ok := rp.([]any)
			if !ok || len(pair) != 2 {
				return nil, protocolErr(path, fmt.Sprintf("tagged_dict pair %d malformed", i))
			}
			k, err := decode(pair[0], childPath(path, fmt.Sprintf("pairs[%d].key", i)))
			if err != nil {
				return nil, err
			}
			v, err := decode(pair[1], childPath(path, fmt.Sprintf("pairs[%d].value", i)))
			if err != nil {
				return nil, err
			}
			td.Pairs = append(td.Pairs, Pair{Key: k, Value: v})
		}
		return td, nil

	default:
		return nil, protocolErr(path, fmt.Sprintf("unknown wire tag %q", tag))
	}
}

func decodeElements(m map[string]any, path []string) ([]any, error) {
	raw, ok := m["elements"].([]any)
	if !ok {
		return nil, protocolErr(path, "tagged sequence without elements")
	}
	out := make([]any, len(raw))
	for i, item := range raw {
		dec, err := decode(item, childPath(path, strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		out[i] = dec
	}
	return out, nil
}

func protocolErr(path []string, detail string) *errors.Error {
	return errors.New(errors.PhaseDecode, errors.KindProtocol).
		Path(path...).
		Detail("%s", detail).
		Build()
}
