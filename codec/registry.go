package codec

import (
	"bytes"
	"reflect"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	json "github.com/goccy/go-json"
)

// PayloadCodec marshals wire value trees and payload structs to bytes.
// Implementations must be deterministic for equal inputs and safe for
// concurrent use.
type PayloadCodec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Registry maps content types to payload codecs.
type Registry struct {
	byType map[string]PayloadCodec
}

// NewRegistry constructs a registry preloaded with the JSON and CBOR
// codecs.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]PayloadCodec)}
	r.Register(JSON())
	r.Register(CBOR())
	return r
}

// Register adds a codec, replacing any previous codec for the same
// content type.
func (r *Registry) Register(c PayloadCodec) {
	r.byType[c.ContentType()] = c
}

// Get returns the codec for a content type, or nil.
func (r *Registry) Get(contentType string) PayloadCodec {
	return r.byType[contentType]
}

// jsonCodec is the default payload codec. Numbers decode through
// json.Number so wire integers survive as int64; floats marshal through
// jsonNumber so a whole-valued float never collapses into an integer.
type jsonCodec struct{}

// JSON returns the JSON payload codec.
func JSON() PayloadCodec { return jsonCodec{} }

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(jsonSafe(v))
}

// jsonNumber marshals a float with an explicit decimal point or
// exponent, so 3.0 travels as "3.0" and decodes back as a float rather
// than a wire integer.
type jsonNumber float64

func (f jsonNumber) MarshalJSON() ([]byte, error) {
	s := strconv.FormatFloat(float64(f), 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

// jsonSafe rewrites every float in a wire value tree, or in the payload
// structs that embed one, as jsonNumber before marshaling.
func jsonSafe(v any) any {
	switch x := v.(type) {
	case float64:
		return jsonNumber(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = jsonSafe(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = jsonSafe(item)
		}
		return out
	case Payload:
		x.Target = jsonSafe(x.Target)
		x.Args = jsonSafeSlice(x.Args)
		x.Kwargs = jsonSafeMap(x.Kwargs)
		x.Runtime.OverflowArgs = jsonSafeSlice(x.Runtime.OverflowArgs)
		return x
	case *Payload:
		if x == nil {
			return x
		}
		return jsonSafe(*x)
	case Envelope:
		x.Result = jsonSafe(x.Result)
		return x
	case *Envelope:
		if x == nil {
			return x
		}
		return jsonSafe(*x)
	case Chunk:
		x.Data = jsonSafe(x.Data)
		return x
	case *Chunk:
		if x == nil {
			return x
		}
		return jsonSafe(*x)
	}
	return v
}

func jsonSafeSlice(items []any) []any {
	if items == nil {
		return nil
	}
	return jsonSafe(items).([]any)
}

func jsonSafeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return jsonSafe(m).(map[string]any)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// cborCodec is the compact binary payload codec. Encoding uses the
// deterministic core mode; decoding forces string-keyed maps so the
// decoded tree matches the wire-safe set.
type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns the CBOR payload codec.
func CBOR() PayloadCodec {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return cborCodec{enc: enc, dec: dec}
}

func (c cborCodec) ContentType() string { return "application/cbor" }

func (c cborCodec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c cborCodec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
