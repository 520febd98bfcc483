// Package typemap maps schema type descriptors to Go type annotations.
//
// The mapping is a table lookup plus recursive composition. It is total:
// unknown or unmappable descriptors degrade to "any" rather than failing,
// so type mapping can never abort generation.
package typemap

import (
	"strings"

	"github.com/wippyai/bridge-runtime/schema"
)

var primitives = map[schema.Kind]string{
	schema.KindAny:    "any",
	schema.KindNone:   "any", // a none-typed value still travels as a nil any
	schema.KindBool:   "bool",
	schema.KindInt:    "int64",
	schema.KindFloat:  "float64",
	schema.KindString: "string",
	schema.KindBytes:  "[]byte",
	schema.KindObject: "*codec.Ref",
}

// Map returns the Go type annotation for a descriptor.
func Map(t schema.Type) string {
	switch t.Kind {
	case schema.KindList:
		if t.Elem == nil {
			return "[]any"
		}
		return "[]" + Map(*t.Elem)
	case schema.KindDict:
		key := "string"
		value := "any"
		if t.Key != nil {
			key = mapKey(*t.Key)
		}
		if t.Value != nil {
			value = Map(*t.Value)
		}
		return "map[" + key + "]" + value
	case schema.KindOptional:
		if t.Inner == nil {
			return "any"
		}
		return nullable(Map(*t.Inner))
	case schema.KindUnion:
		// Go has no sum type for heterogeneous foreign unions.
		return "any"
	default:
		if g, ok := primitives[t.Kind]; ok {
			return g
		}
		return "any"
	}
}

// mapKey maps a dict key descriptor. Go map keys must be comparable, so
// anything beyond the scalar kinds degrades to string (the wire layer
// carries non-string keys through tagged dicts instead).
func mapKey(t schema.Type) string {
	switch t.Kind {
	case schema.KindInt:
		return "int64"
	case schema.KindString:
		return "string"
	case schema.KindBool:
		return "bool"
	case schema.KindFloat:
		return "float64"
	default:
		return "string"
	}
}

// nullable renders an optional annotation. Reference-shaped Go types are
// already nullable; scalars gain a pointer.
func nullable(goType string) string {
	if goType == "any" {
		return "any"
	}
	if strings.HasPrefix(goType, "[]") ||
		strings.HasPrefix(goType, "map[") ||
		strings.HasPrefix(goType, "*") {
		return goType
	}
	return "*" + goType
}
