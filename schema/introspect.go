package schema

import (
	"strings"

	json "github.com/goccy/go-json"

	"github.com/wippyai/bridge-runtime/errors"
)

// Raw introspection JSON shapes, as emitted by the foreign introspector.
// Two layouts exist: the flat v2.0 format (functions/classes at top level)
// and the namespaced v2.1 format (per-submodule namespaces map). Both
// normalize to the same Library.

type rawModule struct {
	Module        string                  `json:"module"`
	Version       string                  `json:"version"`
	ModuleVersion string                  `json:"module_version"`
	Error         string                  `json:"error"`
	Functions     []rawFunction           `json:"functions"`
	Classes       []rawClass              `json:"classes"`
	Namespaces    map[string]rawNamespace `json:"namespaces"`
}

type rawNamespace struct {
	Functions []rawFunction `json:"functions"`
	Classes   []rawClass    `json:"classes"`
}

type rawFunction struct {
	Name       string       `json:"name"`
	Docstring  rawDocstring `json:"docstring"`
	Parameters []rawParam   `json:"parameters"`
	ReturnType *rawType     `json:"return_type"`
}

type rawClass struct {
	Name       string        `json:"name"`
	Docstring  rawDocstring  `json:"docstring"`
	Methods    []rawFunction `json:"methods"`
	Properties []rawProperty `json:"properties"`
}

type rawProperty struct {
	Name string `json:"name"`
}

type rawParam struct {
	Name    string     `json:"name"`
	Kind    string     `json:"kind"`
	Type    *rawType   `json:"type"`
	Default rawDefault `json:"default"`
}

// rawDefault distinguishes an absent default from an explicit null one.
// A parameter defaulting to the foreign none value arrives as
// "default": null, which still means the parameter is optional.
type rawDefault struct {
	present bool
	text    string
}

func (d *rawDefault) UnmarshalJSON(data []byte) error {
	d.present = true
	d.text = string(data)
	return nil
}

// render gives the documentation form of the default.
func (d rawDefault) render() string {
	if d.text == "null" {
		return "None"
	}
	return strings.Trim(d.text, `"`)
}

type rawDocstring struct {
	Summary string `json:"summary"`
	Raw     string `json:"raw"`
}

type rawType struct {
	Type         string    `json:"type"`
	ElementType  *rawType  `json:"element_type"`
	ElementTypes []rawType `json:"element_types"`
	KeyType      *rawType  `json:"key_type"`
	ValueType    *rawType  `json:"value_type"`
	InnerType    *rawType  `json:"inner_type"`
	Types        []rawType `json:"types"`
}

// FromIntrospection normalizes introspector JSON into a validated Library.
func FromIntrospection(data []byte) (*Library, error) {
	var raw rawModule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindInvalidSchema, err, "parse introspection JSON")
	}
	if raw.Error != "" {
		return nil, errors.InvalidSchema([]string{raw.Module}, raw.Error)
	}
	if raw.Module == "" {
		return nil, errors.InvalidSchema(nil, "introspection output has no module name")
	}

	lib := &Library{
		Name:    raw.Module,
		Version: raw.ModuleVersion,
	}

	if raw.Namespaces != nil {
		if base, ok := raw.Namespaces[""]; ok {
			fillNamespace(lib, raw.Module, base)
		}
		for ns, content := range raw.Namespaces {
			if ns == "" {
				continue
			}
			sub := Library{Name: ns, Version: raw.ModuleVersion}
			fillNamespace(&sub, raw.Module+"."+ns, content)
			lib.Submodules = append(lib.Submodules, sub)
		}
		sortSubmodules(lib)
	} else {
		fillNamespace(lib, raw.Module, rawNamespace{Functions: raw.Functions, Classes: raw.Classes})
	}

	if err := Validate(lib); err != nil {
		return nil, err
	}
	return lib, nil
}

// sortSubmodules keeps map-sourced submodules in a stable order so
// regeneration from the same introspection output is deterministic.
func sortSubmodules(lib *Library) {
	subs := lib.Submodules
	for i := 1; i < len(subs); i++ {
		for j := i; j > 0 && subs[j].Name < subs[j-1].Name; j-- {
			subs[j], subs[j-1] = subs[j-1], subs[j]
		}
	}
}

func fillNamespace(lib *Library, prefix string, ns rawNamespace) {
	for _, rf := range ns.Functions {
		lib.Functions = append(lib.Functions, normalizeFunction(rf, prefix))
	}
	for _, rc := range ns.Classes {
		lib.Classes = append(lib.Classes, normalizeClass(rc, prefix))
	}
}

func normalizeFunction(rf rawFunction, prefix string) Function {
	f := Function{
		Name:    rf.Name,
		Path:    prefix + "." + rf.Name,
		Doc:     docText(rf.Docstring),
		Returns: normalizeType(rf.ReturnType),
	}
	for _, rp := range rf.Parameters {
		f.Params = append(f.Params, normalizeParam(rp))
	}
	return f
}

func normalizeClass(rc rawClass, prefix string) Class {
	c := Class{
		Name: rc.Name,
		Path: prefix + "." + rc.Name,
		Doc:  docText(rc.Docstring),
	}

	for _, rm := range rc.Methods {
		params := dropReceiver(rm.Parameters)
		if rm.Name == "__init__" {
			ctor := rawFunction{Name: rm.Name, Parameters: params}
			c.Constructor = normalizeFunction(ctor, prefix).Params
			continue
		}
		if strings.HasPrefix(rm.Name, "__") {
			continue
		}
		m := normalizeFunction(rawFunction{
			Name:       rm.Name,
			Docstring:  rm.Docstring,
			Parameters: params,
			ReturnType: rm.ReturnType,
		}, c.Path)
		c.Methods = append(c.Methods, m)
	}

	for _, rp := range rc.Properties {
		// Introspection cannot see a property setter, so a property is
		// read-only unless a manifest overrides it.
		c.Attributes = append(c.Attributes, Attribute{
			Name: rp.Name,
			Type: Any(),
		})
	}

	return c
}

// dropReceiver removes the implicit self/this parameter from a method
// signature.
func dropReceiver(params []rawParam) []rawParam {
	if len(params) > 0 && (params[0].Name == "self" || params[0].Name == "cls") {
		return params[1:]
	}
	return params
}

func normalizeParam(rp rawParam) Parameter {
	p := Parameter{
		Name: rp.Name,
		Kind: ParamKindFromName(rp.Kind),
		Type: normalizeType(rp.Type),
	}
	if rp.Default.present {
		p.HasDefault = true
		p.Default = rp.Default.render()
	}
	return p
}

// normalizeType maps the introspector's nested type dicts onto the
// descriptor variants. Unknown shapes degrade to any; normalization must
// never fail generation.
func normalizeType(rt *rawType) Type {
	if rt == nil {
		return Any()
	}
	switch rt.Type {
	case "none":
		return None()
	case "boolean", "bool":
		return Bool()
	case "int":
		return Int()
	case "float":
		return Float()
	case "string", "str":
		return String()
	case "bytes", "bytearray":
		return Bytes()
	case "list", "set", "frozenset", "tuple":
		// Homogeneous sequences map to lists; fixed-shape tuples have no
		// positional host equivalent and degrade to list of any.
		if rt.ElementType != nil {
			return List(normalizeType(rt.ElementType))
		}
		return List(Any())
	case "dict":
		if rt.KeyType != nil && rt.ValueType != nil {
			return Dict(normalizeType(rt.KeyType), normalizeType(rt.ValueType))
		}
		return Dict(Any(), Any())
	case "optional":
		return Optional(normalizeType(rt.InnerType))
	case "union":
		variants := make([]Type, 0, len(rt.Types))
		for i := range rt.Types {
			variants = append(variants, normalizeType(&rt.Types[i]))
		}
		if len(variants) == 0 {
			return Any()
		}
		return Union(variants...)
	case "class":
		return Object()
	default:
		return Any()
	}
}

func docText(d rawDocstring) string {
	if d.Summary != "" {
		return d.Summary
	}
	return d.Raw
}
