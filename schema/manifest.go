package schema

import (
	"fmt"
	"strings"

	"github.com/coreos/go-semver/semver"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/bridge-runtime/errors"
)

// Manifest is the hand-curated alternative to live introspection. It
// normalizes into the same Library shape the generator consumes, and may
// carry a version pin checked against the introspected library version.
type Manifest struct {
	Library string       `yaml:"library"`
	Pin     string       `yaml:"version"`
	Funcs   []yamlFunc   `yaml:"functions"`
	Classes []yamlClass  `yaml:"classes"`
	Subs    []yamlModule `yaml:"submodules"`
}

type yamlModule struct {
	Name    string       `yaml:"name"`
	Funcs   []yamlFunc   `yaml:"functions"`
	Classes []yamlClass  `yaml:"classes"`
	Subs    []yamlModule `yaml:"submodules"`
}

type yamlFunc struct {
	Name      string      `yaml:"name"`
	Path      string      `yaml:"path"`
	Doc       string      `yaml:"doc"`
	Streaming bool        `yaml:"streaming"`
	Params    []yamlParam `yaml:"params"`
	Returns   *yamlType   `yaml:"returns"`
}

type yamlClass struct {
	Name        string      `yaml:"name"`
	Path        string      `yaml:"path"`
	Doc         string      `yaml:"doc"`
	Constructor []yamlParam `yaml:"constructor"`
	Methods     []yamlFunc  `yaml:"methods"`
	Attributes  []yamlAttr  `yaml:"attributes"`
}

type yamlParam struct {
	Name    string    `yaml:"name"`
	Kind    string    `yaml:"kind"`
	Type    *yamlType `yaml:"type"`
	Default *string   `yaml:"default"`
}

type yamlAttr struct {
	Name     string    `yaml:"name"`
	Type     *yamlType `yaml:"type"`
	Writable bool      `yaml:"writable"`
}

// yamlType accepts either a scalar ("int", "string", "object") or a
// mapping form for composites:
//
//	type: {list: int}
//	type: {dict: {key: string, value: any}}
//	type: {optional: float}
//	type: {union: [int, string]}
type yamlType struct {
	t Type
}

func (y *yamlType) UnmarshalYAML(node *yaml.Node) error {
	t, err := typeFromNode(node)
	if err != nil {
		return err
	}
	y.t = t
	return nil
}

func typeFromNode(node *yaml.Node) (Type, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return scalarType(node.Value)
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return Any(), fmt.Errorf("type mapping must have exactly one key")
		}
		key := node.Content[0].Value
		val := node.Content[1]
		switch key {
		case "list":
			elem, err := typeFromNode(val)
			if err != nil {
				return Any(), err
			}
			return List(elem), nil
		case "optional":
			inner, err := typeFromNode(val)
			if err != nil {
				return Any(), err
			}
			return Optional(inner), nil
		case "dict":
			var kv struct {
				Key   yaml.Node `yaml:"key"`
				Value yaml.Node `yaml:"value"`
			}
			if err := val.Decode(&kv); err != nil {
				return Any(), err
			}
			k, err := typeFromNode(&kv.Key)
			if err != nil {
				return Any(), err
			}
			v, err := typeFromNode(&kv.Value)
			if err != nil {
				return Any(), err
			}
			return Dict(k, v), nil
		case "union":
			if val.Kind != yaml.SequenceNode {
				return Any(), fmt.Errorf("union must be a sequence")
			}
			var variants []Type
			for _, item := range val.Content {
				v, err := typeFromNode(item)
				if err != nil {
					return Any(), err
				}
				variants = append(variants, v)
			}
			return Union(variants...), nil
		default:
			return Any(), fmt.Errorf("unknown composite type %q", key)
		}
	default:
		return Any(), fmt.Errorf("unsupported type node")
	}
}

func scalarType(name string) (Type, error) {
	switch name {
	case "any", "":
		return Any(), nil
	case "none":
		return None(), nil
	case "bool":
		return Bool(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "string":
		return String(), nil
	case "bytes":
		return Bytes(), nil
	case "object":
		return Object(), nil
	case "list":
		return List(Any()), nil
	case "dict":
		return Dict(Any(), Any()), nil
	default:
		return Any(), fmt.Errorf("unknown type %q", name)
	}
}

// FromManifest normalizes a curated YAML manifest into a validated Library.
// The manifest's version pin, if any, is returned alongside; callers check
// it against the live library version with VerifyPin.
func FromManifest(data []byte) (*Library, string, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, "", errors.Wrap(errors.PhaseSchema, errors.KindInvalidSchema, err, "parse manifest YAML")
	}
	if m.Library == "" {
		return nil, "", errors.InvalidSchema(nil, "manifest has no library name")
	}

	lib := &Library{Name: m.Library}
	if err := fillFromManifest(lib, m.Library, m.Funcs, m.Classes, m.Subs); err != nil {
		return nil, "", err
	}

	if err := Validate(lib); err != nil {
		return nil, "", err
	}
	return lib, m.Pin, nil
}

func fillFromManifest(lib *Library, prefix string, funcs []yamlFunc, classes []yamlClass, subs []yamlModule) error {
	for _, yf := range funcs {
		f, err := manifestFunction(yf, prefix)
		if err != nil {
			return err
		}
		lib.Functions = append(lib.Functions, f)
	}
	for _, yc := range classes {
		c, err := manifestClass(yc, prefix)
		if err != nil {
			return err
		}
		lib.Classes = append(lib.Classes, c)
	}
	for _, ys := range subs {
		if ys.Name == "" {
			return errors.InvalidSchema([]string{prefix}, "submodule with empty name")
		}
		sub := Library{Name: ys.Name}
		if err := fillFromManifest(&sub, prefix+"."+ys.Name, ys.Funcs, ys.Classes, ys.Subs); err != nil {
			return err
		}
		lib.Submodules = append(lib.Submodules, sub)
	}
	return nil
}

func manifestFunction(yf yamlFunc, prefix string) (Function, error) {
	f := Function{
		Name:      yf.Name,
		Path:      yf.Path,
		Doc:       yf.Doc,
		Streaming: yf.Streaming,
		Returns:   typeOrAny(yf.Returns),
	}
	if f.Path == "" {
		f.Path = prefix + "." + f.Name
	}
	for _, yp := range yf.Params {
		p := Parameter{
			Name: yp.Name,
			Kind: ParamKindFromName(yp.Kind),
			Type: typeOrAny(yp.Type),
		}
		if yp.Default != nil {
			p.HasDefault = true
			p.Default = *yp.Default
		}
		f.Params = append(f.Params, p)
	}
	return f, nil
}

func manifestClass(yc yamlClass, prefix string) (Class, error) {
	c := Class{
		Name: yc.Name,
		Path: yc.Path,
		Doc:  yc.Doc,
	}
	if c.Path == "" {
		c.Path = prefix + "." + c.Name
	}

	ctor, err := manifestFunction(yamlFunc{Name: "__init__", Params: yc.Constructor}, c.Path)
	if err != nil {
		return Class{}, err
	}
	c.Constructor = ctor.Params

	for _, ym := range yc.Methods {
		m, err := manifestFunction(ym, c.Path)
		if err != nil {
			return Class{}, err
		}
		c.Methods = append(c.Methods, m)
	}
	for _, ya := range yc.Attributes {
		c.Attributes = append(c.Attributes, Attribute{
			Name:     ya.Name,
			Type:     typeOrAny(ya.Type),
			Writable: ya.Writable,
		})
	}
	return c, nil
}

func typeOrAny(y *yamlType) Type {
	if y == nil {
		return Any()
	}
	return y.t
}

// VerifyPin checks a manifest version pin against a live library version.
// Supported pin forms: exact ("1.26.0"), minimum (">=1.26.0"). An empty
// pin or an unknown live version passes.
func VerifyPin(pin, version string) error {
	if pin == "" || version == "" || version == "unknown" {
		return nil
	}

	minOnly := strings.HasPrefix(pin, ">=")
	want := strings.TrimSpace(strings.TrimPrefix(pin, ">="))

	wantV, err := semver.NewVersion(want)
	if err != nil {
		return errors.Wrap(errors.PhaseSchema, errors.KindInvalidSchema, err,
			fmt.Sprintf("invalid version pin %q", pin))
	}
	haveV, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrap(errors.PhaseSchema, errors.KindInvalidSchema, err,
			fmt.Sprintf("invalid library version %q", version))
	}

	if minOnly {
		if haveV.LessThan(*wantV) {
			return errors.InvalidSchema(nil,
				fmt.Sprintf("library version %s below pinned minimum %s", version, want))
		}
		return nil
	}
	if !haveV.Equal(*wantV) {
		return errors.InvalidSchema(nil,
			fmt.Sprintf("library version %s does not match pin %s", version, want))
	}
	return nil
}
