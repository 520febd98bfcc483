package gen

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"

	"github.com/wippyai/bridge-runtime/schema"
)

// Artifact is one rendered output file. Hash is the content hash used
// by Write and Diff instead of timestamps.
type Artifact struct {
	Name   string
	Source []byte
	Hash   uint64
}

func newArtifact(name string, source []byte) Artifact {
	return Artifact{Name: name, Source: source, Hash: xxhash.Sum64(source)}
}

// Diagnostic is a non-fatal generation note, e.g. a binding that had
// to be renamed to stay a unique Go identifier.
type Diagnostic struct {
	Path    string
	Message string
}

// Output is the result of one generation run. Artifacts are ordered
// deterministically: root library first, then submodules depth-first
// in schema order, meta artifact last.
type Output struct {
	Artifacts   []Artifact
	Diagnostics []Diagnostic
}

// MetaName is the artifact recording the generation stamp.
const MetaName = "bridge_meta.json"

type metaRecord struct {
	GeneratorVersion string `json:"generator_version"`
	Library          string `json:"library"`
	SchemaHash       string `json:"schema_hash"`
	ConfigHash       string `json:"config_hash"`
}

// Generate renders bindings for a library schema. It is pure: no file
// is read or written, and equal inputs produce byte-identical
// artifacts. A schema that fails validation aborts before anything is
// rendered.
func Generate(lib *schema.Library, cfg Config) (*Output, error) {
	if err := schema.Validate(lib); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	r := &renderer{cfg: cfg, types: newNamer()}

	// Claim struct names for every library level first so class
	// wrappers can never shadow a module struct.
	type level struct {
		lib        *schema.Library
		structName string
		root       bool
	}
	var levels []level
	var walk func(l *schema.Library, parentStruct string, root bool)
	walk = func(l *schema.Library, parentStruct string, root bool) {
		name, _ := r.types.claim(parentStruct + exportName(l.Name))
		levels = append(levels, level{lib: l, structName: name, root: root})
		for i := range l.Submodules {
			walk(&l.Submodules[i], name, false)
		}
	}
	walk(lib, "", true)

	structOf := make(map[*schema.Library]string, len(levels))
	for _, lv := range levels {
		structOf[lv.lib] = lv.structName
	}

	out := &Output{}
	for _, lv := range levels {
		subNames := make(map[string]string, len(lv.lib.Submodules))
		for i := range lv.lib.Submodules {
			sub := &lv.lib.Submodules[i]
			subNames[sub.Name] = structOf[sub]
		}
		artifact, err := r.renderLibrary(lv.lib, lv.structName, lv.root, subNames)
		if err != nil {
			return nil, err
		}
		out.Artifacts = append(out.Artifacts, artifact)
	}

	meta, err := renderMeta(lib, cfg)
	if err != nil {
		return nil, err
	}
	out.Artifacts = append(out.Artifacts, meta)
	out.Diagnostics = r.diags
	return out, nil
}

// renderMeta stamps the run with hashes of the generator version, the
// schema, and the configuration. Regeneration with any of them changed
// rewrites the meta artifact, marking the other artifacts stale.
func renderMeta(lib *schema.Library, cfg Config) (Artifact, error) {
	schemaJSON, err := json.Marshal(lib)
	if err != nil {
		return Artifact{}, err
	}
	configJSON, err := json.Marshal(struct {
		Package          string `json:"package"`
		GeneratorVersion string `json:"generator_version"`
	}{cfg.Package, cfg.GeneratorVersion})
	if err != nil {
		return Artifact{}, err
	}

	rec := metaRecord{
		GeneratorVersion: cfg.GeneratorVersion,
		Library:          lib.Name,
		SchemaHash:       fmt.Sprintf("%016x", xxhash.Sum64(schemaJSON)),
		ConfigHash:       fmt.Sprintf("%016x", xxhash.Sum64(configJSON)),
	}
	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Artifact{}, err
	}
	return newArtifact(MetaName, append(body, '\n')), nil
}
