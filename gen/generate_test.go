package gen

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/bridge-runtime/schema"
)

func fixtureLibrary() *schema.Library {
	return &schema.Library{
		Name:    "numpy",
		Version: "2.1.0",
		Functions: []schema.Function{
			{
				Name: "mean",
				Path: "numpy.mean",
				Params: []schema.Parameter{
					{Name: "a", Type: schema.List(schema.Float()), Kind: schema.PositionalOrKeyword},
					{Name: "axis", Type: schema.Optional(schema.Int()), Kind: schema.PositionalOrKeyword, HasDefault: true, Default: "None"},
					{Name: "dtype", Type: schema.Any(), Kind: schema.PositionalOrKeyword, HasDefault: true, Default: "None"},
				},
				Returns: schema.Float(),
			},
			{
				Name: "tokenizeStream",
				Path: "numpy.tokenizeStream",
				Params: []schema.Parameter{
					{Name: "text", Type: schema.String(), Kind: schema.PositionalOrKeyword},
				},
				Returns:   schema.String(),
				Streaming: true,
			},
		},
		Classes: []schema.Class{
			{
				Name: "Widget",
				Path: "numpy.Widget",
				Constructor: []schema.Parameter{
					{Name: "width", Type: schema.Int(), Kind: schema.PositionalOrKeyword},
					{Name: "height", Type: schema.Int(), Kind: schema.PositionalOrKeyword},
					{Name: "color", Type: schema.String(), Kind: schema.PositionalOrKeyword, HasDefault: true, Default: `"black"`},
				},
				Methods: []schema.Function{
					{
						Name:    "describe",
						Path:    "numpy.Widget.describe",
						Returns: schema.String(),
					},
				},
				Attributes: []schema.Attribute{
					{Name: "width", Type: schema.Int(), Writable: true},
					{Name: "color", Type: schema.String(), Writable: false},
				},
			},
		},
		Submodules: []schema.Library{
			{
				Name: "linalg",
				Functions: []schema.Function{
					{
						Name: "tokenizeStream",
						Path: "numpy.linalg.tokenizeStream",
						Params: []schema.Parameter{
							{Name: "text", Type: schema.String(), Kind: schema.PositionalOrKeyword},
						},
						Streaming: true,
					},
					{
						Name: "det",
						Path: "numpy.linalg.det",
						Params: []schema.Parameter{
							{Name: "a", Type: schema.List(schema.List(schema.Float())), Kind: schema.PositionalOrKeyword},
						},
						Returns: schema.Float(),
					},
				},
			},
		},
	}
}

func generate(t *testing.T) *Output {
	t.Helper()
	out, err := Generate(fixtureLibrary(), Config{Package: "numpybindings", GeneratorVersion: "1.0.0"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return out
}

func artifactByName(t *testing.T, out *Output, name string) Artifact {
	t.Helper()
	for _, a := range out.Artifacts {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("artifact %q not in %v", name, artifactNames(out))
	return Artifact{}
}

func artifactNames(out *Output) []string {
	names := make([]string, len(out.Artifacts))
	for i, a := range out.Artifacts {
		names[i] = a.Name
	}
	return names
}

func TestGenerateArtifactLayout(t *testing.T) {
	out := generate(t)

	want := []string{"numpy.bridge.go", "numpylinalg.bridge.go", MetaName}
	got := artifactNames(out)
	if len(got) != len(want) {
		t.Fatalf("artifacts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("artifacts = %v, want %v", got, want)
		}
	}
}

func TestOptionsParameterAlwaysPresent(t *testing.T) {
	out := generate(t)
	root := string(artifactByName(t, out, "numpy.bridge.go").Source)

	// mean has optional parameters; describe has none. Both bindings
	// still take options.
	if !strings.Contains(root, "func (m *Numpy) Mean(ctx context.Context, a []float64, opts *runtime.Options) (float64, error)") {
		t.Fatalf("mean binding signature wrong:\n%s", root)
	}
	if !strings.Contains(root, "func (o *Widget) Describe(ctx context.Context, opts *runtime.Options) (string, error)") {
		t.Fatalf("describe binding signature wrong:\n%s", root)
	}
}

func TestOptionalParamsStayOutOfSignature(t *testing.T) {
	out := generate(t)
	root := string(artifactByName(t, out, "numpy.bridge.go").Source)

	if strings.Contains(root, "axis") || strings.Contains(root, "dtype") {
		t.Fatal("defaulted parameters must not become positional arguments")
	}
}

func TestConstructorArityDerivedFromInitializer(t *testing.T) {
	out := generate(t)
	root := string(artifactByName(t, out, "numpy.bridge.go").Source)

	// Two required parameters; color has a default and rides in options.
	if !strings.Contains(root, "func (m *Numpy) NewWidget(ctx context.Context, width int64, height int64, opts *runtime.Options) (*Widget, error)") {
		t.Fatalf("constructor signature wrong:\n%s", root)
	}
	if !strings.Contains(root, `Construct(ctx, "numpy.Widget"`) {
		t.Fatalf("constructor must target the full class path:\n%s", root)
	}
}

func TestAttributeBindings(t *testing.T) {
	out := generate(t)
	root := string(artifactByName(t, out, "numpy.bridge.go").Source)

	if !strings.Contains(root, "func (o *Widget) SetWidth(") {
		t.Fatal("writable attribute must get a setter")
	}
	if strings.Contains(root, "func (o *Widget) SetColor(") {
		t.Fatal("read-only attribute must not get a setter")
	}
	if !strings.Contains(root, `GetAttr(ctx, o.ref, "color", opts)`) {
		t.Fatalf("getter must use the attribute protocol:\n%s", root)
	}
}

func TestStreamingVariantsKeyedByFullPath(t *testing.T) {
	out := generate(t)
	root := string(artifactByName(t, out, "numpy.bridge.go").Source)
	sub := string(artifactByName(t, out, "numpylinalg.bridge.go").Source)

	// Identical bare names in different submodules dispatch to their
	// own fully-qualified paths.
	if !strings.Contains(root, `Stream(ctx, "numpy", "tokenizeStream"`) {
		t.Fatalf("root stream target wrong:\n%s", root)
	}
	if !strings.Contains(sub, `Stream(ctx, "numpy.linalg", "tokenizeStream"`) {
		t.Fatalf("submodule stream target wrong:\n%s", sub)
	}
	if !strings.Contains(root, "func (m *Numpy) TokenizeStreamEach(") {
		t.Fatal("streaming descriptor must render a callback variant")
	}
	if !strings.Contains(root, "func (m *Numpy) Linalg() *NumpyLinalg") {
		t.Fatalf("submodule accessor missing:\n%s", root)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	first := generate(t)
	second := generate(t)

	if len(first.Artifacts) != len(second.Artifacts) {
		t.Fatalf("artifact counts differ: %d vs %d", len(first.Artifacts), len(second.Artifacts))
	}
	for i := range first.Artifacts {
		a, b := first.Artifacts[i], second.Artifacts[i]
		if a.Name != b.Name || a.Hash != b.Hash || !bytes.Equal(a.Source, b.Source) {
			t.Fatalf("artifact %s not byte-identical across runs", a.Name)
		}
	}
}

func TestMetaCarriesOnlyHashes(t *testing.T) {
	out := generate(t)
	meta := string(artifactByName(t, out, MetaName).Source)

	for _, key := range []string{"generator_version", "library", "schema_hash", "config_hash"} {
		if !strings.Contains(meta, `"`+key+`"`) {
			t.Fatalf("meta missing %q: %s", key, meta)
		}
	}
	// No wall-clock content: regeneration a moment later is identical.
	again := artifactByName(t, generate(t), MetaName)
	if string(again.Source) != meta {
		t.Fatal("meta artifact must be time-independent")
	}
}

func TestGenerateAbortsOnInvalidSchema(t *testing.T) {
	lib := fixtureLibrary()
	lib.Functions = append(lib.Functions, lib.Functions[0]) // duplicate path

	out, err := Generate(lib, Config{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if out != nil {
		t.Fatal("no artifacts may exist after a schema error")
	}
}

func TestMetaChangesWithGeneratorVersion(t *testing.T) {
	a, err := Generate(fixtureLibrary(), Config{Package: "p", GeneratorVersion: "1.0.0"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := Generate(fixtureLibrary(), Config{Package: "p", GeneratorVersion: "2.0.0"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if artifactByName(t, a, MetaName).Hash == artifactByName(t, b, MetaName).Hash {
		t.Fatal("meta hash must change with the generator version")
	}
}

func TestWriteIdempotentRegeneration(t *testing.T) {
	dir := t.TempDir()
	out := generate(t)

	first, err := Write(out.Artifacts, dir)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(first.Written) != len(out.Artifacts) || len(first.Unchanged) != 0 {
		t.Fatalf("first write report = %+v", first)
	}

	second, err := Write(generate(t).Artifacts, dir)
	if err != nil {
		t.Fatalf("second Write failed: %v", err)
	}
	if len(second.Written) != 0 {
		t.Fatalf("second run must perform zero writes, wrote %v", second.Written)
	}
	if len(second.Unchanged) != len(out.Artifacts) {
		t.Fatalf("second write report = %+v", second)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	out := generate(t)
	if _, err := Write(out.Artifacts, dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != len(out.Artifacts) {
		t.Fatalf("unexpected files in output dir: %d entries", len(entries))
	}
}

func TestDiffReportsDrift(t *testing.T) {
	dir := t.TempDir()
	out := generate(t)

	report, err := Diff(out.Artifacts, dir)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if report.Clean() || len(report.Missing) != len(out.Artifacts) {
		t.Fatalf("empty dir must report everything missing: %+v", report)
	}

	if _, err := Write(out.Artifacts, dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	report, err = Diff(out.Artifacts, dir)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("freshly written dir must be clean: %+v", report)
	}

	// Hand-edit one artifact.
	stalePath := filepath.Join(dir, out.Artifacts[0].Name)
	if err := os.WriteFile(stalePath, []byte("// edited\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	report, err = Diff(out.Artifacts, dir)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if report.Clean() || len(report.Stale) != 1 {
		t.Fatalf("edited artifact must read stale: %+v", report)
	}
}

func TestExportNames(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"mean", "Mean"},
		{"tokenize_stream", "TokenizeStream"},
		{"tokenizeStream", "TokenizeStream"},
		{"2d_fft", "X2dFft"},
		{"__version__", "Version"},
	}
	for _, tt := range tests {
		if got := exportName(tt.in); got != tt.want {
			t.Fatalf("exportName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := paramName("func"); got != "funcArg" {
		t.Fatalf("paramName(func) = %q", got)
	}
	if got := paramName("ctx"); got != "ctxArg" {
		t.Fatalf("paramName(ctx) = %q", got)
	}
}
