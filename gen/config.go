package gen

// Config controls one generation run. The zero value generates into
// package "bindings" with an unversioned generator stamp.
type Config struct {
	// Package is the Go package name of the generated files.
	Package string

	// OutDir is the conventional output directory for callers that
	// pair Generate with Write. Generate itself never touches it.
	OutDir string

	// GeneratorVersion stamps the meta artifact so artifacts from an
	// older generator read as stale.
	GeneratorVersion string
}

func (c Config) withDefaults() Config {
	if c.Package == "" {
		c.Package = "bindings"
	}
	if c.GeneratorVersion == "" {
		c.GeneratorVersion = "dev"
	}
	return c
}
