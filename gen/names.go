package gen

import (
	"fmt"
	"strings"
	"unicode"
)

// exportName turns a foreign identifier into an exported Go name.
// Underscores, dots, and dashes split words; anything else
// non-alphanumeric is dropped.
func exportName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case r == '_' || r == '.' || r == '-':
			upper = true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if upper {
				b.WriteRune(unicode.ToUpper(r))
				upper = false
			} else {
				b.WriteRune(r)
			}
		}
	}
	out := b.String()
	if out == "" {
		return "X"
	}
	if unicode.IsDigit(rune(out[0])) {
		return "X" + out
	}
	return out
}

// goKeywords are foreign parameter names that cannot be Go
// identifiers as-is.
var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true,
	"continue": true, "default": true, "defer": true, "else": true,
	"fallthrough": true, "for": true, "func": true, "go": true,
	"goto": true, "if": true, "import": true, "interface": true,
	"map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true,
	"var": true,
}

// paramName turns a foreign parameter name into a safe unexported Go
// identifier.
func paramName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		out = "arg"
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "arg" + out
	}
	if goKeywords[out] {
		out += "Arg"
	}
	// Reserved by every binding body.
	switch out {
	case "ctx", "opts", "result", "err", "zero", "fn":
		out += "Arg"
	}
	return out
}

// splitPath separates a dotted foreign path into its module target
// and trailing name.
func splitPath(path string) (target, name string) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return path, path
	}
	return path[:i], path[i+1:]
}

// namer hands out unique Go identifiers within one scope, recording a
// diagnostic when disambiguation was needed.
type namer struct {
	used map[string]bool
}

func newNamer() *namer {
	return &namer{used: make(map[string]bool)}
}

// claim returns name, or name with a numeric suffix when taken. The
// second return reports whether a suffix was needed.
func (n *namer) claim(name string) (string, bool) {
	if !n.used[name] {
		n.used[name] = true
		return name, false
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d", name, i)
		if !n.used[candidate] {
			n.used[candidate] = true
			return candidate, true
		}
	}
}
