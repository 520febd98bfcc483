package schema

import (
	"fmt"

	"github.com/wippyai/bridge-runtime/errors"
)

// Validate checks the library tree against the schema invariants:
// non-empty names and dotted paths, dotted paths unique across the whole
// tree, and parameter kind ordering consistent with the foreign runtime's
// calling convention. Generation refuses an invalid schema outright.
func Validate(lib *Library) error {
	if lib == nil {
		return errors.InvalidSchema(nil, "nil library")
	}
	if lib.Name == "" {
		return errors.InvalidSchema(nil, "library name is empty")
	}

	seen := make(map[string]struct{})
	var walkErr error

	lib.Walk(func(l *Library) {
		if walkErr != nil {
			return
		}
		for i := range l.Functions {
			if err := validateFunction(&l.Functions[i], seen); err != nil {
				walkErr = err
				return
			}
		}
		for i := range l.Classes {
			if err := validateClass(&l.Classes[i], seen); err != nil {
				walkErr = err
				return
			}
		}
	})

	return walkErr
}

func validateFunction(f *Function, seen map[string]struct{}) error {
	if f.Name == "" {
		return errors.InvalidSchema(nil, "function with empty name")
	}
	if f.Path == "" {
		return errors.InvalidSchema([]string{f.Name}, "function has no dotted path")
	}
	if err := claimPath(f.Path, seen); err != nil {
		return err
	}
	return validateParams(f.Path, f.Params)
}

func validateClass(c *Class, seen map[string]struct{}) error {
	if c.Name == "" {
		return errors.InvalidSchema(nil, "class with empty name")
	}
	if c.Path == "" {
		return errors.InvalidSchema([]string{c.Name}, "class has no dotted path")
	}
	if err := claimPath(c.Path, seen); err != nil {
		return err
	}
	if err := validateParams(c.Path+".__init__", c.Constructor); err != nil {
		return err
	}
	for i := range c.Methods {
		m := &c.Methods[i]
		if m.Name == "" {
			return errors.InvalidSchema([]string{c.Path}, "method with empty name")
		}
		if err := validateParams(c.Path+"."+m.Name, m.Params); err != nil {
			return err
		}
	}
	for _, a := range c.Attributes {
		if a.Name == "" {
			return errors.InvalidSchema([]string{c.Path}, "attribute with empty name")
		}
	}
	return nil
}

func claimPath(path string, seen map[string]struct{}) error {
	if _, dup := seen[path]; dup {
		return errors.DuplicatePath(path)
	}
	seen[path] = struct{}{}
	return nil
}

// validateParams enforces the foreign calling convention's kind ordering:
// positional-only, then positional-or-keyword, then at most one
// var-positional, then keyword-only, then at most one var-keyword.
func validateParams(path string, params []Parameter) error {
	rank := func(k ParamKind) int {
		switch k {
		case PositionalOnly:
			return 0
		case PositionalOrKeyword:
			return 1
		case VarPositional:
			return 2
		case KeywordOnly:
			return 3
		case VarKeyword:
			return 4
		}
		return 5
	}

	prev := -1
	varPos, varKw := 0, 0
	names := make(map[string]struct{}, len(params))

	for _, p := range params {
		if p.Name == "" {
			return errors.InvalidSchema([]string{path}, "parameter with empty name")
		}
		if _, dup := names[p.Name]; dup {
			return errors.InvalidSchema([]string{path, p.Name}, "duplicate parameter name")
		}
		names[p.Name] = struct{}{}

		r := rank(p.Kind)
		if r < prev {
			return errors.InvalidSchema([]string{path, p.Name},
				fmt.Sprintf("parameter kind %s out of order", p.Kind))
		}
		prev = r

		switch p.Kind {
		case VarPositional:
			varPos++
		case VarKeyword:
			varKw++
		}
	}

	if varPos > 1 {
		return errors.InvalidSchema([]string{path}, "more than one var-positional parameter")
	}
	if varKw > 1 {
		return errors.InvalidSchema([]string{path}, "more than one var-keyword parameter")
	}
	return nil
}
