package schema

import (
	stderrors "errors"
	"testing"

	bridgeerrors "github.com/wippyai/bridge-runtime/errors"
)

func validLib() *Library {
	return &Library{
		Name: "m",
		Functions: []Function{
			{Name: "f", Path: "m.f", Params: []Parameter{
				{Name: "a", Kind: PositionalOnly},
				{Name: "b", Kind: PositionalOrKeyword, HasDefault: true},
				{Name: "args", Kind: VarPositional},
				{Name: "k", Kind: KeywordOnly},
				{Name: "kwargs", Kind: VarKeyword},
			}},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := Validate(validLib()); err != nil {
		t.Fatalf("Validate rejected a valid library: %v", err)
	}
}

func TestValidateDuplicatePaths(t *testing.T) {
	lib := validLib()
	lib.Submodules = []Library{{
		Name:      "sub",
		Functions: []Function{{Name: "f", Path: "m.f"}},
	}}

	err := Validate(lib)
	if err == nil {
		t.Fatal("expected duplicate path error")
	}
	if !stderrors.Is(err, &bridgeerrors.Error{Phase: bridgeerrors.PhaseSchema, Kind: bridgeerrors.KindDuplicatePath}) {
		t.Fatalf("expected duplicate_path, got %v", err)
	}
}

func TestValidateKindOrdering(t *testing.T) {
	lib := &Library{
		Name: "m",
		Functions: []Function{
			{Name: "f", Path: "m.f", Params: []Parameter{
				{Name: "k", Kind: KeywordOnly},
				{Name: "a", Kind: PositionalOnly},
			}},
		},
	}

	if err := Validate(lib); err == nil {
		t.Fatal("expected kind ordering violation")
	}
}

func TestValidateRejectsDoubleVariadic(t *testing.T) {
	lib := &Library{
		Name: "m",
		Functions: []Function{
			{Name: "f", Path: "m.f", Params: []Parameter{
				{Name: "a", Kind: VarKeyword},
				{Name: "b", Kind: VarKeyword},
			}},
		},
	}

	if err := Validate(lib); err == nil {
		t.Fatal("expected double var-keyword rejection")
	}
}

func TestValidateRejectsEmptyNames(t *testing.T) {
	tests := []*Library{
		nil,
		{},
		{Name: "m", Functions: []Function{{Name: ""}}},
		{Name: "m", Functions: []Function{{Name: "f"}}}, // no path
		{Name: "m", Classes: []Class{{Name: "C", Path: "m.C", Constructor: []Parameter{{Name: ""}}}}},
	}

	for i, lib := range tests {
		if err := Validate(lib); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
