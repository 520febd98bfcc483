package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want []string
	}{
		{
			name: "phase and kind",
			err:  &Error{Phase: PhaseDispatch, Kind: KindNotFound},
			want: []string{"[dispatch]", "not_found"},
		},
		{
			name: "with path",
			err:  &Error{Phase: PhaseEncode, Kind: KindSerialization, Path: []string{"kwargs", "axis"}},
			want: []string{"[encode]", "serialization", "at kwargs.axis"},
		},
		{
			name: "with types and detail",
			err: &Error{
				Phase:       PhaseDecode,
				Kind:        KindProtocol,
				GoType:      "chan int",
				ForeignType: "generator",
				Detail:      "no tag",
			},
			want: []string{"Go type chan int", "foreign type generator", "- no tag"},
		},
		{
			name: "with cause",
			err:  &Error{Phase: PhaseDispatch, Kind: KindTransport, Cause: stderrors.New("pipe closed")},
			want: []string{"caused by: pipe closed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, frag := range tt.want {
				if !strings.Contains(got, frag) {
					t.Fatalf("Error() = %q, missing %q", got, frag)
				}
			}
		})
	}
}

func TestIsMatchesPhaseAndKind(t *testing.T) {
	err := Timeout("numpy", "mean", false)

	if !stderrors.Is(err, &Error{Phase: PhaseDispatch, Kind: KindTimeout}) {
		t.Fatal("expected Is match on phase+kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseDispatch, Kind: KindNotFound}) {
		t.Fatal("unexpected Is match on different kind")
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("underlying")
	err := Transport(cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected unwrap chain to reach cause")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseEncode, KindSerialization).
		Path("args", "0").
		GoType("func()").
		Value("x").
		Detail("cannot encode %s", "closure").
		Build()

	if err.Phase != PhaseEncode || err.Kind != KindSerialization {
		t.Fatalf("unexpected phase/kind: %v/%v", err.Phase, err.Kind)
	}
	if len(err.Path) != 2 || err.Path[1] != "0" {
		t.Fatalf("unexpected path: %v", err.Path)
	}
	if err.Detail != "cannot encode closure" {
		t.Fatalf("unexpected detail: %q", err.Detail)
	}
}

func TestSerializationCarriesValueAndType(t *testing.T) {
	err := Serialization(PhaseEncode, []string{"args", "1"}, make(chan int))

	if err.GoType != "chan int" {
		t.Fatalf("expected GoType chan int, got %q", err.GoType)
	}
	if err.Value == nil {
		t.Fatal("expected offending value to be carried")
	}
}

func TestForeignIncludesTraceback(t *testing.T) {
	err := Foreign("ValueError", "bad axis", "Traceback (most recent call last): ...")
	if !strings.Contains(err.Error(), "Traceback") {
		t.Fatalf("expected traceback in message, got %q", err.Error())
	}
	if err.ForeignType != "ValueError" {
		t.Fatalf("expected foreign class, got %q", err.ForeignType)
	}
}

func TestTimeoutMentionsIndeterminateOutcome(t *testing.T) {
	err := Timeout("pkg", "op", true)
	if !strings.Contains(err.Error(), "indeterminate") {
		t.Fatalf("timeout message must state indeterminate outcome, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "idempotent") {
		t.Fatalf("timeout message must surface idempotency, got %q", err.Error())
	}
}
