package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/bridge-runtime/codec"
	bridgeerrors "github.com/wippyai/bridge-runtime/errors"
	"github.com/wippyai/bridge-runtime/session"
)

// fakeTransport scripts envelope responses per function name and
// records every payload it sees.
type fakeTransport struct {
	mu       sync.Mutex
	payloads []codec.Payload
	respond  func(codec.Payload) (codec.Envelope, error)
	streams  func(codec.Payload) (StreamConn, error)
}

func (f *fakeTransport) Invoke(ctx context.Context, p codec.Payload) (codec.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return codec.Envelope{}, err
	}
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()
	if f.respond == nil {
		return codec.Envelope{Success: true}, nil
	}
	return f.respond(p)
}

func (f *fakeTransport) OpenStream(ctx context.Context, p codec.Payload) (StreamConn, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()
	if f.streams == nil {
		return nil, fmt.Errorf("no stream scripted")
	}
	return f.streams(p)
}

func (f *fakeTransport) sent() []codec.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]codec.Payload, len(f.payloads))
	copy(out, f.payloads)
	return out
}

func TestCallSplitsArgsAndKwargs(t *testing.T) {
	ft := &fakeTransport{
		respond: func(p codec.Payload) (codec.Envelope, error) {
			return codec.Envelope{Success: true, Result: 2.0}, nil
		},
	}
	c := NewClient(ft)

	result, err := c.Call(context.Background(), "numpy", "mean",
		[]any{[]any{1.0, 2.0, 3.0}},
		&Options{Kwargs: map[string]any{"axis": 0}})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result != 2.0 {
		t.Fatalf("result = %v", result)
	}

	p := ft.sent()[0]
	if p.Target != "numpy" || p.Function != "mean" {
		t.Fatalf("payload target = %v.%s", p.Target, p.Function)
	}
	if len(p.Args) != 1 {
		t.Fatalf("args = %#v", p.Args)
	}
	if !reflect.DeepEqual(p.Kwargs, map[string]any{"axis": int64(0)}) {
		t.Fatalf("kwargs = %#v", p.Kwargs)
	}
	if p.SessionID == "" {
		t.Fatal("payload must carry a session id")
	}
}

func TestCallNilOptions(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft)

	if _, err := c.Call(context.Background(), "math", "sqrt", []any{4.0}, nil); err != nil {
		t.Fatalf("Call with nil options failed: %v", err)
	}
	p := ft.sent()[0]
	if p.Kwargs == nil {
		t.Fatal("kwargs must never be nil on the wire")
	}
}

func TestConstructAndMethodCall(t *testing.T) {
	ft := &fakeTransport{
		respond: func(p codec.Payload) (codec.Envelope, error) {
			if p.Function == fnInit {
				return codec.Envelope{Success: true, InstanceID: "inst-7"}, nil
			}
			return codec.Envelope{Success: true, Result: "10x20"}, nil
		},
	}
	c := NewClient(ft)
	ctx := session.WithScope(context.Background())

	ref, err := c.Construct(ctx, "pkg.Widget", []any{10, 20},
		&Options{Kwargs: map[string]any{"color": "red"}})
	if err != nil {
		t.Fatalf("Construct failed: %v", err)
	}
	if ref.InstanceID != "inst-7" || ref.SessionID == "" {
		t.Fatalf("ref = %+v", ref)
	}

	// Method call on the reference lands in the owning session.
	result, err := c.Call(ctx, ref, "describe", nil, nil)
	if err != nil {
		t.Fatalf("method call failed: %v", err)
	}
	if result != "10x20" {
		t.Fatalf("result = %v", result)
	}

	sent := ft.sent()
	if sent[1].SessionID != ref.SessionID {
		t.Fatalf("method call session %q, ref session %q", sent[1].SessionID, ref.SessionID)
	}
	wire, ok := sent[1].Target.(map[string]any)
	if !ok || wire["instance_id"] != "inst-7" {
		t.Fatalf("method target = %#v", sent[1].Target)
	}
}

func TestDynamicConstructorCallEquivalence(t *testing.T) {
	ft := &fakeTransport{
		respond: func(p codec.Payload) (codec.Envelope, error) {
			return codec.Envelope{Success: true, InstanceID: "inst-1"}, nil
		},
	}
	c := NewClient(ft)
	ctx := session.WithScope(context.Background())

	result, err := c.Call(ctx, "pkg.Widget", "__init__", []any{10, 20},
		&Options{Kwargs: map[string]any{"color": "red"}})
	if err != nil {
		t.Fatalf("dynamic call failed: %v", err)
	}
	ref, ok := result.(codec.Ref)
	if !ok || ref.InstanceID != "inst-1" {
		t.Fatalf("dynamic constructor result = %#v", result)
	}
	typed, err := c.Construct(ctx, "pkg.Widget", []any{10, 20},
		&Options{Kwargs: map[string]any{"color": "red"}})
	if err != nil {
		t.Fatalf("Construct failed: %v", err)
	}
	if typed.InstanceID != ref.InstanceID {
		t.Fatalf("typed and dynamic constructors diverged: %q vs %q", typed.InstanceID, ref.InstanceID)
	}
}

func TestCallRejectsForeignSessionRef(t *testing.T) {
	c := NewClient(&fakeTransport{})

	_, err := c.Call(context.Background(),
		codec.Ref{SessionID: "nonexistent", InstanceID: "x"}, "m", nil, nil)
	if !stderrors.Is(err, &bridgeerrors.Error{Phase: bridgeerrors.PhaseSession, Kind: bridgeerrors.KindInvalidRef}) {
		t.Fatalf("err = %v, want invalid ref", err)
	}
}

func TestAllowListBlocksBeforeDispatch(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft, WithAllowList("numpy", "pkg.sub"))

	if _, err := c.Call(context.Background(), "numpy.linalg", "det", nil, nil); err != nil {
		t.Fatalf("allowed prefix rejected: %v", err)
	}
	_, err := c.Call(context.Background(), "os", "system", []any{"rm"}, nil)
	if !stderrors.Is(err, &bridgeerrors.Error{Phase: bridgeerrors.PhaseDispatch, Kind: bridgeerrors.KindUnauthorized}) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	// Prefix matching is per path segment.
	if _, err := c.Call(context.Background(), "numpyish", "f", nil, nil); err == nil {
		t.Fatal("segment-crossing prefix must not match")
	}

	// Nothing reached the transport for blocked targets.
	for _, p := range ft.sent() {
		if p.Target == "os" || p.Target == "numpyish" {
			t.Fatalf("blocked target dispatched: %#v", p)
		}
	}
}

func TestForeignErrorClassification(t *testing.T) {
	tests := []struct {
		errorType string
		wantKind  bridgeerrors.Kind
	}{
		{"ModuleNotFoundError", bridgeerrors.KindNotFound},
		{"AttributeError", bridgeerrors.KindNotFound},
		{"KeyError", bridgeerrors.KindNotFound},
		{"TypeError", bridgeerrors.KindTypeMismatch},
		{"ValueError", bridgeerrors.KindForeign},
		{"", bridgeerrors.KindUnknown},
	}

	for _, tt := range tests {
		ft := &fakeTransport{
			respond: func(p codec.Payload) (codec.Envelope, error) {
				return codec.Envelope{Success: false, Error: "boom", ErrorType: tt.errorType}, nil
			},
		}
		c := NewClient(ft)
		_, err := c.Call(context.Background(), "m", "f", nil, nil)
		if !stderrors.Is(err, &bridgeerrors.Error{Phase: bridgeerrors.PhaseDispatch, Kind: tt.wantKind}) {
			t.Fatalf("error_type %q: err = %v, want kind %s", tt.errorType, err, tt.wantKind)
		}
	}
}

func TestCallTimeout(t *testing.T) {
	ft := &fakeTransport{
		respond: func(p codec.Payload) (codec.Envelope, error) {
			return codec.Envelope{}, context.DeadlineExceeded
		},
	}
	c := NewClient(ft)

	_, err := c.Call(context.Background(), "slow", "work", nil,
		&Options{Timeout: time.Second, Idempotent: true})
	if !stderrors.Is(err, &bridgeerrors.Error{Phase: bridgeerrors.PhaseDispatch, Kind: bridgeerrors.KindTimeout}) {
		t.Fatalf("err = %v, want timeout", err)
	}

	p := ft.sent()[0]
	if p.Runtime.TimeoutMS != 1000 || !p.Idempotent {
		t.Fatalf("runtime controls = %+v idempotent=%v", p.Runtime, p.Idempotent)
	}
}

func TestOverflowArgsTravelInRuntimeControls(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft)

	_, err := c.Call(context.Background(), "m", "variadic", []any{1},
		&Options{Overflow: []any{2, 3}})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	p := ft.sent()[0]
	want := []any{int64(2), int64(3)}
	if !reflect.DeepEqual(p.Runtime.OverflowArgs, want) {
		t.Fatalf("overflow = %#v", p.Runtime.OverflowArgs)
	}
}

func TestFailClosedEncodingNeverDispatches(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft)

	_, err := c.Call(context.Background(), "m", "f", []any{make(chan int)}, nil)
	if !stderrors.Is(err, &bridgeerrors.Error{Phase: bridgeerrors.PhaseEncode, Kind: bridgeerrors.KindSerialization}) {
		t.Fatalf("err = %v, want serialization", err)
	}
	if len(ft.sent()) != 0 {
		t.Fatal("unencodable call must never reach the transport")
	}
}

func TestAttributeAccess(t *testing.T) {
	ft := &fakeTransport{
		respond: func(p codec.Payload) (codec.Envelope, error) {
			return codec.Envelope{Success: true, Result: "3.1.0"}, nil
		},
	}
	c := NewClient(ft)

	v, err := c.GetAttr(context.Background(), "numpy", "__version__", nil)
	if err != nil || v != "3.1.0" {
		t.Fatalf("GetAttr = %v, %v", v, err)
	}
	if err := c.SetAttr(context.Background(), "cfg", "verbose", true, nil); err != nil {
		t.Fatalf("SetAttr failed: %v", err)
	}

	sent := ft.sent()
	if sent[0].Function != fnGetAttr || sent[0].Args[0] != "__version__" {
		t.Fatalf("getattr payload = %+v", sent[0])
	}
	if sent[1].Function != fnSetAttr || sent[1].Args[1] != true {
		t.Fatalf("setattr payload = %+v", sent[1])
	}
}

func TestCloseReleasesSessionsOverTransport(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft)
	ctx := context.Background()

	s, err := c.Sessions().Explicit(ctx)
	if err != nil {
		t.Fatalf("Explicit failed: %v", err)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	sent := ft.sent()
	if len(sent) != 1 || sent[0].Function != fnSessionRelease {
		t.Fatalf("payloads = %+v", sent)
	}
	if sent[0].SessionID != s.ID() {
		t.Fatalf("release session id = %q", sent[0].SessionID)
	}
}

func TestAsCoercions(t *testing.T) {
	f, err := As[float64](int64(3))
	if err != nil || f != 3.0 {
		t.Fatalf("As[float64] = %v, %v", f, err)
	}
	s, err := As[string]("x")
	if err != nil || s != "x" {
		t.Fatalf("As[string] = %v, %v", s, err)
	}
	if _, err := As[string](int64(1)); err == nil {
		t.Fatal("expected type mismatch")
	}

	ref, err := As[*codec.Ref](codec.Ref{SessionID: "s", InstanceID: "i"})
	if err != nil || ref.InstanceID != "i" {
		t.Fatalf("As[*codec.Ref] = %v, %v", ref, err)
	}

	fs, err := AsSlice[float64]([]any{int64(1), 2.5})
	if err != nil || !reflect.DeepEqual(fs, []float64{1.0, 2.5}) {
		t.Fatalf("AsSlice = %v, %v", fs, err)
	}
	m, err := AsMap[float64](map[string]any{"a": int64(2)})
	if err != nil || m["a"] != 2.0 {
		t.Fatalf("AsMap = %v, %v", m, err)
	}
}
