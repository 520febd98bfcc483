package bridgeruntime

import (
	"context"
	"testing"

	"github.com/wippyai/bridge-runtime/codec"
	"github.com/wippyai/bridge-runtime/runtime"
)

type echoTransport struct {
	calls []codec.Payload
}

func (e *echoTransport) Invoke(_ context.Context, p codec.Payload) (codec.Envelope, error) {
	e.calls = append(e.calls, p)
	return codec.Envelope{Success: true, Result: p.Function}, nil
}

func (e *echoTransport) OpenStream(_ context.Context, p codec.Payload) (runtime.StreamConn, error) {
	panic("not scripted")
}

func TestBridgeWiring(t *testing.T) {
	tr := &echoTransport{}
	bridge, err := New(tr, WithAllowList("math"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	result, err := bridge.Client().Call(ctx, "math", "sqrt", []any{4.0}, nil)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result != "sqrt" {
		t.Fatalf("result = %v", result)
	}

	if _, err := bridge.Client().Call(ctx, "os", "system", nil, nil); err == nil {
		t.Fatal("allow-list must apply through the facade")
	}

	s, err := bridge.Sessions().Explicit(ctx)
	if err != nil {
		t.Fatalf("Explicit failed: %v", err)
	}
	if err := bridge.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	released := false
	for _, p := range tr.calls {
		if p.Function == "__session_release__" && p.SessionID == s.ID() {
			released = true
		}
	}
	if !released {
		t.Fatal("Close must release the explicit session over the transport")
	}
}
