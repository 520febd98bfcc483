package runtime

import (
	"context"

	"github.com/wippyai/bridge-runtime/codec"
)

// Transport carries payloads to the foreign side and responses back.
// Implementations must be safe for concurrent use; the client issues
// calls from many goroutines against one transport.
type Transport interface {
	// Invoke sends one call payload and blocks for its envelope.
	Invoke(ctx context.Context, p codec.Payload) (codec.Envelope, error)

	// OpenStream sends one call payload for a streaming function and
	// returns the chunk source.
	OpenStream(ctx context.Context, p codec.Payload) (StreamConn, error)
}

// StreamConn is one open foreign stream. Recv blocks for the next
// chunk; Close releases transport-level resources. Foreign-side
// release is the client's job, not the connection's.
type StreamConn interface {
	// ID returns the foreign stream identifier.
	ID() string

	Recv(ctx context.Context) (codec.Chunk, error)

	Close(ctx context.Context) error
}
