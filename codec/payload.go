package codec

// Payload is the wire call payload. Created per call, never persisted.
// Target carries either a foreign dotted path (string) or an encoded
// object reference for method and attribute calls.
type Payload struct {
	Target     any             `json:"target" cbor:"target"`
	Function   string          `json:"function" cbor:"function"`
	Args       []any           `json:"args" cbor:"args"`
	Kwargs     map[string]any  `json:"kwargs" cbor:"kwargs"`
	SessionID  string          `json:"session_id" cbor:"session_id"`
	Idempotent bool            `json:"idempotent" cbor:"idempotent"`
	Runtime    RuntimeControls `json:"runtime" cbor:"runtime"`
}

// RuntimeControls are consumed by the dispatch layer and the foreign
// worker, never forwarded to the foreign function itself.
type RuntimeControls struct {
	TimeoutMS    int64  `json:"timeout_ms,omitempty" cbor:"timeout_ms,omitempty"`
	PoolHint     string `json:"pool_hint,omitempty" cbor:"pool_hint,omitempty"`
	OverflowArgs []any  `json:"overflow_args,omitempty" cbor:"overflow_args,omitempty"`
}

// Envelope is the foreign side's response to a unary call.
type Envelope struct {
	Success    bool   `json:"success" cbor:"success"`
	Result     any    `json:"result,omitempty" cbor:"result,omitempty"`
	InstanceID string `json:"instance_id,omitempty" cbor:"instance_id,omitempty"`
	StreamID   string `json:"stream_id,omitempty" cbor:"stream_id,omitempty"`
	Error      string `json:"error,omitempty" cbor:"error,omitempty"`
	ErrorType  string `json:"error_type,omitempty" cbor:"error_type,omitempty"`
	Traceback  string `json:"traceback,omitempty" cbor:"traceback,omitempty"`
}

// Chunk is one streamed response frame. A frame with IsFinal set carries
// no data; a frame with Error set terminates the stream abnormally.
type Chunk struct {
	Data      any    `json:"data,omitempty" cbor:"data,omitempty"`
	Index     int64  `json:"index,omitempty" cbor:"index,omitempty"`
	IsFinal   bool   `json:"is_final" cbor:"is_final"`
	Error     string `json:"error,omitempty" cbor:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty" cbor:"error_type,omitempty"`
}
