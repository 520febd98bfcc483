package runtime

import (
	"time"

	"github.com/wippyai/bridge-runtime/session"
)

// Options is the uniform trailing parameter of every call. Kwargs and
// Overflow travel to the foreign function; the rest are runtime
// controls consumed locally or by the dispatch layer. A nil *Options
// means defaults everywhere.
type Options struct {
	// Kwargs are keyword arguments forwarded to the foreign function.
	Kwargs map[string]any

	// Overflow carries extra positional values for a var-positional
	// parameter.
	Overflow []any

	// Timeout bounds the call. Zero means no client-side deadline.
	// When a timeout fires the foreign outcome is indeterminate; the
	// call may still have completed on the other side.
	Timeout time.Duration

	// Idempotent marks the call as safe to repeat. The client never
	// retries; the flag travels on the payload for layers that do.
	Idempotent bool

	// PoolHint routes the call to a specific foreign worker pool.
	PoolHint string

	// Session pins the call to an explicit session. Nil selects the
	// context's auto session.
	Session *session.Session
}

func (o *Options) orDefault() Options {
	if o == nil {
		return Options{}
	}
	return *o
}
