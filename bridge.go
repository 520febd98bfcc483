package bridgeruntime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/bridge-runtime/gen"
	"github.com/wippyai/bridge-runtime/runtime"
	"github.com/wippyai/bridge-runtime/session"
)

// Bridge bundles a runtime client with its session manager. It is the
// root handle applications hold; generated bindings and dynamic calls
// both run through its client.
type Bridge struct {
	client *runtime.Client
}

// Option configures a Bridge at construction.
type Option func(*options)

type options struct {
	logger *zap.Logger
	client []runtime.ClientOption
}

// WithLogger installs a logger across every package. Without it all
// logging is a no-op.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithAllowList restricts callable foreign targets to the given
// dotted path prefixes.
func WithAllowList(prefixes ...string) Option {
	return func(o *options) {
		o.client = append(o.client, runtime.WithAllowList(prefixes...))
	}
}

// New wires a bridge around an injected transport. The transport is
// the only external collaborator; everything else is owned here.
func New(transport runtime.Transport, opts ...Option) (*Bridge, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		runtime.SetLogger(o.logger.Named("runtime"))
		session.SetLogger(o.logger.Named("session"))
		gen.SetLogger(o.logger.Named("gen"))
	}
	return &Bridge{client: runtime.NewClient(transport, o.client...)}, nil
}

// Client returns the dispatch client generated bindings attach to.
func (b *Bridge) Client() *runtime.Client { return b.client }

// Sessions returns the session manager for explicit session control.
func (b *Bridge) Sessions() *session.Manager { return b.client.Sessions() }

// Close releases every live session and its foreign-side state.
func (b *Bridge) Close(ctx context.Context) error {
	return b.client.Close(ctx)
}
