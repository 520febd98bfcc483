package runtime

import (
	"context"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/bridge-runtime/codec"
	"github.com/wippyai/bridge-runtime/errors"
	"github.com/wippyai/bridge-runtime/session"
)

// Pseudo-function names understood by the foreign adapter alongside
// real library functions.
const (
	fnInit           = "__init__"
	fnGetAttr        = "__getattr__"
	fnSetAttr        = "__setattr__"
	fnSessionRelease = "__session_release__"
	fnStreamRelease  = "__stream_release__"
)

// Client dispatches calls through an injected transport. Safe for
// concurrent use.
type Client struct {
	transport Transport
	sessions  *session.Manager
	allow     []string
}

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithAllowList restricts callable targets to the given dotted path
// prefixes. An empty list allows everything.
func WithAllowList(prefixes ...string) ClientOption {
	return func(c *Client) {
		c.allow = append(c.allow, prefixes...)
	}
}

// NewClient constructs a client around a transport. The client owns a
// session manager wired to release sessions through the same
// transport.
func NewClient(t Transport, opts ...ClientOption) *Client {
	c := &Client{transport: t}
	for _, opt := range opts {
		opt(c)
	}
	c.sessions = session.NewManager(session.ReleaserFunc(c.releaseSession))
	return c
}

// Sessions returns the client's session manager.
func (c *Client) Sessions() *session.Manager { return c.sessions }

// Close reclaims every live session and their foreign-side state.
func (c *Client) Close(ctx context.Context) error {
	return c.sessions.Close(ctx)
}

// Call dispatches one call and blocks for its result. Target is a
// dotted foreign path or an object reference; generated bindings and
// dynamic calls both land here and build identical payloads.
//
// A result carrying an instance id comes back as a codec.Ref owned by
// the call's session.
func (c *Client) Call(ctx context.Context, target any, function string, args []any, opts *Options) (any, error) {
	o := opts.orDefault()

	label, err := c.authorize(target)
	if err != nil {
		return nil, err
	}
	sess, wireTarget, err := c.resolveCall(ctx, target, &o)
	if err != nil {
		return nil, err
	}
	payload, err := c.buildPayload(wireTarget, function, args, sess, &o)
	if err != nil {
		return nil, err
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	Logger().Debug("call dispatched",
		zap.String("target", label),
		zap.String("function", function),
		zap.String("session_id", sess.ID()))

	env, err := c.transport.Invoke(ctx, payload)
	if err != nil {
		derr := classifyTransport(ctx, err, label, function, o.Idempotent)
		Logger().Debug("call failed",
			zap.String("target", label),
			zap.String("function", function),
			zap.Error(derr))
		return nil, derr
	}
	if !env.Success {
		derr := classifyEnvelope(env)
		Logger().Debug("call failed",
			zap.String("target", label),
			zap.String("function", function),
			zap.Error(derr))
		return nil, derr
	}

	result, err := c.decodeResult(env, sess)
	if err != nil {
		return nil, err
	}
	Logger().Debug("call completed",
		zap.String("target", label),
		zap.String("function", function))
	return result, nil
}

// Construct creates a foreign instance and returns its reference,
// owned by the call's session.
func (c *Client) Construct(ctx context.Context, classPath string, args []any, opts *Options) (codec.Ref, error) {
	result, err := c.Call(ctx, classPath, fnInit, args, opts)
	if err != nil {
		return codec.Ref{}, err
	}
	ref, ok := result.(codec.Ref)
	if !ok {
		return codec.Ref{}, errors.Protocol(errors.PhaseDispatch, "constructor response carried no instance id")
	}
	return ref, nil
}

// GetAttr reads an attribute from a foreign object or module path.
func (c *Client) GetAttr(ctx context.Context, target any, name string, opts *Options) (any, error) {
	return c.Call(ctx, target, fnGetAttr, []any{name}, opts)
}

// SetAttr writes an attribute on a foreign object or module path.
func (c *Client) SetAttr(ctx context.Context, target any, name string, value any, opts *Options) error {
	_, err := c.Call(ctx, target, fnSetAttr, []any{name, value}, opts)
	return err
}

// resolveCall picks the call's session and the wire form of the
// target. A reference target pins the call to the reference's owning
// session after verifying ownership.
func (c *Client) resolveCall(ctx context.Context, target any, o *Options) (*session.Session, any, error) {
	ref, isRef := refTarget(target)
	if isRef {
		owner, ok := c.sessions.Get(ref.SessionID)
		if !ok {
			return nil, nil, errors.InvalidRef(ref.SessionID, ref.InstanceID)
		}
		if err := owner.Verify(ref); err != nil {
			return nil, nil, err
		}
		wire, err := codec.Encode(ref)
		if err != nil {
			return nil, nil, err
		}
		return owner, wire, nil
	}

	if o.Session != nil {
		if o.Session.Released() {
			return nil, nil, errors.Released(o.Session.ID())
		}
		return o.Session, target, nil
	}
	sess, err := c.sessions.Auto(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sess, target, nil
}

func refTarget(target any) (codec.Ref, bool) {
	switch t := target.(type) {
	case codec.Ref:
		return t, true
	case *codec.Ref:
		if t != nil {
			return *t, true
		}
	}
	return codec.Ref{}, false
}

func (c *Client) buildPayload(wireTarget any, function string, args []any, sess *session.Session, o *Options) (codec.Payload, error) {
	encArgs, err := codec.EncodeArgs(args)
	if err != nil {
		return codec.Payload{}, err
	}
	encKwargs, err := codec.EncodeKwargs(o.Kwargs)
	if err != nil {
		return codec.Payload{}, err
	}
	var overflow []any
	if len(o.Overflow) > 0 {
		overflow, err = codec.EncodeArgs(o.Overflow)
		if err != nil {
			return codec.Payload{}, err
		}
	}
	return codec.Payload{
		Target:     wireTarget,
		Function:   function,
		Args:       encArgs,
		Kwargs:     encKwargs,
		SessionID:  sess.ID(),
		Idempotent: o.Idempotent,
		Runtime: codec.RuntimeControls{
			TimeoutMS:    o.Timeout.Milliseconds(),
			PoolHint:     o.PoolHint,
			OverflowArgs: overflow,
		},
	}, nil
}

// authorize enforces the allow-list on dotted path targets. Reference
// targets were created through an authorized call and pass.
func (c *Client) authorize(target any) (string, error) {
	if ref, ok := refTarget(target); ok {
		return "instance:" + ref.InstanceID, nil
	}
	path, ok := target.(string)
	if !ok || path == "" {
		return "", errors.Protocol(errors.PhaseDispatch, "call target must be a dotted path or an object reference")
	}
	if len(c.allow) == 0 {
		return path, nil
	}
	for _, prefix := range c.allow {
		if path == prefix || strings.HasPrefix(path, prefix+".") {
			return path, nil
		}
	}
	return "", errors.Unauthorized(path)
}

// decodeResult turns a success envelope into a host value. Instance
// ids become references owned by the call's session; references inside
// a decoded result tree are registered the same way.
func (c *Client) decodeResult(env codec.Envelope, sess *session.Session) (any, error) {
	if env.InstanceID != "" {
		ref, err := sess.Track(env.InstanceID)
		if err != nil {
			return nil, err
		}
		return ref, nil
	}
	result, err := codec.Decode(env.Result)
	if err != nil {
		return nil, err
	}
	if err := trackRefs(result, sess); err != nil {
		return nil, err
	}
	return result, nil
}

// trackRefs registers every reference the foreign side minted under
// the call's session so later dereferences verify cleanly.
func trackRefs(v any, sess *session.Session) error {
	switch x := v.(type) {
	case codec.Ref:
		if x.SessionID != sess.ID() {
			return nil
		}
		if !sess.Owns(x.InstanceID) {
			if _, err := sess.Track(x.InstanceID); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range x {
			if err := trackRefs(item, sess); err != nil {
				return err
			}
		}
	case codec.Tuple:
		return trackRefs([]any(x), sess)
	case codec.Set:
		return trackRefs([]any(x), sess)
	case map[string]any:
		for _, item := range x {
			if err := trackRefs(item, sess); err != nil {
				return err
			}
		}
	case codec.TaggedDict:
		for _, p := range x.Pairs {
			if err := trackRefs(p.Key, sess); err != nil {
				return err
			}
			if err := trackRefs(p.Value, sess); err != nil {
				return err
			}
		}
	}
	return nil
}

// releaseSession is the manager's foreign-side cleanup hook.
func (c *Client) releaseSession(ctx context.Context, sessionID string) error {
	env, err := c.transport.Invoke(ctx, codec.Payload{
		Function:   fnSessionRelease,
		Args:       []any{},
		Kwargs:     map[string]any{},
		SessionID:  sessionID,
		Idempotent: true,
	})
	if err != nil {
		return err
	}
	if !env.Success {
		return classifyEnvelope(env)
	}
	return nil
}

// classifyTransport maps transport failures to the dispatch taxonomy.
func classifyTransport(ctx context.Context, err error, target, function string, idempotent bool) error {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout(target, function, idempotent)
	case stderrors.Is(err, context.Canceled):
		return errors.Canceled(errors.PhaseDispatch, "call canceled by caller")
	default:
		return errors.Transport(err)
	}
}

// classifyEnvelope sub-classifies a failure envelope from the foreign
// exception class when present.
func classifyEnvelope(env codec.Envelope) error {
	switch env.ErrorType {
	case "":
		return errors.New(errors.PhaseDispatch, errors.KindUnknown).
			Detail("%s", env.Error).
			Build()
	case "ModuleNotFoundError", "AttributeError", "KeyError":
		return errors.New(errors.PhaseDispatch, errors.KindNotFound).
			ForeignType(env.ErrorType).
			Detail("%s", env.Error).
			Build()
	case "TypeError":
		return errors.TypeMismatch(env.Error, env.ErrorType)
	default:
		return errors.Foreign(env.ErrorType, env.Error, env.Traceback)
	}
}
