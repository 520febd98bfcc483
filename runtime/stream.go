package runtime

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/bridge-runtime/codec"
	"github.com/wippyai/bridge-runtime/errors"
	"github.com/wippyai/bridge-runtime/session"
)

// Stream opens a streaming call. Chunks arrive in order through Next;
// Close releases the foreign generator whether or not the stream was
// drained.
func (c *Client) Stream(ctx context.Context, target any, function string, args []any, opts *Options) (*Stream, error) {
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

	conn, err := c.transport.OpenStream(ctx, payload)
	if err != nil {
		return nil, classifyTransport(ctx, err, label, function, o.Idempotent)
	}

	Logger().Debug("stream opened",
		zap.String("target", label),
		zap.String("function", function),
		zap.String("stream_id", conn.ID()))

	return &Stream{
		client:   c,
		conn:     conn,
		sess:     sess,
		target:   label,
		function: function,
		timeout:  o.Timeout,
	}, nil
}

// Each runs a streaming call and delivers every chunk to fn in arrival
// order. A non-nil error from fn stops consumption and releases the
// foreign side.
func (c *Client) Each(ctx context.Context, target any, function string, args []any, opts *Options, fn func(any) error) error {
	st, err := c.Stream(ctx, target, function, args, opts)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	for {
		chunk, err := st.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
}

// Stream is one open streaming call. Next and Close are safe to call
// from different goroutines, but Next itself is not reentrant.
type Stream struct {
	client   *Client
	conn     StreamConn
	sess     *session.Session
	target   string
	function string
	timeout  time.Duration

	mu        sync.Mutex
	exhausted bool
	failed    bool
	closed    bool
	index     int64
}

// Next blocks for the next chunk. It returns io.EOF on clean foreign
// exhaustion; any other error terminates the stream.
func (s *Stream) Next(ctx context.Context) (any, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.Canceled(errors.PhaseStream, "stream closed")
	}
	if s.exhausted || s.failed {
		s.mu.Unlock()
		return nil, io.EOF
	}
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	chunk, err := s.conn.Recv(ctx)
	if err != nil {
		s.markFailed()
		return nil, classifyTransport(ctx, err, s.target, s.function, false)
	}
	if chunk.Error != "" {
		s.markFailed()
		return nil, classifyEnvelope(codec.Envelope{
			Error:     chunk.Error,
			ErrorType: chunk.ErrorType,
		})
	}
	if chunk.IsFinal {
		s.mu.Lock()
		s.exhausted = true
		s.mu.Unlock()
		Logger().Debug("stream exhausted",
			zap.String("stream_id", s.conn.ID()),
			zap.Int64("chunks", s.index))
		return nil, io.EOF
	}

	value, err := codec.Decode(chunk.Data)
	if err != nil {
		s.markFailed()
		return nil, err
	}
	if err := trackRefs(value, s.sess); err != nil {
		s.markFailed()
		return nil, err
	}

	s.mu.Lock()
	s.index++
	s.mu.Unlock()
	return value, nil
}

func (s *Stream) markFailed() {
	s.mu.Lock()
	s.failed = true
	s.mu.Unlock()
}

// Close stops the stream. When the foreign generator has not finished
// on its own, Close signals it to release before dropping the
// transport connection; abandoning an open generator to garbage
// collection is never acceptable.
func (s *Stream) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	needsRelease := !s.exhausted && !s.failed
	s.mu.Unlock()

	if needsRelease {
		_, err := s.client.transport.Invoke(ctx, codec.Payload{
			Function:   fnStreamRelease,
			Args:       []any{s.conn.ID()},
			Kwargs:     map[string]any{},
			SessionID:  s.sess.ID(),
			Idempotent: true,
		})
		if err != nil {
			Logger().Debug("stream release failed",
				zap.String("stream_id", s.conn.ID()),
				zap.Error(err))
		}
	}
	return s.conn.Close(ctx)
}
