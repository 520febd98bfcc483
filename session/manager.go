package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/bridge-runtime/errors"
)

// Releaser tears down a session's foreign-side state. The runtime
// client implements this over its transport.
type Releaser interface {
	ReleaseSession(ctx context.Context, sessionID string) error
}

// ReleaserFunc adapts a function to the Releaser interface.
type ReleaserFunc func(ctx context.Context, sessionID string) error

func (f ReleaserFunc) ReleaseSession(ctx context.Context, sessionID string) error {
	return f(ctx, sessionID)
}

type scopeKey struct{}

// WithScope returns a context whose auto-session calls all share one
// session. Two contexts from two WithScope calls never share state,
// even when derived from the same parent.
func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, uuid.NewString())
}

// Manager creates, caches, and reclaims sessions.
type Manager struct {
	releaser Releaser

	mu      sync.Mutex
	live    map[string]*Session // by session id
	byScope map[string]*Session // auto sessions keyed by scope token
	closed  bool
}

// NewManager constructs a manager. The releaser may be nil when no
// foreign-side cleanup is wanted, e.g. in tests.
func NewManager(releaser Releaser) *Manager {
	return &Manager{
		releaser: releaser,
		live:     make(map[string]*Session),
		byScope:  make(map[string]*Session),
	}
}

// Explicit creates a caller-managed session. The caller is responsible
// for releasing it; unreleased explicit sessions are reclaimed at
// Close.
func (m *Manager) Explicit(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.Canceled(errors.PhaseSession, "session manager closed")
	}
	s := newSession(uuid.NewString(), ModeExplicit)
	m.live[s.id] = s
	Logger().Debug("session created",
		zap.String("session_id", s.id),
		zap.String("mode", s.mode.String()))
	return s, nil
}

// Auto returns the session for the context's scope, creating it on
// first use. A context without a scope gets a fresh isolated session
// that lives until Close reclaims it.
func (m *Manager) Auto(ctx context.Context) (*Session, error) {
	scope, _ := ctx.Value(scopeKey{}).(string)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.Canceled(errors.PhaseSession, "session manager closed")
	}
	if scope != "" {
		if s, ok := m.byScope[scope]; ok && !s.Released() {
			return s, nil
		}
	}

	s := newSession(uuid.NewString(), ModeAuto)
	m.live[s.id] = s
	if scope != "" {
		m.byScope[scope] = s
	}
	Logger().Debug("session created",
		zap.String("session_id", s.id),
		zap.String("mode", s.mode.String()),
		zap.Bool("scoped", scope != ""))
	return s, nil
}

// Get looks up a live session by id.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.live[sessionID]
	return s, ok
}

// Release tears down one session: foreign state first, then local
// bookkeeping. Releasing an already-released session is a no-op.
func (m *Manager) Release(ctx context.Context, s *Session) error {
	instances, first := s.markReleased()
	if !first {
		return nil
	}

	m.mu.Lock()
	delete(m.live, s.id)
	for scope, cached := range m.byScope {
		if cached == s {
			delete(m.byScope, scope)
		}
	}
	m.mu.Unlock()

	Logger().Debug("session released",
		zap.String("session_id", s.id),
		zap.Int("instances", len(instances)))

	if m.releaser == nil {
		return nil
	}
	if err := m.releaser.ReleaseSession(ctx, s.id); err != nil {
		return errors.Wrap(errors.PhaseSession, errors.KindTransport, err, "foreign session release failed")
	}
	return nil
}

// Live returns the number of live sessions.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Close releases every remaining session and rejects further session
// creation. The first release error is returned after all sessions
// have been attempted.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	remaining := make([]*Session, 0, len(m.live))
	for _, s := range m.live {
		remaining = append(remaining, s)
	}
	m.mu.Unlock()

	var firstErr error
	for _, s := range remaining {
		if err := m.Release(ctx, s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	Logger().Debug("session manager closed", zap.Int("reclaimed", len(remaining)))
	return firstErr
}
