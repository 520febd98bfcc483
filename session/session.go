package session

import (
	"sync"

	"github.com/wippyai/bridge-runtime/codec"
	"github.com/wippyai/bridge-runtime/errors"
)

// Mode distinguishes caller-managed sessions from manager-created ones.
type Mode uint8

const (
	// ModeExplicit sessions are created and released by the caller.
	ModeExplicit Mode = iota
	// ModeAuto sessions are created on demand and reclaimed by the
	// manager.
	ModeAuto
)

func (m Mode) String() string {
	if m == ModeAuto {
		return "auto"
	}
	return "explicit"
}

// Session owns a set of foreign object instances. All methods are safe
// for concurrent use.
type Session struct {
	id   string
	mode Mode

	mu        sync.RWMutex
	instances map[string]struct{}
	released  bool
}

func newSession(id string, mode Mode) *Session {
	return &Session{
		id:        id,
		mode:      mode,
		instances: make(map[string]struct{}),
	}
}

// ID returns the session identifier carried on every wire payload.
func (s *Session) ID() string { return s.id }

// Mode reports whether the session is explicit or auto.
func (s *Session) Mode() Mode { return s.mode }

// Track registers a foreign instance as owned by this session and
// returns the reference callers pass back into later calls.
func (s *Session) Track(instanceID string) (codec.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return codec.Ref{}, errors.Released(s.id)
	}
	s.instances[instanceID] = struct{}{}
	return codec.Ref{SessionID: s.id, InstanceID: instanceID}, nil
}

// Forget drops a single instance from the session without touching the
// foreign side. Used after the foreign side reports the instance gone.
func (s *Session) Forget(instanceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, instanceID)
}

// Owns reports whether the session still tracks the given instance.
func (s *Session) Owns(instanceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.instances[instanceID]
	return ok
}

// Verify checks that a reference belongs to this session and that the
// session is still alive. Every call that dereferences an object goes
// through here before touching the wire.
func (s *Session) Verify(ref codec.Ref) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.released {
		return errors.Released(s.id)
	}
	if ref.SessionID != s.id {
		return errors.InvalidRef(ref.SessionID, ref.InstanceID)
	}
	if _, ok := s.instances[ref.InstanceID]; !ok {
		return errors.InvalidRef(ref.SessionID, ref.InstanceID)
	}
	return nil
}

// Len returns the number of live instances.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}

// Released reports whether the session has been released.
func (s *Session) Released() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.released
}

// markReleased flips the session dead and returns the instances it
// owned. Idempotent: the second caller gets (nil, false).
func (s *Session) markReleased() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, false
	}
	s.released = true
	ids := make([]string, 0, len(s.instances))
	for id := range s.instances {
		ids = append(ids, id)
	}
	s.instances = nil
	return ids, true
}
