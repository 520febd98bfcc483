// Package session manages call session lifecycles and foreign object
// ownership.
//
// A session is the unit of foreign-side state: every object reference
// created during a call belongs to exactly one session, and releasing
// the session releases everything it owns on the foreign side. Sessions
// come in two flavors. Explicit sessions are created and released by
// the caller and survive across calls. Auto sessions are created on
// demand for calls without one; callers that want related calls to
// share an auto session attach a scope to their context with WithScope.
//
// The Manager is the only factory for sessions. It remembers every
// live session so Close can reclaim all foreign state at shutdown.
package session
