// Package runtime dispatches calls to the foreign side.
//
// Client is the single entry point for every call surface: generated
// bindings, constructors, attribute access, and ad-hoc dynamic calls
// all build the same payload and pass through the same codec, so the
// typed and untyped paths can never drift apart.
//
// The transport is injected. The package never spawns workers, retries
// calls, or touches the network itself; it turns one call into one
// payload, hands it to the Transport, and classifies what comes back.
package runtime
