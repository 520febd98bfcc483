package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred.
type Phase string

const (
	PhaseSchema   Phase = "schema"   // schema normalization/validation
	PhaseGenerate Phase = "generate" // binding generation
	PhaseEncode   Phase = "encode"   // host value to wire value
	PhaseDecode   Phase = "decode"   // wire value to host value
	PhaseDispatch Phase = "dispatch" // foreign call execution
	PhaseSession  Phase = "session"  // session/reference lifecycle
	PhaseStream   Phase = "stream"   // streaming call delivery
)

// Kind categorizes the error.
type Kind string

const (
	KindSerialization Kind = "serialization" // value not representable on the wire
	KindInvalidSchema Kind = "invalid_schema"
	KindDuplicatePath Kind = "duplicate_path"
	KindNotFound      Kind = "not_found"     // target/function missing on foreign side
	KindTypeMismatch  Kind = "type_mismatch" // foreign signature rejected the arguments
	KindForeign       Kind = "foreign"       // foreign exception with known class
	KindUnknown       Kind = "unknown"       // foreign failure without usable metadata
	KindUnauthorized  Kind = "unauthorized"  // target not in the enforced allow-list
	KindProtocol      Kind = "protocol"      // malformed response envelope
	KindTransport     Kind = "transport"     // send/receive primitive failed
	KindReleased      Kind = "released"      // session already released
	KindInvalidRef    Kind = "invalid_ref"   // object reference not owned by its session
	KindCanceled      Kind = "canceled"
	KindWrite         Kind = "write" // artifact write failed

	// KindTimeout marks a deadline-exceeded call. The foreign operation's
	// true outcome is indeterminate: it may still complete after this error
	// is returned. Callers must not assume rollback and must not retry
	// unless the call was marked idempotent.
	KindTimeout Kind = "timeout"
)

// Error is the structured error type used throughout the bridge.
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	GoType      string
	ForeignType string // foreign exception class or foreign type name
	Detail      string
	Path        []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.ForeignType != "" {
		b.WriteString(": ")
		switch {
		case e.GoType != "" && e.ForeignType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", foreign type ")
			b.WriteString(e.ForeignType)
		case e.GoType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		default:
			b.WriteString("foreign type ")
			b.WriteString(e.ForeignType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ForeignType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two *Error values match
// when their Phase and Kind agree, so callers can branch with errors.Is
// against a bare &Error{Phase: ..., Kind: ...} sentinel.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path.
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name.
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ForeignType sets the foreign type or exception class name.
func (b *Builder) ForeignType(t string) *Builder {
	b.err.ForeignType = t
	return b
}

// Value sets the offending value.
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns.

// Serialization creates a fail-closed serialization error identifying the
// offending value, its Go type, and its path within the encoded tree.
func Serialization(phase Phase, path []string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSerialization,
		Path:   path,
		GoType: fmt.Sprintf("%T", value),
		Value:  value,
		Detail: "value not representable in the wire-safe set",
	}
}

// InvalidSchema creates a schema validation error.
func InvalidSchema(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseSchema,
		Kind:   KindInvalidSchema,
		Path:   path,
		Detail: detail,
	}
}

// DuplicatePath creates an error for a dotted path that appears more than
// once within one library schema.
func DuplicatePath(dotted string) *Error {
	return &Error{
		Phase:  PhaseSchema,
		Kind:   KindDuplicatePath,
		Detail: fmt.Sprintf("dotted path %q declared more than once", dotted),
	}
}

// NotFound creates a dispatch error for a missing foreign target.
func NotFound(what, name string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found on foreign side", what, name),
	}
}

// TypeMismatch creates a dispatch error for rejected arguments.
func TypeMismatch(detail, foreignType string) *Error {
	return &Error{
		Phase:       PhaseDispatch,
		Kind:        KindTypeMismatch,
		ForeignType: foreignType,
		Detail:      detail,
	}
}

// Foreign creates a dispatch error wrapping a foreign exception.
func Foreign(class, message, traceback string) *Error {
	detail := message
	if traceback != "" {
		detail = message + "\n" + traceback
	}
	return &Error{
		Phase:       PhaseDispatch,
		Kind:        KindForeign,
		ForeignType: class,
		Detail:      detail,
	}
}

// Timeout creates a deadline-exceeded error for a dispatched call.
func Timeout(target, function string, idempotent bool) *Error {
	mode := "non-idempotent"
	if idempotent {
		mode = "idempotent"
	}
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindTimeout,
		Detail: fmt.Sprintf("%s call %s.%s exceeded its deadline; foreign outcome indeterminate", mode, target, function),
	}
}

// Unauthorized creates an allow-list rejection, distinct from not-found.
func Unauthorized(target string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindUnauthorized,
		Detail: fmt.Sprintf("target %q not present in the enforced allow-list", target),
	}
}

// Protocol creates an error for a malformed response envelope.
func Protocol(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindProtocol,
		Detail: detail,
	}
}

// Transport wraps a failure of the injected send/receive primitive.
func Transport(cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindTransport,
		Detail: "transport roundtrip failed",
		Cause:  cause,
	}
}

// Released creates an error for operations on a released session.
func Released(sessionID string) *Error {
	return &Error{
		Phase:  PhaseSession,
		Kind:   KindReleased,
		Detail: fmt.Sprintf("session %q already released", sessionID),
	}
}

// InvalidRef creates an error for an object reference whose owning session
// does not know it.
func InvalidRef(sessionID, instanceID string) *Error {
	return &Error{
		Phase:  PhaseSession,
		Kind:   KindInvalidRef,
		Detail: fmt.Sprintf("instance %q not owned by session %q", instanceID, sessionID),
	}
}

// Canceled creates an error for a caller-canceled call or stream.
func Canceled(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCanceled,
		Detail: detail,
	}
}

// Write wraps an artifact write failure.
func Write(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindWrite,
		Detail: fmt.Sprintf("write artifact %s", path),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with phase and kind context.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
