// Package fabricerr holds the sentinel error kinds shared across the
// splice fabric's core subsystems.
package fabricerr

import "fmt"

// Kind identifies a class of fabric error for errors.Is matching.
type Kind string

const (
	// KindNoAvailableConnection means the pool held no idle agent for the
	// requested (country, asn) bucket.
	KindNoAvailableConnection Kind = "no_available_connection"

	// KindConnectionInvalid means a withdrawn agent connection failed a
	// liveness check before it could be spliced.
	KindConnectionInvalid Kind = "connection_invalid"

	// KindProtocolAnomaly means a packet violated the protocol monitor's
	// state machine for its splice.
	KindProtocolAnomaly Kind = "protocol_anomaly"

	// KindIdentityFrameInvalid means an agent's dial-in identity frame
	// failed to parse or validate.
	KindIdentityFrameInvalid Kind = "identity_frame_invalid"
)

// Error is a typed fabric error. Two Errors with the same Kind compare
// equal under errors.Is regardless of their wrapped cause or message.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches by Kind only, so callers can test with errors.Is(err, fabricerr.New(KindX, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Sentinels for errors.Is comparisons where callers don't need a message.
var (
	ErrNoAvailableConnection = New(KindNoAvailableConnection, "no idle agent connection")
	ErrConnectionInvalid     = New(KindConnectionInvalid, "agent connection failed liveness check")
	ErrProtocolAnomaly       = New(KindProtocolAnomaly, "unexpected packet for connection state")
	ErrIdentityFrameInvalid  = New(KindIdentityFrameInvalid, "malformed agent identity frame")
)
