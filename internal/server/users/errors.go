package users

import "fmt"

// Kind classifies an operation outcome so the transport layer can pick a
// status code without parsing messages.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is the domain error type returned by the policy and the service.
// Message is user-facing; a denial may legitimately carry no message at all
// (for example self-delete), in which case only the status is reported.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindBadRequest:
		return "bad request"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	}
	return "unknown error"
}

// Is matches errors by Kind, so errors.Is(err, ErrForbidden) holds for any
// forbidden outcome regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Kind == t.Kind
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Bare outcomes, usable both as return values and as errors.Is targets.
var (
	ErrBadRequest      = &Error{Kind: KindBadRequest}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
)
