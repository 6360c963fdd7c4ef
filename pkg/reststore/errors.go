package reststore

import (
	"errors"
	"fmt"
)

// Kind classifies every error a Store reports.
type Kind string

const (
	// KindArgument marks malformed calls: nil requests or records, missing
	// identifiers, undecodable input to Use.
	KindArgument Kind = "ArgumentError"
	// KindConnection marks exchanges that produced no HTTP response.
	KindConnection Kind = "ConnectionError"
	// KindServer marks 5xx responses.
	KindServer Kind = "ServerError"
	// KindHTTP marks any other status outside 200-399.
	KindHTTP Kind = "HttpError"
	// KindHTTPResponse marks successful exchanges whose body cannot be used.
	KindHTTPResponse Kind = "HttpResponseError"
	// KindNotFound marks cache lookups for absent keys.
	KindNotFound Kind = "NotFoundError"
)

// Error is the single error type returned by Store and Executor.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	// Payload holds the decoded error body of HTTP failures, when any.
	Payload any
	Err     error
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrArgument     = &Error{Kind: KindArgument}
	ErrConnection   = &Error{Kind: KindConnection}
	ErrServer       = &Error{Kind: KindServer}
	ErrHTTP         = &Error{Kind: KindHTTP}
	ErrHTTPResponse = &Error{Kind: KindHTTPResponse}
	ErrNotFound     = &Error{Kind: KindNotFound}
)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "reststore: "
	if e.Op != "" {
		msg += e.Op + ": "
	}
	msg += string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, ErrServer) holds for any
// server error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Op != "" || t.Message != "" || t.StatusCode != 0 || t.Err != nil {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func argumentError(op, format string, args ...any) *Error {
	return newError(KindArgument, op, format, args...)
}

// withOp relabels an *Error with the facade operation that surfaced it.
func withOp(err error, op string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Op = op
	return &cp
}
