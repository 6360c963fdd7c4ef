package httpx

import (
	"context"
	"errors"
	"fmt"
)

// ConnectError reports an exchange that produced no HTTP response at all:
// refused connections, DNS failures, cancelled contexts.
type ConnectError struct {
	Method string
	URL    string
	Err    error
}

func (e *ConnectError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("connect error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Canceled reports whether the exchange was abandoned by the caller.
func (e *ConnectError) Canceled() bool {
	if e == nil {
		return false
	}
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}
