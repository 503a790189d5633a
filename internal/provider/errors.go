package provider

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials input")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrAuth               = errors.New("provider authentication failed")
	ErrTokenExchange      = fmt.Errorf("%w: token exchange failed", ErrAuth)
	ErrFetch              = errors.New("provider activity fetch failed")
)

// Error records which phase failed for which provider. Phase is one of the
// sentinel errors above; Err is the underlying cause and may be nil.
type Error struct {
	Phase    error
	Provider Tag
	Err      error
}

// NewError wraps err as a failure of phase for the given provider.
func NewError(tag Tag, phase, err error) *Error {
	return &Error{Phase: phase, Provider: tag, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Phase)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Phase, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Phase}
	}
	return []error{e.Phase, e.Err}
}

// Detail returns the cause's message when it is safe to show to the caller.
// Login failures keep provider internals private; token exchange and fetch
// failures pass the remote message through, and input errors carry our own.
func (e *Error) Detail() string {
	if e.Err == nil {
		return ""
	}
	switch {
	case errors.Is(e.Phase, ErrInvalidCredentials),
		errors.Is(e.Phase, ErrTokenExchange),
		errors.Is(e.Phase, ErrFetch):
		return e.Err.Error()
	}
	return ""
}

// Detail extracts the caller-facing detail from err, if any.
func Detail(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Detail()
	}
	return ""
}
