package store

import "errors"

// notFoundError reports a missing session or result.
type notFoundError struct {
	what string
	id   string
}

func (e notFoundError) Error() string { return e.what + " not found: " + e.id }

// ErrSessionNotFound returns an error for a missing chat session id.
func ErrSessionNotFound(id string) error { return notFoundError{what: "session", id: id} }

// ErrResultNotFound returns an error for a missing result id.
func ErrResultNotFound(id string) error { return notFoundError{what: "result", id: id} }

// IsNotFound reports whether err indicates a missing session or result.
func IsNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}

// IsSessionNotFound reports whether err indicates a missing session.
func IsSessionNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf) && nf.what == "session"
}

// IsResultNotFound reports whether err indicates a missing result.
func IsResultNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf) && nf.what == "result"
}
