package bench

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"benchd/internal/store"
)

// ErrorKind classifies why a generation session failed.
type ErrorKind string

const (
	KindConnectTimeout ErrorKind = "connect_timeout"
	KindReadTimeout    ErrorKind = "read_timeout"
	KindProviderError  ErrorKind = "provider_error"
	KindParseError     ErrorKind = "parse_error"
	KindAborted        ErrorKind = "aborted"
)

// SessionError is the error outcome of one generation session. It is recorded
// on the result and never propagated past the session.
type SessionError struct {
	Kind    ErrorKind
	ModelID string
	Err     error
}

func (e *SessionError) Error() string {
	var label string
	switch e.Kind {
	case KindConnectTimeout:
		label = "connect timeout"
	case KindReadTimeout:
		label = "read timeout"
	case KindParseError:
		label = "unexpected response"
	case KindAborted:
		label = "aborted"
	default:
		label = "provider error"
	}
	if e.Err == nil {
		return label
	}
	return label + ": " + e.Err.Error()
}

func (e *SessionError) Unwrap() error { return e.Err }

func kindOf(err error) ErrorKind {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsConnectTimeout reports whether err is a session that never got a first byte.
func IsConnectTimeout(err error) bool { return kindOf(err) == KindConnectTimeout }

// IsReadTimeout reports whether err is a session that went silent mid-stream.
func IsReadTimeout(err error) bool { return kindOf(err) == KindReadTimeout }

// IsProviderError reports whether err is an upstream failure.
func IsProviderError(err error) bool { return kindOf(err) == KindProviderError }

// IsParseError reports whether err is an unexpected upstream payload.
func IsParseError(err error) bool { return kindOf(err) == KindParseError }

// IsAborted reports whether err is an externally canceled session.
func IsAborted(err error) bool { return kindOf(err) == KindAborted }

// errAborted is the cancellation cause used by AbortAll.
var errAborted = errors.New("aborted by user")

type timeoutCause struct {
	kind ErrorKind
	ms   int64
}

func (t timeoutCause) Error() string {
	if t.kind == KindConnectTimeout {
		return fmt.Sprintf("no response within %dms", t.ms)
	}
	return fmt.Sprintf("no data for %dms", t.ms)
}

// Request-level errors. These reject a call before any session starts.
var (
	ErrEmptyPrompt    = errors.New("prompt is empty")
	ErrNoActiveModels = errors.New("no active models")
	ErrEngineClosed   = errors.New("engine is closed")
)

// resultBusyError signals a retry of a result that still has a live session.
type resultBusyError struct{ id string }

func (e resultBusyError) Error() string { return "result is still generating: " + e.id }

// ErrResultBusy constructs a resultBusyError.
func ErrResultBusy(id string) error { return resultBusyError{id: id} }

// IsBusy reports whether err indicates a result with a live session (409).
func IsBusy(err error) bool {
	var b resultBusyError
	return errors.As(err, &b)
}

type queueItemNotFoundError struct{ id string }

func (e queueItemNotFoundError) Error() string { return "queue item not found: " + e.id }

// ErrQueueItemNotFound returns an error for a missing queue item id.
func ErrQueueItemNotFound(id string) error { return queueItemNotFoundError{id: id} }

// IsQueueItemNotFound reports whether err indicates a missing queue item.
func IsQueueItemNotFound(err error) bool {
	var q queueItemNotFoundError
	return errors.As(err, &q)
}

type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns an error for a model id absent from the store.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsNotFound reports whether err names a missing session, result, model or queue item.
func IsNotFound(err error) bool {
	var m modelNotFoundError
	return store.IsNotFound(err) || IsQueueItemNotFound(err) || errors.As(err, &m)
}

// IsInvalid reports whether err rejects the request's input (400).
func IsInvalid(err error) bool {
	return errors.Is(err, ErrEmptyPrompt) || errors.Is(err, ErrNoActiveModels)
}

// capError truncates an error message to maxErrorBytes on a rune boundary.
func capError(msg string) string {
	if len(msg) <= maxErrorBytes {
		return msg
	}
	cut := maxErrorBytes - len("…")
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "…"
}
