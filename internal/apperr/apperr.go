// Package apperr provides the error taxonomy shared by every core component.
// Kinds are a closed set; callers switch on Kind rather than a class
// hierarchy, since Go has nothing to mirror an exception inheritance tree.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a failure. An external HTTP layer maps
// each Kind to a status code; this package only carries the classification.
type Kind string

const (
	KindValidationFailed     Kind = "ValidationFailed"
	KindNotFound             Kind = "NotFound"
	KindConflict             Kind = "Conflict"
	KindAuthenticationFailed Kind = "AuthenticationFailed"
	KindRateLimited          Kind = "RateLimited"
	KindQueueFull            Kind = "QueueFull"
	KindTimeout              Kind = "Timeout"
	KindCancelled            Kind = "Cancelled"
	KindInvalidURL           Kind = "InvalidURL"
	KindUnsupportedPlatform  Kind = "UnsupportedPlatform"
	KindSizeLimitExceeded    Kind = "SizeLimitExceeded"
	KindMetadataError        Kind = "MetadataError"
	KindDownloadError        Kind = "DownloadError"
	KindStorageError         Kind = "StorageError"
	KindWebhookError         Kind = "WebhookError"
)

var kindSentinels = map[Kind]error{}

// sentinelFor returns a stable error value for kind so errors.Is works
// without pointer identity on *Error.
func sentinelFor(k Kind) error {
	if e, ok := kindSentinels[k]; ok {
		return e
	}
	e := errors.New(string(k))
	kindSentinels[k] = e
	return e
}

// Error is a structured error carrying the failing operation, its taxonomy
// kind, an optional user-facing message, and the underlying cause.
type Error struct {
	Op      string // e.g. "queue.Submit"
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap exposes both the underlying cause and the kind sentinel so
// errors.Is(err, apperr.Sentinel(KindX)) and errors.As still work after
// repeated wrapping.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Err, sentinelFor(e.Kind)}
	}
	return []error{sentinelFor(e.Kind)}
}

// New builds an Error for the given operation, kind and cause.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewWithMessage builds an Error carrying a user-facing message instead of
// a wrapped cause.
func NewWithMessage(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// Wrap attaches operation and kind context to err, passing nil through
// unchanged.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Is reports whether err belongs to the given kind, whether or not it was
// constructed through this package.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return errors.Is(err, sentinelFor(kind))
}

// KindOf extracts the Kind carried by err, defaulting to KindDownloadError
// for errors this package did not produce.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDownloadError
}
