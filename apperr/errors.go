package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide how to react without
// inspecting error strings.
type Kind string

const (
	// KindValidation marks form/field-level failures. Recoverable by user edit.
	KindValidation Kind = "validation"
	// KindEncoding marks unreadable or corrupt attachments. The user must reselect files.
	KindEncoding Kind = "encoding"
	// KindTransport marks network or stream failures. Recoverable via explicit retry.
	KindTransport Kind = "transport"
	// KindAuth marks a rejected token. Surfaced to trigger re-authentication.
	KindAuth Kind = "auth"
	// KindRejected marks a well-formed response indicating failure (e.g. succeeded=false).
	KindRejected Kind = "rejected"
	// KindNotFound marks a missing resource.
	KindNotFound Kind = "not_found"
)

// Error tags an underlying error with a Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf builds a tagged error from a format string.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or the empty string when err carries no tag.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return ""
}

// IsKind reports whether err is tagged with kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
