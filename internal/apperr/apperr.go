// Package apperr classifies failures at the component boundaries of the
// pipeline so callers and tests can tell them apart without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure class of an error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnection means the broker is unreachable or the link dropped.
	KindConnection
	// KindDecode means an inbound payload could not be decoded.
	KindDecode
	// KindPersistence means a storage read or write failed.
	KindPersistence
	// KindPublish means a command could not be transmitted.
	KindPublish
	// KindDelivery means an alert could not be delivered.
	KindDelivery
	// KindValidation means a control request was malformed.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindDecode:
		return "decode"
	case KindPersistence:
		return "persistence"
	case KindPublish:
		return "publish"
	case KindDelivery:
		return "delivery"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error from a message.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
