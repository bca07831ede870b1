package engine

import (
	"errors"
	"fmt"

	"github.com/mveit/entente/pkg/dipmap"
)

// ErrorKind classifies the failures the engine raises.
type ErrorKind int

const (
	// InvalidSubmission marks an order that is syntactically valid but
	// illegal for this phase, unit, or user.
	InvalidSubmission ErrorKind = iota
	// NotFound marks a missing game, province, unit, or country.
	NotFound
	// PermissionDenied marks a submission by a user who does not own the
	// affected country.
	PermissionDenied
	// InvalidState marks an operation incompatible with the current phase.
	InvalidState
	// MapError marks a corrupt or inconsistent map descriptor.
	MapError
	// Internal marks an invariant violation. It is a bug, never recovered.
	Internal
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidSubmission:
		return "invalid submission"
	case NotFound:
		return "not found"
	case PermissionDenied:
		return "permission denied"
	case InvalidState:
		return "invalid state"
	case MapError:
		return "map error"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the engine's error type. Kind drives transport-layer mapping;
// Message is user-visible.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// errf builds an engine error with a formatted message.
func errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wrapMapErr converts a dipmap loading failure into an engine MapError.
func wrapMapErr(err error) *Error {
	return &Error{Kind: MapError, Message: "bad map", Err: err}
}

// KindOf extracts the ErrorKind from an error chain. Unrecognized errors
// report Internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var me *dipmap.MapError
	if errors.As(err, &me) {
		return MapError
	}
	return Internal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
