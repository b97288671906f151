package wim

import "github.com/pkg/errors"

// Sentinel fatal error kinds. Callers can recover the kind that caused a
// wrapped error with errors.Is / errors.Cause.
var (
	// ErrOutOfMemory is returned when an allocation the codec needed
	// could not be made. Go callers will rarely see this directly since
	// the runtime panics on true allocation failure, but it is
	// preserved as a distinct sentinel for callers that impose their
	// own memory budgets (e.g. a caller-supplied io.Reader that returns
	// it deliberately) and for symmetry with the harvester, which must
	// distinguish it from ordinary warnings.
	ErrOutOfMemory = errors.New("wim: out of memory")

	// ErrInvalidMetadataResource is returned when a metadata resource's
	// byte layout is malformed beyond what a warn-and-skip recovery can
	// paper over: a corrupt length field, a cycle in the subdirectory
	// graph, or a record that doesn't fit within the buffer.
	ErrInvalidMetadataResource = errors.New("wim: invalid metadata resource")

	// ErrEncodingFailure is returned when a name cannot be represented
	// losslessly on the wire, i.e. its UTF-16 encoding does not
	// round-trip back to the original string.
	ErrEncodingFailure = errors.New("wim: encoding failure")
)

// External-caller-facing path lookup errors (§4.D). These are ordinary
// sentinel values, not fatal: missing and non-directory path components
// are expected outcomes of a lookup, not corruption.
var (
	ErrNotFound      = errors.New("wim: not found")
	ErrNotADirectory = errors.New("wim: not a directory")
)

// ErrInvalidValue is returned by a RegistryHive when a requested value
// exists but cannot be produced as a string (the "INVALID" status §6
// documents for get_string/get_number). Like ErrNotFound, it is not
// fatal: the caller logs it and moves on.
var ErrInvalidValue = errors.New("wim: invalid registry value")

// ParseError wraps a fatal parse error with the operation that produced it,
// in the style this codebase has always reported I/O failures.
type ParseError struct {
	Oper string
	Err  error
}

func (e *ParseError) Error() string {
	return "wim parse error at " + e.Oper + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErrorf(oper string, cause error) error {
	return &ParseError{Oper: oper, Err: cause}
}
