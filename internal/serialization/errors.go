package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTooManyNodes       = errors.New("too many nodes in file")
	ErrTooManyArcs        = errors.New("too many arcs in file")
	ErrSyntax             = errors.New("malformed graph text")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "arc_endpoint", "payload_size")
	Index   int    // Node or arc index involved, -1 if none
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: index %d: %s", e.Type, e.Index, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// SyntaxError reports a malformed line of the text format.
type SyntaxError struct {
	Line    int // 1-based line number
	Details string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: line %d: %s", ErrSyntax, e.Line, e.Details)
}

// Unwrap returns ErrSyntax.
func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}
