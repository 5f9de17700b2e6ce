package graph

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrPrecondition   = errors.New("precondition violated")
	ErrInvalidNode    = errors.New("invalid node index")
	ErrArcCount       = errors.New("unexpected number of arcs")
	ErrGradSize       = errors.New("gradient size does not match number of arcs")
	ErrNotImplemented = errors.New("gradient computation not implemented")
	ErrCyclic         = errors.New("graph contains a cycle")
	ErrFrozen         = errors.New("graph is used as an input and can no longer be modified")
)

// OpError records the operation that rejected its input.
type OpError struct {
	Op  string // Operation name (e.g., "compose", "Graph.AddArc")
	Err error  // Underlying sentinel error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("[gtn.%s] %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Errorf builds an OpError whose message adds formatted details to a sentinel.
func Errorf(op string, sentinel error, format string, args ...any) error {
	return &OpError{Op: op, Err: fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)}
}
