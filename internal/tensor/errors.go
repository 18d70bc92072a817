package tensor

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is the sentinel wrapped by every ShapeMismatchError.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeMismatchError identifies which tensor disagreed with the shape an
// operation expected.
type ShapeMismatchError struct {
	Op      string // Operation that detected the mismatch (e.g., "base_conditional")
	Tensor  string // Name of the offending tensor (e.g., "Kmn", "q_sqrt")
	Got     Shape  // Actual shape
	Want    Shape  // Expected shape, negative entries are wildcards
	Details string // Optional free-form context
}

// Error implements the error interface.
func (e *ShapeMismatchError) Error() string {
	msg := fmt.Sprintf("%s: %s has shape %v, want %v", e.Op, e.Tensor, e.Got, e.Want)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// Unwrap allows errors.Is(err, ErrShapeMismatch).
func (e *ShapeMismatchError) Unwrap() error {
	return ErrShapeMismatch
}

// Expect returns a ShapeMismatchError when t does not match want.
// Negative entries in want match any dimension.
func Expect(op, name string, t *Dense, want ...int) error {
	if t == nil {
		return &ShapeMismatchError{Op: op, Tensor: name, Want: Shape(want), Details: "tensor is nil"}
	}
	if !t.shape.Matches(Shape(want)) {
		return &ShapeMismatchError{Op: op, Tensor: name, Got: t.shape.Clone(), Want: Shape(want)}
	}
	return nil
}

// Mismatch builds a ShapeMismatchError for a dimension that disagrees with
// another tensor rather than with a fixed pattern.
func Mismatch(op, name string, got Shape, want Shape, format string, args ...any) error {
	return &ShapeMismatchError{
		Op:      op,
		Tensor:  name,
		Got:     got.Clone(),
		Want:    want.Clone(),
		Details: fmt.Sprintf(format, args...),
	}
}
