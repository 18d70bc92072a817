package linalg

import (
	"errors"
	"fmt"
)

// ErrNotPositiveDefinite is the sentinel wrapped by every NumericalError.
var ErrNotPositiveDefinite = errors.New("matrix is not positive definite")

// NumericalError reports a Cholesky factorization that failed after the
// configured jitter was already applied. It is never retried.
type NumericalError struct {
	Op    string // Operation that factorized (e.g., "cholesky")
	Index int    // Batch index of the failing matrix, -1 for unbatched input
	Size  int    // Order of the failing matrix
}

// Error implements the error interface.
func (e *NumericalError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: batch %d (%d×%d): %v", e.Op, e.Index, e.Size, e.Size, ErrNotPositiveDefinite)
	}
	return fmt.Sprintf("%s: %d×%d: %v", e.Op, e.Size, e.Size, ErrNotPositiveDefinite)
}

// Unwrap allows errors.Is(err, ErrNotPositiveDefinite).
func (e *NumericalError) Unwrap() error {
	return ErrNotPositiveDefinite
}
