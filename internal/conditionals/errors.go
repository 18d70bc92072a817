package conditionals

import (
	"errors"
	"fmt"

	"github.com/born-ml/mogp/internal/features"
	"github.com/born-ml/mogp/internal/kernels"
)

// ErrNoRegime is the sentinel wrapped by every DispatchError.
var ErrNoRegime = errors.New("no conditional registered")

// DispatchError reports a (feature, kernel) pair outside the dispatch table.
// It signals a programming error and is never recovered from.
type DispatchError struct {
	Feature features.FeatureKind
	Kernel  kernels.KernelKind
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("%v for feature %s and kernel %s", ErrNoRegime, e.Feature, e.Kernel)
}

// Unwrap allows errors.Is(err, ErrNoRegime).
func (e *DispatchError) Unwrap() error {
	return ErrNoRegime
}
