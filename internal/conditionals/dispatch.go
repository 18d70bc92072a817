package conditionals

import (
	"fmt"

	"github.com/born-ml/mogp/internal/features"
	"github.com/born-ml/mogp/internal/kernels"
)

// Regime identifies one of the five conditional algorithms.
type Regime int

// Conditional regimes.
const (
	// RegimeSharedIndependent: one inducing set and one kernel shared by
	// every output; a single base conditional broadcast across columns.
	RegimeSharedIndependent Regime = iota
	// RegimeSeparateIndependent: P independent problems, one base
	// conditional per output.
	RegimeSeparateIndependent
	// RegimeInterdomain: independent latents projected through W with the
	// full [M, L, N, P] cross covariance.
	RegimeInterdomain
	// RegimeFullyCorrelated: inducing variables indexed jointly by
	// (inducing point, output).
	RegimeFullyCorrelated
	// RegimeMixed: per-latent independent conditionals mixed through W.
	RegimeMixed
)

// String returns a human-readable regime name.
func (r Regime) String() string {
	switch r {
	case RegimeSharedIndependent:
		return "shared-independent"
	case RegimeSeparateIndependent:
		return "separate-independent"
	case RegimeInterdomain:
		return "interdomain"
	case RegimeFullyCorrelated:
		return "fully-correlated"
	case RegimeMixed:
		return "mixed"
	default:
		return fmt.Sprintf("Regime(%d)", int(r))
	}
}

// Resolve selects the regime for a (feature kind, kernel kind) pair.
// The table is closed: any pair not listed returns a *DispatchError.
//
//	SharedIndependent   × SharedIndependent        -> shared-independent
//	{Shared,Separate}   × {Shared,Separate}Indep.  -> separate-independent
//	InducingPoints      × any multi-output kernel  -> fully-correlated
//	{Shared,Separate}   × SeparateMixed            -> interdomain
//	MixedKernel{Shared,Separate} × SeparateMixed   -> mixed
func Resolve(fk features.FeatureKind, kk kernels.KernelKind) (Regime, error) {
	switch fk {
	case features.KindInducingPoints:
		switch kk {
		case kernels.KindSharedIndependent, kernels.KindSeparateIndependent,
			kernels.KindSeparateMixed, kernels.KindMultiOutput:
			return RegimeFullyCorrelated, nil
		}

	case features.KindSharedIndependent, features.KindSeparateIndependent:
		switch kk {
		case kernels.KindSharedIndependent, kernels.KindSeparateIndependent:
			if fk == features.KindSharedIndependent && kk == kernels.KindSharedIndependent {
				return RegimeSharedIndependent, nil
			}
			return RegimeSeparateIndependent, nil
		case kernels.KindSeparateMixed:
			return RegimeInterdomain, nil
		}

	case features.KindMixedShared, features.KindMixedSeparate:
		if kk == kernels.KindSeparateMixed {
			return RegimeMixed, nil
		}
	}
	return 0, &DispatchError{Feature: fk, Kernel: kk}
}

// Entry is one row of the dispatch table.
type Entry struct {
	Feature features.FeatureKind
	Kernel  kernels.KernelKind
	Regime  Regime
}

var (
	featureKinds = []features.FeatureKind{
		features.KindInducingPoints,
		features.KindSharedIndependent,
		features.KindSeparateIndependent,
		features.KindMixedShared,
		features.KindMixedSeparate,
	}
	kernelKinds = []kernels.KernelKind{
		kernels.KindSharedIndependent,
		kernels.KindSeparateIndependent,
		kernels.KindSeparateMixed,
		kernels.KindMultiOutput,
	}
)

// Registered lists every (feature kind, kernel kind) pair that resolves.
func Registered() []Entry {
	var out []Entry
	for _, fk := range featureKinds {
		for _, kk := range kernelKinds {
			if r, err := Resolve(fk, kk); err == nil {
				out = append(out, Entry{Feature: fk, Kernel: kk, Regime: r})
			}
		}
	}
	return out
}
