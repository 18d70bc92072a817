// Package features describes the inducing variables of a sparse
// multi-output GP.
//
// A feature only carries inducing locations; how they combine with a kernel
// is decided by the covariance builders and the conditional dispatcher from
// the pair of kinds.
package features

import (
	"fmt"

	"github.com/born-ml/mogp/internal/tensor"
)

// FeatureKind tags the structural family of an inducing feature.
type FeatureKind int

// Inducing feature families.
const (
	KindInducingPoints      FeatureKind = iota // Points indexed jointly with the outputs
	KindSharedIndependent                      // One point set reused for every output/latent
	KindSeparateIndependent                    // One point set per output/latent
	KindMixedShared                            // Shared point set for a mixing kernel
	KindMixedSeparate                          // Per-latent point sets for a mixing kernel
)

// String returns a human-readable kind name.
func (k FeatureKind) String() string {
	switch k {
	case KindInducingPoints:
		return "InducingPoints"
	case KindSharedIndependent:
		return "SharedIndependent"
	case KindSeparateIndependent:
		return "SeparateIndependent"
	case KindMixedShared:
		return "MixedKernelShared"
	case KindMixedSeparate:
		return "MixedKernelSeparate"
	default:
		return fmt.Sprintf("FeatureKind(%d)", int(k))
	}
}

// Feature is an inducing-variable description.
type Feature interface {
	Kind() FeatureKind
	// NumInducing is M, the number of inducing inputs per set.
	NumInducing() int
	// InputDim is D, the dimension of the inducing inputs.
	InputDim() int
}

// Sets is implemented by features that hold one point set per output or
// latent process.
type Sets interface {
	PointSets() []*InducingPoints
}

// InducingPoints is a raw [M, D] set of inducing inputs.
type InducingPoints struct {
	Z *tensor.Dense
}

// NewInducingPoints wraps an [M, D] tensor of inducing inputs.
func NewInducingPoints(z *tensor.Dense) (*InducingPoints, error) {
	if err := tensor.Expect("new_inducing_points", "Z", z, -1, -1); err != nil {
		return nil, err
	}
	return &InducingPoints{Z: z}, nil
}

// Kind implements Feature.
func (f *InducingPoints) Kind() FeatureKind { return KindInducingPoints }

// NumInducing implements Feature.
func (f *InducingPoints) NumInducing() int { return f.Z.Dim(0) }

// InputDim implements Feature.
func (f *InducingPoints) InputDim() int { return f.Z.Dim(1) }

// SharedIndependent reuses one set of inducing points for every output.
type SharedIndependent struct {
	Points *InducingPoints
}

// NewSharedIndependent creates a shared independent feature.
func NewSharedIndependent(z *tensor.Dense) (*SharedIndependent, error) {
	p, err := NewInducingPoints(z)
	if err != nil {
		return nil, err
	}
	return &SharedIndependent{Points: p}, nil
}

// Kind implements Feature.
func (f *SharedIndependent) Kind() FeatureKind { return KindSharedIndependent }

// NumInducing implements Feature.
func (f *SharedIndependent) NumInducing() int { return f.Points.NumInducing() }

// InputDim implements Feature.
func (f *SharedIndependent) InputDim() int { return f.Points.InputDim() }

// SeparateIndependent holds a distinct set of inducing points per output.
type SeparateIndependent struct {
	Points []*InducingPoints
}

// NewSeparateIndependent creates a separate independent feature.
// All sets must share M and D.
func NewSeparateIndependent(zs ...*tensor.Dense) (*SeparateIndependent, error) {
	ps, err := pointSets("new_separate_independent", zs)
	if err != nil {
		return nil, err
	}
	return &SeparateIndependent{Points: ps}, nil
}

// Kind implements Feature.
func (f *SeparateIndependent) Kind() FeatureKind { return KindSeparateIndependent }

// NumInducing implements Feature.
func (f *SeparateIndependent) NumInducing() int { return f.Points[0].NumInducing() }

// InputDim implements Feature.
func (f *SeparateIndependent) InputDim() int { return f.Points[0].InputDim() }

// PointSets implements Sets.
func (f *SeparateIndependent) PointSets() []*InducingPoints { return f.Points }

// MixedKernelShared places one shared point set on every latent process of
// a mixing kernel.
type MixedKernelShared struct {
	Points *InducingPoints
}

// NewMixedKernelShared creates a shared feature for mixing kernels.
func NewMixedKernelShared(z *tensor.Dense) (*MixedKernelShared, error) {
	p, err := NewInducingPoints(z)
	if err != nil {
		return nil, err
	}
	return &MixedKernelShared{Points: p}, nil
}

// Kind implements Feature.
func (f *MixedKernelShared) Kind() FeatureKind { return KindMixedShared }

// NumInducing implements Feature.
func (f *MixedKernelShared) NumInducing() int { return f.Points.NumInducing() }

// InputDim implements Feature.
func (f *MixedKernelShared) InputDim() int { return f.Points.InputDim() }

// MixedKernelSeparate places a distinct point set on each latent process
// of a mixing kernel.
type MixedKernelSeparate struct {
	Points []*InducingPoints
}

// NewMixedKernelSeparate creates a separate feature for mixing kernels.
func NewMixedKernelSeparate(zs ...*tensor.Dense) (*MixedKernelSeparate, error) {
	ps, err := pointSets("new_mixed_kernel_separate", zs)
	if err != nil {
		return nil, err
	}
	return &MixedKernelSeparate{Points: ps}, nil
}

// Kind implements Feature.
func (f *MixedKernelSeparate) Kind() FeatureKind { return KindMixedSeparate }

// NumInducing implements Feature.
func (f *MixedKernelSeparate) NumInducing() int { return f.Points[0].NumInducing() }

// InputDim implements Feature.
func (f *MixedKernelSeparate) InputDim() int { return f.Points[0].InputDim() }

// PointSets implements Sets.
func (f *MixedKernelSeparate) PointSets() []*InducingPoints { return f.Points }

func pointSets(op string, zs []*tensor.Dense) ([]*InducingPoints, error) {
	if len(zs) == 0 {
		return nil, fmt.Errorf("%s: at least one inducing set required", op)
	}
	ps := make([]*InducingPoints, len(zs))
	for i, z := range zs {
		name := fmt.Sprintf("Z[%d]", i)
		if err := tensor.Expect(op, name, z, -1, -1); err != nil {
			return nil, err
		}
		if i > 0 && !z.Shape().Equal(zs[0].Shape()) {
			return nil, tensor.Mismatch(op, name, z.Shape(), zs[0].Shape(), "every inducing set must share M and D")
		}
		ps[i] = &InducingPoints{Z: z}
	}
	return ps, nil
}
