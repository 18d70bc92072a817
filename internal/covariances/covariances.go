// Package covariances builds the prior covariances between inducing
// variables (Kuu) and between inducing variables and new inputs (Kuf) for
// every supported (feature, kernel) pair.
package covariances

import (
	"errors"
	"fmt"

	"github.com/born-ml/mogp/internal/features"
	"github.com/born-ml/mogp/internal/kernels"
	"github.com/born-ml/mogp/internal/tensor"
)

// ErrUnsupported is returned for pairs without a per-latent structure,
// e.g. a Coregionalized kernel with anything but InducingPoints.
var ErrUnsupported = errors.New("unsupported feature/kernel pair")

// Kuu returns the inducing prior covariance with jitter added once to the
// (flattened) diagonal.
//
// Shapes:
//   - InducingPoints × any kernel:            [M, L, M, L]
//   - SharedIndependent × SharedIndependent:  [M, M]
//   - every other pair:                       [L, M, M]
func Kuu(feat features.Feature, kern kernels.MultiOutput, jitter float64) (*tensor.Dense, error) {
	switch f := feat.(type) {
	case *features.InducingPoints:
		kuu := kern.K(f.Z, nil, true) // [M, L, M, L]
		ml := f.NumInducing() * kern.NumOutputs()
		kuu.Reshape(ml, ml).AddDiagonal(jitter)
		return kuu, nil

	case *features.SharedIndependent:
		if k, ok := kern.(*kernels.SharedIndependent); ok {
			kuu := k.Kernel.K(f.Points.Z, nil) // [M, M]
			kuu.AddDiagonal(jitter)
			return kuu, nil
		}
	}

	zs, ks, err := latentPairs("Kuu", feat, kern)
	if err != nil {
		return nil, err
	}
	parts := make([]*tensor.Dense, len(ks))
	for l := range ks {
		parts[l] = ks[l].K(zs[l], nil)
	}
	kuu, err := tensor.Stack(parts) // [L, M, M]
	if err != nil {
		return nil, fmt.Errorf("Kuu: %w", err)
	}
	kuu.AddDiagonal(jitter)
	return kuu, nil
}

// Kuf returns the prior covariance between inducing variables and x [N, D].
//
// Shapes:
//   - InducingPoints × any kernel:                      [M, L, N, P]
//   - SharedIndependent × SharedIndependent:            [M, N]
//   - {Shared,Separate}Independent × SeparateMixed:     [M, L, N, P]
//   - every other pair:                                 [L, M, N]
func Kuf(feat features.Feature, kern kernels.MultiOutput, x *tensor.Dense) (*tensor.Dense, error) {
	if err := tensor.Expect("Kuf", "Xnew", x, -1, feat.InputDim()); err != nil {
		return nil, err
	}

	switch f := feat.(type) {
	case *features.InducingPoints:
		return kern.K(f.Z, x, true), nil

	case *features.SharedIndependent:
		if k, ok := kern.(*kernels.SharedIndependent); ok {
			return k.Kernel.K(f.Points.Z, x), nil
		}
	}

	zs, ks, err := latentPairs("Kuf", feat, kern)
	if err != nil {
		return nil, err
	}
	parts := make([]*tensor.Dense, len(ks))
	for l := range ks {
		parts[l] = ks[l].K(zs[l], x)
	}
	kuf, err := tensor.Stack(parts) // [L, M, N]
	if err != nil {
		return nil, fmt.Errorf("Kuf: %w", err)
	}

	mixed, ok := kern.(*kernels.SeparateMixed)
	if !ok || isMixingFeature(feat) {
		return kuf, nil
	}
	return projectOutputs(kuf, mixed.W), nil
}

// projectOutputs turns per-latent [L, M, N] into the interdomain
// [M, L, N, P] cross covariance, out[m, l, n, p] = kuf[l, m, n]·W[p, l].
func projectOutputs(kuf, w *tensor.Dense) *tensor.Dense {
	l, m, n := kuf.Dim(0), kuf.Dim(1), kuf.Dim(2)
	p := w.Dim(0)
	t := kuf.Transpose(1, 0, 2) // [M, L, N]
	out := tensor.Zeros(m, l, n, p)
	src, dst, wd := t.Data(), out.Data(), w.Data()
	for ml := 0; ml < m*l; ml++ {
		lat := ml % l
		for i := 0; i < n; i++ {
			v := src[ml*n+i]
			row := (ml*n + i) * p
			for q := 0; q < p; q++ {
				dst[row+q] = v * wd[q*l+lat]
			}
		}
	}
	return out
}

func isMixingFeature(feat features.Feature) bool {
	k := feat.Kind()
	return k == features.KindMixedShared || k == features.KindMixedSeparate
}

// latentPairs lines up one inducing set and one single-output kernel per
// latent process, unwrapping Combination kernels or repeating a shared
// kernel, and a shared point set as needed.
func latentPairs(op string, feat features.Feature, kern kernels.MultiOutput) ([]*tensor.Dense, []kernels.Kernel, error) {
	var sets []*features.InducingPoints
	switch f := feat.(type) {
	case features.Sets:
		sets = f.PointSets()
	case *features.SharedIndependent:
		sets = []*features.InducingPoints{f.Points}
	case *features.MixedKernelShared:
		sets = []*features.InducingPoints{f.Points}
	default:
		return nil, nil, fmt.Errorf("%s: %w: %s feature has no per-latent sets", op, ErrUnsupported, feat.Kind())
	}
	_, separate := feat.(features.Sets)

	n := kern.NumLatents()
	if separate {
		n = len(sets)
	}
	ks := kernels.Latents(kern, n)
	if ks == nil {
		return nil, nil, fmt.Errorf("%s: %w: %s kernel has no per-latent kernels", op, ErrUnsupported, kern.Kind())
	}
	if separate && len(ks) != len(sets) {
		return nil, nil, tensor.Mismatch(op, "inducing sets", tensor.Shape{len(sets)}, tensor.Shape{len(ks)},
			"%s kernel has %d latent kernels but the feature has %d inducing sets", kern.Kind(), len(ks), len(sets))
	}
	if separate && kern.Kind() == kernels.KindSharedIndependent && kern.NumOutputs() != len(sets) {
		return nil, nil, tensor.Mismatch(op, "inducing sets", tensor.Shape{len(sets)}, tensor.Shape{kern.NumOutputs()},
			"shared kernel has %d outputs", kern.NumOutputs())
	}

	zs := make([]*tensor.Dense, len(ks))
	for l := range zs {
		if separate {
			zs[l] = sets[l].Z
		} else {
			zs[l] = sets[0].Z
		}
	}
	return zs, ks, nil
}
