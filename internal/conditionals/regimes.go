package conditionals

import (
	"fmt"

	"github.com/born-ml/mogp/internal/covariances"
	"github.com/born-ml/mogp/internal/features"
	"github.com/born-ml/mogp/internal/kernels"
	"github.com/born-ml/mogp/internal/parallel"
	"github.com/born-ml/mogp/internal/tensor"
)

// sharedIndependent handles one inducing set and one kernel shared by all
// outputs. Covariances are computed once:
//   - Kuu: [M, M]
//   - Kuf: [M, N]
//   - Kff: [N] or [N, N]
//
// A single base conditional broadcasts over the P columns of f.
func (c *Conditioner) sharedIndependent(x *tensor.Dense, feat features.Feature, kern kernels.MultiOutput, f *tensor.Dense, opts Options) (*tensor.Dense, *tensor.Dense, error) {
	shared, ok := kern.(*kernels.SharedIndependent)
	if !ok {
		return nil, nil, fmt.Errorf("shared-independent regime: unexpected kernel %T", kern)
	}
	if err := tensor.Expect("shared_independent", "f", f, feat.NumInducing(), kern.NumOutputs()); err != nil {
		return nil, nil, err
	}

	kmm, err := covariances.Kuu(feat, kern, c.cfg.Jitter)
	if err != nil {
		return nil, nil, err
	}
	kmn, err := covariances.Kuf(feat, kern, x)
	if err != nil {
		return nil, nil, err
	}
	var knn *tensor.Dense
	if opts.FullCov {
		knn = shared.Kernel.K(x, nil)
	} else {
		knn = shared.Kernel.KDiag(x)
	}

	mean, fvar, err := BaseConditional(kmn, kmm, knn, f, BaseOptions{
		FullCov: opts.FullCov,
		QSqrt:   opts.QSqrt,
		White:   opts.White,
	}) // [N, P], [P, N, N] or [N, P]
	if err != nil {
		return nil, nil, err
	}
	return mean, ExpandIndependentOutputs(fvar, opts.FullCov, opts.FullOutputCov), nil
}

// separateIndependent handles P independent single-output problems, each
// with its own covariances:
//   - Kuu: [P, M, M]
//   - Kuf: [P, M, N]
//   - Kff: [P, N] or [P, N, N]
//
// The base conditional runs once per output on disjoint slices.
func (c *Conditioner) separateIndependent(x *tensor.Dense, feat features.Feature, kern kernels.MultiOutput, f *tensor.Dense, opts Options) (*tensor.Dense, *tensor.Dense, error) {
	kmms, err := covariances.Kuu(feat, kern, c.cfg.Jitter)
	if err != nil {
		return nil, nil, err
	}
	kmns, err := covariances.Kuf(feat, kern, x)
	if err != nil {
		return nil, nil, err
	}
	p, m := kmms.Dim(0), kmms.Dim(1)

	if err := tensor.Expect("separate_independent", "f", f, m, p); err != nil {
		return nil, nil, err
	}
	if err := checkFactor("separate_independent", opts.QSqrt, m, p); err != nil {
		return nil, nil, err
	}

	ks := kernels.Latents(kern, p)
	knnParts := make([]*tensor.Dense, p)
	for i, k := range ks {
		if opts.FullCov {
			knnParts[i] = k.K(x, nil)
		} else {
			knnParts[i] = k.KDiag(x)
		}
	}
	knns := mustStack(knnParts) // [P, N, N] or [P, N]
	fs := f.Transpose()         // [P, M]

	means := make([]*tensor.Dense, p)
	vars := make([]*tensor.Dense, p)
	err = parallel.ForErr(p, func(i int) error {
		var q PosteriorFactor
		if opts.QSqrt != nil {
			q = opts.QSqrt.Column(i) // [M, 1] or [1, M, M]
		}
		mu, v, err := BaseConditional(kmns.Index(i), kmms.Index(i), knns.Index(i), fs.Index(i).Reshape(m, 1), BaseOptions{
			FullCov: opts.FullCov,
			QSqrt:   q,
			White:   opts.White,
		})
		if err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
		means[i], vars[i] = mu, v // [N, 1], [1, N, N] or [N, 1]
		return nil
	}, c.par)
	if err != nil {
		return nil, nil, err
	}

	n := x.Dim(0)
	mean := mustStack(means).Reshape(p, n).Transpose() // [N, P]
	var fvar *tensor.Dense
	if opts.FullCov {
		fvar = mustStack(vars).Reshape(p, n, n) // [P, N, N]
	} else {
		fvar = mustStack(vars).Reshape(p, n).Transpose() // [N, P]
	}
	return mean, ExpandIndependentOutputs(fvar, opts.FullCov, opts.FullOutputCov), nil
}

// interdomain handles L independent latents mixed into P outputs when the
// feature knows nothing about the mixing:
//   - Kuu: [L, M, M]
//   - Kuf: [M, L, N, P]
//   - Kff: [N, P, N, P], [P, N, N], [N, P, P] or [N, P]
func (c *Conditioner) interdomain(x *tensor.Dense, feat features.Feature, kern kernels.MultiOutput, f *tensor.Dense, opts Options) (*tensor.Dense, *tensor.Dense, error) {
	kmm, err := covariances.Kuu(feat, kern, c.cfg.Jitter)
	if err != nil {
		return nil, nil, err
	}
	kmn, err := covariances.Kuf(feat, kern, x)
	if err != nil {
		return nil, nil, err
	}
	knn := kern.Cov(x, opts.FullCov, opts.FullOutputCov)
	return IndependentInterdomainConditional(kmn, kmm, knn, f, opts)
}

// fullyCorrelated handles inducing variables indexed jointly by inducing
// point and output:
//   - Kuu: [M, L, M, L]
//   - Kuf: [M, L, N, P]
//   - Kff: [N, P, N, P], [P, N, N], [N, P, P] or [N, P]
//
// f is [M·L, 1] (or [M, L]); QSqrt is Diagonal [M·L, 1] or Cholesky
// [1, M·L, M·L]. When both flags agree the problem is flattened into a
// single base conditional, otherwise FullyCorrelatedConditional avoids
// materializing the unneeded cross terms.
func (c *Conditioner) fullyCorrelated(x *tensor.Dense, feat features.Feature, kern kernels.MultiOutput, f *tensor.Dense, opts Options) (*tensor.Dense, *tensor.Dense, error) {
	kmm, err := covariances.Kuu(feat, kern, c.cfg.Jitter)
	if err != nil {
		return nil, nil, err
	}
	kmn, err := covariances.Kuf(feat, kern, x)
	if err != nil {
		return nil, nil, err
	}
	knn := kern.Cov(x, opts.FullCov, opts.FullOutputCov)

	m, l, n, k := kmn.Dim(0), kmn.Dim(1), kmn.Dim(2), kmn.Dim(3)
	ml := m * l

	fFlat, q, err := flattenJoint(f, opts.QSqrt, m, l)
	if err != nil {
		return nil, nil, err
	}
	kmm = kmm.Reshape(ml, ml)

	if opts.FullCov != opts.FullOutputCov {
		inner := opts
		inner.QSqrt = q
		return FullyCorrelatedConditional(kmn.Reshape(ml, n, k), kmm, knn, fFlat, inner)
	}

	if opts.FullCov {
		knn = knn.Reshape(n*k, n*k)
	} else {
		knn = knn.Reshape(n * k)
	}
	mean, fvar, err := BaseConditional(kmn.Reshape(ml, n*k), kmm, knn, fFlat, BaseOptions{
		FullCov: opts.FullCov,
		QSqrt:   q,
		White:   opts.White,
	}) // [N·K, 1], [1, N·K, N·K] or [N·K, 1]
	if err != nil {
		return nil, nil, err
	}
	if opts.FullCov {
		return mean.Reshape(n, k), fvar.Reshape(n, k, n, k), nil
	}
	return mean.Reshape(n, k), fvar.Reshape(n, k), nil
}

// flattenJoint accepts f as [M·L, 1] or [M, L] and a diagonal factor in the
// same two forms, returning the single-column layout used for the jointly
// indexed inducing variables.
func flattenJoint(f *tensor.Dense, q PosteriorFactor, m, l int) (*tensor.Dense, PosteriorFactor, error) {
	const op = "fully_correlated"
	ml := m * l

	if !f.Shape().Matches(tensor.Shape{ml, 1}) && !f.Shape().Matches(tensor.Shape{m, l}) {
		return nil, nil, tensor.Mismatch(op, "f", f.Shape(), tensor.Shape{ml, 1}, "or [%d, %d]", m, l)
	}
	f = f.Reshape(ml, 1)

	if d, ok := q.(Diagonal); ok && d.Std != nil && d.Std.Shape().Matches(tensor.Shape{m, l}) {
		q = Diagonal{Std: d.Std.Reshape(ml, 1)}
	}
	if err := checkFactor(op, q, ml, 1); err != nil {
		return nil, nil, err
	}
	return f, q, nil
}

// mixed projects per-latent independent conditionals through the mixing
// matrix, never materializing the [M, L, N, P] cross covariance:
//   - Kuu: [L, M, M]
//   - Kuf: [L, M, N]
//   - Kff: [L, N] or [L, N, N]
func (c *Conditioner) mixed(x *tensor.Dense, feat features.Feature, kern kernels.MultiOutput, f *tensor.Dense, opts Options) (*tensor.Dense, *tensor.Dense, error) {
	mixing, ok := kern.(*kernels.SeparateMixed)
	if !ok {
		return nil, nil, fmt.Errorf("mixed regime: unexpected kernel %T", kern)
	}

	latent := opts
	latent.FullOutputCov = false
	gmu, gvar, err := c.separateIndependent(x, feat, kern, f, latent) // [N, L], [L, N, N] or [N, L]
	if err != nil {
		return nil, nil, err
	}
	return MixLatentGP(mixing.W, gmu, gvar, opts.FullCov, opts.FullOutputCov)
}
