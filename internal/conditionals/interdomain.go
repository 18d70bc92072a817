package conditionals

import (
	"fmt"

	"github.com/born-ml/mogp/internal/linalg"
	"github.com/born-ml/mogp/internal/tensor"
)

// Options are the flags of a multi-output conditional.
type Options struct {
	FullCov       bool            // Covariance between input points
	FullOutputCov bool            // Covariance between outputs
	QSqrt         PosteriorFactor // Optional posterior factor
	White         bool            // Whitened parameterization of f and QSqrt
}

// varianceShape is the canonical variance layout for the given flags.
func varianceShape(fullCov, fullOutputCov bool, n, p int) []int {
	switch {
	case fullCov && fullOutputCov:
		return []int{n, p, n, p}
	case fullCov:
		return []int{p, n, n}
	case fullOutputCov:
		return []int{n, p, p}
	default:
		return []int{n, p}
	}
}

// crossGram computes Σₖ A[k]ᵀ·A[k] for A [K, N, P] in the canonical layout
// selected by the flags. Each branch contracts over K only, so the cost is
// bounded by the size of the requested layout.
func crossGram(a *tensor.Dense, fullCov, fullOutputCov bool) *tensor.Dense {
	k, n, p := a.Dim(0), a.Dim(1), a.Dim(2)
	switch {
	case fullCov && fullOutputCov:
		flat := a.Reshape(k, n*p)
		return linalg.MatMul(flat, flat, true, false).Reshape(n, p, n, p)
	case fullCov:
		ap := a.Transpose(2, 0, 1) // [P, K, N]
		return linalg.BatchMatMul(ap, ap, true, false)
	case fullOutputCov:
		an := a.Transpose(1, 0, 2) // [N, K, P]
		return linalg.BatchMatMul(an, an, true, false)
	default:
		return linalg.SumSquaresColumns(a.Reshape(k, n*p)).Reshape(n, p)
	}
}

// IndependentInterdomainConditional conditions P outputs on L independent
// latent processes whose inducing variables interact with every output.
//
// Shapes:
//   - Kmn: [M, L, N, P]
//   - Kmm: [L, M, M]
//   - Knn: [N, P, N, P], [P, N, N], [N, P, P] or [N, P] (see Options)
//   - f:   [M, L]
//   - QSqrt: Diagonal [M, L] or Cholesky [L, M, M]
//
// Returns mean [N, P] and the variance in the layout selected by the flags.
// Contributions of every latent are summed into the joint output covariance.
func IndependentInterdomainConditional(kmn, kmm, knn, f *tensor.Dense, opts Options) (mean, variance *tensor.Dense, err error) {
	const op = "independent_interdomain_conditional"

	if err := tensor.Expect(op, "Kmn", kmn, -1, -1, -1, -1); err != nil {
		return nil, nil, err
	}
	m, l, n, p := kmn.Dim(0), kmn.Dim(1), kmn.Dim(2), kmn.Dim(3)
	if err := tensor.Expect(op, "Kmm", kmm, l, m, m); err != nil {
		return nil, nil, err
	}
	if err := tensor.Expect(op, "Knn", knn, varianceShape(opts.FullCov, opts.FullOutputCov, n, p)...); err != nil {
		return nil, nil, err
	}
	if err := tensor.Expect(op, "f", f, m, l); err != nil {
		return nil, nil, err
	}
	if err := checkFactor(op, opts.QSqrt, m, l); err != nil {
		return nil, nil, err
	}

	lm, err := linalg.BatchCholesky(kmm)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: Kmm: %w", op, err)
	}

	kmnL := kmn.Transpose(1, 0, 2, 3).Reshape(l, m, n*p)
	proj := make([]*tensor.Dense, l)
	for i := range proj {
		proj[i] = linalg.SolveLower(lm.Index(i), kmnL.Index(i), false) // [M, N·P]
	}
	a := mustStack(proj) // [L, M, N·P]

	variance = knn.Sub(crossGram(a.Reshape(l*m, n, p), opts.FullCov, opts.FullOutputCov))

	if !opts.White {
		for i := range proj {
			proj[i] = linalg.SolveLower(lm.Index(i), proj[i], true)
		}
		a = mustStack(proj)
	}

	// mean[n, p] = Σ_{l, m} A[l, m, n, p]·f[m, l]
	fl := f.Transpose().Reshape(l*m, 1)
	mean = linalg.MatMul(a.Reshape(l*m, n*p), fl, true, false).Reshape(n, p)

	if opts.QSqrt != nil {
		lta := make([]*tensor.Dense, l)
		for i := range lta {
			lta[i] = projectFactor(opts.QSqrt, proj[i], i)
		}
		variance.AddInPlace(crossGram(mustStack(lta).Reshape(l*m, n, p), opts.FullCov, opts.FullOutputCov))
	}
	return mean, variance, nil
}

// FullyCorrelatedConditional conditions on inducing variables indexed
// jointly by (inducing point, output), for the case where only one of the
// two covariance flags is set and flattening would either compute unneeded
// cross terms or lose needed ones.
//
// Shapes:
//   - Kmn: [M, N, K] with M the flattened inducing index
//   - Kmm: [M, M]
//   - Knn: the canonical layout for the flags, [K, N, N] or [N, K, K]
//   - f:   [M, 1]
//   - QSqrt: Diagonal [M, 1] or Cholesky [1, M, M]
func FullyCorrelatedConditional(kmn, kmm, knn, f *tensor.Dense, opts Options) (mean, variance *tensor.Dense, err error) {
	const op = "fully_correlated_conditional"

	if err := tensor.Expect(op, "Kmn", kmn, -1, -1, -1); err != nil {
		return nil, nil, err
	}
	m, n, k := kmn.Dim(0), kmn.Dim(1), kmn.Dim(2)
	if err := tensor.Expect(op, "Kmm", kmm, m, m); err != nil {
		return nil, nil, err
	}
	if err := tensor.Expect(op, "Knn", knn, varianceShape(opts.FullCov, opts.FullOutputCov, n, k)...); err != nil {
		return nil, nil, err
	}
	if err := tensor.Expect(op, "f", f, m, 1); err != nil {
		return nil, nil, err
	}
	if err := checkFactor(op, opts.QSqrt, m, 1); err != nil {
		return nil, nil, err
	}

	lm, err := linalg.Cholesky(kmm)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: Kmm: %w", op, err)
	}

	a := linalg.SolveLower(lm, kmn.Reshape(m, n*k), false) // [M, N·K]
	variance = knn.Sub(crossGram(a.Reshape(m, n, k), opts.FullCov, opts.FullOutputCov))

	if !opts.White {
		a = linalg.SolveLower(lm, a, true)
	}
	mean = linalg.MatMul(f, a, true, false).Reshape(n, k)

	if opts.QSqrt != nil {
		lta := projectFactor(opts.QSqrt, a, 0)
		variance.AddInPlace(crossGram(lta.Reshape(m, n, k), opts.FullCov, opts.FullOutputCov))
	}
	return mean, variance, nil
}

func mustStack(parts []*tensor.Dense) *tensor.Dense {
	out, err := tensor.Stack(parts)
	if err != nil {
		panic(err) // parts are produced with identical shapes
	}
	return out
}
