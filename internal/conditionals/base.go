package conditionals

import (
	"fmt"

	"github.com/born-ml/mogp/internal/linalg"
	"github.com/born-ml/mogp/internal/tensor"
)

// BaseOptions configures BaseConditional.
type BaseOptions struct {
	FullCov bool            // Return [R, N, N] instead of [N, R]
	QSqrt   PosteriorFactor // Optional posterior factor, [M, R] or [R, M, M]
	White   bool            // f and QSqrt are in the whitened parameterization
}

// BaseConditional is the single-process GP conditional shared by every
// regime.
//
// Given Kmn [M, N], Kmm [M, M] (jitter already added), Knn [N] or [N, N]
// and inducing values f [M, R] it factors Kmm = L·Lᵀ and computes
//
//	A    = L⁻¹·Kmn               (and L⁻ᵀ·A when not whitened)
//	mean = Aᵀ·f                                               [N, R]
//	var  = Knn − Aᵀ·A + (SᵣᵀA)ᵀ(SᵣᵀA) per column r            [N, R] or [R, N, N]
//
// where Sᵣ is the posterior factor of column r. The correction term is
// omitted when QSqrt is nil. A failed factorization of Kmm is returned as
// a *linalg.NumericalError and never retried.
func BaseConditional(kmn, kmm, knn, f *tensor.Dense, opts BaseOptions) (mean, variance *tensor.Dense, err error) {
	const op = "base_conditional"

	if err := tensor.Expect(op, "Kmn", kmn, -1, -1); err != nil {
		return nil, nil, err
	}
	m, n := kmn.Dim(0), kmn.Dim(1)
	if err := tensor.Expect(op, "Kmm", kmm, m, m); err != nil {
		return nil, nil, err
	}
	if opts.FullCov {
		err = tensor.Expect(op, "Knn", knn, n, n)
	} else {
		err = tensor.Expect(op, "Knn", knn, n)
	}
	if err != nil {
		return nil, nil, err
	}
	if err := tensor.Expect(op, "f", f, m, -1); err != nil {
		return nil, nil, err
	}
	r := f.Dim(1)
	if err := checkFactor(op, opts.QSqrt, m, r); err != nil {
		return nil, nil, err
	}

	lm, err := linalg.Cholesky(kmm)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: Kmm: %w", op, err)
	}

	a := linalg.SolveLower(lm, kmn, false) // [M, N]

	if opts.FullCov {
		variance = knn.Sub(linalg.MatMul(a, a, true, false)).Tile(r) // [R, N, N]
	} else {
		variance = knn.Sub(linalg.SumSquaresColumns(a)).Tile(r) // [R, N]
	}

	if !opts.White {
		a = linalg.SolveLower(lm, a, true)
	}
	mean = linalg.MatMul(a, f, true, false) // [N, R]

	if opts.QSqrt != nil {
		for i := 0; i < r; i++ {
			lta := projectFactor(opts.QSqrt, a, i) // [M, N]
			if opts.FullCov {
				variance.Index(i).AddInPlace(linalg.MatMul(lta, lta, true, false))
			} else {
				variance.Index(i).AddInPlace(linalg.SumSquaresColumns(lta))
			}
		}
	}

	if !opts.FullCov {
		variance = variance.Transpose() // [N, R]
	}
	return mean, variance, nil
}

// projectFactor returns Sᵣᵀ·A for column r of the posterior factor:
// diag(std[:, r])·A for a Diagonal factor, tril(L[r])ᵀ·A for a Cholesky one.
func projectFactor(q PosteriorFactor, a *tensor.Dense, r int) *tensor.Dense {
	switch q := q.(type) {
	case Diagonal:
		return linalg.ScaleRows(a, q.Column(r).(Diagonal).Std.Data())
	case Cholesky:
		return linalg.MulLowerT(q.L.Index(r), a)
	default:
		panic(fmt.Sprintf("conditionals: unknown posterior factor %T", q))
	}
}
