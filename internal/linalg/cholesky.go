package linalg

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/mogp/internal/tensor"
)

// Cholesky factorizes a symmetric positive definite [M, M] matrix into the
// lower triangular L with A = L·Lᵀ. Entries above the diagonal are zero.
//
// No jitter is added here: covariance builders add it once before calling.
// A failed factorization returns a *NumericalError.
func Cholesky(a *tensor.Dense) (*tensor.Dense, error) {
	if err := square("cholesky", "A", a, 2); err != nil {
		return nil, err
	}
	l, ok := factorize(a)
	if !ok {
		return nil, &NumericalError{Op: "cholesky", Index: -1, Size: a.Dim(0)}
	}
	return l, nil
}

// BatchCholesky factorizes every matrix of a [B, M, M] tensor.
// The error identifies the first batch entry that failed.
func BatchCholesky(a *tensor.Dense) (*tensor.Dense, error) {
	if err := square("batch_cholesky", "A", a, 3); err != nil {
		return nil, err
	}
	parts := make([]*tensor.Dense, a.Dim(0))
	for b := range parts {
		l, ok := factorize(a.Index(b))
		if !ok {
			return nil, &NumericalError{Op: "batch_cholesky", Index: b, Size: a.Dim(1)}
		}
		parts[b] = l
	}
	return tensor.Stack(parts)
}

func factorize(a *tensor.Dense) (*tensor.Dense, bool) {
	n := a.Dim(0)
	sym := mat.NewSymDense(n, append([]float64(nil), a.Data()...))

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, false
	}

	var tri mat.TriDense
	chol.LTo(&tri)

	l := tensor.Zeros(n, n)
	data := l.Data()
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			data[i*n+j] = tri.At(i, j)
		}
	}
	return l, true
}

func square(op, name string, a *tensor.Dense, rank int) error {
	want := make([]int, rank)
	for i := range want {
		want[i] = -1
	}
	if err := tensor.Expect(op, name, a, want...); err != nil {
		return err
	}
	if a.Dim(-1) != a.Dim(-2) {
		return tensor.Mismatch(op, name, a.Shape(), tensor.Shape(want), "trailing matrices must be square")
	}
	return nil
}
