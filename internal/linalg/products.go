package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/mogp/internal/parallel"
	"github.com/born-ml/mogp/internal/tensor"
)

// SolveLower returns L⁻¹·B, or L⁻ᵀ·B when trans is set.
// L is [M, M] lower triangular (the upper triangle is ignored), B is [M, K].
func SolveLower(l, b *tensor.Dense, trans bool) *tensor.Dense {
	checkLeft("SolveLower", l, b)
	out := b.Clone()
	blas64.Trsm(blas.Left, transpose(trans), 1, lower(l), general(out))
	return out
}

// MulLowerT returns tril(L)ᵀ·B for L [M, M] and B [M, K].
// Only the lower triangle of L is read.
func MulLowerT(l, b *tensor.Dense) *tensor.Dense {
	checkLeft("MulLowerT", l, b)
	out := b.Clone()
	blas64.Trmm(blas.Left, blas.Trans, 1, lower(l), general(out))
	return out
}

// MatMul computes op(A)·op(B) for rank-2 tensors, where op transposes its
// argument when the matching flag is set.
//
// Example:
//
//	// Aᵀ·A for A [M, N] -> [N, N]
//	g := linalg.MatMul(a, a, true, false)
func MatMul(a, b *tensor.Dense, transA, transB bool) *tensor.Dense {
	if a.Rank() != 2 || b.Rank() != 2 {
		panic(fmt.Sprintf("MatMul: inputs must be 2D, got %v and %v", a.Shape(), b.Shape()))
	}
	m, k1 := a.Dim(0), a.Dim(1)
	if transA {
		m, k1 = k1, m
	}
	k2, n := b.Dim(0), b.Dim(1)
	if transB {
		k2, n = n, k2
	}
	if k1 != k2 {
		panic(fmt.Sprintf("MatMul: inner dimension mismatch: %d vs %d", k1, k2))
	}

	out := tensor.Zeros(m, n)
	blas64.Gemm(transpose(transA), transpose(transB), 1, general(a), general(b), 0, general(out))
	return out
}

// BatchMatMul performs batched matrix multiplication on 3D tensors.
//
// [B, M, K] @ [B, K, N] -> [B, M, N], with optional transposition of the
// trailing matrices of either operand. Batch dimensions must match.
func BatchMatMul(a, b *tensor.Dense, transA, transB bool) *tensor.Dense {
	if a.Rank() != 3 || b.Rank() != 3 {
		panic(fmt.Sprintf("BatchMatMul: inputs must be 3D, got %v and %v", a.Shape(), b.Shape()))
	}
	if a.Dim(0) != b.Dim(0) {
		panic(fmt.Sprintf("BatchMatMul: batch dimension mismatch: %d vs %d", a.Dim(0), b.Dim(0)))
	}

	parts := make([]*tensor.Dense, a.Dim(0))
	parallel.For(len(parts), func(i int) {
		parts[i] = MatMul(a.Index(i), b.Index(i), transA, transB)
	}, parallel.DefaultConfig())
	out, err := tensor.Stack(parts)
	if err != nil {
		panic(err) // every product has the same shape
	}
	return out
}

// SumSquaresColumns returns Σ_m A[m, n]² for A [M, N] as an [N] tensor.
func SumSquaresColumns(a *tensor.Dense) *tensor.Dense {
	m, n := a.Dim(0), a.Dim(1)
	out := tensor.Zeros(n)
	src, dst := a.Data(), out.Data()
	for i := 0; i < m; i++ {
		row := src[i*n : (i+1)*n]
		for j, v := range row {
			dst[j] += v * v
		}
	}
	return out
}

// ScaleRows multiplies row i of A [M, K] by s[i].
func ScaleRows(a *tensor.Dense, s []float64) *tensor.Dense {
	m, k := a.Dim(0), a.Dim(1)
	if len(s) != m {
		panic(fmt.Sprintf("ScaleRows: %d scales for %d rows", len(s), m))
	}
	out := a.Clone()
	data := out.Data()
	for i := 0; i < m; i++ {
		blas64.Scal(s[i], blas64.Vector{N: k, Inc: 1, Data: data[i*k : (i+1)*k]})
	}
	return out
}

func checkLeft(op string, l, b *tensor.Dense) {
	if l.Rank() != 2 || b.Rank() != 2 || l.Dim(0) != l.Dim(1) || l.Dim(1) != b.Dim(0) {
		panic(fmt.Sprintf("%s: incompatible shapes %v and %v", op, l.Shape(), b.Shape()))
	}
}

func transpose(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

func lower(l *tensor.Dense) blas64.Triangular {
	n := l.Dim(0)
	return blas64.Triangular{
		Uplo:   blas.Lower,
		Diag:   blas.NonUnit,
		N:      n,
		Stride: n,
		Data:   l.Data(),
	}
}

func general(t *tensor.Dense) blas64.General {
	return blas64.General{
		Rows:   t.Dim(0),
		Cols:   t.Dim(1),
		Stride: t.Dim(1),
		Data:   t.Data(),
	}
}
