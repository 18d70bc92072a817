package kernels

import (
	"fmt"
	"math"

	"github.com/viterin/vek"

	"github.com/born-ml/mogp/internal/tensor"
)

// Kernel is a single-output covariance function over [N, D] inputs.
type Kernel interface {
	// K returns the [N, N2] covariance between the rows of x and x2.
	// A nil x2 means x2 = x.
	K(x, x2 *tensor.Dense) *tensor.Dense

	// KDiag returns the [N] prior variances at the rows of x.
	KDiag(x *tensor.Dense) *tensor.Dense
}

// RBF is the squared exponential kernel
// k(x, y) = σ² exp(-|x - y|² / 2ℓ²).
type RBF struct {
	Variance    float64
	Lengthscale float64
}

// NewRBF creates a squared exponential kernel.
func NewRBF(variance, lengthscale float64) *RBF {
	return &RBF{Variance: variance, Lengthscale: lengthscale}
}

// K implements Kernel.
func (k *RBF) K(x, x2 *tensor.Dense) *tensor.Dense {
	inv := 1 / (k.Lengthscale * k.Lengthscale)
	return pairwise(x, x2, func(a, b []float64) float64 {
		return k.Variance * math.Exp(-0.5*sqdist(a, b)*inv)
	})
}

// KDiag implements Kernel.
func (k *RBF) KDiag(x *tensor.Dense) *tensor.Dense {
	return constantDiag(x, k.Variance)
}

// Matern32 is the Matérn kernel with ν = 3/2.
type Matern32 struct {
	Variance    float64
	Lengthscale float64
}

// NewMatern32 creates a Matérn 3/2 kernel.
func NewMatern32(variance, lengthscale float64) *Matern32 {
	return &Matern32{Variance: variance, Lengthscale: lengthscale}
}

// K implements Kernel.
func (k *Matern32) K(x, x2 *tensor.Dense) *tensor.Dense {
	return pairwise(x, x2, func(a, b []float64) float64 {
		r := math.Sqrt(3*sqdist(a, b)) / k.Lengthscale
		return k.Variance * (1 + r) * math.Exp(-r)
	})
}

// KDiag implements Kernel.
func (k *Matern32) KDiag(x *tensor.Dense) *tensor.Dense {
	return constantDiag(x, k.Variance)
}

// Linear is the dot-product kernel k(x, y) = σ² xᵀy.
type Linear struct {
	Variance float64
}

// NewLinear creates a linear kernel.
func NewLinear(variance float64) *Linear {
	return &Linear{Variance: variance}
}

// K implements Kernel.
func (k *Linear) K(x, x2 *tensor.Dense) *tensor.Dense {
	return pairwise(x, x2, func(a, b []float64) float64 {
		return k.Variance * vek.Dot(a, b)
	})
}

// KDiag implements Kernel.
func (k *Linear) KDiag(x *tensor.Dense) *tensor.Dense {
	n, d := x.Dim(0), x.Dim(1)
	out := tensor.Zeros(n)
	src, dst := x.Data(), out.Data()
	for i := 0; i < n; i++ {
		row := src[i*d : (i+1)*d]
		dst[i] = k.Variance * vek.Dot(row, row)
	}
	return out
}

func sqdist(a, b []float64) float64 {
	diff := vek.Sub(a, b)
	return vek.Dot(diff, diff)
}

func pairwise(x, x2 *tensor.Dense, f func(a, b []float64) float64) *tensor.Dense {
	if x2 == nil {
		x2 = x
	}
	if x.Rank() != 2 || x2.Rank() != 2 || x.Dim(1) != x2.Dim(1) {
		panic(fmt.Sprintf("kernels: incompatible inputs %v and %v", x.Shape(), x2.Shape()))
	}
	n, n2, d := x.Dim(0), x2.Dim(0), x.Dim(1)
	out := tensor.Zeros(n, n2)
	a, b, dst := x.Data(), x2.Data(), out.Data()
	for i := 0; i < n; i++ {
		ri := a[i*d : (i+1)*d]
		for j := 0; j < n2; j++ {
			dst[i*n2+j] = f(ri, b[j*d:(j+1)*d])
		}
	}
	return out
}

func constantDiag(x *tensor.Dense, v float64) *tensor.Dense {
	out := tensor.Zeros(x.Dim(0))
	data := out.Data()
	for i := range data {
		data[i] = v
	}
	return out
}
