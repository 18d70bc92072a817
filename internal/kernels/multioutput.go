package kernels

import (
	"fmt"

	"github.com/born-ml/mogp/internal/tensor"
)

// KernelKind tags the structural family of a multi-output kernel.
// The conditional dispatcher selects a regime from it.
type KernelKind int

// Multi-output kernel families.
const (
	KindSharedIndependent   KernelKind = iota // One kernel shared by all P outputs
	KindSeparateIndependent                   // One kernel per output
	KindSeparateMixed                         // L latent kernels mixed through W [P, L]
	KindMultiOutput                           // Arbitrary cross-output covariance
)

// String returns a human-readable kind name.
func (k KernelKind) String() string {
	switch k {
	case KindSharedIndependent:
		return "SharedIndependent"
	case KindSeparateIndependent:
		return "SeparateIndependent"
	case KindSeparateMixed:
		return "SeparateMixed"
	case KindMultiOutput:
		return "MultiOutput"
	default:
		return fmt.Sprintf("KernelKind(%d)", int(k))
	}
}

// MultiOutput is a covariance function over P outputs.
//
// Layouts returned by K:
//   - fullOutputCov: [N, P, N2, P]
//   - otherwise:     [P, N, N2]
//
// Layouts returned by Cov, selected by (fullCov, fullOutputCov):
//   - (true, true):   [N, P, N, P]
//   - (true, false):  [P, N, N]
//   - (false, true):  [N, P, P]
//   - (false, false): [N, P]
type MultiOutput interface {
	Kind() KernelKind
	NumOutputs() int
	NumLatents() int
	K(x, x2 *tensor.Dense, fullOutputCov bool) *tensor.Dense
	Cov(x *tensor.Dense, fullCov, fullOutputCov bool) *tensor.Dense
}

// Combination is implemented by kernels built from a list of constituent
// single-output kernels, one per output or per latent process.
type Combination interface {
	Constituents() []Kernel
}

// Latents returns one single-output kernel per latent process: the
// constituents of a Combination, or the shared kernel repeated n times.
// It returns nil for kernels with neither structure.
func Latents(k MultiOutput, n int) []Kernel {
	switch k := k.(type) {
	case Combination:
		return k.Constituents()
	case *SharedIndependent:
		out := make([]Kernel, n)
		for i := range out {
			out[i] = k.Kernel
		}
		return out
	default:
		return nil
	}
}

// SharedIndependent applies one kernel independently to each of P outputs.
type SharedIndependent struct {
	Kernel  Kernel
	Outputs int
}

// NewSharedIndependent creates a shared independent kernel with p outputs.
func NewSharedIndependent(k Kernel, p int) *SharedIndependent {
	return &SharedIndependent{Kernel: k, Outputs: p}
}

// Kind implements MultiOutput.
func (k *SharedIndependent) Kind() KernelKind { return KindSharedIndependent }

// NumOutputs implements MultiOutput.
func (k *SharedIndependent) NumOutputs() int { return k.Outputs }

// NumLatents implements MultiOutput.
func (k *SharedIndependent) NumLatents() int { return k.Outputs }

// K implements MultiOutput.
func (k *SharedIndependent) K(x, x2 *tensor.Dense, fullOutputCov bool) *tensor.Dense {
	return separableK(k.components(), k.Outputs, x, x2, fullOutputCov)
}

// Cov implements MultiOutput.
func (k *SharedIndependent) Cov(x *tensor.Dense, fullCov, fullOutputCov bool) *tensor.Dense {
	return separableCov(k.components(), k.Outputs, x, fullCov, fullOutputCov)
}

func (k *SharedIndependent) components() []component {
	return []component{{kernel: k.Kernel, mix: tensor.Eye(k.Outputs)}}
}

// SeparateIndependent applies a distinct kernel to each output.
type SeparateIndependent struct {
	Kernels []Kernel
}

// NewSeparateIndependent creates a separate independent kernel, one output per kernel.
func NewSeparateIndependent(ks ...Kernel) *SeparateIndependent {
	return &SeparateIndependent{Kernels: ks}
}

// Kind implements MultiOutput.
func (k *SeparateIndependent) Kind() KernelKind { return KindSeparateIndependent }

// NumOutputs implements MultiOutput.
func (k *SeparateIndependent) NumOutputs() int { return len(k.Kernels) }

// NumLatents implements MultiOutput.
func (k *SeparateIndependent) NumLatents() int { return len(k.Kernels) }

// Constituents implements Combination.
func (k *SeparateIndependent) Constituents() []Kernel { return k.Kernels }

// K implements MultiOutput.
func (k *SeparateIndependent) K(x, x2 *tensor.Dense, fullOutputCov bool) *tensor.Dense {
	return separableK(k.components(), len(k.Kernels), x, x2, fullOutputCov)
}

// Cov implements MultiOutput.
func (k *SeparateIndependent) Cov(x *tensor.Dense, fullCov, fullOutputCov bool) *tensor.Dense {
	return separableCov(k.components(), len(k.Kernels), x, fullCov, fullOutputCov)
}

func (k *SeparateIndependent) components() []component {
	p := len(k.Kernels)
	cs := make([]component, p)
	for i, kern := range k.Kernels {
		mix := tensor.Zeros(p, p)
		mix.Set(1, i, i)
		cs[i] = component{kernel: kern, mix: mix}
	}
	return cs
}

// SeparateMixed mixes L independent latent processes into P outputs:
// f(x) = W·g(x) with g_l ~ GP(0, k_l) and W of shape [P, L].
type SeparateMixed struct {
	Kernels []Kernel
	W       *tensor.Dense
}

// NewSeparateMixed creates a mixed kernel. W must be [P, len(ks)].
func NewSeparateMixed(w *tensor.Dense, ks ...Kernel) (*SeparateMixed, error) {
	if err := tensor.Expect("new_separate_mixed", "W", w, -1, len(ks)); err != nil {
		return nil, err
	}
	return &SeparateMixed{Kernels: ks, W: w}, nil
}

// Kind implements MultiOutput.
func (k *SeparateMixed) Kind() KernelKind { return KindSeparateMixed }

// NumOutputs implements MultiOutput.
func (k *SeparateMixed) NumOutputs() int { return k.W.Dim(0) }

// NumLatents implements MultiOutput.
func (k *SeparateMixed) NumLatents() int { return len(k.Kernels) }

// Constituents implements Combination.
func (k *SeparateMixed) Constituents() []Kernel { return k.Kernels }

// K implements MultiOutput.
func (k *SeparateMixed) K(x, x2 *tensor.Dense, fullOutputCov bool) *tensor.Dense {
	return separableK(k.components(), k.NumOutputs(), x, x2, fullOutputCov)
}

// Cov implements MultiOutput.
func (k *SeparateMixed) Cov(x *tensor.Dense, fullCov, fullOutputCov bool) *tensor.Dense {
	return separableCov(k.components(), k.NumOutputs(), x, fullCov, fullOutputCov)
}

func (k *SeparateMixed) components() []component {
	p := k.NumOutputs()
	cs := make([]component, len(k.Kernels))
	for l, kern := range k.Kernels {
		mix := tensor.Zeros(p, p)
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				mix.Set(k.W.At(i, l)*k.W.At(j, l), i, j)
			}
		}
		cs[l] = component{kernel: kern, mix: mix}
	}
	return cs
}

// Coregionalized is the intrinsic coregionalization model
// cov(f_p(x), f_q(y)) = k(x, y)·B[p, q] with B a [P, P] PSD matrix.
// It has no independence structure, so only fully correlated inducing
// points can condition on it.
type Coregionalized struct {
	Kernel Kernel
	B      *tensor.Dense
}

// NewCoregionalized creates a coregionalized kernel. B must be square.
func NewCoregionalized(k Kernel, b *tensor.Dense) (*Coregionalized, error) {
	if err := tensor.Expect("new_coregionalized", "B", b, -1, -1); err != nil {
		return nil, err
	}
	if b.Dim(0) != b.Dim(1) {
		return nil, tensor.Mismatch("new_coregionalized", "B", b.Shape(), tensor.Shape{-1, -1}, "must be square")
	}
	return &Coregionalized{Kernel: k, B: b}, nil
}

// Kind implements MultiOutput.
func (k *Coregionalized) Kind() KernelKind { return KindMultiOutput }

// NumOutputs implements MultiOutput.
func (k *Coregionalized) NumOutputs() int { return k.B.Dim(0) }

// NumLatents implements MultiOutput.
func (k *Coregionalized) NumLatents() int { return k.B.Dim(0) }

// K implements MultiOutput.
func (k *Coregionalized) K(x, x2 *tensor.Dense, fullOutputCov bool) *tensor.Dense {
	return separableK([]component{{kernel: k.Kernel, mix: k.B}}, k.NumOutputs(), x, x2, fullOutputCov)
}

// Cov implements MultiOutput.
func (k *Coregionalized) Cov(x *tensor.Dense, fullCov, fullOutputCov bool) *tensor.Dense {
	return separableCov([]component{{kernel: k.Kernel, mix: k.B}}, k.NumOutputs(), x, fullCov, fullOutputCov)
}
