package kernels

import "github.com/born-ml/mogp/internal/tensor"

// component is one separable term k(x, y)·mix[p, q] of a multi-output kernel.
// Every kernel in this package is a sum of such terms.
type component struct {
	kernel Kernel
	mix    *tensor.Dense // [P, P]
}

// separableK evaluates Σ_c k_c(x, x2)·mix_c as [N, P, N2, P], or only the
// output diagonal as [P, N, N2].
func separableK(cs []component, p int, x, x2 *tensor.Dense, fullOutputCov bool) *tensor.Dense {
	if x2 == nil {
		x2 = x
	}
	n, n2 := x.Dim(0), x2.Dim(0)

	var out *tensor.Dense
	if fullOutputCov {
		out = tensor.Zeros(n, p, n2, p)
	} else {
		out = tensor.Zeros(p, n, n2)
	}
	dst := out.Data()

	for _, c := range cs {
		k := c.kernel.K(x, x2).Data()
		mix := c.mix.Data()
		if fullOutputCov {
			for i := 0; i < n; i++ {
				for a := 0; a < p; a++ {
					for j := 0; j < n2; j++ {
						kij := k[i*n2+j]
						row := ((i*p+a)*n2 + j) * p
						for b := 0; b < p; b++ {
							dst[row+b] += kij * mix[a*p+b]
						}
					}
				}
			}
			continue
		}
		for a := 0; a < p; a++ {
			w := mix[a*p+a]
			if w == 0 {
				continue
			}
			base := a * n * n2
			for idx, v := range k {
				dst[base+idx] += w * v
			}
		}
	}
	return out
}

// separableCov evaluates the prior covariance at x in one of the four
// canonical layouts.
func separableCov(cs []component, p int, x *tensor.Dense, fullCov, fullOutputCov bool) *tensor.Dense {
	if fullCov {
		return separableK(cs, p, x, nil, fullOutputCov)
	}

	n := x.Dim(0)
	var out *tensor.Dense
	if fullOutputCov {
		out = tensor.Zeros(n, p, p)
	} else {
		out = tensor.Zeros(n, p)
	}
	dst := out.Data()

	for _, c := range cs {
		kd := c.kernel.KDiag(x).Data()
		mix := c.mix.Data()
		for i := 0; i < n; i++ {
			if fullOutputCov {
				for a := 0; a < p*p; a++ {
					dst[i*p*p+a] += kd[i] * mix[a]
				}
				continue
			}
			for a := 0; a < p; a++ {
				dst[i*p+a] += kd[i] * mix[a*p+a]
			}
		}
	}
	return out
}
