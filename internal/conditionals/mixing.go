package conditionals

import (
	"github.com/born-ml/mogp/internal/linalg"
	"github.com/born-ml/mogp/internal/tensor"
)

// ExpandIndependentOutputs embeds an independent-output variance into the
// requested layout. fvar is [P, N, N] when fullCov is set and [N, P]
// otherwise. With fullOutputCov the outputs become a diagonal block: the
// off-diagonal output covariances are exactly zero.
//
//	(true, true):   [P, N, N] -> [N, P, N, P]
//	(false, true):  [N, P]    -> [N, P, P]
//	(_, false):     unchanged
func ExpandIndependentOutputs(fvar *tensor.Dense, fullCov, fullOutputCov bool) *tensor.Dense {
	switch {
	case fullCov && fullOutputCov:
		// [P, N, N] -> [N, N, P] -> [N, N, P, P] -> [N, P, N, P]
		return fvar.Transpose(1, 2, 0).DiagEmbed().Transpose(0, 2, 1, 3)
	case fullOutputCov:
		return fvar.DiagEmbed()
	default:
		return fvar
	}
}

// MixLatentGP projects L independent latent processes through W [P, L].
//
// gmu is [N, L]; gvar is [L, N, N] when fullCov is set and [N, L] otherwise.
// Returns mean gmu·Wᵀ [N, P] and the variance W·gvar·Wᵀ in the canonical
// layout for the flags.
func MixLatentGP(w, gmu, gvar *tensor.Dense, fullCov, fullOutputCov bool) (mean, variance *tensor.Dense, err error) {
	const op = "mix_latent_gp"

	if err := tensor.Expect(op, "W", w, -1, -1); err != nil {
		return nil, nil, err
	}
	p, l := w.Dim(0), w.Dim(1)
	if err := tensor.Expect(op, "gmu", gmu, -1, l); err != nil {
		return nil, nil, err
	}
	n := gmu.Dim(0)
	if fullCov {
		err = tensor.Expect(op, "gvar", gvar, l, n, n)
	} else {
		err = tensor.Expect(op, "gvar", gvar, n, l)
	}
	if err != nil {
		return nil, nil, err
	}

	mean = linalg.MatMul(gmu, w, false, true) // [N, P]

	switch {
	case fullCov && fullOutputCov:
		// [P·P, L] @ [L, N·N] -> [P, P, N, N] -> [N, P, N, P]
		pp := linalg.MatMul(outerColumns(w), gvar.Reshape(l, n*n), false, false)
		variance = pp.Reshape(p, p, n, n).Transpose(2, 0, 3, 1)
	case fullCov:
		variance = linalg.MatMul(squares(w), gvar.Reshape(l, n*n), false, false).Reshape(p, n, n)
	case fullOutputCov:
		variance = linalg.MatMul(gvar, outerColumns(w), false, true).Reshape(n, p, p)
	default:
		variance = linalg.MatMul(gvar, squares(w), false, true) // [N, P]
	}
	return mean, variance, nil
}

// outerColumns returns the [P·P, L] matrix O[(p, q), l] = W[p, l]·W[q, l].
func outerColumns(w *tensor.Dense) *tensor.Dense {
	p, l := w.Dim(0), w.Dim(1)
	out := tensor.Zeros(p*p, l)
	src, dst := w.Data(), out.Data()
	for a := 0; a < p; a++ {
		for b := 0; b < p; b++ {
			row := (a*p + b) * l
			for k := 0; k < l; k++ {
				dst[row+k] = src[a*l+k] * src[b*l+k]
			}
		}
	}
	return out
}

// squares returns W ⊙ W.
func squares(w *tensor.Dense) *tensor.Dense {
	out := w.Clone()
	data := out.Data()
	for i, v := range data {
		data[i] = v * v
	}
	return out
}
