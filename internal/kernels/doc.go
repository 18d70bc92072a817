// Package kernels provides the covariance functions consumed by the
// conditional routines.
//
// Single-output kernels (RBF, Matern32, Linear) evaluate [N, N2] Gram
// matrices and [N] diagonals. Multi-output kernels combine them into
// P-output covariances:
//   - SharedIndependent: one kernel, P independent outputs
//   - SeparateIndependent: one kernel per output
//   - SeparateMixed: L latent kernels mixed through W [P, L]
//   - Coregionalized: one kernel scaled by a full [P, P] output covariance
//
// SeparateIndependent and SeparateMixed implement Combination, exposing
// their constituent kernels to the batched-independent conditional.
//
// Example:
//
//	w, _ := tensor.FromRows([][]float64{{1, 0.5}, {0, 1}, {0.3, 0.3}})
//	k, err := kernels.NewSeparateMixed(w, kernels.NewRBF(1, 0.5), kernels.NewMatern32(1, 2))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	kff := k.Cov(x, false, true) // [N, 3, 3]
package kernels
