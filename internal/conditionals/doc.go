// Package conditionals computes the posterior predictive distribution of a
// sparse multi-output Gaussian process.
//
// The entry point is Conditioner.Conditional. It resolves a regime from the
// kinds of the inducing feature and the kernel, builds the prior
// covariances and combines per-latent or joint Cholesky-based conditionals
// into the requested layout:
//
//	regime                  Kuu            Kuf            algorithm
//	shared-independent      [M, M]         [M, N]         one BaseConditional
//	separate-independent    [P, M, M]      [P, M, N]      BaseConditional per output
//	interdomain             [L, M, M]      [M, L, N, P]   IndependentInterdomainConditional
//	fully-correlated        [M, L, M, L]   [M, L, N, P]   flattened BaseConditional or FullyCorrelatedConditional
//	mixed                   [L, M, M]      [L, M, N]      per-latent BaseConditional + MixLatentGP
//
// Two flags select the variance layout: FullCov (covariance between input
// points) and FullOutputCov (covariance between outputs), giving [N, P],
// [P, N, N], [N, P, P] or [N, P, N, P].
//
// Every call is a pure function of its inputs. The only concurrency is the
// per-output map of the separate-independent and mixed regimes, whose
// iterations read and write disjoint slices.
package conditionals
