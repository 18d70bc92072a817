// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gp provides the public API for multi-output sparse Gaussian
// process conditionals.
//
// A conditional needs four things:
//   - Inputs x [N, D] at which to predict
//   - An inducing Feature (points and how outputs or latents share them)
//   - A MultiOutput kernel
//   - The whitened or unwhitened inducing mean f and an optional
//     PosteriorFactor
//
// The pair (feature kind, kernel kind) selects one of five regimes:
// shared-independent, separate-independent, interdomain, fully-correlated
// and mixed. Unsupported pairs return a *DispatchError.
//
// # Basic Usage
//
//	z, _ := tensor.FromRows([][]float64{{0}, {0.5}, {1}})
//	feat, _ := gp.NewSharedIndependentFeature(z)
//	kern := gp.NewSharedIndependentKernel(gp.NewRBF(1, 0.5), 2)
//
//	mean, variance, err := gp.Conditional(x, feat, kern, f, gp.Options{
//	    FullCov: true,
//	    QSqrt:   gp.Diagonal{Std: std},
//	})
//
// # Variance Layouts
//
//	FullCov  FullOutputCov  variance
//	false    false          [N, P]
//	true     false          [P, N, N]
//	false    true           [N, P, P]
//	true     true           [N, P, N, P]
//
// # Configuration
//
// Use NewConditioner with a Config to change the jitter added to Kuu, round
// results to float32, or bound the per-output worker pool. Conditional uses
// DefaultConfig.
package gp
