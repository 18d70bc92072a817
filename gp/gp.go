// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package gp

import (
	"go.uber.org/zap"

	"github.com/born-ml/mogp/internal/conditionals"
	"github.com/born-ml/mogp/internal/config"
	"github.com/born-ml/mogp/internal/features"
	"github.com/born-ml/mogp/internal/kernels"
	"github.com/born-ml/mogp/internal/linalg"
	"github.com/born-ml/mogp/tensor"
)

// Kernels

// Kernel is a single-output covariance function.
type Kernel = kernels.Kernel

// MultiOutput is a kernel over P outputs.
type MultiOutput = kernels.MultiOutput

// KernelKind tags the structural family of a multi-output kernel.
type KernelKind = kernels.KernelKind

// Kernel kinds.
const (
	KernelSharedIndependent   = kernels.KindSharedIndependent
	KernelSeparateIndependent = kernels.KindSeparateIndependent
	KernelSeparateMixed       = kernels.KindSeparateMixed
	KernelMultiOutput         = kernels.KindMultiOutput
)

// Single-output kernels.
type (
	RBF      = kernels.RBF
	Matern32 = kernels.Matern32
	Linear   = kernels.Linear
)

// Multi-output kernels.
type (
	SharedIndependentKernel   = kernels.SharedIndependent
	SeparateIndependentKernel = kernels.SeparateIndependent
	SeparateMixedKernel       = kernels.SeparateMixed
	CoregionalizedKernel      = kernels.Coregionalized
)

// NewRBF creates a squared exponential kernel.
func NewRBF(variance, lengthscale float64) *RBF {
	return kernels.NewRBF(variance, lengthscale)
}

// NewMatern32 creates a Matérn 3/2 kernel.
func NewMatern32(variance, lengthscale float64) *Matern32 {
	return kernels.NewMatern32(variance, lengthscale)
}

// NewLinear creates a linear kernel.
func NewLinear(variance float64) *Linear {
	return kernels.NewLinear(variance)
}

// NewSharedIndependentKernel shares k across p outputs.
func NewSharedIndependentKernel(k Kernel, p int) *SharedIndependentKernel {
	return kernels.NewSharedIndependent(k, p)
}

// NewSeparateIndependentKernel uses one kernel per output.
func NewSeparateIndependentKernel(ks ...Kernel) *SeparateIndependentKernel {
	return kernels.NewSeparateIndependent(ks...)
}

// NewSeparateMixedKernel mixes len(ks) latent kernels through w [P, L].
func NewSeparateMixedKernel(w *tensor.Dense, ks ...Kernel) (*SeparateMixedKernel, error) {
	return kernels.NewSeparateMixed(w, ks...)
}

// NewCoregionalizedKernel scales k by the output covariance b [P, P].
func NewCoregionalizedKernel(k Kernel, b *tensor.Dense) (*CoregionalizedKernel, error) {
	return kernels.NewCoregionalized(k, b)
}

// Inducing features

// Feature is an inducing feature.
type Feature = features.Feature

// FeatureKind tags the structural family of a feature.
type FeatureKind = features.FeatureKind

// Feature kinds.
const (
	FeatureInducingPoints      = features.KindInducingPoints
	FeatureSharedIndependent   = features.KindSharedIndependent
	FeatureSeparateIndependent = features.KindSeparateIndependent
	FeatureMixedShared         = features.KindMixedShared
	FeatureMixedSeparate       = features.KindMixedSeparate
)

// Feature types.
type (
	InducingPoints             = features.InducingPoints
	SharedIndependentFeature   = features.SharedIndependent
	SeparateIndependentFeature = features.SeparateIndependent
	MixedSharedFeature         = features.MixedKernelShared
	MixedSeparateFeature       = features.MixedKernelSeparate
)

// NewInducingPoints creates joint (point, output) inducing variables at z [M, D].
func NewInducingPoints(z *tensor.Dense) (*InducingPoints, error) {
	return features.NewInducingPoints(z)
}

// NewSharedIndependentFeature reuses z [M, D] for every output or latent.
func NewSharedIndependentFeature(z *tensor.Dense) (*SharedIndependentFeature, error) {
	return features.NewSharedIndependent(z)
}

// NewSeparateIndependentFeature uses one [M, D] point set per output or latent.
func NewSeparateIndependentFeature(zs ...*tensor.Dense) (*SeparateIndependentFeature, error) {
	return features.NewSeparateIndependent(zs...)
}

// NewMixedSharedFeature reuses z [M, D] for every latent of a mixing kernel.
func NewMixedSharedFeature(z *tensor.Dense) (*MixedSharedFeature, error) {
	return features.NewMixedKernelShared(z)
}

// NewMixedSeparateFeature uses one [M, D] point set per latent of a mixing kernel.
func NewMixedSeparateFeature(zs ...*tensor.Dense) (*MixedSeparateFeature, error) {
	return features.NewMixedKernelSeparate(zs...)
}

// Conditionals

// Options are the flags of a conditional.
type Options = conditionals.Options

// PosteriorFactor is the square root of the posterior covariance of the
// inducing variables.
type PosteriorFactor = conditionals.PosteriorFactor

// Posterior factor forms.
type (
	Diagonal = conditionals.Diagonal
	Cholesky = conditionals.Cholesky
)

// Regime identifies the algorithm selected for a (feature, kernel) pair.
type Regime = conditionals.Regime

// Conditioner evaluates conditionals under a fixed configuration.
type Conditioner = conditionals.Conditioner

// Config is the numerical configuration of a Conditioner.
type Config = config.Config

// Errors.
var (
	ErrNoRegime            = conditionals.ErrNoRegime
	ErrNotPositiveDefinite = linalg.ErrNotPositiveDefinite
	ErrInvalidConfig       = config.ErrInvalidConfig
)

// Error types.
type (
	DispatchError  = conditionals.DispatchError
	NumericalError = linalg.NumericalError
)

// DefaultConfig returns jitter 1e-6, float64 results and one worker per CPU.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// NewConditioner creates a Conditioner. A nil logger disables logging.
func NewConditioner(cfg Config, logger *zap.Logger) (*Conditioner, error) {
	return conditionals.New(cfg, logger)
}

// Resolve returns the regime for a (feature kind, kernel kind) pair.
func Resolve(fk FeatureKind, kk KernelKind) (Regime, error) {
	return conditionals.Resolve(fk, kk)
}

// Conditional computes the predictive mean [N, P] and variance at x [N, D]
// with the default Conditioner.
//
// Example:
//
//	mean, variance, err := gp.Conditional(x, feat, kern, f, gp.Options{FullCov: true})
func Conditional(x *tensor.Dense, feat Feature, kern MultiOutput, f *tensor.Dense, opts Options) (mean, variance *tensor.Dense, err error) {
	return conditionals.Conditional(x, feat, kern, f, opts)
}
