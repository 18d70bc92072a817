package conditionals

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/born-ml/mogp/internal/config"
	"github.com/born-ml/mogp/internal/features"
	"github.com/born-ml/mogp/internal/kernels"
	"github.com/born-ml/mogp/internal/parallel"
	"github.com/born-ml/mogp/internal/tensor"
)

// Conditioner evaluates multi-output conditionals under a fixed numerical
// configuration. It holds no state that changes between calls and is safe
// for concurrent use.
type Conditioner struct {
	cfg config.Config
	par parallel.Config
	log *zap.Logger
}

// New creates a Conditioner. A nil logger disables logging.
func New(cfg config.Config, logger *zap.Logger) (*Conditioner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conditioner{
		cfg: cfg,
		par: cfg.ParallelOptions(),
		log: logger.Named("conditional"),
	}, nil
}

var defaultConditioner = &Conditioner{
	cfg: config.Default(),
	par: config.Default().ParallelOptions(),
	log: zap.NewNop(),
}

// Default returns the Conditioner configured with config.Default().
func Default() *Conditioner {
	return defaultConditioner
}

// Config returns the numerical configuration.
func (c *Conditioner) Config() config.Config {
	return c.cfg
}

// Conditional computes the predictive mean [N, P] and variance of a
// multi-output GP at x [N, D].
//
// The regime is selected from the kinds of feat and kern (see Resolve).
// The variance layout follows the flags:
//   - neither:            [N, P]
//   - FullCov:            [P, N, N]
//   - FullOutputCov:      [N, P, P]
//   - both:               [N, P, N, P]
//
// Errors are never recovered: *DispatchError for unregistered pairs,
// *tensor.ShapeMismatchError for inconsistent inputs and
// *linalg.NumericalError when a Cholesky factorization fails.
//
// Example:
//
//	z, _ := tensor.FromRows([][]float64{{0}, {1}})
//	feat, _ := features.NewSharedIndependent(z)
//	kern := kernels.NewSharedIndependent(kernels.NewRBF(1, 1), 2)
//	mean, variance, err := conditionals.Default().Conditional(x, feat, kern, f, conditionals.Options{})
func (c *Conditioner) Conditional(x *tensor.Dense, feat features.Feature, kern kernels.MultiOutput, f *tensor.Dense, opts Options) (mean, variance *tensor.Dense, err error) {
	if feat == nil || kern == nil {
		return nil, nil, errors.New("conditional: feature and kernel are required")
	}

	regime, err := Resolve(feat.Kind(), kern.Kind())
	if err != nil {
		c.log.Debug("dispatch failed",
			zap.Stringer("feature", feat.Kind()),
			zap.Stringer("kernel", kern.Kind()),
		)
		return nil, nil, err
	}
	if err := tensor.Expect("conditional", "Xnew", x, -1, feat.InputDim()); err != nil {
		return nil, nil, err
	}
	if err := tensor.Expect("conditional", "f", f, -1, -1); err != nil {
		return nil, nil, err
	}

	c.log.Debug("conditional",
		zap.Stringer("regime", regime),
		zap.Stringer("feature", feat.Kind()),
		zap.Stringer("kernel", kern.Kind()),
		zap.Int("N", x.Dim(0)),
		zap.Int("M", feat.NumInducing()),
		zap.Int("P", kern.NumOutputs()),
		zap.Int("L", kern.NumLatents()),
		zap.Bool("full_cov", opts.FullCov),
		zap.Bool("full_output_cov", opts.FullOutputCov),
		zap.Bool("q_sqrt", opts.QSqrt != nil),
		zap.Bool("white", opts.White),
	)

	switch regime {
	case RegimeSharedIndependent:
		mean, variance, err = c.sharedIndependent(x, feat, kern, f, opts)
	case RegimeSeparateIndependent:
		mean, variance, err = c.separateIndependent(x, feat, kern, f, opts)
	case RegimeInterdomain:
		mean, variance, err = c.interdomain(x, feat, kern, f, opts)
	case RegimeFullyCorrelated:
		mean, variance, err = c.fullyCorrelated(x, feat, kern, f, opts)
	case RegimeMixed:
		mean, variance, err = c.mixed(x, feat, kern, f, opts)
	default:
		panic(fmt.Sprintf("conditionals: unhandled regime %v", regime))
	}
	if err != nil {
		c.log.Debug("conditional failed", zap.Stringer("regime", regime), zap.Error(err))
		return nil, nil, fmt.Errorf("%s conditional: %w", regime, err)
	}

	if c.cfg.Precision == config.Float32 {
		mean.Round32()
		variance.Round32()
	}
	return mean, variance, nil
}

// Conditional evaluates a conditional with the default Conditioner.
func Conditional(x *tensor.Dense, feat features.Feature, kern kernels.MultiOutput, f *tensor.Dense, opts Options) (mean, variance *tensor.Dense, err error) {
	return defaultConditioner.Conditional(x, feat, kern, f, opts)
}
