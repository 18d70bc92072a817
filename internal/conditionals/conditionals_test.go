package conditionals

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/mogp/internal/config"
	"github.com/born-ml/mogp/internal/features"
	"github.com/born-ml/mogp/internal/kernels"
	"github.com/born-ml/mogp/internal/linalg"
	"github.com/born-ml/mogp/internal/tensor"
)

// sliceFull extracts the narrower layout selected by the flags from a
// [N, P, N, P] covariance.
func sliceFull(full *tensor.Dense, fullCov, fullOutputCov bool) *tensor.Dense {
	n, p := full.Dim(0), full.Dim(1)
	switch {
	case fullCov && fullOutputCov:
		return full
	case fullCov:
		out := tensor.Zeros(p, n, n)
		for q := 0; q < p; q++ {
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					out.Set(full.At(i, q, j, q), q, i, j)
				}
			}
		}
		return out
	case fullOutputCov:
		out := tensor.Zeros(n, p, p)
		for i := 0; i < n; i++ {
			for a := 0; a < p; a++ {
				for b := 0; b < p; b++ {
					out.Set(full.At(i, a, i, b), i, a, b)
				}
			}
		}
		return out
	default:
		out := tensor.Zeros(n, p)
		for i := 0; i < n; i++ {
			for a := 0; a < p; a++ {
				out.Set(full.At(i, a, i, a), i, a)
			}
		}
		return out
	}
}

func TestConditional_ClosedForm(t *testing.T) {
	const (
		variance    = 1.5
		lengthscale = 0.8
		fval        = 0.7
		std         = 0.3
	)
	z := rows(t, [][]float64{{0}})
	x := rows(t, [][]float64{{0.6}})
	rbf := kernels.NewRBF(variance, lengthscale)
	identity := rows(t, [][]float64{{1}})

	kmn := variance * math.Exp(-0.5*0.6*0.6/(lengthscale*lengthscale))
	kmm := variance + config.DefaultJitter

	shared, err := features.NewSharedIndependent(z)
	require.NoError(t, err)
	separate, err := features.NewSeparateIndependent(z)
	require.NoError(t, err)
	points, err := features.NewInducingPoints(z)
	require.NoError(t, err)
	mixedShared, err := features.NewMixedKernelShared(z)
	require.NoError(t, err)
	mixing, err := kernels.NewSeparateMixed(identity, rbf)
	require.NoError(t, err)

	problems := []struct {
		name string
		feat features.Feature
		kern kernels.MultiOutput
	}{
		{"shared-independent", shared, kernels.NewSharedIndependent(rbf, 1)},
		{"separate-independent", separate, kernels.NewSeparateIndependent(rbf)},
		{"interdomain", shared, mixing},
		{"fully-correlated", points, kernels.NewSharedIndependent(rbf, 1)},
		{"mixed", mixedShared, mixing},
	}

	for _, pr := range problems {
		for _, fc := range flagCases {
			for _, white := range []bool{false, true} {
				for _, withQ := range []bool{false, true} {
					opts := Options{FullCov: fc.fullCov, FullOutputCov: fc.fullOutputCov, White: white}
					if withQ {
						opts.QSqrt = Diagonal{Std: rows(t, [][]float64{{std}})}
					}

					wantMean := kmn / kmm * fval
					wantVar := variance - kmn*kmn/kmm
					if white {
						wantMean = kmn / math.Sqrt(kmm) * fval
					}
					if withQ {
						if white {
							wantVar += std * std * kmn * kmn / kmm
						} else {
							wantVar += std * std * kmn * kmn / (kmm * kmm)
						}
					}

					mean, v, err := Conditional(x, pr.feat, pr.kern, column(t, fval), opts)
					require.NoError(t, err, "%s/%s white=%v q=%v", pr.name, fc.name, white, withQ)
					require.Equal(t, 1, mean.NumElements())
					require.Equal(t, 1, v.NumElements())
					assert.InDelta(t, wantMean, mean.Data()[0], 1e-12, "%s/%s mean", pr.name, fc.name)
					assert.InDelta(t, wantVar, v.Data()[0], 1e-12, "%s/%s variance", pr.name, fc.name)
				}
			}
		}
	}
}

func TestConditional_ShapeContract(t *testing.T) {
	x := testInputs(t)
	n := x.Dim(0)

	for _, fx := range fixtures(t) {
		regime, err := Resolve(fx.feat.Kind(), fx.kern.Kind())
		require.NoError(t, err)
		require.Equal(t, fx.regime, regime, fx.name)

		for _, fc := range flagCases {
			for _, white := range []bool{false, true} {
				t.Run(fx.name+"/"+fc.name, func(t *testing.T) {
					mean, v, err := Conditional(x, fx.feat, fx.kern, fx.f, Options{
						FullCov:       fc.fullCov,
						FullOutputCov: fc.fullOutputCov,
						QSqrt:         fx.q,
						White:         white,
					})
					require.NoError(t, err)
					assert.Equal(t, tensor.Shape{n, fx.p}, mean.Shape())
					assert.Equal(t, varianceLayout(fc.fullCov, fc.fullOutputCov, n, fx.p), v.Shape())
					assert.False(t, floats.HasNaN(mean.Data()))
					assert.False(t, floats.HasNaN(v.Data()))
				})
			}
		}
	}
}

func TestConditional_LayoutsAgree(t *testing.T) {
	x := testInputs(t)

	for _, fx := range fixtures(t) {
		for _, white := range []bool{false, true} {
			meanFull, full, err := Conditional(x, fx.feat, fx.kern, fx.f, Options{
				FullCov: true, FullOutputCov: true, QSqrt: fx.q, White: white,
			})
			require.NoError(t, err, fx.name)

			for _, fc := range flagCases {
				mean, v, err := Conditional(x, fx.feat, fx.kern, fx.f, Options{
					FullCov: fc.fullCov, FullOutputCov: fc.fullOutputCov, QSqrt: fx.q, White: white,
				})
				require.NoError(t, err)
				msg := fx.name + "/" + fc.name
				assertClose(t, meanFull, mean, 1e-10, msg+" mean")
				assertClose(t, sliceFull(full, fc.fullCov, fc.fullOutputCov), v, 1e-9, msg+" variance")
			}
		}
	}
}

func TestConditional_IndependentOutputsAreUncorrelated(t *testing.T) {
	x := testInputs(t)

	for _, fx := range fixtures(t)[:2] {
		_, outputs, err := Conditional(x, fx.feat, fx.kern, fx.f, Options{FullOutputCov: true, QSqrt: fx.q})
		require.NoError(t, err)
		_, full, err := Conditional(x, fx.feat, fx.kern, fx.f, Options{FullCov: true, FullOutputCov: true, QSqrt: fx.q})
		require.NoError(t, err)

		n, p := x.Dim(0), fx.p
		for i := 0; i < n; i++ {
			for a := 0; a < p; a++ {
				for b := 0; b < p; b++ {
					if a == b {
						continue
					}
					assert.Equal(t, 0.0, outputs.At(i, a, b), fx.name)
					for j := 0; j < n; j++ {
						assert.Equal(t, 0.0, full.At(i, a, j, b), fx.name)
					}
				}
			}
		}
	}
}

func TestConditional_FullyCorrelatedReducesToShared(t *testing.T) {
	x := testInputs(t)
	z := testInducing(t)
	kern := kernels.NewSharedIndependent(kernels.NewRBF(1.1, 0.6), 1)

	points, err := features.NewInducingPoints(z)
	require.NoError(t, err)
	shared, err := features.NewSharedIndependent(z)
	require.NoError(t, err)

	f := filled(3, 1, 1)
	q := Cholesky{L: lowerFactors(1, 3)}

	for _, fc := range flagCases {
		for _, white := range []bool{false, true} {
			opts := Options{FullCov: fc.fullCov, FullOutputCov: fc.fullOutputCov, QSqrt: q, White: white}
			wantMean, wantVar, err := Conditional(x, shared, kern, f, opts)
			require.NoError(t, err)
			mean, v, err := Conditional(x, points, kern, f, opts)
			require.NoError(t, err)

			assertClose(t, wantMean, mean, 1e-10, fc.name+" mean")
			assertClose(t, wantVar, v, 1e-10, fc.name+" variance")
		}
	}
}

func TestConditional_FullyCorrelatedAcceptsGridLayout(t *testing.T) {
	x := testInputs(t)
	fx := fixtures(t)[3]
	m, p := 3, fx.p

	std := filled(m, p, 0.3)
	flatMean, flatVar, err := Conditional(x, fx.feat, fx.kern, fx.f, Options{
		FullOutputCov: true, QSqrt: Diagonal{Std: std.Clone().Reshape(m*p, 1)},
	})
	require.NoError(t, err)

	gridMean, gridVar, err := Conditional(x, fx.feat, fx.kern, fx.f.Clone().Reshape(m, p), Options{
		FullOutputCov: true, QSqrt: Diagonal{Std: std},
	})
	require.NoError(t, err)

	assert.Equal(t, flatMean.Data(), gridMean.Data())
	assert.Equal(t, flatVar.Data(), gridVar.Data())
}

func TestConditional_MixingWithIdentity(t *testing.T) {
	x := testInputs(t)
	z1 := testInducing(t)
	z2 := rows(t, [][]float64{{0.1}, {1.1}, {2.4}})
	ks := latentKernels()

	separateFeat, err := features.NewSeparateIndependent(z1, z2)
	require.NoError(t, err)
	mixedFeat, err := features.NewMixedKernelSeparate(z1, z2)
	require.NoError(t, err)
	mixing, err := kernels.NewSeparateMixed(tensor.Eye(2), ks...)
	require.NoError(t, err)
	separateKern := kernels.NewSeparateIndependent(ks...)

	f := filled(3, 2, 1)
	for _, q := range []PosteriorFactor{nil, Cholesky{L: lowerFactors(2, 3)}, Diagonal{Std: filled(3, 2, 0.2)}} {
		for _, fc := range flagCases {
			opts := Options{FullCov: fc.fullCov, FullOutputCov: fc.fullOutputCov, QSqrt: q}
			wantMean, wantVar, err := Conditional(x, separateFeat, separateKern, f, opts)
			require.NoError(t, err)
			mean, v, err := Conditional(x, mixedFeat, mixing, f, opts)
			require.NoError(t, err)

			assertClose(t, wantMean, mean, 1e-12, fc.name+" mean")
			assertClose(t, wantVar, v, 1e-12, fc.name+" variance")
		}
	}
}

func TestConditional_InterdomainMatchesMixed(t *testing.T) {
	x := testInputs(t)
	all := fixtures(t)
	interdomain, mixed := all[2], all[4]
	require.Same(t, interdomain.kern, mixed.kern)

	for _, q := range []PosteriorFactor{interdomain.q, mixed.q} {
		for _, fc := range flagCases {
			for _, white := range []bool{false, true} {
				opts := Options{FullCov: fc.fullCov, FullOutputCov: fc.fullOutputCov, QSqrt: q, White: white}
				wantMean, wantVar, err := Conditional(x, mixed.feat, mixed.kern, mixed.f, opts)
				require.NoError(t, err)
				mean, v, err := Conditional(x, interdomain.feat, interdomain.kern, interdomain.f, opts)
				require.NoError(t, err)

				assertClose(t, wantMean, mean, 1e-9, fc.name+" mean")
				assertClose(t, wantVar, v, 1e-9, fc.name+" variance")
			}
		}
	}
}

func TestConditional_Deterministic(t *testing.T) {
	x := testInputs(t)
	seq := config.Default()
	seq.Parallel.Enabled = false
	par := config.Default()
	par.Parallel = config.ParallelConfig{Enabled: true, Workers: 4}

	cs, err := New(seq, nil)
	require.NoError(t, err)
	cp, err := New(par, nil)
	require.NoError(t, err)

	for _, fx := range fixtures(t) {
		opts := Options{FullCov: true, FullOutputCov: true, QSqrt: fx.q}
		m1, v1, err := cs.Conditional(x, fx.feat, fx.kern, fx.f, opts)
		require.NoError(t, err)
		m2, v2, err := cs.Conditional(x, fx.feat, fx.kern, fx.f, opts)
		require.NoError(t, err)
		m3, v3, err := cp.Conditional(x, fx.feat, fx.kern, fx.f, opts)
		require.NoError(t, err)

		assert.Equal(t, m1.Data(), m2.Data(), fx.name)
		assert.Equal(t, v1.Data(), v2.Data(), fx.name)
		assert.Equal(t, m1.Data(), m3.Data(), fx.name)
		assert.Equal(t, v1.Data(), v3.Data(), fx.name)
	}
}

func TestConditional_DoesNotModifyInputs(t *testing.T) {
	x := testInputs(t)
	for _, fx := range fixtures(t) {
		f := fx.f.Clone()
		xc := x.Clone()
		_, _, err := Conditional(x, fx.feat, fx.kern, fx.f, Options{FullCov: true, QSqrt: fx.q})
		require.NoError(t, err)
		assert.Equal(t, f.Data(), fx.f.Data(), fx.name)
		assert.Equal(t, xc.Data(), x.Data(), fx.name)
	}
}

func TestConditional_Jitter(t *testing.T) {
	x := testInputs(t)
	z := rows(t, [][]float64{{0}, {0}})
	feat, err := features.NewSharedIndependent(z)
	require.NoError(t, err)
	kern := kernels.NewSharedIndependent(kernels.NewRBF(1, 1), 1)
	f := column(t, 0.5, 0.5)

	mean, v, err := Conditional(x, feat, kern, f, Options{})
	require.NoError(t, err, "default jitter makes duplicated inducing points factorizable")
	assert.False(t, floats.HasNaN(mean.Data()))
	assert.False(t, floats.HasNaN(v.Data()))

	cfg := config.Default()
	cfg.Jitter = 0
	c, err := New(cfg, nil)
	require.NoError(t, err)

	_, _, err = c.Conditional(x, feat, kern, f, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, linalg.ErrNotPositiveDefinite))
	var ne *linalg.NumericalError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, 2, ne.Size)

	// Batched factorizations report the failing latent.
	mixing, err := kernels.NewSeparateMixed(rows(t, [][]float64{{1, 0}, {0, 1}}),
		kernels.NewRBF(1, 1), kernels.NewRBF(1, 1))
	require.NoError(t, err)
	_, _, err = c.Conditional(x, feat, mixing, rows(t, [][]float64{{0, 0}, {0, 0}}), Options{})
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, 0, ne.Index)
}

func TestConditional_ShapeErrors(t *testing.T) {
	x := testInputs(t)
	all := fixtures(t)
	shared, interdomain := all[0], all[2]

	tests := []struct {
		name   string
		x      *tensor.Dense
		fx     fixture
		f      *tensor.Dense
		q      PosteriorFactor
		tensor string
	}{
		{"input dimension", tensor.Zeros(4, 2), shared, shared.f, nil, "Xnew"},
		{"f rows", x, shared, filled(4, 3, 1), nil, "f"},
		{"f columns", x, shared, filled(3, 2, 1), nil, "f"},
		{"f rank", x, shared, tensor.Zeros(3), nil, "f"},
		{"q_sqrt columns", x, shared, shared.f, Cholesky{L: lowerFactors(2, 3)}, "q_sqrt"},
		{"q_sqrt diagonal", x, shared, shared.f, Diagonal{Std: filled(2, 3, 1)}, "q_sqrt"},
		{"interdomain f", x, interdomain, filled(3, 3, 1), nil, "f"},
		{"interdomain q_sqrt", x, interdomain, interdomain.f, Cholesky{L: lowerFactors(3, 3)}, "q_sqrt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Conditional(tt.x, tt.fx.feat, tt.fx.kern, tt.f, Options{QSqrt: tt.q})
			require.Error(t, err)
			assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
			var sm *tensor.ShapeMismatchError
			require.ErrorAs(t, err, &sm)
			assert.Equal(t, tt.tensor, sm.Tensor)
		})
	}

	_, _, err := Conditional(x, nil, shared.kern, shared.f, Options{})
	assert.Error(t, err)
}

func TestConditional_Float32(t *testing.T) {
	cfg := config.Default()
	cfg.Precision = config.Float32
	c, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, config.Float32, c.Config().Precision)

	fx := fixtures(t)[0]
	mean, v, err := c.Conditional(testInputs(t), fx.feat, fx.kern, fx.f, Options{QSqrt: fx.q})
	require.NoError(t, err)
	for _, d := range [][]float64{mean.Data(), v.Data()} {
		for _, val := range d {
			assert.Equal(t, float64(float32(val)), val)
		}
	}

	ref, _, err := Conditional(testInputs(t), fx.feat, fx.kern, fx.f, Options{QSqrt: fx.q})
	require.NoError(t, err)
	assertClose(t, ref, mean, 1e-6, "float32 mean")
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Jitter = -1
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestConditioner_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c, err := New(config.Default(), zap.New(core))
	require.NoError(t, err)

	fx := fixtures(t)[2]
	_, _, err = c.Conditional(testInputs(t), fx.feat, fx.kern, fx.f, Options{FullCov: true})
	require.NoError(t, err)

	entries := logs.FilterMessage("conditional").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "conditional", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "interdomain", fields["regime"])
	assert.Equal(t, int64(3), fields["M"])
	assert.Equal(t, int64(2), fields["L"])
	assert.Equal(t, true, fields["full_cov"])
}

// Dispatch

func TestResolve(t *testing.T) {
	tests := []struct {
		feat features.FeatureKind
		kern kernels.KernelKind
		want Regime
	}{
		{features.KindSharedIndependent, kernels.KindSharedIndependent, RegimeSharedIndependent},
		{features.KindSharedIndependent, kernels.KindSeparateIndependent, RegimeSeparateIndependent},
		{features.KindSeparateIndependent, kernels.KindSharedIndependent, RegimeSeparateIndependent},
		{features.KindSeparateIndependent, kernels.KindSeparateIndependent, RegimeSeparateIndependent},
		{features.KindSharedIndependent, kernels.KindSeparateMixed, RegimeInterdomain},
		{features.KindSeparateIndependent, kernels.KindSeparateMixed, RegimeInterdomain},
		{features.KindInducingPoints, kernels.KindSharedIndependent, RegimeFullyCorrelated},
		{features.KindInducingPoints, kernels.KindMultiOutput, RegimeFullyCorrelated},
		{features.KindMixedShared, kernels.KindSeparateMixed, RegimeMixed},
		{features.KindMixedSeparate, kernels.KindSeparateMixed, RegimeMixed},
	}
	for _, tt := range tests {
		t.Run(tt.feat.String()+"/"+tt.kern.String(), func(t *testing.T) {
			got, err := Resolve(tt.feat, tt.kern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Unregistered(t *testing.T) {
	pairs := []struct {
		feat features.FeatureKind
		kern kernels.KernelKind
	}{
		{features.KindSharedIndependent, kernels.KindMultiOutput},
		{features.KindSeparateIndependent, kernels.KindMultiOutput},
		{features.KindMixedShared, kernels.KindSharedIndependent},
		{features.KindMixedSeparate, kernels.KindSeparateIndependent},
		{features.KindMixedShared, kernels.KindMultiOutput},
	}
	for _, pr := range pairs {
		_, err := Resolve(pr.feat, pr.kern)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoRegime)

		var de *DispatchError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, pr.feat, de.Feature)
		assert.Equal(t, pr.kern, de.Kernel)
	}

	_, err := Resolve(features.KindMixedShared, kernels.KindSharedIndependent)
	assert.Equal(t, "no conditional registered for feature MixedKernelShared and kernel SharedIndependent", err.Error())
}

func TestRegistered(t *testing.T) {
	entries := Registered()
	assert.Len(t, entries, 12)

	counts := map[Regime]int{}
	for _, e := range entries {
		got, err := Resolve(e.Feature, e.Kernel)
		require.NoError(t, err)
		assert.Equal(t, e.Regime, got)
		counts[e.Regime]++
	}
	assert.Equal(t, map[Regime]int{
		RegimeSharedIndependent:   1,
		RegimeSeparateIndependent: 3,
		RegimeInterdomain:         2,
		RegimeFullyCorrelated:     4,
		RegimeMixed:               2,
	}, counts)
}

func TestConditional_DispatchError(t *testing.T) {
	fx := fixtures(t)[3] // Coregionalized kernel
	shared, err := features.NewSharedIndependent(testInducing(t))
	require.NoError(t, err)

	_, _, err = Conditional(testInputs(t), shared, fx.kern, fx.f, Options{})
	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, kernels.KindMultiOutput, de.Kernel)
	assert.Equal(t, "fully-correlated", RegimeFullyCorrelated.String())
	assert.Equal(t, "Regime(9)", Regime(9).String())
}
