package conditionals

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/mogp/internal/features"
	"github.com/born-ml/mogp/internal/kernels"
	"github.com/born-ml/mogp/internal/tensor"
)

// Test helpers

var flagCases = []struct {
	name          string
	fullCov       bool
	fullOutputCov bool
}{
	{"diag", false, false},
	{"full_cov", true, false},
	{"full_output_cov", false, true},
	{"full_both", true, true},
}

func rows(t *testing.T, r [][]float64) *tensor.Dense {
	t.Helper()
	d, err := tensor.FromRows(r)
	require.NoError(t, err)
	return d
}

func column(t *testing.T, vals ...float64) *tensor.Dense {
	t.Helper()
	d, err := tensor.New(tensor.Shape{len(vals), 1}, vals)
	require.NoError(t, err)
	return d
}

// filled returns a deterministic [r, c] tensor with smoothly varying entries.
func filled(r, c int, scale float64) *tensor.Dense {
	t := tensor.Zeros(r, c)
	data := t.Data()
	for i := range data {
		data[i] = scale * (0.3 + 0.17*float64(i%7) - 0.05*float64(i%3))
	}
	return t
}

// lowerFactors returns [R, M, M] lower triangular factors with a positive
// diagonal and garbage above it, which must be ignored.
func lowerFactors(r, m int) *tensor.Dense {
	t := tensor.Zeros(r, m, m)
	for k := 0; k < r; k++ {
		for i := 0; i < m; i++ {
			for j := 0; j < m; j++ {
				switch {
				case j < i:
					t.Set(0.05*float64(i-j)+0.01*float64(k), k, i, j)
				case j == i:
					t.Set(0.2+0.05*float64(i)+0.02*float64(k), k, i, j)
				default:
					t.Set(99, k, i, j)
				}
			}
		}
	}
	return t
}

func assertClose(t *testing.T, want, got *tensor.Dense, tol float64, msg string) {
	t.Helper()
	require.Equal(t, want.Shape(), got.Shape(), "%s: shape", msg)
	require.True(t, floats.EqualApprox(want.Data(), got.Data(), tol),
		"%s: values differ\nwant %v\ngot  %v", msg, want.Data(), got.Data())
}

// varianceLayout is the expected variance shape for the flags.
func varianceLayout(fullCov, fullOutputCov bool, n, p int) tensor.Shape {
	return tensor.Shape(varianceShape(fullCov, fullOutputCov, n, p))
}

func testInputs(t *testing.T) *tensor.Dense {
	return rows(t, [][]float64{{-0.5}, {0.3}, {1.2}, {2.1}})
}

func testInducing(t *testing.T) *tensor.Dense {
	return rows(t, [][]float64{{-0.2}, {0.9}, {1.8}})
}

func testMixing(t *testing.T) *tensor.Dense {
	return rows(t, [][]float64{{1.0, 0.4}, {-0.3, 0.8}, {0.5, 0.5}})
}

func latentKernels() []kernels.Kernel {
	return []kernels.Kernel{kernels.NewRBF(1.2, 0.9), kernels.NewMatern32(0.8, 1.4)}
}

// fixture is one complete set of conditional arguments.
type fixture struct {
	name   string
	regime Regime
	feat   features.Feature
	kern   kernels.MultiOutput
	f      *tensor.Dense
	q      PosteriorFactor
	p      int
}

// fixtures returns one problem per regime with N=4, M=3 and P=3.
func fixtures(t *testing.T) []fixture {
	t.Helper()
	z := testInducing(t)
	z2 := rows(t, [][]float64{{0.1}, {1.1}, {2.4}})
	z3 := rows(t, [][]float64{{-1}, {0.5}, {1.5}})
	const m, p, l = 3, 3, 2

	shared, err := features.NewSharedIndependent(z)
	require.NoError(t, err)
	separate, err := features.NewSeparateIndependent(z, z2, z3)
	require.NoError(t, err)
	points, err := features.NewInducingPoints(z)
	require.NoError(t, err)
	mixedShared, err := features.NewMixedKernelShared(z)
	require.NoError(t, err)

	mixing, err := kernels.NewSeparateMixed(testMixing(t), latentKernels()...)
	require.NoError(t, err)
	coreg, err := kernels.NewCoregionalized(kernels.NewRBF(1, 1),
		rows(t, [][]float64{{1, 0.5, 0.2}, {0.5, 1, 0.3}, {0.2, 0.3, 1}}))
	require.NoError(t, err)

	return []fixture{
		{
			name:   "shared-independent",
			regime: RegimeSharedIndependent,
			feat:   shared,
			kern:   kernels.NewSharedIndependent(kernels.NewRBF(1.3, 0.7), p),
			f:      filled(m, p, 1),
			q:      Cholesky{L: lowerFactors(p, m)},
			p:      p,
		},
		{
			name:   "separate-independent",
			regime: RegimeSeparateIndependent,
			feat:   separate,
			kern: kernels.NewSeparateIndependent(
				kernels.NewRBF(1, 0.8), kernels.NewMatern32(1.5, 1.1), kernels.NewRBF(0.7, 2)),
			f: filled(m, p, 1),
			q: Diagonal{Std: filled(m, p, 0.5)},
			p: p,
		},
		{
			name:   "interdomain",
			regime: RegimeInterdomain,
			feat:   shared,
			kern:   mixing,
			f:      filled(m, l, 1),
			q:      Cholesky{L: lowerFactors(l, m)},
			p:      p,
		},
		{
			name:   "fully-correlated",
			regime: RegimeFullyCorrelated,
			feat:   points,
			kern:   coreg,
			f:      filled(m*p, 1, 1),
			q:      Cholesky{L: lowerFactors(1, m*p)},
			p:      p,
		},
		{
			name:   "mixed",
			regime: RegimeMixed,
			feat:   mixedShared,
			kern:   mixing,
			f:      filled(m, l, 1),
			q:      Diagonal{Std: filled(m, l, 0.4)},
			p:      p,
		},
	}
}
