// Package problem decodes a YAML description of a conditional query into
// the typed inputs of the conditionals package, and encodes results.
//
// Example document:
//
//	x: [[0.1], [0.7]]
//	feature:
//	  type: shared_independent
//	  z: [[0.0], [0.5], [1.0]]
//	kernel:
//	  type: shared_independent
//	  outputs: 2
//	  kernels: [{type: rbf, variance: 1.0, lengthscale: 0.5}]
//	f: [[0.1, 0.2], [0.3, 0.4], [0.5, 0.6]]
//	q_sqrt:
//	  diagonal: [[0.1, 0.1], [0.1, 0.1], [0.1, 0.1]]
//	full_cov: true
package problem

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/mogp/internal/conditionals"
	"github.com/born-ml/mogp/internal/features"
	"github.com/born-ml/mogp/internal/kernels"
	"github.com/born-ml/mogp/internal/tensor"
)

// ErrInvalidProblem is wrapped by every decoding or validation failure.
var ErrInvalidProblem = errors.New("invalid problem")

// KernelSpec describes a single-output kernel.
type KernelSpec struct {
	Type        string  `yaml:"type"` // rbf, matern32 or linear
	Variance    float64 `yaml:"variance"`
	Lengthscale float64 `yaml:"lengthscale"`
}

// MultiOutputSpec describes a multi-output kernel.
type MultiOutputSpec struct {
	Type    string       `yaml:"type"`    // shared_independent, separate_independent, separate_mixed or coregionalized
	Outputs int          `yaml:"outputs"` // shared_independent only
	Kernels []KernelSpec `yaml:"kernels"`
	W       [][]float64  `yaml:"w,flow"` // separate_mixed, [P, L]
	B       [][]float64  `yaml:"b,flow"` // coregionalized, [P, P]
}

// FeatureSpec describes the inducing feature.
type FeatureSpec struct {
	Type string        `yaml:"type"` // inducing_points, shared_independent, separate_independent, mixed_shared or mixed_separate
	Z    [][]float64   `yaml:"z,flow"`
	Zs   [][][]float64 `yaml:"zs,flow"` // per-output or per-latent sets
}

// PosteriorSpec holds exactly one of the two posterior factor forms.
type PosteriorSpec struct {
	Diagonal [][]float64   `yaml:"diagonal,flow"` // [M, R]
	Cholesky [][][]float64 `yaml:"cholesky,flow"` // [R, M, M]
}

// Spec is the YAML document.
type Spec struct {
	X             [][]float64     `yaml:"x,flow"`
	Feature       FeatureSpec     `yaml:"feature"`
	Kernel        MultiOutputSpec `yaml:"kernel"`
	F             [][]float64     `yaml:"f,flow"`
	QSqrt         *PosteriorSpec  `yaml:"q_sqrt,omitempty"`
	FullCov       bool            `yaml:"full_cov"`
	FullOutputCov bool            `yaml:"full_output_cov"`
	White         bool            `yaml:"white"`
}

// Problem is a decoded query ready for conditionals.Conditional.
type Problem struct {
	X       *tensor.Dense
	Feature features.Feature
	Kernel  kernels.MultiOutput
	F       *tensor.Dense
	Options conditionals.Options
}

// Parse decodes and builds a problem from YAML.
func Parse(data []byte) (*Problem, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProblem, err)
	}
	return spec.Build()
}

// Load reads and parses a YAML problem file.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load problem: %w", err)
	}
	return Parse(data)
}

// Build converts the document into typed values. Shape consistency between
// the parts is left to the conditional, which reports it precisely.
func (s *Spec) Build() (*Problem, error) {
	x, err := matrix("x", s.X)
	if err != nil {
		return nil, err
	}
	feat, err := s.Feature.build()
	if err != nil {
		return nil, err
	}
	kern, err := s.Kernel.build()
	if err != nil {
		return nil, err
	}
	f, err := matrix("f", s.F)
	if err != nil {
		return nil, err
	}

	opts := conditionals.Options{
		FullCov:       s.FullCov,
		FullOutputCov: s.FullOutputCov,
		White:         s.White,
	}
	if s.QSqrt != nil {
		if opts.QSqrt, err = s.QSqrt.build(); err != nil {
			return nil, err
		}
	}
	return &Problem{X: x, Feature: feat, Kernel: kern, F: f, Options: opts}, nil
}

func (s FeatureSpec) build() (features.Feature, error) {
	var (
		feat features.Feature
		err  error
	)
	switch typ := normalize(s.Type); typ {
	case "inducing_points", "shared_independent", "mixed_shared":
		z, zerr := matrix("feature.z", s.Z)
		if zerr != nil {
			return nil, zerr
		}
		switch typ {
		case "inducing_points":
			feat, err = features.NewInducingPoints(z)
		case "shared_independent":
			feat, err = features.NewSharedIndependent(z)
		default:
			feat, err = features.NewMixedKernelShared(z)
		}
	case "separate_independent", "mixed_separate":
		zs, zerr := matrices("feature.zs", s.Zs)
		if zerr != nil {
			return nil, zerr
		}
		if typ == "separate_independent" {
			feat, err = features.NewSeparateIndependent(zs...)
		} else {
			feat, err = features.NewMixedKernelSeparate(zs...)
		}
	default:
		return nil, fmt.Errorf("%w: unknown feature type %q", ErrInvalidProblem, s.Type)
	}
	if err != nil {
		return nil, invalid(err)
	}
	return feat, nil
}

func (s MultiOutputSpec) build() (kernels.MultiOutput, error) {
	ks := make([]kernels.Kernel, len(s.Kernels))
	for i, k := range s.Kernels {
		kern, err := k.build()
		if err != nil {
			return nil, fmt.Errorf("kernel.kernels[%d]: %w", i, err)
		}
		ks[i] = kern
	}

	typ := normalize(s.Type)
	switch typ {
	case "shared_independent":
		if len(ks) != 1 {
			return nil, fmt.Errorf("%w: %s kernel needs exactly one constituent, got %d", ErrInvalidProblem, typ, len(ks))
		}
		if s.Outputs <= 0 {
			return nil, fmt.Errorf("%w: %s kernel needs outputs > 0", ErrInvalidProblem, typ)
		}
		return kernels.NewSharedIndependent(ks[0], s.Outputs), nil
	case "separate_independent":
		if len(ks) == 0 {
			return nil, fmt.Errorf("%w: %s kernel needs at least one constituent", ErrInvalidProblem, typ)
		}
		return kernels.NewSeparateIndependent(ks...), nil
	case "separate_mixed":
		w, err := matrix("kernel.w", s.W)
		if err != nil {
			return nil, err
		}
		kern, err := kernels.NewSeparateMixed(w, ks...)
		if err != nil {
			return nil, invalid(err)
		}
		return kern, nil
	case "coregionalized":
		if len(ks) != 1 {
			return nil, fmt.Errorf("%w: %s kernel needs exactly one constituent, got %d", ErrInvalidProblem, typ, len(ks))
		}
		b, err := matrix("kernel.b", s.B)
		if err != nil {
			return nil, err
		}
		kern, err := kernels.NewCoregionalized(ks[0], b)
		if err != nil {
			return nil, invalid(err)
		}
		return kern, nil
	default:
		return nil, fmt.Errorf("%w: unknown kernel type %q", ErrInvalidProblem, s.Type)
	}
}

func (s KernelSpec) build() (kernels.Kernel, error) {
	if s.Variance <= 0 {
		return nil, fmt.Errorf("%w: variance must be > 0, got %v", ErrInvalidProblem, s.Variance)
	}
	switch normalize(s.Type) {
	case "rbf", "squared_exponential":
		if s.Lengthscale <= 0 {
			return nil, fmt.Errorf("%w: lengthscale must be > 0, got %v", ErrInvalidProblem, s.Lengthscale)
		}
		return kernels.NewRBF(s.Variance, s.Lengthscale), nil
	case "matern32":
		if s.Lengthscale <= 0 {
			return nil, fmt.Errorf("%w: lengthscale must be > 0, got %v", ErrInvalidProblem, s.Lengthscale)
		}
		return kernels.NewMatern32(s.Variance, s.Lengthscale), nil
	case "linear":
		return kernels.NewLinear(s.Variance), nil
	default:
		return nil, fmt.Errorf("%w: unknown kernel type %q", ErrInvalidProblem, s.Type)
	}
}

func (s PosteriorSpec) build() (conditionals.PosteriorFactor, error) {
	switch {
	case s.Diagonal != nil && s.Cholesky != nil:
		return nil, fmt.Errorf("%w: q_sqrt must set only one of diagonal and cholesky", ErrInvalidProblem)
	case s.Diagonal != nil:
		std, err := matrix("q_sqrt.diagonal", s.Diagonal)
		if err != nil {
			return nil, err
		}
		return conditionals.Diagonal{Std: std}, nil
	case s.Cholesky != nil:
		ls, err := matrices("q_sqrt.cholesky", s.Cholesky)
		if err != nil {
			return nil, err
		}
		l, err := tensor.Stack(ls)
		if err != nil {
			return nil, invalid(err)
		}
		return conditionals.Cholesky{L: l}, nil
	default:
		return nil, nil
	}
}

func matrix(name string, rows [][]float64) (*tensor.Dense, error) {
	t, err := tensor.FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProblem, name, err)
	}
	return t, nil
}

func matrices(name string, sets [][][]float64) ([]*tensor.Dense, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: %s: at least one matrix required", ErrInvalidProblem, name)
	}
	out := make([]*tensor.Dense, len(sets))
	for i, rows := range sets {
		t, err := matrix(fmt.Sprintf("%s[%d]", name, i), rows)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// invalid tags constructor failures as invalid problems while keeping the
// shape error reachable through errors.As.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidProblem, err)
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
