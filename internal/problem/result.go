package problem

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/mogp/internal/tensor"
)

// Result is the YAML document written for a solved problem.
type Result struct {
	Regime        string `yaml:"regime"`
	MeanShape     []int  `yaml:"mean_shape,flow"`
	Mean          any    `yaml:"mean,flow"`
	VarianceShape []int  `yaml:"variance_shape,flow"`
	Variance      any    `yaml:"variance,flow"`
}

// NewResult captures the outputs of a conditional.
func NewResult(regime string, mean, variance *tensor.Dense) Result {
	return Result{
		Regime:        regime,
		MeanShape:     mean.Shape().Clone(),
		Mean:          Nested(mean),
		VarianceShape: variance.Shape().Clone(),
		Variance:      Nested(variance),
	}
}

// Encode writes the result as YAML.
func (r Result) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return enc.Close()
}

// Nested converts a tensor into nested slices following its shape, so a
// [2, 3] tensor becomes [][]float64-like []any rows.
func Nested(t *tensor.Dense) any {
	if t.Rank() == 1 {
		return append([]float64(nil), t.Data()...)
	}
	out := make([]any, t.Dim(0))
	for i := range out {
		out[i] = Nested(t.Index(i))
	}
	return out
}
