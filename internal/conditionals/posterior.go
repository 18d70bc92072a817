package conditionals

import (
	"fmt"

	"github.com/born-ml/mogp/internal/tensor"
)

// PosteriorFactor is the square root of the variational posterior covariance
// over the inducing values, one factor per column R of f.
//
// It is one of:
//   - Diagonal: per-column standard deviations, Std of shape [M, R]
//   - Cholesky: per-column lower triangular factors, L of shape [R, M, M]
//
// A nil PosteriorFactor means no posterior correction: the conditional then
// returns the prior-conditioned variance only.
type PosteriorFactor interface {
	// Columns returns R.
	Columns() int
	// Inducing returns M.
	Inducing() int
	// Column returns the factor of a single column r as a one-column factor.
	Column(r int) PosteriorFactor

	validate(op string, m, r int) error
}

// Diagonal is a PosteriorFactor of independent standard deviations.
type Diagonal struct {
	Std *tensor.Dense // [M, R]
}

// Columns implements PosteriorFactor.
func (d Diagonal) Columns() int { return d.Std.Dim(1) }

// Inducing implements PosteriorFactor.
func (d Diagonal) Inducing() int { return d.Std.Dim(0) }

// Column implements PosteriorFactor.
func (d Diagonal) Column(r int) PosteriorFactor {
	m, cols := d.Std.Dim(0), d.Std.Dim(1)
	col := tensor.Zeros(m, 1)
	src, dst := d.Std.Data(), col.Data()
	for i := 0; i < m; i++ {
		dst[i] = src[i*cols+r]
	}
	return Diagonal{Std: col}
}

func (d Diagonal) validate(op string, m, r int) error {
	return tensor.Expect(op, "q_sqrt", d.Std, m, r)
}

// Cholesky is a PosteriorFactor of full lower triangular factors.
// Entries above the diagonal are ignored.
type Cholesky struct {
	L *tensor.Dense // [R, M, M]
}

// Columns implements PosteriorFactor.
func (c Cholesky) Columns() int { return c.L.Dim(0) }

// Inducing implements PosteriorFactor.
func (c Cholesky) Inducing() int { return c.L.Dim(1) }

// Column implements PosteriorFactor.
func (c Cholesky) Column(r int) PosteriorFactor {
	m := c.L.Dim(1)
	return Cholesky{L: c.L.Index(r).Reshape(1, m, m)}
}

func (c Cholesky) validate(op string, m, r int) error {
	return tensor.Expect(op, "q_sqrt", c.L, r, m, m)
}

// checkFactor validates an optional factor against M inducing values and R columns.
func checkFactor(op string, q PosteriorFactor, m, r int) error {
	if q == nil {
		return nil
	}
	if err := q.validate(op, m, r); err != nil {
		return fmt.Errorf("posterior factor: %w", err)
	}
	return nil
}
