package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Dense is a float64 tensor stored contiguously in row-major order.
//
// Views produced by Reshape and Index share storage with their parent, every
// other operation allocates. Tensors passed into the conditional routines are
// treated as immutable.
type Dense struct {
	shape  Shape
	stride []int
	data   []float64
}

// New creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func New(shape Shape, data []float64) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	return wrap(shape, buf), nil
}

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	t := tensor.Zeros(3, 4)
func Zeros(shape ...int) *Dense {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		panic(err) // Callers derive shapes from validated tensors
	}
	return wrap(s, make([]float64, s.NumElements()))
}

// Eye creates an n×n identity matrix.
func Eye(n int) *Dense {
	t := Zeros(n, n)
	for i := 0; i < n; i++ {
		t.data[i*n+i] = 1
	}
	return t
}

// FromRows builds a rank-2 tensor from equally sized rows.
func FromRows(rows [][]float64) (*Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("from rows: at least one row required")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("from rows: row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return New(Shape{len(rows), cols}, data)
}

// FromMatrix copies a gonum matrix into a rank-2 tensor.
func FromMatrix(m mat.Matrix) *Dense {
	r, c := m.Dims()
	t := Zeros(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			t.data[i*c+j] = m.At(i, j)
		}
	}
	return t
}

func wrap(shape Shape, data []float64) *Dense {
	return &Dense{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		data:   data,
	}
}

// Shape returns the tensor's shape.
func (t *Dense) Shape() Shape {
	return t.shape
}

// Rank returns the number of dimensions.
func (t *Dense) Rank() int {
	return len(t.shape)
}

// Dim returns the size of dimension i. Negative i counts from the end.
func (t *Dense) Dim(i int) int {
	if i < 0 {
		i += len(t.shape)
	}
	return t.shape[i]
}

// Data returns the underlying row-major storage.
// WARNING: Direct access to underlying memory, shared with views.
func (t *Dense) Data() []float64 {
	return t.data
}

// NumElements returns the total number of elements.
func (t *Dense) NumElements() int {
	return len(t.data)
}

// At returns the element at the given multi-index.
func (t *Dense) At(idx ...int) float64 {
	return t.data[t.offset(idx)]
}

// Set stores v at the given multi-index.
func (t *Dense) Set(v float64, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t *Dense) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match tensor rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d of size %d", v, i, t.shape[i]))
		}
		off += v * t.stride[i]
	}
	return off
}

// Reshape returns a view with a new shape and the same number of elements.
// Panics if the element counts differ.
func (t *Dense) Reshape(shape ...int) *Dense {
	s := Shape(shape)
	if s.NumElements() != len(t.data) {
		panic(fmt.Sprintf("tensor: cannot reshape %v into %v", t.shape, s))
	}
	return wrap(s, t.data)
}

// Index returns a view of the i-th sub-tensor along the leading axis.
//
// Example:
//
//	kmm := tensor.Zeros(3, 5, 5)
//	k0 := kmm.Index(0) // Shape: [5, 5]
func (t *Dense) Index(i int) *Dense {
	if len(t.shape) == 0 {
		panic("tensor: cannot index a scalar")
	}
	if i < 0 || i >= t.shape[0] {
		panic(fmt.Sprintf("tensor: index %d out of range for leading dimension %d", i, t.shape[0]))
	}
	n := t.stride[0]
	if len(t.shape) == 1 {
		return wrap(Shape{1}, t.data[i:i+1])
	}
	return wrap(t.shape[1:], t.data[i*n:(i+1)*n])
}

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	buf := make([]float64, len(t.data))
	copy(buf, t.data)
	return wrap(t.shape, buf)
}

// Transpose permutes the axes of the tensor. With no arguments the axis order
// is reversed, matching the usual matrix transpose for rank 2.
//
// Example:
//
//	x := tensor.Zeros(2, 3, 4)
//	y := x.Transpose(1, 0, 2) // Shape: [3, 2, 4]
func (t *Dense) Transpose(perm ...int) *Dense {
	rank := len(t.shape)
	if len(perm) == 0 {
		perm = make([]int, rank)
		for i := range perm {
			perm[i] = rank - 1 - i
		}
	}
	if len(perm) != rank {
		panic(fmt.Sprintf("tensor: permutation %v does not match rank %d", perm, rank))
	}

	outShape := make(Shape, rank)
	srcStride := make([]int, rank)
	seen := make([]bool, rank)
	for i, p := range perm {
		if p < 0 || p >= rank || seen[p] {
			panic(fmt.Sprintf("tensor: invalid permutation %v", perm))
		}
		seen[p] = true
		outShape[i] = t.shape[p]
		srcStride[i] = t.stride[p]
	}

	out := wrap(outShape, make([]float64, len(t.data)))
	idx := make([]int, rank)
	src := 0
	for dst := range out.data {
		out.data[dst] = t.data[src]
		// Advance the multi-index odometer-style.
		for ax := rank - 1; ax >= 0; ax-- {
			idx[ax]++
			src += srcStride[ax]
			if idx[ax] < outShape[ax] {
				break
			}
			src -= srcStride[ax] * outShape[ax]
			idx[ax] = 0
		}
	}
	return out
}

// Stack joins equally shaped tensors along a new leading axis.
func Stack(ts []*Dense) (*Dense, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("stack: at least one tensor required")
	}
	first := ts[0].shape
	outShape := append(Shape{len(ts)}, first...)
	data := make([]float64, 0, outShape.NumElements())
	for i, x := range ts {
		if !x.shape.Equal(first) {
			return nil, Mismatch("stack", fmt.Sprintf("tensor[%d]", i), x.shape, first, "all stacked tensors must share a shape")
		}
		data = append(data, x.data...)
	}
	return wrap(outShape, data), nil
}

// Matrix returns a gonum view over a rank-2 tensor. The view shares storage.
func (t *Dense) Matrix() *mat.Dense {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("tensor: Matrix requires rank 2, got shape %v", t.shape))
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}

// Sub returns t - o for tensors with the same number of elements.
// The result has t's shape.
func (t *Dense) Sub(o *Dense) *Dense {
	if len(t.data) != len(o.data) {
		panic(fmt.Sprintf("tensor: Sub size mismatch %v vs %v", t.shape, o.shape))
	}
	out := wrap(t.shape, make([]float64, len(t.data)))
	floats.SubTo(out.data, t.data, o.data)
	return out
}

// AddInPlace accumulates o into t element-wise.
func (t *Dense) AddInPlace(o *Dense) {
	if len(t.data) != len(o.data) {
		panic(fmt.Sprintf("tensor: AddInPlace size mismatch %v vs %v", t.shape, o.shape))
	}
	floats.Add(t.data, o.data)
}

// Round32 rounds every element to the nearest float32 value in place.
func (t *Dense) Round32() {
	for i, v := range t.data {
		t.data[i] = float64(float32(v))
	}
}

// String implements fmt.Stringer with a compact summary.
func (t *Dense) String() string {
	if len(t.data) <= 16 {
		return fmt.Sprintf("Dense%v%v", t.shape, t.data)
	}
	return fmt.Sprintf("Dense%v(%d elements)", t.shape, len(t.data))
}
