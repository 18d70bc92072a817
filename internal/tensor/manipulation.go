package tensor

import "fmt"

// RollAxisLeft moves the last n axes to the front, keeping their order.
//
// Example:
//
//	x := tensor.Zeros(2, 3, 4)
//	y := x.RollAxisLeft(1) // Shape: [4, 2, 3]
func (t *Dense) RollAxisLeft(n int) *Dense {
	rank := len(t.shape)
	if n < 0 || n > rank {
		panic(fmt.Sprintf("tensor: cannot roll %d axes of a rank-%d tensor", n, rank))
	}
	perm := make([]int, 0, rank)
	for i := rank - n; i < rank; i++ {
		perm = append(perm, i)
	}
	for i := 0; i < rank-n; i++ {
		perm = append(perm, i)
	}
	return t.Transpose(perm...)
}

// RollAxisRight moves the first n axes to the back, keeping their order.
//
// Example:
//
//	x := tensor.Zeros(2, 3, 4)
//	y := x.RollAxisRight(1) // Shape: [3, 4, 2]
func (t *Dense) RollAxisRight(n int) *Dense {
	rank := len(t.shape)
	if n < 0 || n > rank {
		panic(fmt.Sprintf("tensor: cannot roll %d axes of a rank-%d tensor", n, rank))
	}
	perm := make([]int, 0, rank)
	for i := n; i < rank; i++ {
		perm = append(perm, i)
	}
	for i := 0; i < n; i++ {
		perm = append(perm, i)
	}
	return t.Transpose(perm...)
}

// DiagEmbed turns the trailing axis of size K into a K×K diagonal block,
// so [..., K] becomes [..., K, K] with zeros off the diagonal.
func (t *Dense) DiagEmbed() *Dense {
	k := t.Dim(-1)
	outShape := append(t.shape.Clone(), k)
	out := Zeros(outShape...)
	rows := len(t.data) / k
	for r := 0; r < rows; r++ {
		for i := 0; i < k; i++ {
			out.data[r*k*k+i*k+i] = t.data[r*k+i]
		}
	}
	return out
}

// AddDiagonal adds v to the diagonal of every trailing square matrix in place.
func (t *Dense) AddDiagonal(v float64) {
	n := t.Dim(-1)
	if t.Dim(-2) != n {
		panic(fmt.Sprintf("tensor: AddDiagonal needs square trailing matrices, got %v", t.shape))
	}
	for b := 0; b < len(t.data); b += n * n {
		for i := 0; i < n; i++ {
			t.data[b+i*n+i] += v
		}
	}
}

// Tile repeats t along a new leading axis of size n.
func (t *Dense) Tile(n int) *Dense {
	parts := make([]*Dense, n)
	for i := range parts {
		parts[i] = t
	}
	out, err := Stack(parts)
	if err != nil {
		panic(err) // identical shapes by construction
	}
	return out
}
