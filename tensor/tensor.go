// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public dense float64 tensor used by the
// conditionals API.
//
// Example:
//
//	z, _ := tensor.FromRows([][]float64{{0}, {0.5}, {1}})
//	kmm := tensor.Eye(3)
//	kmm.AddDiagonal(1e-6)
package tensor

import (
	"github.com/born-ml/mogp/internal/tensor"
)

// Type aliases for public API

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Dense is a row-major float64 tensor of arbitrary rank.
type Dense = tensor.Dense

// ShapeMismatchError reports which operand of which operation had the wrong
// shape. It wraps ErrShapeMismatch.
type ShapeMismatchError = tensor.ShapeMismatchError

// ErrShapeMismatch is the sentinel behind every shape error.
var ErrShapeMismatch = tensor.ErrShapeMismatch

// Creation functions

// New creates a tensor from a copy of data.
//
// Example:
//
//	x, err := tensor.New(tensor.Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6})
func New(shape Shape, data []float64) (*Dense, error) {
	return tensor.New(shape, data)
}

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	x := tensor.Zeros(2, 3)
func Zeros(shape ...int) *Dense {
	return tensor.Zeros(shape...)
}

// Eye creates a 2D identity matrix.
func Eye(n int) *Dense {
	return tensor.Eye(n)
}

// FromRows creates a [len(rows), len(rows[0])] matrix.
// Ragged rows return an error.
func FromRows(rows [][]float64) (*Dense, error) {
	return tensor.FromRows(rows)
}

// Stack joins equally shaped tensors along a new leading axis.
func Stack(ts []*Dense) (*Dense, error) {
	return tensor.Stack(ts)
}
