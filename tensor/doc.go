// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// # Overview
//
// Dense tensors carry every input and output of a conditional: inputs
// [N, D], inducing points [M, D], whitened means [M, R], posterior factors
// [M, R] or [R, M, M], and means and variances in the layouts selected by
// the covariance flags.
//
// # Basic Usage
//
//	import "github.com/born-ml/mogp/tensor"
//
//	func main() {
//	    x, err := tensor.FromRows([][]float64{{0.1}, {0.7}})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(x.Shape()) // [2, 1]
//	}
//
// # Views
//
// Reshape and Index return views sharing storage with the receiver.
// Transpose and Clone copy. Conditionals never modify their inputs.
//
// # Errors
//
// Shape violations are reported as *ShapeMismatchError, naming the
// operation and the offending tensor:
//
//	var sm *tensor.ShapeMismatchError
//	if errors.As(err, &sm) {
//	    fmt.Println(sm.Op, sm.Tensor, sm.Got, sm.Want)
//	}
package tensor
