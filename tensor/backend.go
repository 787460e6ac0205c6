// Copyright 2026 The Gradia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/gradia-ml/gradia/internal/tensor"

// Backend defines the interface that compute backends must implement.
//
// Implementations:
//   - backend/cpu: pure Go kernels
//   - autodiff: decorator that wraps any Backend and records operations
//     for reverse-mode differentiation
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y) // uses backend.Add under the hood
type Backend = tensor.Backend
