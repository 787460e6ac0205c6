// Copyright 2026 The Gradia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations in Gradia.
//
// The package defines the core types for type-safe tensor computation:
//   - Tensor[T, B]: high-level generic tensor
//   - RawTensor: low-level dtyped buffer
//   - Backend: interface for compute implementations
//   - Shape, DataType, Device: core definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
package tensor

import (
	"math/rand"

	"github.com/gradia-ml/gradia/internal/tensor"
)

// DType is a constraint for tensor element types.
// Supported types: float32, float64, int32, int64.
type DType = tensor.DType

// DataType represents the runtime data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
)

// ParseDataType parses the name produced by DataType.String.
func ParseDataType(s string) (DataType, error) {
	return tensor.ParseDataType(s)
}

// Device represents the device tensor data resides on.
type Device = tensor.Device

// Device constants.
const (
	CPU Device = tensor.CPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} is a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// BroadcastShapes applies NumPy-style broadcasting rules to two shapes.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}

// RawTensor is the low-level tensor representation.
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-initialized RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Tensor is a generic tensor with element type T computed by backend B.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// New creates a Tensor from a RawTensor and backend.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// FromSlice creates a tensor by copying a Go slice.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice[T, B](data, shape, b)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// Rand creates a tensor of uniform random values.
func Rand[T DType, B Backend](shape Shape, b B, rng *rand.Rand) *Tensor[T, B] {
	return tensor.Rand[T, B](shape, b, rng)
}
