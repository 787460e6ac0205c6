// Copyright 2026 The Gradia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation with
// saved-tensor hooks.
//
// The Backend decorator wraps any compute backend and records operations on
// a gradient tape. Tensors an operation needs for its backward pass are
// captured as saved tensors; a pack/unpack hook pair installed via
// EnableSavedTensorHooks intercepts every such capture, which is how saved
// activations can be spilled to disk or stored compressed (see the hooks
// package for ready-made pairs).
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	offloader, _ := hooks.NewDiskOffloader("")
//	if err := backend.EnableSavedTensorHooks(offloader.Hooks()); err != nil {
//	    log.Fatal(err)
//	}
//
//	x := tensor.Ones[float32](tensor.Shape{2, 2}, backend)
//	y := x.Mul(x) // operands saved through the offloader
//
//	grads, err := autodiff.Backward(y, backend) // read back during backward
package autodiff

import (
	internalautodiff "github.com/gradia-ml/gradia/internal/autodiff"
	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/tensor"
)

// Backend is the autodiff-enabled backend decorator.
type Backend[B tensor.Backend] = internalautodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return internalautodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = internalautodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return internalautodiff.NewGradientTape()
}

// BackwardCapable is the interface for backends that support backpropagation.
type BackwardCapable = internalautodiff.BackwardCapable

// Backward computes gradients of t with respect to every tensor on the
// backend's tape, seeding the output gradient with ones.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	return internalautodiff.Backward(t, backend)
}

// Hooks is an installed saved-tensor pack/unpack pair.
type Hooks = saved.Hooks

// PackFunc transforms a tensor into an opaque payload at save time.
type PackFunc[P any] = saved.PackFunc[P]

// UnpackFunc reconstructs a tensor from a payload produced by the paired
// PackFunc.
type UnpackFunc[P any] = saved.UnpackFunc[P]

// Pair builds a Hooks value from a typed pack/unpack pair, keeping the
// pairing invariant at compile time.
func Pair[P any](pack PackFunc[P], unpack UnpackFunc[P]) Hooks {
	return saved.Pair(pack, unpack)
}

// HookRegistry holds at most one active hook pair. Every autodiff Backend
// owns one; most callers go through EnableSavedTensorHooks and
// DisableSavedTensorHooks instead of using it directly.
type HookRegistry = saved.Registry

// SavedTensor holds one tensor captured for backward computation.
type SavedTensor = saved.SavedTensor

// Save captures a tensor for backward through a registry. Exposed for
// custom operation implementations.
func Save(reg *HookRegistry, t *tensor.RawTensor) (*SavedTensor, error) {
	return saved.Save(reg, t)
}

// Errors surfaced by the saved-tensor hook mechanism.
var (
	// ErrAlreadyRegistered is returned by EnableSavedTensorHooks while a
	// pair is active.
	ErrAlreadyRegistered = saved.ErrAlreadyRegistered

	// ErrNilHooks is returned by EnableSavedTensorHooks for a nil pair.
	ErrNilHooks = saved.ErrNilHooks
)

// ContractViolationError reports that an unpack hook produced a value
// incompatible with the tensor originally saved.
type ContractViolationError = saved.ContractViolationError
