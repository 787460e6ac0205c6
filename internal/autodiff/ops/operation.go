// Package ops defines the differentiable operations recorded on the tape.
//
// Each operation is created during the forward pass and computes input
// gradients during the backward pass. Any tensor value an operation needs
// for its backward formula is captured through the saved package at record
// time, so installed pack/unpack hooks observe every saved tensor. Shape-only
// operations (Add, Sub, Transpose, Reshape, Sum) save nothing and never
// trigger hooks.
package ops

import "github.com/gradia-ml/gradia/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for the inputs given the output gradient.
	// Returns one gradient per input tensor, in Inputs() order. An error
	// (typically from an unpack hook) aborts the enclosing backward pass.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) ([]*tensor.RawTensor, error)

	// Inputs returns the input tensors of this operation. The tape uses
	// their identity to accumulate gradients.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
