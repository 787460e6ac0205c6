package ops

import "github.com/gradia-ml/gradia/internal/tensor"

// MulScalarOp represents multiplication by a constant: output = x * c.
// The constant is part of the op, not a tensor, so nothing is saved.
type MulScalarOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	scalar any
}

// NewMulScalarOp creates a new MulScalarOp.
func NewMulScalarOp(input, output *tensor.RawTensor, scalar any) *MulScalarOp {
	return &MulScalarOp{input: input, output: output, scalar: scalar}
}

// Backward scales the output gradient by the same constant.
func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) ([]*tensor.RawTensor, error) {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}, nil
}

// Inputs returns the input tensor.
func (op *MulScalarOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the scaled tensor.
func (op *MulScalarOp) Output() *tensor.RawTensor {
	return op.output
}
