package ops

import (
	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// MatMulOp represents matrix multiplication: output = a @ b.
//
// Backward pass:
//   - d(A@B)/dA = grad @ Bᵀ
//   - d(A@B)/dB = Aᵀ @ grad
type MatMulOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor
	savedA *saved.SavedTensor
	savedB *saved.SavedTensor
}

// NewMatMulOp creates a new MatMulOp, saving both operands for backward.
func NewMatMulOp(reg *saved.Registry, a, b, output *tensor.RawTensor) (*MatMulOp, error) {
	savedA, err := saved.Save(reg, a)
	if err != nil {
		return nil, err
	}
	savedB, err := saved.Save(reg, b)
	if err != nil {
		return nil, err
	}
	return &MatMulOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
		savedA: savedA,
		savedB: savedB,
	}, nil
}

// Backward computes input gradients for matrix multiplication.
func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) ([]*tensor.RawTensor, error) {
	a, err := op.savedA.Unpack()
	if err != nil {
		return nil, err
	}
	b, err := op.savedB.Unpack()
	if err != nil {
		return nil, err
	}

	gradA := backend.MatMul(outputGrad, backend.Transpose(b))
	gradB := backend.MatMul(backend.Transpose(a), outputGrad)
	return []*tensor.RawTensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *MatMulOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a @ b.
func (op *MatMulOp) Output() *tensor.RawTensor {
	return op.output
}
