package ops

import (
	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// MulOp represents element-wise multiplication: output = a * b.
//
// Both operands are needed in the backward pass, so both are saved through
// the hook registry at record time:
//   - d(a*b)/da = b, so grad_a = outputGrad * b
//   - d(a*b)/db = a, so grad_b = outputGrad * a
type MulOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor
	savedA *saved.SavedTensor
	savedB *saved.SavedTensor
}

// NewMulOp creates a new MulOp, saving both operands for backward.
// Fails if an active pack hook fails.
func NewMulOp(reg *saved.Registry, a, b, output *tensor.RawTensor) (*MulOp, error) {
	savedA, err := saved.Save(reg, a)
	if err != nil {
		return nil, err
	}
	savedB, err := saved.Save(reg, b)
	if err != nil {
		return nil, err
	}
	return &MulOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
		savedA: savedA,
		savedB: savedB,
	}, nil
}

// Backward computes input gradients for multiplication.
func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) ([]*tensor.RawTensor, error) {
	a, err := op.savedA.Unpack()
	if err != nil {
		return nil, err
	}
	b, err := op.savedB.Unpack()
	if err != nil {
		return nil, err
	}

	gradA := reduceBroadcast(backend.Mul(outputGrad, b), op.inputs[0].Shape(), backend)
	gradB := reduceBroadcast(backend.Mul(outputGrad, a), op.inputs[1].Shape(), backend)
	return []*tensor.RawTensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *MulOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a * b.
func (op *MulOp) Output() *tensor.RawTensor {
	return op.output
}
