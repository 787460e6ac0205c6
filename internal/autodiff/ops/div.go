package ops

import (
	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// DivOp represents element-wise division: output = a / b.
//
// Backward pass:
//   - d(a/b)/da = 1/b,     so grad_a = outputGrad / b
//   - d(a/b)/db = -a/b²,   so grad_b = -outputGrad * a / b²
type DivOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor
	savedA *saved.SavedTensor
	savedB *saved.SavedTensor
}

// NewDivOp creates a new DivOp, saving both operands for backward.
func NewDivOp(reg *saved.Registry, a, b, output *tensor.RawTensor) (*DivOp, error) {
	savedA, err := saved.Save(reg, a)
	if err != nil {
		return nil, err
	}
	savedB, err := saved.Save(reg, b)
	if err != nil {
		return nil, err
	}
	return &DivOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
		savedA: savedA,
		savedB: savedB,
	}, nil
}

// Backward computes input gradients for division.
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) ([]*tensor.RawTensor, error) {
	a, err := op.savedA.Unpack()
	if err != nil {
		return nil, err
	}
	b, err := op.savedB.Unpack()
	if err != nil {
		return nil, err
	}

	gradA := reduceBroadcast(backend.Div(outputGrad, b), op.inputs[0].Shape(), backend)

	bSquared := backend.Mul(b, b)
	gradB := negate(backend.Div(backend.Mul(outputGrad, a), bSquared), backend)
	gradB = reduceBroadcast(gradB, op.inputs[1].Shape(), backend)

	return []*tensor.RawTensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *DivOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a / b.
func (op *DivOp) Output() *tensor.RawTensor {
	return op.output
}
