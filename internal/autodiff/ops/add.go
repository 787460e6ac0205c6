package ops

import "github.com/gradia-ml/gradia/internal/tensor"

// AddOp represents element-wise addition: output = a + b.
//
// Addition needs no tensor values for its backward pass (the gradient flows
// through unchanged, reduced over broadcast dimensions), so nothing is
// saved and pack hooks never fire for it.
type AddOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor
}

// NewAddOp creates a new AddOp.
func NewAddOp(a, b, output *tensor.RawTensor) *AddOp {
	return &AddOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward computes input gradients for addition.
func (op *AddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) ([]*tensor.RawTensor, error) {
	gradA := reduceBroadcast(outputGrad, op.inputs[0].Shape(), backend)
	gradB := reduceBroadcast(outputGrad, op.inputs[1].Shape(), backend)
	return []*tensor.RawTensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *AddOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a + b.
func (op *AddOp) Output() *tensor.RawTensor {
	return op.output
}
