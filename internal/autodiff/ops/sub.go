package ops

import "github.com/gradia-ml/gradia/internal/tensor"

// SubOp represents element-wise subtraction: output = a - b.
// Like AddOp it saves no tensor values.
type SubOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor
}

// NewSubOp creates a new SubOp.
func NewSubOp(a, b, output *tensor.RawTensor) *SubOp {
	return &SubOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward computes input gradients for subtraction.
func (op *SubOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) ([]*tensor.RawTensor, error) {
	gradA := reduceBroadcast(outputGrad, op.inputs[0].Shape(), backend)
	gradB := reduceBroadcast(negate(outputGrad, backend), op.inputs[1].Shape(), backend)
	return []*tensor.RawTensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *SubOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a - b.
func (op *SubOp) Output() *tensor.RawTensor {
	return op.output
}
