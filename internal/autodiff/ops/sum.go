package ops

import (
	"fmt"

	"github.com/gradia-ml/gradia/internal/tensor"
)

// SumOp represents full reduction to a scalar: output = sum(x).
// Backward broadcasts the scalar gradient over the input shape; only the
// input shape is needed, so nothing is saved.
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{input: input, output: output}
}

// Backward fills the input-shaped gradient with the scalar output gradient.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) ([]*tensor.RawTensor, error) {
	grad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("sum backward: failed to create gradient tensor: %v", err))
	}

	switch op.input.DType() {
	case tensor.Float32:
		v := outputGrad.AsFloat32()[0]
		data := grad.AsFloat32()
		for i := range data {
			data[i] = v
		}
	case tensor.Float64:
		v := outputGrad.AsFloat64()[0]
		data := grad.AsFloat64()
		for i := range data {
			data[i] = v
		}
	default:
		panic(fmt.Sprintf("sum backward: unsupported dtype %s", op.input.DType()))
	}

	return []*tensor.RawTensor{grad}, nil
}

// Inputs returns the input tensor.
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the scalar sum.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}
