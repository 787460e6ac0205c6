package ops

import (
	"fmt"

	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// ReLUOp represents the rectified linear unit: output = max(0, x).
//
// The backward pass needs the forward input to build the activation mask,
// so the input is saved through the hook registry:
// d(ReLU(x))/dx = 1 where x > 0, else 0.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	savedX *saved.SavedTensor
}

// NewReLUOp creates a new ReLUOp, saving the input for backward.
func NewReLUOp(reg *saved.Registry, x, output *tensor.RawTensor) (*ReLUOp, error) {
	savedX, err := saved.Save(reg, x)
	if err != nil {
		return nil, err
	}
	return &ReLUOp{input: x, output: output, savedX: savedX}, nil
}

// Backward masks the output gradient by the sign of the saved input.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) ([]*tensor.RawTensor, error) {
	x, err := op.savedX.Unpack()
	if err != nil {
		return nil, err
	}

	grad, err := tensor.NewRaw(x.Shape(), x.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("relu backward: failed to create gradient tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		xData := x.AsFloat32()
		gradData := grad.AsFloat32()
		outData := outputGrad.AsFloat32()
		for i, v := range xData {
			if v > 0 {
				gradData[i] = outData[i]
			}
		}
	case tensor.Float64:
		xData := x.AsFloat64()
		gradData := grad.AsFloat64()
		outData := outputGrad.AsFloat64()
		for i, v := range xData {
			if v > 0 {
				gradData[i] = outData[i]
			}
		}
	default:
		panic(fmt.Sprintf("relu backward: unsupported dtype %s", x.DType()))
	}

	return []*tensor.RawTensor{grad}, nil
}

// Inputs returns the input tensor [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor max(0, x).
func (op *ReLUOp) Output() *tensor.RawTensor {
	return op.output
}
