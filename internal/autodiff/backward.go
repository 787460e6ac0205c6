package autodiff

import (
	"fmt"

	"github.com/gradia-ml/gradia/internal/tensor"
)

// BackwardCapable is the interface for backends that support a backward
// pass. AutodiffBackend implements it.
type BackwardCapable interface {
	tensor.Backend
	// GetTape returns the gradient tape for backward computation.
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward computes gradients of t with respect to every tensor on the
// backend's tape, seeding the output gradient with ones.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	x := tensor.Ones[float32](Shape{2}, backend)
//	y := x.Mul(x) // y = x²
//	grads, err := autodiff.Backward(y, backend)
//	grad := grads[x.Raw()]
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	tape := backend.GetTape()
	if tape.NumOps() == 0 {
		return nil, fmt.Errorf("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}

	outputGrad, err := tensor.NewRaw(t.Shape(), t.DType(), backend.Device())
	if err != nil {
		return nil, fmt.Errorf("backward: failed to create output gradient: %w", err)
	}

	switch t.DType() {
	case tensor.Float32:
		data := outputGrad.AsFloat32()
		for i := range data {
			data[i] = 1.0
		}
	case tensor.Float64:
		data := outputGrad.AsFloat64()
		for i := range data {
			data[i] = 1.0
		}
	default:
		return nil, fmt.Errorf("backward: unsupported dtype %s (only float32/float64 supported)", t.DType())
	}

	return tape.Backward(outputGrad, backend)
}
