package ops

import "github.com/gradia-ml/gradia/internal/tensor"

// reduceBroadcast reduces a gradient tensor to match the target shape,
// undoing any broadcasting applied in the forward pass.
//
// Example:
//
//	Forward:  a[3,1] + b[3,4] -> c[3,4]  (a broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(target) {
		// Clone so the returned gradient does not alias the output grad.
		return grad.Clone()
	}

	if len(target) == 0 {
		return backend.Sum(grad)
	}

	// Leading dimensions the target never had.
	for len(grad.Shape()) > len(target) {
		grad = backend.SumDim(grad, 0, false)
	}

	// Dimensions the target holds at size 1.
	for i := range target {
		if target[i] == 1 && grad.Shape()[i] > 1 {
			grad = backend.SumDim(grad, i, true)
		}
	}

	if !grad.Shape().Equal(target) {
		grad = backend.Reshape(grad, target)
	}
	return grad
}

// negate returns -grad.
func negate(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.MulScalar(grad, -1.0)
}
