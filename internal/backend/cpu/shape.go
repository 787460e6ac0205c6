package cpu

import (
	"fmt"

	"github.com/gradia-ml/gradia/internal/tensor"
)

// Reshape returns a tensor with the same data and a new shape.
// The element count must be preserved.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}

	result, err := tensor.NewRaw(newShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("reshape: failed to create result tensor: %v", err))
	}
	copy(result.Data(), t.Data()[:t.ByteSize()])
	return result
}

// Transpose permutes tensor dimensions. With no axes given, all dimensions
// are reversed. Data is copied into a contiguous result.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: got %d axes for %dD tensor", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes %v for %dD tensor", axes, ndim))
		}
		seen[ax] = true
		outShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(outShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: failed to create result tensor: %v", err))
	}

	// Element-size agnostic gather: walk output indices and copy the
	// corresponding source element.
	elemSize := t.DType().Size()
	srcStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	src := t.Data()
	dst := result.Data()

	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		srcIdx := 0
		rem := i
		for d := 0; d < ndim; d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			srcIdx += coord * srcStrides[axes[d]]
		}
		copy(dst[i*elemSize:(i+1)*elemSize], src[srcIdx*elemSize:(srcIdx+1)*elemSize])
	}

	return result
}
