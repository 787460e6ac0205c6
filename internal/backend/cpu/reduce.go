package cpu

import (
	"fmt"

	"github.com/gradia-ml/gradia/internal/tensor"
)

// Sum reduces the tensor to a scalar (empty shape).
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		elems[float32](result)[0] = sumAll(elems[float32](x))
	case tensor.Float64:
		elems[float64](result)[0] = sumAll(elems[float64](x))
	case tensor.Int32:
		elems[int32](result)[0] = sumAll(elems[int32](x))
	case tensor.Int64:
		elems[int64](result)[0] = sumAll(elems[int64](x))
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

// SumDim sums along one dimension. With keepDim the reduced dimension stays
// as size 1, otherwise it is removed from the shape.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumdim: invalid dimension %d for shape %v", dim, shape))
	}

	outShape := make(tensor.Shape, 0, len(shape))
	for d, size := range shape {
		switch {
		case d != dim:
			outShape = append(outShape, size)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sumdim: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		sumDimKernel(elems[float32](result), elems[float32](x), shape, dim)
	case tensor.Float64:
		sumDimKernel(elems[float64](result), elems[float64](x), shape, dim)
	case tensor.Int32:
		sumDimKernel(elems[int32](result), elems[int32](x), shape, dim)
	case tensor.Int64:
		sumDimKernel(elems[int64](result), elems[int64](x), shape, dim)
	default:
		panic(fmt.Sprintf("sumdim: unsupported dtype %s", x.DType()))
	}

	return result
}

func sumAll[T number](data []T) T {
	var sum T
	for _, v := range data {
		sum += v
	}
	return sum
}

// sumDimKernel accumulates src into dst with the reduced dimension folded.
// Layout: src index = outer*n*inner + k*inner + i, dst index = outer*inner + i.
func sumDimKernel[T number](dst, src []T, shape tensor.Shape, dim int) {
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	n := shape[dim]

	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			var sum T
			base := o*n*inner + i
			for k := 0; k < n; k++ {
				sum += src[base+k*inner]
			}
			dst[o*inner+i] = sum
		}
	}
}
