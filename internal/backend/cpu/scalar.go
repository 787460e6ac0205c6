package cpu

import (
	"fmt"

	"github.com/gradia-ml/gradia/internal/parallel"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// MulScalar multiplies every element by a scalar value.
// The scalar may be any Go numeric type; it is converted to the tensor's dtype.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mulscalar: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		mulScalarKernel(elems[float32](result), elems[float32](x), float32(toFloat64(scalar)), cpu.parallel)
	case tensor.Float64:
		mulScalarKernel(elems[float64](result), elems[float64](x), toFloat64(scalar), cpu.parallel)
	case tensor.Int32:
		mulScalarKernel(elems[int32](result), elems[int32](x), int32(toFloat64(scalar)), cpu.parallel)
	case tensor.Int64:
		mulScalarKernel(elems[int64](result), elems[int64](x), int64(toFloat64(scalar)), cpu.parallel)
	default:
		panic(fmt.Sprintf("mulscalar: unsupported dtype %s", x.DType()))
	}

	return result
}

func mulScalarKernel[T number](dst, src []T, s T, cfg parallel.Config) {
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = src[i] * s
		}
	}, cfg)
}

// toFloat64 widens any supported Go numeric scalar.
func toFloat64(scalar any) float64 {
	switch v := scalar.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		panic(fmt.Sprintf("mulscalar: unsupported scalar type %T", scalar))
	}
}
