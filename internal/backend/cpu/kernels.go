package cpu

import (
	"fmt"
	"unsafe"

	"github.com/gradia-ml/gradia/internal/parallel"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// number constrains the element types the CPU kernels operate on.
type number interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// elems reinterprets a tensor's buffer as a typed slice.
// The dtype/element-size pairing is guaranteed by the caller's dispatch.
func elems[T number](t *tensor.RawTensor) []T {
	n := t.NumElements()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&t.Data()[0])), n)
}

// binaryKernel bundles the contiguous fast path and the broadcasting
// slow path of one element-wise operation.
type binaryKernel struct {
	contiguous func(result, a, b *tensor.RawTensor, cfg parallel.Config)
	broadcast  func(result, a, b *tensor.RawTensor, outShape tensor.Shape)
}

func add[T number](x, y T) T { return x + y }
func sub[T number](x, y T) T { return x - y }
func mul[T number](x, y T) T { return x * y }
func div[T number](x, y T) T { return x / y }

var (
	addKernel = makeBinaryKernel("add", add[float32], add[float64], add[int32], add[int64])
	subKernel = makeBinaryKernel("sub", sub[float32], sub[float64], sub[int32], sub[int64])
	mulKernel = makeBinaryKernel("mul", mul[float32], mul[float64], mul[int32], mul[int64])
	divKernel = makeBinaryKernel("div", div[float32], div[float64], div[int32], div[int64])
)

// makeBinaryKernel builds the per-dtype dispatch for one element-wise op.
func makeBinaryKernel(
	name string,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
	i32 func(x, y int32) int32,
	i64 func(x, y int64) int64,
) binaryKernel {
	return binaryKernel{
		contiguous: func(result, a, b *tensor.RawTensor, cfg parallel.Config) {
			switch result.DType() {
			case tensor.Float32:
				contiguousBinary(elems[float32](result), elems[float32](a), elems[float32](b), f32, cfg)
			case tensor.Float64:
				contiguousBinary(elems[float64](result), elems[float64](a), elems[float64](b), f64, cfg)
			case tensor.Int32:
				contiguousBinary(elems[int32](result), elems[int32](a), elems[int32](b), i32, cfg)
			case tensor.Int64:
				contiguousBinary(elems[int64](result), elems[int64](a), elems[int64](b), i64, cfg)
			default:
				panic(fmt.Sprintf("%s: unsupported dtype %s", name, result.DType()))
			}
		},
		broadcast: func(result, a, b *tensor.RawTensor, outShape tensor.Shape) {
			switch result.DType() {
			case tensor.Float32:
				broadcastBinary(elems[float32](result), elems[float32](a), elems[float32](b), a.Shape(), b.Shape(), outShape, f32)
			case tensor.Float64:
				broadcastBinary(elems[float64](result), elems[float64](a), elems[float64](b), a.Shape(), b.Shape(), outShape, f64)
			case tensor.Int32:
				broadcastBinary(elems[int32](result), elems[int32](a), elems[int32](b), a.Shape(), b.Shape(), outShape, i32)
			case tensor.Int64:
				broadcastBinary(elems[int64](result), elems[int64](a), elems[int64](b), a.Shape(), b.Shape(), outShape, i64)
			default:
				panic(fmt.Sprintf("%s: unsupported dtype %s", name, result.DType()))
			}
		},
	}
}

// contiguousBinary computes dst[i] = f(a[i], b[i]) over equal-shaped operands.
func contiguousBinary[T number](dst, a, b []T, f func(T, T) T, cfg parallel.Config) {
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = f(a[i], b[i])
		}
	}, cfg)
}

// broadcastBinary computes dst = f(a, b) where a and b broadcast to outShape.
// Operand coordinates follow NumPy alignment: shapes align from the right and
// size-1 dimensions repeat.
func broadcastBinary[T number](dst, a, b []T, aShape, bShape, outShape tensor.Shape, f func(T, T) T) {
	outStrides := outShape.ComputeStrides()
	aStrides := aShape.ComputeStrides()
	bStrides := bShape.ComputeStrides()
	ndim := len(outShape)

	for i := range dst {
		ai, bi := 0, 0
		rem := i
		for d := 0; d < ndim; d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			if ad := d - (ndim - len(aShape)); ad >= 0 && aShape[ad] > 1 {
				ai += coord * aStrides[ad]
			}
			if bd := d - (ndim - len(bShape)); bd >= 0 && bShape[bd] > 1 {
				bi += coord * bStrides[bd]
			}
		}
		dst[i] = f(a[ai], b[bi])
	}
}
