package cpu

import (
	"fmt"

	"github.com/gradia-ml/gradia/internal/parallel"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// MatMul performs matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Rows of the result are computed in parallel.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: failed to create result tensor: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		matmulKernel(elems[float32](result), elems[float32](a), elems[float32](b), m, k, n, cpu.parallel)
	case tensor.Float64:
		matmulKernel(elems[float64](result), elems[float64](a), elems[float64](b), m, k, n, cpu.parallel)
	case tensor.Int32:
		matmulKernel(elems[int32](result), elems[int32](a), elems[int32](b), m, k, n, cpu.parallel)
	case tensor.Int64:
		matmulKernel(elems[int64](result), elems[int64](a), elems[int64](b), m, k, n, cpu.parallel)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}

	return result
}

// matmulKernel computes C[i,j] = sum_k A[i,k] * B[k,j].
// Naive loops; the inner loop is cache-friendly over B rows.
func matmulKernel[T number](c, a, b []T, m, k, n int, cfg parallel.Config) {
	cfg.MinChunkSize = 1 // rows are coarse-grained work items
	parallel.For(m, func(i int) {
		row := c[i*n : (i+1)*n]
		for j := range row {
			row[j] = 0
		}
		for kIdx := 0; kIdx < k; kIdx++ {
			av := a[i*k+kIdx]
			if av == 0 {
				continue
			}
			bRow := b[kIdx*n : (kIdx+1)*n]
			for j, bv := range bRow {
				row[j] += av * bv
			}
		}
	}, cfg)
}
