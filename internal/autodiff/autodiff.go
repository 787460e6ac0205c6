// Package autodiff implements reverse-mode automatic differentiation using
// the decorator pattern.
//
// AutodiffBackend wraps any Backend implementation and records every
// differentiable operation on a GradientTape. Each recorded operation
// captures the tensor values its backward pass needs through the saved
// package, which is also where saved-tensor pack/unpack hooks plug in.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	x := tensor.FromSlice([]float32{2.0}, tensor.Shape{1}, backend)
//	y := x.Mul(x) // y = x²
//
//	grads, err := autodiff.Backward(y, backend)
//	fmt.Println(grads[x.Raw()]) // dy/dx = 2x = 4.0
package autodiff

import (
	"fmt"

	"github.com/gradia-ml/gradia/internal/autodiff/ops"
	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface, records operations on a
// GradientTape, and owns the saved-tensor hook registry consulted when
// operations capture tensors for backward.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
	hooks *saved.Registry
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
		hooks: saved.NewRegistry(),
	}
}

// Tape returns the gradient tape for manual control: starting/stopping
// recording, clearing between iterations, inspecting recorded operations.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// SavedTensorHooks returns the hook registry owned by this backend.
func (b *AutodiffBackend[B]) SavedTensorHooks() *saved.Registry {
	return b.hooks
}

// EnableSavedTensorHooks installs a pack/unpack pair for every tensor saved
// for backward from now on. Fails with saved.ErrAlreadyRegistered while a
// pair is active. Hooks may run concurrently when operations record from
// multiple goroutines.
func (b *AutodiffBackend[B]) EnableSavedTensorHooks(h saved.Hooks) error {
	return b.hooks.Set(h)
}

// DisableSavedTensorHooks removes the active pair. Idempotent. Tensors
// already saved stay bound to the pair that packed them and unpack through
// it regardless of later Enable/Disable calls.
func (b *AutodiffBackend[B]) DisableSavedTensorHooks() {
	b.hooks.Reset()
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(a, c)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(a, c, result))
	}
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(a, c)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(a, c, result))
	}
	return result
}

// Mul performs element-wise multiplication and records the operation.
// Both operands are saved for backward through the hook registry.
func (b *AutodiffBackend[B]) Mul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(a, c)
	if b.tape.IsRecording() {
		op, err := ops.NewMulOp(b.hooks, a, c, result)
		if err != nil {
			panic(fmt.Sprintf("mul: %v", err))
		}
		b.tape.Record(op)
	}
	return result
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(a, c)
	if b.tape.IsRecording() {
		op, err := ops.NewDivOp(b.hooks, a, c, result)
		if err != nil {
			panic(fmt.Sprintf("div: %v", err))
		}
		b.tape.Record(op)
	}
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(a, c)
	if b.tape.IsRecording() {
		op, err := ops.NewMatMulOp(b.hooks, a, c, result)
		if err != nil {
			panic(fmt.Sprintf("matmul: %v", err))
		}
		b.tape.Record(op)
	}
	return result
}

// Reshape reshapes a tensor and records the operation so gradients flow
// back to the original tensor.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(t, result))
	}
	return result
}

// Transpose transposes a tensor and records the operation. Even though a
// transpose is conceptually a view, the backend creates a new tensor, so
// without recording, gradients would not reach the original.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	result := b.inner.Transpose(t, axes...)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTransposeOp(t, result, axes))
	}
	return result
}

// MulScalar multiplies by a scalar and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := b.inner.MulScalar(x, scalar)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulScalarOp(x, result, scalar))
	}
	return result
}

// Sum reduces to a scalar and records the operation.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sum(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumOp(x, result))
	}
	return result
}

// SumDim sums along a dimension. Not recorded: it is used by gradient
// reduction itself and has no differentiable consumers in this engine.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.inner.SumDim(x, dim, keepDim)
}

// ReLU applies the rectified linear unit and records the operation.
// The input is saved for backward through the hook registry.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), b.Device())
	if err != nil {
		panic(fmt.Sprintf("relu: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		xData := x.AsFloat32()
		resData := result.AsFloat32()
		for i, v := range xData {
			if v > 0 {
				resData[i] = v
			}
		}
	case tensor.Float64:
		xData := x.AsFloat64()
		resData := result.AsFloat64()
		for i, v := range xData {
			if v > 0 {
				resData[i] = v
			}
		}
	default:
		panic(fmt.Sprintf("relu: unsupported dtype %s", x.DType()))
	}

	if b.tape.IsRecording() {
		op, err := ops.NewReLUOp(b.hooks, x, result)
		if err != nil {
			panic(fmt.Sprintf("relu: %v", err))
		}
		b.tape.Record(op)
	}
	return result
}
