package ops_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradia-ml/gradia/internal/autodiff/ops"
	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/internal/backend/cpu"
	"github.com/gradia-ml/gradia/internal/tensor"
)

func raw(t *testing.T, values []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat32(), values)
	return r
}

func ones(t *testing.T, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	data := r.AsFloat32()
	for i := range data {
		data[i] = 1
	}
	return r
}

// countingRegistry returns a registry whose pack hook counts invocations,
// for asserting which ops save tensors.
func countingRegistry(t *testing.T, packs *atomic.Int32) *saved.Registry {
	t.Helper()
	reg := saved.NewRegistry()
	require.NoError(t, reg.Set(saved.Pair(
		func(x *tensor.RawTensor) (*tensor.RawTensor, error) {
			packs.Add(1)
			return x.Clone(), nil
		},
		func(p *tensor.RawTensor) (*tensor.RawTensor, error) { return p, nil },
	)))
	return reg
}

func TestMulOp_SavesBothOperands(t *testing.T) {
	var packs atomic.Int32
	reg := countingRegistry(t, &packs)
	backend := cpu.New()

	a := raw(t, []float32{2, 3}, tensor.Shape{2})
	b := raw(t, []float32{4, 5}, tensor.Shape{2})
	out := backend.Mul(a, b)

	op, err := ops.NewMulOp(reg, a, b, out)
	require.NoError(t, err)
	assert.Equal(t, int32(2), packs.Load())

	grads, err := op.Backward(ones(t, tensor.Shape{2}), backend)
	require.NoError(t, err)
	require.Len(t, grads, 2)
	assert.Equal(t, []float32{4, 5}, grads[0].AsFloat32())
	assert.Equal(t, []float32{2, 3}, grads[1].AsFloat32())
}

func TestAddOp_SavesNothing(t *testing.T) {
	var packs atomic.Int32
	countingRegistry(t, &packs) // registry exists but AddOp never consults one
	backend := cpu.New()

	a := raw(t, []float32{1, 2}, tensor.Shape{2})
	b := raw(t, []float32{3, 4}, tensor.Shape{2})
	op := ops.NewAddOp(a, b, backend.Add(a, b))
	assert.Equal(t, int32(0), packs.Load())

	grads, err := op.Backward(ones(t, tensor.Shape{2}), backend)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, grads[0].AsFloat32())
	assert.Equal(t, []float32{1, 1}, grads[1].AsFloat32())
}

func TestSubOp_NegatesSecondGradient(t *testing.T) {
	backend := cpu.New()
	a := raw(t, []float32{5, 5}, tensor.Shape{2})
	b := raw(t, []float32{1, 2}, tensor.Shape{2})
	op := ops.NewSubOp(a, b, backend.Sub(a, b))

	grads, err := op.Backward(ones(t, tensor.Shape{2}), backend)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, grads[0].AsFloat32())
	assert.Equal(t, []float32{-1, -1}, grads[1].AsFloat32())
}

func TestDivOp_Backward(t *testing.T) {
	backend := cpu.New()
	a := raw(t, []float32{8}, tensor.Shape{1})
	b := raw(t, []float32{2}, tensor.Shape{1})

	op, err := ops.NewDivOp(saved.NewRegistry(), a, b, backend.Div(a, b))
	require.NoError(t, err)

	grads, err := op.Backward(ones(t, tensor.Shape{1}), backend)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, grads[0].AsFloat32()[0], 1e-6)  // 1/b
	assert.InDelta(t, -2.0, grads[1].AsFloat32()[0], 1e-6) // -a/b²
}

func TestReLUOp_MasksGradient(t *testing.T) {
	backend := cpu.New()
	x := raw(t, []float32{-2, 0, 3}, tensor.Shape{3})
	out := raw(t, []float32{0, 0, 3}, tensor.Shape{3})

	op, err := ops.NewReLUOp(saved.NewRegistry(), x, out)
	require.NoError(t, err)

	grad := raw(t, []float32{10, 10, 10}, tensor.Shape{3})
	grads, err := op.Backward(grad, backend)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 10}, grads[0].AsFloat32())
}

func TestTransposeOp_InversePermutation(t *testing.T) {
	backend := cpu.New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	axes := []int{1, 0}
	out := backend.Transpose(x, axes...)
	op := ops.NewTransposeOp(x, out, axes)

	grad := raw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})
	grads, err := op.Backward(grad, backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, grads[0].Shape())
	// Transposing back undoes the forward permutation.
	assert.Equal(t, []float32{1, 3, 5, 2, 4, 6}, grads[0].AsFloat32())
}

func TestReshapeOp_RestoresInputShape(t *testing.T) {
	backend := cpu.New()
	x := raw(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	out := backend.Reshape(x, tensor.Shape{4})
	op := ops.NewReshapeOp(x, out)

	grads, err := op.Backward(ones(t, tensor.Shape{4}), backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, grads[0].Shape())
}

func TestSumOp_BroadcastsScalarGradient(t *testing.T) {
	backend := cpu.New()
	x := raw(t, []float32{1, 2, 3}, tensor.Shape{3})
	op := ops.NewSumOp(x, backend.Sum(x))

	grad := raw(t, []float32{2.5}, tensor.Shape{})
	grads, err := op.Backward(grad, backend)
	require.NoError(t, err)
	assert.Equal(t, []float32{2.5, 2.5, 2.5}, grads[0].AsFloat32())
}

func TestMulScalarOp_ScalesGradient(t *testing.T) {
	backend := cpu.New()
	x := raw(t, []float32{1, 2}, tensor.Shape{2})
	op := ops.NewMulScalarOp(x, backend.MulScalar(x, 3.0), 3.0)

	grads, err := op.Backward(ones(t, tensor.Shape{2}), backend)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 3}, grads[0].AsFloat32())
}

func TestMulOp_BroadcastReducesGradient(t *testing.T) {
	backend := cpu.New()
	a := raw(t, []float32{2}, tensor.Shape{1})
	b := raw(t, []float32{1, 2, 3}, tensor.Shape{3})
	out := backend.Mul(a, b)

	op, err := ops.NewMulOp(saved.NewRegistry(), a, b, out)
	require.NoError(t, err)

	grads, err := op.Backward(ones(t, tensor.Shape{3}), backend)
	require.NoError(t, err)
	// grad_a = sum over the broadcast dimension of b.
	assert.Equal(t, tensor.Shape{1}, grads[0].Shape())
	assert.Equal(t, []float32{6}, grads[0].AsFloat32())
	assert.Equal(t, []float32{2, 2, 2}, grads[1].AsFloat32())
}

func TestMulOp_PackedOperandsSurviveRegistryReset(t *testing.T) {
	var packs atomic.Int32
	reg := countingRegistry(t, &packs)
	backend := cpu.New()

	a := raw(t, []float32{2}, tensor.Shape{1})
	b := raw(t, []float32{3}, tensor.Shape{1})
	op, err := ops.NewMulOp(reg, a, b, backend.Mul(a, b))
	require.NoError(t, err)

	reg.Reset()

	grads, err := op.Backward(ones(t, tensor.Shape{1}), backend)
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, grads[0].AsFloat32())
	assert.Equal(t, []float32{2}, grads[1].AsFloat32())
}
