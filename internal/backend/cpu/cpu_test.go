package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradia-ml/gradia/internal/backend/cpu"
	"github.com/gradia-ml/gradia/internal/tensor"
)

func raw32(t *testing.T, values []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat32(), values)
	return r
}

func raw64(t *testing.T, values []float64, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat64(), values)
	return r
}

func TestBinaryOps_Contiguous(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{1, 2, 3, 4}, tensor.Shape{4})
	y := raw32(t, []float32{4, 3, 2, 1}, tensor.Shape{4})

	assert.Equal(t, []float32{5, 5, 5, 5}, b.Add(x, y).AsFloat32())
	assert.Equal(t, []float32{-3, -1, 1, 3}, b.Sub(x, y).AsFloat32())
	assert.Equal(t, []float32{4, 6, 6, 4}, b.Mul(x, y).AsFloat32())
	assert.Equal(t, []float32{0.25, 2.0 / 3.0, 1.5, 4}, b.Div(x, y).AsFloat32())
}

func TestBinaryOps_Broadcast(t *testing.T) {
	b := cpu.New()

	// Column {3,1} against row {1,4}.
	col := raw32(t, []float32{1, 2, 3}, tensor.Shape{3, 1})
	row := raw32(t, []float32{10, 20, 30, 40}, tensor.Shape{1, 4})

	sum := b.Add(col, row)
	assert.Equal(t, tensor.Shape{3, 4}, sum.Shape())
	assert.Equal(t, []float32{
		11, 21, 31, 41,
		12, 22, 32, 42,
		13, 23, 33, 43,
	}, sum.AsFloat32())

	// Scalar-like {1} against {3}.
	one := raw32(t, []float32{2}, tensor.Shape{1})
	vec := raw32(t, []float32{1, 2, 3}, tensor.Shape{3})
	assert.Equal(t, []float32{2, 4, 6}, b.Mul(one, vec).AsFloat32())

	// Rank promotion: {2,2} + {2}.
	mat := raw32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	bias := raw32(t, []float32{10, 20}, tensor.Shape{2})
	assert.Equal(t, []float32{11, 22, 13, 24}, b.Add(mat, bias).AsFloat32())
}

func TestBinaryOps_IncompatibleShapesPanic(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{1, 2, 3}, tensor.Shape{3})
	y := raw32(t, []float32{1, 2}, tensor.Shape{2})
	assert.Panics(t, func() { b.Add(x, y) })
}

func TestBinaryOps_DTypeMismatchPanics(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{1}, tensor.Shape{1})
	y := raw64(t, []float64{1}, tensor.Shape{1})
	assert.Panics(t, func() { b.Add(x, y) })
}

func TestMatMul(t *testing.T) {
	b := cpu.New()

	// (2,3) @ (3,2) -> (2,2)
	x := raw32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	y := raw32(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	out := b.MatMul(x, y)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.AsFloat32())
}

func TestMatMul_Identity(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	id := raw32(t, []float32{1, 0, 0, 1}, tensor.Shape{2, 2})
	assert.Equal(t, []float32{1, 2, 3, 4}, b.MatMul(x, id).AsFloat32())
}

func TestMatMul_ShapeMismatchPanics(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{1, 2}, tensor.Shape{1, 2})
	y := raw32(t, []float32{1, 2, 3}, tensor.Shape{3, 1})
	assert.Panics(t, func() { b.MatMul(x, y) })
}

func TestTranspose_Default2D(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	out := b.Transpose(x)
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out.AsFloat32())
}

func TestTranspose_Permutation3D(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{
		1, 2,
		3, 4,

		5, 6,
		7, 8,
	}, tensor.Shape{2, 2, 2})

	out := b.Transpose(x, 1, 0, 2)
	assert.Equal(t, tensor.Shape{2, 2, 2}, out.Shape())
	assert.Equal(t, []float32{1, 2, 5, 6, 3, 4, 7, 8}, out.AsFloat32())
}

func TestTranspose_InvalidAxesPanic(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	assert.Panics(t, func() { b.Transpose(x, 0, 0) })
	assert.Panics(t, func() { b.Transpose(x, 0, 2) })
	assert.Panics(t, func() { b.Transpose(x, 0) })
}

func TestReshape(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	out := b.Reshape(x, tensor.Shape{3, 2})
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, out.AsFloat32())

	assert.Panics(t, func() { b.Reshape(x, tensor.Shape{4}) })
}

func TestMulScalar(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{1, -2, 3}, tensor.Shape{3})

	assert.Equal(t, []float32{2, -4, 6}, b.MulScalar(x, 2.0).AsFloat32())
	assert.Equal(t, []float32{-1, 2, -3}, b.MulScalar(x, -1).AsFloat32())

	d := raw64(t, []float64{1.5}, tensor.Shape{1})
	assert.Equal(t, []float64{3.0}, b.MulScalar(d, 2).AsFloat64())
}

func TestSum(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	out := b.Sum(x)
	assert.Equal(t, tensor.Shape{}, out.Shape())
	assert.Equal(t, []float32{10}, out.AsFloat32())
}

func TestSumDim(t *testing.T) {
	b := cpu.New()
	x := raw32(t, []float32{
		1, 2, 3,
		4, 5, 6,
	}, tensor.Shape{2, 3})

	rows := b.SumDim(x, 0, false)
	assert.Equal(t, tensor.Shape{3}, rows.Shape())
	assert.Equal(t, []float32{5, 7, 9}, rows.AsFloat32())

	cols := b.SumDim(x, 1, true)
	assert.Equal(t, tensor.Shape{2, 1}, cols.Shape())
	assert.Equal(t, []float32{6, 15}, cols.AsFloat32())

	assert.Panics(t, func() { b.SumDim(x, 2, false) })
}

func TestLargeElementwise_ParallelPath(t *testing.T) {
	b := cpu.New()

	const n = 100_000
	x, err := tensor.NewRaw(tensor.Shape{n}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	y, err := tensor.NewRaw(tensor.Shape{n}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		x.AsFloat32()[i] = float32(i)
		y.AsFloat32()[i] = float32(2 * i)
	}

	out := b.Add(x, y).AsFloat32()
	for i := 0; i < n; i += 9973 {
		require.Equal(t, float32(3*i), out[i])
	}
}
