package autodiff_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradia-ml/gradia/internal/autodiff"
	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/internal/backend/cpu"
	"github.com/gradia-ml/gradia/internal/tensor"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() testBackend {
	return autodiff.New(cpu.New())
}

func fromValues(t *testing.T, b testBackend, values []float32, shape tensor.Shape) *tensor.Tensor[float32, testBackend] {
	t.Helper()
	x, err := tensor.FromSlice(values, shape, b)
	require.NoError(t, err)
	return x
}

// offsetHooks packs a clone of the tensor and adds delta to every element on
// unpack, making hook participation visible in gradient values.
func offsetHooks(delta float32) saved.Hooks {
	return saved.Pair(
		func(x *tensor.RawTensor) (*tensor.RawTensor, error) {
			return x.Clone(), nil
		},
		func(p *tensor.RawTensor) (*tensor.RawTensor, error) {
			out, err := tensor.NewRaw(p.Shape(), p.DType(), p.Device())
			if err != nil {
				return nil, err
			}
			src := p.AsFloat32()
			dst := out.AsFloat32()
			for i, v := range src {
				dst[i] = v + delta
			}
			return out, nil
		},
	)
}

// cloneHooks is a faithful pair: unpack returns exactly what pack saw.
func cloneHooks() saved.Hooks {
	return saved.Pair(
		func(x *tensor.RawTensor) (*tensor.RawTensor, error) { return x.Clone(), nil },
		func(p *tensor.RawTensor) (*tensor.RawTensor, error) { return p, nil },
	)
}

func TestBackend_NameAndDevice(t *testing.T) {
	b := newBackend()
	assert.Equal(t, "Autodiff(CPU)", b.Name())
	assert.Equal(t, tensor.CPU, b.Device())
}

func TestTape_RecordsOnlyWhileRecording(t *testing.T) {
	b := newBackend()
	x := fromValues(t, b, []float32{1, 2}, tensor.Shape{2})

	x.Mul(x)
	assert.Equal(t, 0, b.Tape().NumOps())

	b.Tape().StartRecording()
	x.Mul(x)
	x.Add(x)
	assert.Equal(t, 2, b.Tape().NumOps())

	b.Tape().StopRecording()
	x.Mul(x)
	assert.Equal(t, 2, b.Tape().NumOps())

	b.Tape().Clear()
	assert.Equal(t, 0, b.Tape().NumOps())
}

func TestBackward_Square(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()

	x := fromValues(t, b, []float32{2, 3}, tensor.Shape{2})
	y := x.Mul(x)

	grads, err := autodiff.Backward(y, b)
	require.NoError(t, err)

	grad := grads[x.Raw()]
	require.NotNil(t, grad)
	assert.Equal(t, []float32{4, 6}, grad.AsFloat32())
}

func TestBackward_NoOpsRecorded(t *testing.T) {
	b := newBackend()
	x := fromValues(t, b, []float32{1}, tensor.Shape{1})

	_, err := autodiff.Backward(x, b)
	require.Error(t, err)
}

func TestBackward_MatMul(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()

	a := fromValues(t, b, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	c := fromValues(t, b, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})
	y := a.MatMul(c)

	grads, err := autodiff.Backward(y, b)
	require.NoError(t, err)

	// gradA = ones @ cᵀ, gradC = aᵀ @ ones.
	assert.Equal(t, []float32{11, 15, 11, 15}, grads[a.Raw()].AsFloat32())
	assert.Equal(t, []float32{4, 4, 6, 6}, grads[c.Raw()].AsFloat32())
}

func TestBackward_BroadcastAdd(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()

	a := fromValues(t, b, []float32{1, 2, 3}, tensor.Shape{3, 1})
	c := fromValues(t, b, []float32{
		1, 1, 1, 1,
		2, 2, 2, 2,
		3, 3, 3, 3,
	}, tensor.Shape{3, 4})
	y := a.Add(c)

	grads, err := autodiff.Backward(y, b)
	require.NoError(t, err)

	// The broadcast dimension is summed back out.
	assert.Equal(t, tensor.Shape{3, 1}, grads[a.Raw()].Shape())
	assert.Equal(t, []float32{4, 4, 4}, grads[a.Raw()].AsFloat32())
	assert.Equal(t, tensor.Shape{3, 4}, grads[c.Raw()].Shape())
}

func TestBackward_Div(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()

	a := fromValues(t, b, []float32{6}, tensor.Shape{1})
	c := fromValues(t, b, []float32{3}, tensor.Shape{1})
	y := a.Div(c)

	grads, err := autodiff.Backward(y, b)
	require.NoError(t, err)

	// d(a/c)/da = 1/c, d(a/c)/dc = -a/c².
	assert.InDelta(t, 1.0/3.0, grads[a.Raw()].AsFloat32()[0], 1e-6)
	assert.InDelta(t, -6.0/9.0, grads[c.Raw()].AsFloat32()[0], 1e-6)
}

func TestBackward_ReLU(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()

	x := fromValues(t, b, []float32{-1, 2}, tensor.Shape{2})
	y := tensor.New[float32](b.ReLU(x.Raw()), b)
	assert.Equal(t, []float32{0, 2}, y.Data())

	grads, err := autodiff.Backward(y, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, grads[x.Raw()].AsFloat32())
}

func TestBackward_MulSumChain(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()

	x := fromValues(t, b, []float32{1, 2, 3}, tensor.Shape{3})
	loss := x.Mul(x).Sum()
	require.Equal(t, tensor.Shape{}, loss.Shape())
	assert.Equal(t, float32(14), loss.Data()[0])

	grads, err := autodiff.Backward(loss, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, grads[x.Raw()].AsFloat32())
}

func TestEnableDisableSavedTensorHooks(t *testing.T) {
	b := newBackend()

	require.NoError(t, b.EnableSavedTensorHooks(cloneHooks()))
	err := b.EnableSavedTensorHooks(cloneHooks())
	require.ErrorIs(t, err, saved.ErrAlreadyRegistered)

	b.DisableSavedTensorHooks()
	b.DisableSavedTensorHooks() // idempotent
	require.NoError(t, b.EnableSavedTensorHooks(cloneHooks()))
}

func TestBackward_FaithfulHooksPreserveGradients(t *testing.T) {
	run := func(withHooks bool) []float32 {
		b := newBackend()
		if withHooks {
			require.NoError(t, b.EnableSavedTensorHooks(cloneHooks()))
		}
		b.Tape().StartRecording()

		x := fromValues(t, b, []float32{1, -2, 3}, tensor.Shape{3})
		w := fromValues(t, b, []float32{0.5, 0.5, 0.5}, tensor.Shape{3})
		loss := tensor.New[float32](b.ReLU(x.Mul(w).Raw()), b).Sum()

		grads, err := autodiff.Backward(loss, b)
		require.NoError(t, err)
		return grads[x.Raw()].AsFloat32()
	}

	assert.Equal(t, run(false), run(true))
}

func TestBackward_HooksBoundAtSaveTime(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()

	require.NoError(t, b.EnableSavedTensorHooks(offsetHooks(100)))
	x := fromValues(t, b, []float32{2}, tensor.Shape{1})
	y := x.Mul(x) // operands packed under the +100 pair

	// Swapping the pair after the forward pass must not affect it.
	b.DisableSavedTensorHooks()
	require.NoError(t, b.EnableSavedTensorHooks(offsetHooks(200)))

	grads, err := autodiff.Backward(y, b)
	require.NoError(t, err)

	// Each unpacked operand is 2+100=102; grad = 102 + 102.
	assert.Equal(t, []float32{204}, grads[x.Raw()].AsFloat32())
}

func TestBackward_UnpackFailureAborts(t *testing.T) {
	b := newBackend()
	boom := errors.New("restore failed")
	require.NoError(t, b.EnableSavedTensorHooks(saved.Pair(
		func(x *tensor.RawTensor) (int, error) { return 0, nil },
		func(int) (*tensor.RawTensor, error) { return nil, boom },
	)))
	b.Tape().StartRecording()

	x := fromValues(t, b, []float32{2}, tensor.Shape{1})
	y := x.Mul(x)

	grads, err := autodiff.Backward(y, b)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, grads)
}

func TestBackward_PackFailurePanicsAtForward(t *testing.T) {
	b := newBackend()
	require.NoError(t, b.EnableSavedTensorHooks(saved.Pair(
		func(x *tensor.RawTensor) (int, error) { return 0, errors.New("spill failed") },
		func(int) (*tensor.RawTensor, error) { return nil, nil },
	)))
	b.Tape().StartRecording()

	x := fromValues(t, b, []float32{2}, tensor.Shape{1})
	assert.Panics(t, func() { x.Mul(x) })
}

func TestBackward_SuspendsRecording(t *testing.T) {
	b := newBackend()
	b.Tape().StartRecording()

	x := fromValues(t, b, []float32{2, 3}, tensor.Shape{2})
	y := x.Mul(x)
	before := b.Tape().NumOps()

	_, err := autodiff.Backward(y, b)
	require.NoError(t, err)

	// Gradient arithmetic must not grow the tape, and recording resumes.
	assert.Equal(t, before, b.Tape().NumOps())
	assert.True(t, b.Tape().IsRecording())
}
