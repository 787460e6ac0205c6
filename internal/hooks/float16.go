package hooks

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gradia-ml/gradia/internal/autodiff/saved"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// float16Payload holds the half-precision image of a saved float32 tensor.
type float16Payload struct {
	shape tensor.Shape
	bits  []uint16
}

// Float16 returns a hook pair that stores saved float32 tensors in IEEE 754
// half precision, halving their resident size. The narrowing is lossy:
// values round to the nearest representable half-precision value and
// magnitudes above ~65504 overflow to infinity. Gradients computed from
// restored tensors inherit that rounding.
//
// Only Float32 tensors are supported; saving any other dtype fails the
// enclosing operation.
func Float16() saved.Hooks {
	return saved.Pair(packFloat16, unpackFloat16)
}

func packFloat16(t *tensor.RawTensor) (float16Payload, error) {
	if t.DType() != tensor.Float32 {
		return float16Payload{}, errors.Errorf("float16 hooks: unsupported dtype %s", t.DType())
	}

	src := t.AsFloat32()
	bits := make([]uint16, len(src))
	for i, v := range src {
		bits[i] = float16.Fromfloat32(v).Bits()
	}
	return float16Payload{shape: t.Shape().Clone(), bits: bits}, nil
}

func unpackFloat16(p float16Payload) (*tensor.RawTensor, error) {
	t, err := tensor.NewRaw(p.shape, tensor.Float32, tensor.CPU)
	if err != nil {
		return nil, errors.Wrap(err, "float16 hooks: restore")
	}

	dst := t.AsFloat32()
	for i, b := range p.bits {
		dst[i] = float16.Frombits(b).Float32()
	}
	return t, nil
}
