package saved

import (
	"github.com/pkg/errors"

	"github.com/gradia-ml/gradia/internal/tensor"
)

// SavedTensor holds one tensor captured during the forward pass for use in
// backward computation. It is immutable after construction: the payload and
// the hook pair bound at save time never change, even if the registry is
// reset or repopulated afterwards. Shape and dtype metadata are always
// retained, whether or not the payload is hook-transformed.
type SavedTensor struct {
	shape   tensor.Shape
	dtype   tensor.DataType
	raw     *tensor.RawTensor // set when no hooks were active at save time
	payload any               // opaque pack-hook output otherwise
	hooks   Hooks             // pair bound at save time; nil when raw is set
}

// Save captures a tensor for backward computation. This is the single entry
// point operations use when they retain a tensor.
//
// The registry is snapshotted at the moment of saving. With no active pair
// the tensor itself is held (shared buffer reference, no copy). With an
// active pair the payload becomes pack(t) and the pair is bound to the
// result for the lifetime of the SavedTensor.
//
// A pack hook failure propagates immediately and aborts the save; the
// registry is unaffected. The tensor is not defensively copied before the
// hook call, so hooks must not mutate it.
func Save(reg *Registry, t *tensor.RawTensor) (*SavedTensor, error) {
	if t == nil {
		return nil, errors.New("saved: cannot save nil tensor")
	}

	st := &SavedTensor{
		shape: t.Shape().Clone(),
		dtype: t.DType(),
	}

	var hooks Hooks
	if reg != nil {
		hooks = reg.Snapshot()
	}
	if hooks == nil {
		st.raw = t.Clone()
		return st, nil
	}

	payload, err := hooks.Pack(t)
	if err != nil {
		return nil, errors.Wrap(err, "saved: pack hook failed")
	}
	st.payload = payload
	st.hooks = hooks
	return st, nil
}

// Unpack produces the tensor value for gradient computation.
//
// A tensor saved without hooks is returned directly. A packed tensor is
// restored by the unpack hook captured at save time; the currently
// registered pair is never consulted, so resetting and re-registering hooks
// between save and restore cannot corrupt already-saved values.
//
// Results are not memoized: under an engine that retains the graph for
// multiple backward passes each call re-invokes the unpack hook. Hooks with
// expensive restores should cache internally.
func (s *SavedTensor) Unpack() (*tensor.RawTensor, error) {
	if s.hooks == nil {
		return s.raw, nil
	}

	t, err := s.hooks.Unpack(s.payload)
	if err != nil {
		return nil, errors.Wrap(err, "saved: unpack hook failed")
	}
	if t == nil {
		return nil, &ContractViolationError{
			Reason:    "unpack hook returned nil tensor",
			WantShape: s.shape,
			WantDType: s.dtype,
		}
	}
	if !t.Shape().Equal(s.shape) || t.DType() != s.dtype {
		return nil, &ContractViolationError{
			Reason:    "unpacked tensor does not match saved metadata",
			WantShape: s.shape,
			WantDType: s.dtype,
			GotShape:  t.Shape(),
			GotDType:  t.DType(),
		}
	}
	return t, nil
}

// IsPacked reports whether the payload went through a pack hook.
func (s *SavedTensor) IsPacked() bool {
	return s.hooks != nil
}

// Shape returns the shape recorded at save time.
func (s *SavedTensor) Shape() tensor.Shape {
	return s.shape
}

// DType returns the dtype recorded at save time.
func (s *SavedTensor) DType() tensor.DataType {
	return s.dtype
}

// Release drops the shared buffer reference of an unpacked SavedTensor.
// Called when the owning graph node is discarded. No-op for packed tensors;
// payload cleanup belongs to the hook implementation.
func (s *SavedTensor) Release() {
	if s.raw != nil {
		s.raw.Release()
		s.raw = nil
	}
}
