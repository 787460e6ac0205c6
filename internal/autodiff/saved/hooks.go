// Package saved implements saved-tensor interception for the autodiff engine.
//
// When an operation needs a tensor during its backward pass, the tensor is
// routed through this package at record time. A caller may install a pack /
// unpack hook pair on a Registry; while the pair is active, every tensor
// saved for backward is replaced by the opaque value returned by the pack
// hook, and reconstructed by the paired unpack hook when the backward pass
// needs it. This is how saved activations can be spilled to disk, stored in
// reduced precision, or otherwise transformed without touching operation
// code.
//
// Hook invocations are not serialized: when operations record concurrently,
// the same pair may be invoked from multiple goroutines at once, so hooks
// must be safe for concurrent use. Hooks must not mutate the tensor they
// are given; doing so is undefined behavior.
package saved

import "github.com/gradia-ml/gradia/internal/tensor"

// PackFunc transforms a tensor into an opaque payload at save time.
// The payload may be anything: a handle to a spill file, a compressed
// buffer, or the tensor itself.
type PackFunc[P any] func(*tensor.RawTensor) (P, error)

// UnpackFunc reconstructs a tensor from a payload produced by the paired
// PackFunc. The reconstructed tensor must match the original's shape and
// dtype.
type UnpackFunc[P any] func(P) (*tensor.RawTensor, error)

// Hooks is an installed pack/unpack pair. The payload type is erased here;
// use Pair to build a Hooks value whose pairing is checked at compile time.
type Hooks interface {
	// Pack converts a tensor into its stored representation.
	Pack(*tensor.RawTensor) (any, error)

	// Unpack restores a tensor from a value previously returned by Pack
	// of the same pair. Feeding it anything else is a contract violation.
	Unpack(any) (*tensor.RawTensor, error)
}

// pair adapts a typed hook pair to the erased Hooks interface.
type pair[P any] struct {
	pack   PackFunc[P]
	unpack UnpackFunc[P]
}

// Pair builds a Hooks value from a typed pack/unpack pair. Declaring both
// functions over the same payload type P keeps the pairing invariant at
// compile time; the erased payload is re-checked with a type assertion at
// unpack time.
func Pair[P any](pack PackFunc[P], unpack UnpackFunc[P]) Hooks {
	return pair[P]{pack: pack, unpack: unpack}
}

func (p pair[P]) Pack(t *tensor.RawTensor) (any, error) {
	return p.pack(t)
}

func (p pair[P]) Unpack(v any) (*tensor.RawTensor, error) {
	payload, ok := v.(P)
	if !ok {
		return nil, &ContractViolationError{
			Reason: "payload type mismatch between pack and unpack hooks",
		}
	}
	return p.unpack(payload)
}
