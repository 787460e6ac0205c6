package autodiff

import (
	"sync"

	"github.com/gradia-ml/gradia/internal/autodiff/ops"
	"github.com/gradia-ml/gradia/internal/tensor"
)

// GradientTape records operations during the forward pass and computes
// gradients during the backward pass using reverse-mode differentiation.
//
// Recording is guarded by a mutex so operators may record from whatever
// goroutines the surrounding computation uses.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.StartRecording()
//	// ... perform operations ...
//	gradients, err := tape.Backward(outputGrad, backend)
type GradientTape struct {
	mu         sync.Mutex
	operations []ops.Operation // recorded operations, in execution order
	recording  bool
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations.
func (t *GradientTape) IsRecording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recording
}

// Record adds an operation to the tape. Only records while recording.
func (t *GradientTape) Record(op ops.Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear resets the tape, removing all recorded operations.
// Recording state is preserved so tapes can be cleared between iterations.
func (t *GradientTape) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.operations)
}

// Backward computes gradients for all inputs by walking the tape in reverse.
//
// Algorithm:
//  1. Seed the output gradient (typically ones for a scalar loss).
//  2. Walk operations in reverse order.
//  3. For each operation, compute input gradients via the chain rule,
//     unpacking any saved tensors the operation captured.
//  4. Accumulate gradients when the same tensor feeds multiple operations.
//
// An error from any operation's backward pass (an unpack hook failure or a
// hook contract violation) aborts the walk; no partial gradient map is
// returned. Recording is suspended for the duration so gradient arithmetic
// is not itself recorded.
func (t *GradientTape) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	t.mu.Lock()
	operations := append([]ops.Operation(nil), t.operations...)
	wasRecording := t.recording
	t.recording = false
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.recording = wasRecording
		t.mu.Unlock()
	}()

	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if len(operations) == 0 {
		return grads, nil
	}

	lastOp := operations[len(operations)-1]
	grads[lastOp.Output()] = outputGrad

	for i := len(operations) - 1; i >= 0; i-- {
		op := operations[i]
		outGrad, hasGrad := grads[op.Output()]
		if !hasGrad {
			// No gradient flows through this operation's output.
			continue
		}

		inputGrads, err := op.Backward(outGrad, backend)
		if err != nil {
			return nil, err
		}
		accumulate(op, inputGrads, grads, backend)
	}

	return grads, nil
}

// accumulate merges input gradients into the gradient map, summing when a
// tensor already has one.
func accumulate(
	op ops.Operation,
	inputGrads []*tensor.RawTensor,
	grads map[*tensor.RawTensor]*tensor.RawTensor,
	backend tensor.Backend,
) {
	inputs := op.Inputs()
	for j, input := range inputs {
		if j >= len(inputGrads) {
			break
		}
		inputGrad := inputGrads[j]
		if inputGrad == nil {
			continue
		}
		if existing, ok := grads[input]; ok {
			grads[input] = backend.Add(existing, inputGrad)
		} else {
			grads[input] = inputGrad
		}
	}
}
