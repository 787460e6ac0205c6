package saved

import (
	"errors"
	"fmt"

	"github.com/gradia-ml/gradia/internal/tensor"
)

// Common errors.
var (
	// ErrAlreadyRegistered is returned by Registry.Set when a hook pair is
	// already active. Call Reset first to replace it.
	ErrAlreadyRegistered = errors.New("saved tensor hooks already registered")

	// ErrNilHooks is returned by Registry.Set for a nil pair.
	ErrNilHooks = errors.New("saved tensor hooks must not be nil")
)

// ContractViolationError reports that an unpack hook produced a value
// incompatible with the tensor that was originally saved. It surfaces at
// restore time, never at save time.
type ContractViolationError struct {
	Reason    string          // What was violated.
	WantShape tensor.Shape    // Shape recorded at save time.
	WantDType tensor.DataType // DType recorded at save time.
	GotShape  tensor.Shape    // Shape the unpack hook produced (if any).
	GotDType  tensor.DataType // DType the unpack hook produced (if any).
}

// Error implements the error interface.
func (e *ContractViolationError) Error() string {
	if e.WantShape != nil || e.GotShape != nil {
		return fmt.Sprintf("saved tensor hook contract violation: %s (saved %s%v, unpacked %s%v)",
			e.Reason, e.WantDType, e.WantShape, e.GotDType, e.GotShape)
	}
	return fmt.Sprintf("saved tensor hook contract violation: %s", e.Reason)
}
