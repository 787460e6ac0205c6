package tensor

// Backend defines the interface compute backends must implement.
// Backends perform the actual numeric work for tensor operations.
//
// Implementations:
//   - cpu: pure Go kernels with goroutine-parallel elementwise loops
//   - autodiff: decorator that wraps any Backend and records operations
//     for reverse-mode differentiation
type Backend interface {
	// Name returns the backend name for diagnostics.
	Name() string

	// Device returns the compute device tensors are allocated on.
	Device() Device

	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// MulScalar multiplies every element by a scalar value.
	MulScalar(x *RawTensor, scalar any) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor                           // total sum, scalar result
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor // sum along one dimension
}
