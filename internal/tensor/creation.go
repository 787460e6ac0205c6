package tensor

import "math/rand"

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Rand creates a tensor of uniform random values in [0, 1).
// Integer dtypes get values in [0, 100).
func Rand[T DType, B Backend](shape Shape, b B, rng *rand.Rand) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		switch p := any(&data[i]).(type) {
		case *float32:
			*p = rng.Float32()
		case *float64:
			*p = rng.Float64()
		case *int32:
			*p = rng.Int31n(100)
		case *int64:
			*p = rng.Int63n(100)
		}
	}
	return t
}
