// Package optim implements gradient-descent optimizers driven by the
// gradient maps the autodiff tape produces.
//
// Parameters are raw tensors; the gradient map returned by Backward is keyed
// by the same pointers, so an optimizer only needs the parameter list:
//
//	opt := optim.NewSGD([]*tensor.RawTensor{w.Raw()}, optim.SGDConfig{LR: 0.01})
//	for epoch := range epochs {
//	    grads, err := autodiff.Backward(loss, backend)
//	    ...
//	    opt.Step(grads)
//	}
//
// Updates are applied in place and must run outside tape recording.
package optim

import "github.com/gradia-ml/gradia/internal/tensor"

// Optimizer updates parameters from a gradient map.
type Optimizer interface {
	// Step applies one update to every parameter that has a gradient.
	// Parameters absent from the map are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// LR returns the current learning rate.
	LR() float32

	// SetLR updates the learning rate, for scheduling.
	SetLR(lr float32)
}
