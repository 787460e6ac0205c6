package optim

import "github.com/gradia-ml/gradia/internal/tensor"

// SGD implements stochastic gradient descent with optional momentum.
//
// Without momentum:
//
//	param -= lr * grad
//
// With momentum:
//
//	velocity = momentum * velocity + grad
//	param -= lr * velocity
//
// Only float32 parameters are supported.
type SGD struct {
	params     []*tensor.RawTensor
	lr         float32
	momentum   float32
	velocities map[*tensor.RawTensor][]float32
}

// SGDConfig holds SGD hyperparameters.
type SGDConfig struct {
	LR       float32 // learning rate (default 0.01)
	Momentum float32 // momentum factor in [0, 1), 0 disables momentum
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(params []*tensor.RawTensor, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*tensor.RawTensor][]float32),
	}
}

// Step applies one SGD update in place.
func (s *SGD) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad, ok := grads[param]
		if !ok {
			continue
		}

		paramData := param.AsFloat32()
		gradData := grad.AsFloat32()

		if s.momentum == 0 {
			for i := range paramData {
				paramData[i] -= s.lr * gradData[i]
			}
			continue
		}

		velocity, ok := s.velocities[param]
		if !ok {
			velocity = make([]float32, len(paramData))
			s.velocities[param] = velocity
		}
		for i := range paramData {
			velocity[i] = s.momentum*velocity[i] + gradData[i]
			paramData[i] -= s.lr * velocity[i]
		}
	}
}

// LR returns the current learning rate.
func (s *SGD) LR() float32 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float32) {
	s.lr = lr
}
