package optim

import (
	"math"

	"github.com/gradia-ml/gradia/internal/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2014).
//
// Update rule:
//
//	m = beta1*m + (1-beta1)*grad
//	v = beta2*v + (1-beta2)*grad²
//	param -= lr * (m / (1-beta1^t)) / (sqrt(v / (1-beta2^t)) + eps)
//
// Only float32 parameters are supported.
type Adam struct {
	params []*tensor.RawTensor
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32
	t      int // timestep for bias correction
	m      map[*tensor.RawTensor][]float32
	v      map[*tensor.RawTensor][]float32
}

// AdamConfig holds Adam hyperparameters.
type AdamConfig struct {
	LR    float32    // learning rate (default 0.001)
	Betas [2]float32 // moving-average coefficients (default 0.9, 0.999)
	Eps   float32    // numerical stability term (default 1e-8)
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam(params []*tensor.RawTensor, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*tensor.RawTensor][]float32),
		v:      make(map[*tensor.RawTensor][]float32),
	}
}

// Step applies one Adam update in place.
func (a *Adam) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++
	biasCorrection1 := float32(1 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, param := range a.params {
		grad, ok := grads[param]
		if !ok {
			continue
		}

		paramData := param.AsFloat32()
		gradData := grad.AsFloat32()

		m, ok := a.m[param]
		if !ok {
			m = make([]float32, len(paramData))
			a.m[param] = m
		}
		v, ok := a.v[param]
		if !ok {
			v = make([]float32, len(paramData))
			a.v[param] = v
		}

		for i := range paramData {
			g := gradData[i]
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g

			mHat := m[i] / biasCorrection1
			vHat := v[i] / biasCorrection2
			paramData[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// LR returns the current learning rate.
func (a *Adam) LR() float32 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float32) {
	a.lr = lr
}

// Timestep returns the number of steps applied so far.
func (a *Adam) Timestep() int {
	return a.t
}
