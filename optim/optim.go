// Copyright 2026 The Gradia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient-descent optimizers.
//
// Example:
//
//	opt := optim.NewSGD([]*tensor.RawTensor{w.Raw()}, optim.SGDConfig{LR: 0.01})
//	grads, err := autodiff.Backward(loss, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opt.Step(grads)
package optim

import (
	internaloptim "github.com/gradia-ml/gradia/internal/optim"
	"github.com/gradia-ml/gradia/tensor"
)

// Optimizer updates parameters from a gradient map.
type Optimizer = internaloptim.Optimizer

// SGD is stochastic gradient descent with optional momentum.
type SGD = internaloptim.SGD

// SGDConfig holds SGD hyperparameters.
type SGDConfig = internaloptim.SGDConfig

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(params []*tensor.RawTensor, config SGDConfig) *SGD {
	return internaloptim.NewSGD(params, config)
}

// Adam is the Adam optimizer.
type Adam = internaloptim.Adam

// AdamConfig holds Adam hyperparameters.
type AdamConfig = internaloptim.AdamConfig

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam(params []*tensor.RawTensor, config AdamConfig) *Adam {
	return internaloptim.NewAdam(params, config)
}
