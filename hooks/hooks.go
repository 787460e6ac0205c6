// Copyright 2026 The Gradia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package hooks provides ready-made saved-tensor hook pairs.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	offloader, err := hooks.NewDiskOffloader("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer offloader.Cleanup()
//
//	if err := backend.EnableSavedTensorHooks(offloader.Hooks()); err != nil {
//	    log.Fatal(err)
//	}
package hooks

import (
	"github.com/gradia-ml/gradia/autodiff"
	internalhooks "github.com/gradia-ml/gradia/internal/hooks"
)

// DiskOffloader spills tensors saved for backward to files and reads them
// back on demand, trading backward-pass latency for resident memory.
type DiskOffloader = internalhooks.DiskOffloader

// OffloadStats is a snapshot of offloader counters.
type OffloadStats = internalhooks.OffloadStats

// NewDiskOffloader creates an offloader spilling into a fresh directory
// under dir (os.TempDir() when dir is empty).
func NewDiskOffloader(dir string) (*DiskOffloader, error) {
	return internalhooks.NewDiskOffloader(dir)
}

// Float16 returns a hook pair that stores saved float32 tensors in IEEE 754
// half precision. Lossy; see the package documentation of internal/hooks.
func Float16() autodiff.Hooks {
	return internalhooks.Float16()
}
