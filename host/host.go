// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

// Package host defines the surface between the execution engine and the
// recorder. The engine owns block translation and delivers a synchronous
// notification before each block executes; the recorder only ever sees the
// engine through the types in this package.
package host // import "github.com/blockcov/blockcov/host"

import "github.com/blockcov/blockcov/libcov"

// CPU is the recorder's view of one virtual execution unit at the moment a
// block-start notification fires. Implementations are provided by the
// engine and are only valid for the duration of a single notification; the
// recorder never retains them.
type CPU interface {
	// ASID returns the raw address-space identifier currently active on
	// this unit. Always available, never fails.
	ASID() libcov.ASID

	// InKernel reports whether the unit is currently executing in kernel
	// mode.
	InKernel() bool
}

// StaticCPU is a CPU whose state is captured up front. Offline hosts (trace
// replay, tests) use it to present recorded state through the CPU interface.
type StaticCPU struct {
	Asid   libcov.ASID
	Kernel bool
}

var _ CPU = StaticCPU{}

func (c StaticCPU) ASID() libcov.ASID { return c.Asid }
func (c StaticCPU) InKernel() bool    { return c.Kernel }
