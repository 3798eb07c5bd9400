// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

// Package procinfo resolves raw execution contexts into logical process
// identities. The recorder consults it only on the first sighting of a
// (context, address) pair, so a resolver may be as expensive as an OS
// lookup without hurting the hot path.
package procinfo // import "github.com/blockcov/blockcov/procinfo"

import (
	"github.com/blockcov/blockcov/host"
	"github.com/blockcov/blockcov/libcov"
)

const (
	// KernelProcessName is logged for blocks executing in kernel mode.
	// No process lookup is attempted for those.
	KernelProcessName = "(kernel)"

	// UnknownProcessName is logged when process resolution fails, e.g.
	// for an address space the OS introspection does not track yet.
	UnknownProcessName = "(unknown)"
)

// ThreadInfo is the logical identity of the thread currently running on an
// execution unit.
type ThreadInfo struct {
	PID libcov.PID
	TID libcov.TID
}

// Resolver maps the raw context visible on a CPU to a logical process
// identity. Implementations return owned values; the recorder never
// retains anything a resolver hands out beyond the current notification.
//
// Both methods may fail. The recorder substitutes context ID 0 for a
// failed thread lookup and UnknownProcessName for a failed name lookup; a
// failure never drops a coverage record.
type Resolver interface {
	// CurrentThread returns the identity of the thread running on cpu.
	CurrentThread(cpu host.CPU) (ThreadInfo, bool)

	// ProcessName returns the executable name of the process running on
	// cpu. Callers must not invoke it for kernel-mode contexts.
	ProcessName(cpu host.CPU) (string, bool)
}
