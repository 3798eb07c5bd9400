// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

package procinfo // import "github.com/blockcov/blockcov/procinfo"

import (
	"fmt"

	lru "github.com/elastic/go-freelru"
	"github.com/shirou/gopsutil/v4/process"
	log "github.com/sirupsen/logrus"

	"github.com/blockcov/blockcov/host"
	"github.com/blockcov/blockcov/libcov"
	"github.com/blockcov/blockcov/libcov/hash"
)

// ThreadSource yields the thread identity for an execution unit. Engines
// that track guest threads themselves provide one; offline hosts read it
// from the trace.
type ThreadSource func(cpu host.CPU) (ThreadInfo, bool)

// HostResolver resolves process names from the operating system the
// recorder runs on, keyed by the PIDs a ThreadSource reports. Name lookups
// hit /proc (or the platform equivalent), so results are cached per PID.
//
// Looked-up names are cached, never the gopsutil process handles: those
// wrap live OS state and are released as soon as the name is extracted.
type HostResolver struct {
	threads ThreadSource
	names   *lru.SyncedLRU[libcov.PID, string]
}

var _ Resolver = (*HostResolver)(nil)

// NewHostResolver creates a resolver backed by the local OS. cacheSize
// bounds the number of PID-to-name mappings kept around.
func NewHostResolver(threads ThreadSource, cacheSize uint32) (*HostResolver, error) {
	if threads == nil {
		return nil, fmt.Errorf("host resolver needs a thread source")
	}
	names, err := lru.NewSynced[libcov.PID, string](cacheSize,
		func(pid libcov.PID) uint32 { return hash.Uint32(uint32(pid)) })
	if err != nil {
		return nil, fmt.Errorf("failed to create process name cache: %w", err)
	}
	return &HostResolver{
		threads: threads,
		names:   names,
	}, nil
}

func (r *HostResolver) CurrentThread(cpu host.CPU) (ThreadInfo, bool) {
	return r.threads(cpu)
}

func (r *HostResolver) ProcessName(cpu host.CPU) (string, bool) {
	ti, ok := r.threads(cpu)
	if !ok {
		return "", false
	}
	if name, ok := r.names.Get(ti.PID); ok {
		return name, true
	}

	proc, err := process.NewProcess(int32(ti.PID))
	if err != nil {
		// Typically the process exited between the block executing and
		// the lookup. The record is still emitted with the sentinel name.
		log.Debugf("PID %d vanished before name resolution: %v", ti.PID, err)
		return "", false
	}
	name, err := proc.Name()
	if err != nil {
		log.Debugf("failed to read name of PID %d: %v", ti.PID, err)
		return "", false
	}

	r.names.Add(ti.PID, name)
	return name, true
}
