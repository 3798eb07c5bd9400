// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

// Package recorder consumes block-start notifications from the execution
// engine and turns the first sighting of every (context, address) pair
// into exactly one coverage record. The handler runs once per translated
// block, potentially millions of times per second; the duplicate path does
// no allocation and no OS introspection.
package recorder // import "github.com/blockcov/blockcov/recorder"

import (
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/blockcov/blockcov/dedup"
	"github.com/blockcov/blockcov/host"
	"github.com/blockcov/blockcov/libcov"
	"github.com/blockcov/blockcov/procinfo"
	"github.com/blockcov/blockcov/reporter"
)

// BlockHandler is the capability the execution engine drives. The
// notification is informational: it never gates or aborts execution, so it
// has no return value the engine could act on.
type BlockHandler interface {
	// HandleBlockStart is invoked synchronously before a block of size
	// bytes starting at pc executes on cpu.
	HandleBlockStart(cpu host.CPU, pc libcov.Address, size uint32)
}

// Stats are the recorder's lifetime counters.
type Stats struct {
	// Observed is the total number of block-start notifications seen.
	Observed uint64
	// Recorded is the number of rows written, i.e. distinct keys.
	Recorded uint64
}

// Config assembles a Recorder. Store and Reporter are mandatory; Resolver
// is mandatory in process mode and ignored in asid mode.
type Config struct {
	Mode     libcov.Mode
	Store    dedup.Store
	Reporter reporter.BlockReporter
	Resolver procinfo.Resolver

	// Synced serializes record emission, required when the engine invokes
	// HandleBlockStart from multiple OS threads. The Store must then be a
	// concurrency-safe implementation as well.
	Synced bool
}

// strategy is the mode-specific half of the recorder, fixed at
// construction and never swapped afterwards.
type strategy interface {
	handle(cpu host.CPU, pc libcov.Address, size uint32)
}

// Recorder dispatches block-start notifications to the strategy selected
// at start-up and owns the shared emission path.
type Recorder struct {
	strategy strategy
	mode     libcov.Mode

	rep reporter.BlockReporter
	// emitMu guards the reporter for concurrent hosts; nil when the host
	// serializes notifications.
	emitMu *sync.Mutex

	observed atomic.Uint64
	recorded atomic.Uint64

	failed atomic.Bool
	errMu  sync.Mutex
	err    error
}

var _ BlockHandler = (*Recorder)(nil)

// New builds a Recorder for the given mode. In process mode the resolver
// is a hard precondition; there is no way to acquire one at runtime.
func New(cfg *Config) (*Recorder, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("recorder needs a dedup store")
	}
	if cfg.Reporter == nil {
		return nil, fmt.Errorf("recorder needs a reporter")
	}

	r := &Recorder{
		mode: cfg.Mode,
		rep:  cfg.Reporter,
	}
	if cfg.Synced {
		r.emitMu = &sync.Mutex{}
	}

	switch cfg.Mode {
	case libcov.ProcessMode:
		if cfg.Resolver == nil {
			return nil, fmt.Errorf("process mode requires an initialized context resolver")
		}
		r.strategy = &processStrategy{
			store:    cfg.Store,
			resolver: cfg.Resolver,
			emit:     r.emit,
		}
	case libcov.AsidMode:
		r.strategy = &asidStrategy{
			store: cfg.Store,
			emit:  r.emit,
		}
	default:
		return nil, fmt.Errorf("invalid mode (%d)", cfg.Mode)
	}
	return r, nil
}

func (r *Recorder) HandleBlockStart(cpu host.CPU, pc libcov.Address, size uint32) {
	r.observed.Add(1)
	r.strategy.handle(cpu, pc, size)
}

// Mode returns the recording mode fixed at construction.
func (r *Recorder) Mode() libcov.Mode {
	return r.mode
}

// Stats returns the current counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Observed: r.observed.Load(),
		Recorded: r.recorded.Load(),
	}
}

// Err returns the first write failure, if any. Coverage logging is
// best-effort instrumentation: the failure is latched and surfaced here
// rather than propagated into the engine's execution loop.
func (r *Recorder) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

func (r *Recorder) emit(rec *reporter.Record) {
	if r.emitMu != nil {
		r.emitMu.Lock()
		defer r.emitMu.Unlock()
	}
	if err := r.rep.ReportBlock(rec); err != nil {
		if r.failed.CompareAndSwap(false, true) {
			log.Errorf("Coverage write failed, dropping further records: %v", err)
			r.errMu.Lock()
			r.err = err
			r.errMu.Unlock()
		}
		return
	}
	r.recorded.Add(1)
}

// processStrategy keys blocks by resolved process ID and logs the process
// identity with each record.
type processStrategy struct {
	store    dedup.Store
	resolver procinfo.Resolver
	emit     func(*reporter.Record)
}

func (s *processStrategy) handle(cpu host.CPU, pc libcov.Address, size uint32) {
	// Thread identity is needed up front since the process ID is part of
	// the dedup key. An untracked context keys as PID 0 rather than being
	// dropped.
	ti, ok := s.resolver.CurrentThread(cpu)
	if !ok {
		ti = procinfo.ThreadInfo{}
	}

	key := libcov.NewRecordKey(uint64(ti.PID), pc)
	if s.store.TestAndInsert(key) {
		return
	}

	// First sighting: now, and only now, pay for name resolution. TID and
	// size are incidental payload; a later sighting of the same key with
	// different values is a duplicate and stays dropped.
	inKernel := cpu.InKernel()
	var name string
	if inKernel {
		name = procinfo.KernelProcessName
	} else if resolved, ok := s.resolver.ProcessName(cpu); ok {
		name = resolved
	} else {
		name = procinfo.UnknownProcessName
	}

	s.emit(&reporter.Record{
		ProcessName: name,
		PID:         ti.PID,
		TID:         ti.TID,
		InKernel:    inKernel,
		PC:          pc,
		Size:        size,
	})
}

// asidStrategy keys blocks by the raw address-space identifier. No OS
// introspection happens at all, making it viable for unknown guest OSes.
type asidStrategy struct {
	store dedup.Store
	emit  func(*reporter.Record)
}

func (s *asidStrategy) handle(cpu host.CPU, pc libcov.Address, size uint32) {
	asid := cpu.ASID()
	key := libcov.NewRecordKey(uint64(asid), pc)
	if s.store.TestAndInsert(key) {
		return
	}

	s.emit(&reporter.Record{
		ASID:     asid,
		InKernel: cpu.InKernel(),
		PC:       pc,
		Size:     size,
	})
}
