// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

// Package controller assembles the recorder from configuration and owns
// its lifecycle: mode selection, coverage log setup, and shutdown.
package controller // import "github.com/blockcov/blockcov/internal/controller"

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/blockcov/blockcov/dedup"
	"github.com/blockcov/blockcov/libcov"
	"github.com/blockcov/blockcov/recorder"
	"github.com/blockcov/blockcov/reporter"
)

// Controller is an instance that builds, runs and stops one recording run.
type Controller struct {
	config *Config

	mode libcov.Mode
	rep  *reporter.Reporter
	rec  *recorder.Recorder
}

// New creates a new controller.
func New(cfg *Config) *Controller {
	return &Controller{
		config: cfg,
	}
}

// Start selects the mode, opens the coverage log and wires the recorder.
// Any error is fatal: no notification hook may be registered after a
// failed Start, and Shutdown is still safe to call.
func (c *Controller) Start() error {
	mode, err := selectMode(c.config)
	if err != nil {
		return err
	}
	c.mode = mode
	log.Infof("using mode %s", mode)
	log.Infof("using buffer_size of %d", c.config.BufferSize)

	rep, err := reporter.Open(c.config.Filename, mode, c.config.BufferSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	c.rep = rep

	var store dedup.Store
	if c.config.Sync {
		store = dedup.NewSyncedSet()
	} else {
		store = dedup.NewSet()
	}

	rec, err := recorder.New(&recorder.Config{
		Mode:     mode,
		Store:    store,
		Reporter: rep,
		Resolver: c.config.Resolver,
		Synced:   c.config.Sync,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	c.rec = rec
	return nil
}

// Mode returns the mode fixed by Start.
func (c *Controller) Mode() libcov.Mode {
	return c.mode
}

// Recorder returns the handler the engine drives. Only valid after a
// successful Start.
func (c *Controller) Recorder() *recorder.Recorder {
	return c.rec
}

// Shutdown closes the coverage log, exactly once, and reports the run's
// outcome. It tolerates a partially initialized controller.
func (c *Controller) Shutdown() error {
	var firstErr error

	if c.rec != nil {
		stats := c.rec.Stats()
		log.Infof("observed %d block executions, recorded %d distinct blocks",
			stats.Observed, stats.Recorded)
		firstErr = c.rec.Err()
	}

	if c.rep != nil {
		if err := c.rep.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.rep = nil
	}
	return firstErr
}
