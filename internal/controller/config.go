// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/blockcov/blockcov/internal/controller"

import (
	"errors"
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/blockcov/blockcov/libcov"
	"github.com/blockcov/blockcov/procinfo"
)

// ErrConfiguration marks fatal start-up errors: the recorder must not be
// handed to the engine when Start fails with one of these.
var ErrConfiguration = errors.New("configuration error")

// Config carries everything the controller needs to assemble a run.
type Config struct {
	// Filename is the coverage log path, created or truncated at Start.
	Filename string

	// Mode selects the recording strategy: "process", "asid", or empty
	// for the platform-aware default.
	Mode string

	// BufferSize is the coverage log write buffer in bytes; 0 disables
	// buffering entirely.
	BufferSize uint

	// Sync must be set when the engine delivers block-start notifications
	// from multiple OS threads.
	Sync bool

	// OSFamily is the engine's knowledge of the observed OS. Process mode
	// is unavailable while it is unknown.
	OSFamily procinfo.OSFamily

	// Resolver provides process identities in process mode.
	Resolver procinfo.Resolver

	VerboseMode bool
	Version     bool

	Fs *flag.FlagSet
}

// Dump visits all flag sets, and dumps them all to debug
// Used for verbose mode logging.
func (cfg *Config) Dump() {
	log.Debug("Config:")
	cfg.Fs.VisitAll(func(f *flag.Flag) {
		log.Debug(fmt.Sprintf("%s: %v", f.Name, f.Value))
	})
}

// selectMode fixes the recording mode for the run. An unparsable mode is a
// configuration error; a process-mode request without a known OS family
// falls back to asid mode with a warning rather than failing the run.
func selectMode(cfg *Config) (libcov.Mode, error) {
	var mode libcov.Mode
	if cfg.Mode == "" {
		if cfg.OSFamily.Known() {
			mode = libcov.ProcessMode
		} else {
			mode = libcov.AsidMode
		}
	} else {
		var err error
		if mode, err = libcov.ParseMode(cfg.Mode); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}

	if mode == libcov.ProcessMode && !cfg.OSFamily.Known() {
		log.Warnf("No OS family known, switching to asid mode")
		mode = libcov.AsidMode
	}

	if mode == libcov.ProcessMode && cfg.Resolver == nil {
		return 0, fmt.Errorf("%w: process mode requires an initialized context resolver",
			ErrConfiguration)
	}
	return mode, nil
}
