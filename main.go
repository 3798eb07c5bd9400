// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

// blockcov records which code executed: it consumes a stream of
// block-execution events, deduplicates them per (context, address) pair
// and writes each distinct pair once to a coverage CSV file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/blockcov/blockcov/internal/controller"
	"github.com/blockcov/blockcov/internal/replay"
	"github.com/blockcov/blockcov/procinfo"
	"github.com/blockcov/blockcov/vc"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go 'flag' package calls os.Exit(2) on flag parse errors, if ExitOnError is set
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode()))
}

func mainWithExitCode() exitCode {
	a, err := parseArgs()
	if err != nil {
		return parseError("Failure to parse arguments: %v", err)
	}

	if a.Version {
		fmt.Printf("%s (revision %s, build timestamp %s)\n",
			vc.Version(), vc.Revision(), vc.BuildTimestamp())
		return exitSuccess
	}

	if a.VerboseMode {
		log.SetLevel(log.DebugLevel)
		// Dump the arguments in debug mode.
		a.Dump()
	}

	family, err := procinfo.ParseFamily(a.GuestOS)
	if err != nil {
		return parseError("Failure to parse guest-os: %v", err)
	}
	a.OSFamily = family

	// Context to cancel a replay on SIGINT/SIGTERM. The coverage file is
	// still closed cleanly in that case.
	mainCtx, mainCancel := signal.NotifyContext(context.Background(),
		unix.SIGINT, unix.SIGTERM)
	defer mainCancel()

	player := replay.NewPlayer()
	if a.LiveNames {
		resolver, err := procinfo.NewHostResolver(player.ThreadSource(), 1024)
		if err != nil {
			return failure("Failed to create host resolver: %v", err)
		}
		a.Resolver = resolver
	} else {
		a.Resolver = player
	}

	trace, err := openTrace(a.Trace)
	if err != nil {
		return failure("Failed to open trace: %v", err)
	}
	defer trace.Close()

	ctlr := controller.New(&a.Config)
	if err = ctlr.Start(); err != nil {
		_ = ctlr.Shutdown()
		return failure("Failed to start coverage recording: %v", err)
	}

	runErr := player.Run(mainCtx, trace, ctlr.Recorder())

	if err = ctlr.Shutdown(); err != nil {
		return failure("Failed to finalize coverage log: %v", err)
	}
	if runErr != nil && runErr != context.Canceled {
		return failure("Replay failed: %v", runErr)
	}
	return exitSuccess
}

func openTrace(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func parseError(msg string, args ...any) exitCode {
	log.Errorf(msg, args...)
	return exitParseError
}

func failure(msg string, args ...any) exitCode {
	log.Errorf(msg, args...)
	return exitFailure
}
