// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"os"

	"github.com/peterbourgon/ff/v3"

	"github.com/blockcov/blockcov/internal/controller"
	"github.com/blockcov/blockcov/reporter"
)

const (
	// Default values for CLI flags
	defaultArgFilename   = "coverage.csv"
	defaultArgMode       = ""
	defaultArgBufferSize = reporter.DefaultBufferSize
	defaultArgGuestOS    = "auto"
	defaultArgTrace      = "-"
)

// Help strings for command line arguments
var (
	filenameHelp = "Path of the coverage CSV file to create (truncated if it exists)."
	modeHelp     = "Type of segregation used for blocks (process or asid). " +
		"Defaults to process when the guest OS family is known, asid otherwise."
	bufferSizeHelp = "Size of the output buffer in bytes. 0 disables buffering " +
		"so every record is written out immediately."
	syncHelp = "Synchronize the dedup store and the log writer. Required when " +
		"block events are delivered from multiple OS threads."
	guestOSHelp = "OS family of the traced execution environment " +
		"(auto, unknown, linux, windows, darwin). Process mode needs a known family."
	traceHelp = "Block-event trace to replay, '-' for stdin. " +
		"Format: asid,pc,size,kernel[,pid,tid,name] per line."
	liveNamesHelp = "Resolve process names from the local OS by the PIDs in the " +
		"trace instead of the names recorded in it."
	verboseModeHelp = "Enable verbose logging and debugging capabilities."
	versionHelp     = "Show version."
)

// args extends the controller configuration with the flags only main
// cares about.
type args struct {
	controller.Config

	GuestOS   string
	Trace     string
	LiveNames bool
}

func parseArgs() (*args, error) {
	var a args

	fs := flag.NewFlagSet("blockcov", flag.ExitOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.UintVar(&a.BufferSize, "buffer_size", defaultArgBufferSize, bufferSizeHelp)
	fs.StringVar(&a.Filename, "filename", defaultArgFilename, filenameHelp)
	fs.StringVar(&a.GuestOS, "guest-os", defaultArgGuestOS, guestOSHelp)
	fs.BoolVar(&a.LiveNames, "live-names", false, liveNamesHelp)
	fs.StringVar(&a.Mode, "mode", defaultArgMode, modeHelp)
	fs.BoolVar(&a.Sync, "sync", false, syncHelp)
	fs.StringVar(&a.Trace, "trace", defaultArgTrace, traceHelp)

	fs.BoolVar(&a.VerboseMode, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&a.VerboseMode, "verbose", false, verboseModeHelp)
	fs.BoolVar(&a.Version, "version", false, versionHelp)

	fs.Usage = func() {
		fs.PrintDefaults()
	}

	a.Fs = fs

	return &a, ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BLOCKCOV"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	)
}
