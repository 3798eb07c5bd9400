// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

package libcov // import "github.com/blockcov/blockcov/libcov"

import "fmt"

// Mode determines how block observations are keyed and logged. It is fixed
// once at start-up and never changes for the lifetime of a run.
type Mode uint8

const (
	// ProcessMode keys blocks by their resolved logical process ID and
	// logs the process identity alongside each block.
	ProcessMode Mode = iota

	// AsidMode keys blocks by the raw hardware address-space identifier.
	// Cheaper than ProcessMode as it needs no OS introspection.
	AsidMode
)

// String returns the mode name as it appears in the output file preamble.
func (m Mode) String() string {
	switch m {
	case ProcessMode:
		return "process"
	case AsidMode:
		return "asid"
	default:
		return fmt.Sprintf("<invalid mode %d>", uint8(m))
	}
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "process":
		return ProcessMode, nil
	case "asid":
		return AsidMode, nil
	default:
		return 0, fmt.Errorf("invalid mode (%s) provided", s)
	}
}
