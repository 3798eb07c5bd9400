// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

package procinfo // import "github.com/blockcov/blockcov/procinfo"

import (
	"fmt"
	"runtime"
)

// OSFamily classifies the operating system of the observed execution
// environment. Process-mode recording is only meaningful when the family
// is known, since OS introspection differs per family.
type OSFamily uint8

const (
	FamilyUnknown OSFamily = iota
	FamilyLinux
	FamilyWindows
	FamilyDarwin
)

func (f OSFamily) String() string {
	switch f {
	case FamilyLinux:
		return "linux"
	case FamilyWindows:
		return "windows"
	case FamilyDarwin:
		return "darwin"
	default:
		return "unknown"
	}
}

// Known reports whether the family is specific enough to support process
// resolution.
func (f OSFamily) Known() bool {
	return f != FamilyUnknown
}

// DetectFamily returns the family of the system the recorder itself runs
// on. It is the default when the host engine observes the local OS rather
// than an emulated guest.
func DetectFamily() OSFamily {
	switch runtime.GOOS {
	case "linux", "android":
		return FamilyLinux
	case "windows":
		return FamilyWindows
	case "darwin":
		return FamilyDarwin
	default:
		return FamilyUnknown
	}
}

// ParseFamily converts a configuration string into an OSFamily. "auto"
// resolves to the local system's family.
func ParseFamily(s string) (OSFamily, error) {
	switch s {
	case "auto":
		return DetectFamily(), nil
	case "unknown":
		return FamilyUnknown, nil
	case "linux":
		return FamilyLinux, nil
	case "windows":
		return FamilyWindows, nil
	case "darwin":
		return FamilyDarwin, nil
	default:
		return FamilyUnknown, fmt.Errorf("invalid OS family (%s) provided", s)
	}
}
