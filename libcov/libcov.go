// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

// Package libcov contains the value types shared across the coverage
// recorder: block addresses, execution-context identifiers and the
// deduplication key built from them.
package libcov // import "github.com/blockcov/blockcov/libcov"

import (
	"github.com/blockcov/blockcov/libcov/hash"
)

// Address represents the start address of a translated code block in the
// observed address space.
type Address uint64

// Hash returns a 64 bits hash of the input.
func (a Address) Hash() uint64 {
	return hash.Uint64(uint64(a))
}

// Hash32 returns a 32 bits hash of the input.
// It's main purpose is to be used as key for caching.
func (a Address) Hash32() uint32 {
	return uint32(a.Hash())
}

// ASID is a raw hardware address-space identifier. It stands in for a
// process when logical process resolution is unavailable.
type ASID uint64

// Hash32 returns a 32 bits hash of the input.
func (a ASID) Hash32() uint32 {
	return uint32(hash.Uint64(uint64(a)))
}

// PID represents a process ID as reported by the observed system.
type PID uint64

func (p PID) Hash32() uint32 {
	return uint32(p)
}

// TID represents a thread ID as reported by the observed system.
type TID uint64

// Void allows to use maps as sets without memory allocation for the values.
// It is preferred over bool for consistency.
type Void struct{}

// Set is a convenience alias for a map with a `Void` value.
type Set[T comparable] map[T]Void

// ToSlice converts the Set keys into a slice.
func (s Set[T]) ToSlice() []T {
	slice := make([]T, 0, len(s))
	for item := range s {
		slice = append(slice, item)
	}
	return slice
}
