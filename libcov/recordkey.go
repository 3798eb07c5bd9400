// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

package libcov // import "github.com/blockcov/blockcov/libcov"

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// RecordKey identifies a single coverage-worthy observation: a code block,
// named by its start address, executing under a particular context. The
// context is either a resolved process ID or a raw ASID, depending on the
// recording mode; the key does not care which.
//
// RecordKey is a pure value type. Two keys are equal iff both fields are
// equal, which Go's comparison operator provides structurally.
type RecordKey struct {
	// ContextID is the logical or physical execution context.
	ContextID uint64

	// PC is the block start address.
	PC Address
}

// NewRecordKey builds the deduplication key for a block observation.
func NewRecordKey(contextID uint64, pc Address) RecordKey {
	return RecordKey{
		ContextID: contextID,
		PC:        pc,
	}
}

// Hash returns a 64 bits hash over both fields. The serialization is
// order-sensitive, so swapping context and PC produces a different value.
// xxh3 keeps collisions low even for the strongly correlated addresses a
// basic-block stream produces.
func (k RecordKey) Hash() uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], k.ContextID)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(k.PC))
	return xxh3.Hash(buf[:])
}

// Hash32 returns a 32 bits hash of the input.
// It's main purpose is to be used as key for caching.
func (k RecordKey) Hash32() uint32 {
	return uint32(k.Hash())
}

func (k RecordKey) String() string {
	return fmt.Sprintf("0x%x@0x%x", k.ContextID, uint64(k.PC))
}
