// Copyright The blockcov Authors
// SPDX-License-Identifier: Apache-2.0

// Package dedup implements the grow-only membership store the recorder
// uses to decide whether a (context, address) pair has been seen before.
// The store only ever grows: exhaustive coverage recording accepts
// unbounded memory as the price of never missing or duplicating a record.
package dedup // import "github.com/blockcov/blockcov/dedup"

import (
	"github.com/blockcov/blockcov/libcov"
	"github.com/blockcov/blockcov/libcov/xsync"
)

// Store tests membership of a key and records it in one logical step.
type Store interface {
	// TestAndInsert records key and reports whether it was already present.
	TestAndInsert(key libcov.RecordKey) bool

	// Len returns the number of distinct keys recorded so far.
	Len() int
}

// initialCapacity pre-sizes the backing maps. Coverage runs routinely see
// hundreds of thousands of distinct blocks, so skipping the early rehashes
// is worth a few hundred KiB up front.
const initialCapacity = 1 << 16

// Set is the single-threaded store. It is the right choice when the host
// engine serializes block-start notifications; it must not be shared
// between goroutines. Hosts that deliver notifications from multiple
// threads need SyncedSet instead.
type Set struct {
	seen libcov.Set[libcov.RecordKey]
}

var _ Store = (*Set)(nil)

// NewSet returns an empty unsynchronized store.
func NewSet() *Set {
	return &Set{
		seen: make(libcov.Set[libcov.RecordKey], initialCapacity),
	}
}

func (s *Set) TestAndInsert(key libcov.RecordKey) bool {
	if _, ok := s.seen[key]; ok {
		return true
	}
	s.seen[key] = libcov.Void{}
	return false
}

func (s *Set) Len() int {
	return len(s.seen)
}

// syncedSetShards splits the key space so that concurrent virtual CPUs
// rarely contend on the same lock. Must be a power of two.
const syncedSetShards = 16

// SyncedSet is the concurrency-safe store. Keys are sharded by hash across
// independently locked sets, so two execution units racing on the same key
// serialize on one shard and exactly one of them observes a miss.
type SyncedSet struct {
	shards [syncedSetShards]xsync.RWMutex[libcov.Set[libcov.RecordKey]]
}

var _ Store = (*SyncedSet)(nil)

// NewSyncedSet returns an empty store that is safe for concurrent use.
func NewSyncedSet() *SyncedSet {
	s := &SyncedSet{}
	for i := range s.shards {
		s.shards[i] = xsync.NewRWMutex(
			make(libcov.Set[libcov.RecordKey], initialCapacity/syncedSetShards))
	}
	return s
}

func (s *SyncedSet) TestAndInsert(key libcov.RecordKey) bool {
	shard := &s.shards[key.Hash()&(syncedSetShards-1)]

	// Duplicates dominate the input stream, so check under the cheaper
	// read lock first.
	seen := shard.RLock()
	_, ok := (*seen)[key]
	shard.RUnlock(&seen)
	if ok {
		return true
	}

	set := shard.WLock()
	defer shard.WUnlock(&set)
	if _, ok := (*set)[key]; ok {
		// Another unit inserted the key between the two locks.
		return true
	}
	(*set)[key] = libcov.Void{}
	return false
}

func (s *SyncedSet) Len() int {
	total := 0
	for i := range s.shards {
		set := s.shards[i].RLock()
		total += len(*set)
		s.shards[i].RUnlock(&set)
	}
	return total
}
