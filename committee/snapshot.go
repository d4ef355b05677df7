// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package committee

import "sync/atomic"

// Snapshot is the one globally-mutable piece of state spec §9 names
// (besides current round): the committee for the current epoch, held
// behind an atomic pointer so readers observe a consistent committee
// for any given round without locking. Grounded on validators/state.go's
// atomic-swap pattern.
type Snapshot struct {
	ptr atomic.Pointer[Committee]
}

// NewSnapshot creates a Snapshot pinned to an initial committee.
func NewSnapshot(initial *Committee) *Snapshot {
	s := &Snapshot{}
	s.ptr.Store(initial)
	return s
}

// Current returns the committee currently installed. Safe to call
// concurrently with Swap from any number of reader goroutines.
func (s *Snapshot) Current() *Committee {
	return s.ptr.Load()
}

// Swap installs next as the current committee, returning the previous
// one. Called when the epoch rolls over.
func (s *Snapshot) Swap(next *Committee) *Committee {
	return s.ptr.Swap(next)
}
