// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package storage implements the Storage Service (spec §4.A): a
// content-addressed store of transmissions keyed by transmission ID,
// reference-counted by certificate ID, plus a parallel ref-counted map
// for aborted transmission IDs.
//
// Per spec §9's "dynamic dispatch" note, Service is a capability-set
// interface; the core depends only on it, never on which backend is
// installed. memory.Store and durable.Store are its two implementations.
package storage

import (
	"github.com/aleobft/core/types"
)

// Service is the capability set the DAG-BFT core needs from a
// transmission store: contains, get, find-missing, insert, remove.
type Service interface {
	// Contains reports whether id is resident in either the live or the
	// aborted map.
	Contains(id types.ID) bool

	// Get returns the body for id if it is resident in the live (not
	// aborted) map.
	Get(id types.ID) ([]byte, bool)

	// FindMissing returns, for every transmission ID the header
	// declares, the subset of supplied that must still be ingested. An
	// ID that is neither resident, supplied, nor in abortedSet is a
	// MissingDependency error (spec §4.A).
	FindMissing(header *types.BatchHeader, supplied map[types.ID][]byte, abortedSet map[types.ID]struct{}) (map[types.ID][]byte, error)

	// Insert records that certID references every transmission ID in
	// ids and abortedIDs, consuming bodies from missingBodies for any
	// transmission not already resident. Never fails: a missing body
	// for an uncontained transmission is logged, not returned as an
	// error (spec §4.A).
	Insert(certID types.ID, ids []types.TransmissionID, abortedIDs []types.TransmissionID, missingBodies map[types.ID][]byte)

	// Remove drops certID from the ref-set of every transmission ID in
	// ids; entries whose ref-set empties are deleted. Over-removal is a
	// silent no-op.
	Remove(certID types.ID, ids []types.TransmissionID)
}
