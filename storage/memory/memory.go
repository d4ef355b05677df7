// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memory implements storage.Service as an in-memory, single
// writer-lock store for tests and storage_mode=development. Grounded on
// engine/dag/state/state.go's map+mutex shape, generalized from DAG
// vertices to ref-counted transmission bodies per
// original_source/node/bft/storage-service/src/memory.rs.
package memory

import (
	"fmt"
	"sync"

	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/metrics"
	"github.com/aleobft/core/storage"
	"github.com/aleobft/core/types"
	"github.com/luxfi/log"
)

var _ storage.Service = (*Store)(nil)

type entry struct {
	body []byte
	refs map[types.ID]struct{}
}

// Store is the in-memory Storage Service. Insert and Remove are atomic
// under a single writer lock; Contains, Get, FindMissing and RefCount
// take the reader lock only (spec §4.A "Concurrency").
type Store struct {
	mu       sync.RWMutex
	live     map[types.ID]*entry
	aborted  map[types.ID]*entry
	log      log.Logger
	missing  prometheusCounter
	inserted prometheusCounter
}

type prometheusCounter interface {
	Inc()
}

// New creates an empty in-memory store.
func New(log log.Logger, m *metrics.Metrics) *Store {
	s := &Store{
		live:    make(map[types.ID]*entry),
		aborted: make(map[types.ID]*entry),
		log:     log,
	}
	if m != nil {
		s.missing = m.Counter("storage", "missing_bodies_total", "bodies logged missing on insert")
		s.inserted = m.Counter("storage", "transmissions_inserted_total", "new transmission bodies inserted")
	}
	return s
}

// Contains implements storage.Service.
func (s *Store) Contains(id types.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.live[id]; ok {
		return true
	}
	_, ok := s.aborted[id]
	return ok
}

// Get implements storage.Service.
func (s *Store) Get(id types.ID) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.live[id]
	if !ok {
		return nil, false
	}
	return e.body, true
}

// FindMissing implements storage.Service.
func (s *Store) FindMissing(header *types.BatchHeader, supplied map[types.ID][]byte, abortedSet map[types.ID]struct{}) (map[types.ID][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[types.ID][]byte)
	for _, tid := range header.TransmissionIDs {
		id := tid.ID()
		if _, ok := s.live[id]; ok {
			continue
		}
		if body, ok := supplied[id]; ok {
			out[id] = body
			continue
		}
		if _, ok := abortedSet[id]; ok {
			continue
		}
		if _, ok := s.aborted[id]; ok {
			continue
		}
		return nil, fmt.Errorf("storage: missing transmission %s: %w", id, corerr.ErrMissingDependency)
	}
	return out, nil
}

// Insert implements storage.Service. Never fails: a missing body for an
// uncontained transmission is logged with the certificate ID rather
// than returned as an error (spec §4.A).
func (s *Store) Insert(certID types.ID, transmissionIDs []types.TransmissionID, abortedIDs []types.TransmissionID, missingBodies map[types.ID][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tid := range transmissionIDs {
		id := tid.ID()
		e, ok := s.live[id]
		if !ok {
			body, have := missingBodies[id]
			if !have {
				if s.log != nil {
					s.log.Warn("inserting certificate referencing uncontained transmission with no supplied body",
						"certificateID", certID, "transmissionID", id)
				}
				if s.missing != nil {
					s.missing.Inc()
				}
			}
			e = &entry{body: body, refs: make(map[types.ID]struct{})}
			s.live[id] = e
			if s.inserted != nil {
				s.inserted.Inc()
			}
		}
		e.refs[certID] = struct{}{}
	}

	for _, tid := range abortedIDs {
		id := tid.ID()
		e, ok := s.aborted[id]
		if !ok {
			e = &entry{refs: make(map[types.ID]struct{})}
			s.aborted[id] = e
		}
		e.refs[certID] = struct{}{}
	}
}

// Remove implements storage.Service. Over-removal (certID not actually
// referencing id) is a silent no-op.
func (s *Store) Remove(certID types.ID, transmissionIDs []types.TransmissionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tid := range transmissionIDs {
		id := tid.ID()
		if e, ok := s.live[id]; ok {
			delete(e.refs, certID)
			if len(e.refs) == 0 {
				delete(s.live, id)
			}
		}
		if e, ok := s.aborted[id]; ok {
			delete(e.refs, certID)
			if len(e.refs) == 0 {
				delete(s.aborted, id)
			}
		}
	}
}

// RefCount returns the number of certificates currently referencing id,
// used by tests to assert the storage invariants of spec §8.
func (s *Store) RefCount(id types.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.live[id]; ok {
		return len(e.refs)
	}
	if e, ok := s.aborted[id]; ok {
		return len(e.refs)
	}
	return 0
}
