// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package durable implements storage.Service over a
// github.com/luxfi/database key-value store, for storage_mode=production
// (spec §6). Grounded on engine/dag/state/state.go's mu-guarded
// database.Database field: the writer lock serializes the
// read-modify-write sequences Insert/Remove need, reads take the reader
// lock, and the database itself holds the actual bytes.
package durable

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/metrics"
	"github.com/aleobft/core/storage"
	"github.com/aleobft/core/types"
	"github.com/luxfi/database"
	"github.com/luxfi/log"
)

var _ storage.Service = (*Store)(nil)

const (
	liveKeyPrefix    = byte(0x01)
	abortedKeyPrefix = byte(0x02)
)

// Store is the durable Storage Service, backed by a database.Database
// key-value store. Insert and Remove are serialized behind the writer
// lock; Contains, Get, FindMissing and RefCount take the reader lock.
// The database provides persistence, not concurrency control, the way
// engine/dag/state/state.go pairs a sync.RWMutex with its
// database.Database field.
type Store struct {
	mu       sync.RWMutex
	db       database.Database
	log      log.Logger
	missing  prometheusCounter
	inserted prometheusCounter
}

type prometheusCounter interface {
	Inc()
}

// New wraps db as a Storage Service.
func New(db database.Database, logger log.Logger, m *metrics.Metrics) *Store {
	s := &Store{db: db, log: logger}
	if m != nil {
		s.missing = m.Counter("storage", "missing_bodies_total", "bodies logged missing on insert")
		s.inserted = m.Counter("storage", "transmissions_inserted_total", "new transmission bodies inserted")
	}
	return s
}

func liveKey(id types.ID) []byte {
	return append([]byte{liveKeyPrefix}, id[:]...)
}

func abortedKey(id types.ID) []byte {
	return append([]byte{abortedKeyPrefix}, id[:]...)
}

// entry is the on-disk encoding of a ref-counted value: a 4-byte
// big-endian ref count, that many 32-byte certificate IDs, then
// whatever body bytes remain (empty for aborted entries, which track
// only ref-counts).
func encodeEntry(refs map[types.ID]struct{}, body []byte) []byte {
	buf := make([]byte, 4, 4+len(refs)*len(types.ID{})+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(refs)))
	for ref := range refs {
		buf = append(buf, ref[:]...)
	}
	buf = append(buf, body...)
	return buf
}

func decodeEntry(raw []byte) (map[types.ID]struct{}, []byte, error) {
	if len(raw) < 4 {
		return nil, nil, fmt.Errorf("storage: truncated entry (len=%d)", len(raw))
	}
	count := binary.BigEndian.Uint32(raw[:4])
	raw = raw[4:]
	var idLen int
	refs := make(map[types.ID]struct{}, count)
	for i := uint32(0); i < count; i++ {
		var id types.ID
		idLen = len(id)
		if len(raw) < idLen {
			return nil, nil, fmt.Errorf("storage: truncated entry ref list")
		}
		copy(id[:], raw[:idLen])
		refs[id] = struct{}{}
		raw = raw[idLen:]
	}
	return refs, raw, nil
}

// has reports whether key is present, panicking on any error other
// than the key simply being absent: a database.Database.Has call that
// fails for a real IO reason must never be read back as "not present"
// (spec §7: storage IO is fatal, the node halts rather than risk
// forking on a read it can't trust).
func (s *Store) has(key []byte) bool {
	ok, err := s.db.Has(key)
	s.fatalOnIOError("has", err)
	return ok
}

// Contains implements storage.Service.
func (s *Store) Contains(id types.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.has(liveKey(id)) {
		return true
	}
	return s.has(abortedKey(id))
}

// Get implements storage.Service.
func (s *Store) Get(id types.ID) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := s.db.Get(liveKey(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, false
	}
	s.fatalOnIOError("get", err)
	_, body, err := decodeEntry(raw)
	if err != nil {
		s.fatal("get", fmt.Errorf("decoding stored entry for %s: %w", id, err))
	}
	return body, true
}

// FindMissing implements storage.Service.
func (s *Store) FindMissing(header *types.BatchHeader, supplied map[types.ID][]byte, abortedSet map[types.ID]struct{}) (map[types.ID][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[types.ID][]byte)
	for _, tid := range header.TransmissionIDs {
		id := tid.ID()
		if s.has(liveKey(id)) {
			continue
		}
		if body, ok := supplied[id]; ok {
			out[id] = body
			continue
		}
		if _, ok := abortedSet[id]; ok {
			continue
		}
		if s.has(abortedKey(id)) {
			continue
		}
		return nil, fmt.Errorf("storage: missing transmission %s: %w", id, corerr.ErrMissingDependency)
	}
	return out, nil
}

// Insert implements storage.Service.
func (s *Store) Insert(certID types.ID, transmissionIDs []types.TransmissionID, abortedIDs []types.TransmissionID, missingBodies map[types.ID][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tid := range transmissionIDs {
		id := tid.ID()
		key := liveKey(id)
		refs, body, err := s.readEntry(key)
		if errors.Is(err, database.ErrNotFound) {
			refs = make(map[types.ID]struct{})
			newBody, have := missingBodies[id]
			if !have {
				if s.log != nil {
					s.log.Warn("inserting certificate referencing uncontained transmission with no supplied body",
						"certificateID", certID, "transmissionID", id)
				}
				if s.missing != nil {
					s.missing.Inc()
				}
			}
			body = newBody
			if s.inserted != nil {
				s.inserted.Inc()
			}
		} else {
			s.fatalOnIOError("get", err)
		}
		refs[certID] = struct{}{}
		s.fatalOnIOError("put", s.db.Put(key, encodeEntry(refs, body)))
	}

	for _, tid := range abortedIDs {
		id := tid.ID()
		key := abortedKey(id)
		refs, _, err := s.readEntry(key)
		if errors.Is(err, database.ErrNotFound) {
			refs = make(map[types.ID]struct{})
		} else {
			s.fatalOnIOError("get", err)
		}
		refs[certID] = struct{}{}
		s.fatalOnIOError("put", s.db.Put(key, encodeEntry(refs, nil)))
	}
}

// Remove implements storage.Service.
func (s *Store) Remove(certID types.ID, transmissionIDs []types.TransmissionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tid := range transmissionIDs {
		id := tid.ID()
		s.removeRef(liveKey(id), certID)
		s.removeRef(abortedKey(id), certID)
	}
}

func (s *Store) removeRef(key []byte, certID types.ID) {
	refs, body, err := s.readEntry(key)
	if errors.Is(err, database.ErrNotFound) {
		return
	}
	s.fatalOnIOError("get", err)
	delete(refs, certID)
	if len(refs) == 0 {
		s.fatalOnIOError("delete", s.db.Delete(key))
		return
	}
	s.fatalOnIOError("put", s.db.Put(key, encodeEntry(refs, body)))
}

// readEntry returns database.ErrNotFound unwrapped so callers can tell
// a genuinely absent key from a storage-IO failure; it never swallows
// or reclassifies the underlying error.
func (s *Store) readEntry(key []byte) (map[types.ID]struct{}, []byte, error) {
	raw, err := s.db.Get(key)
	if err != nil {
		return nil, nil, err
	}
	refs, body, err := decodeEntry(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", corerr.ErrStorageIO, err)
	}
	return refs, body, nil
}

// fatalOnIOError panics when err is a genuine storage failure rather
// than nil or database.ErrNotFound, per spec §7/§9: storage IO is
// fatal and the node halts rather than risk forking on a write it
// can't confirm or a read it can't trust.
func (s *Store) fatalOnIOError(op string, err error) {
	if err == nil {
		return
	}
	s.fatal(op, err)
}

func (s *Store) fatal(op string, err error) {
	if s.log != nil {
		s.log.Error("durable storage io failure, halting node", "op", op, "error", err)
	}
	panic(fmt.Errorf("storage: %s: %w: %w", op, corerr.ErrStorageIO, err))
}

// RefCount returns the number of certificates currently referencing id,
// used by tests to assert the storage invariants of spec §8.
func (s *Store) RefCount(id types.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs, _, err := s.readEntry(liveKey(id))
	if err == nil {
		return len(refs)
	}
	if !errors.Is(err, database.ErrNotFound) {
		s.fatal("get", err)
	}
	refs, _, err = s.readEntry(abortedKey(id))
	if err == nil {
		return len(refs)
	}
	if !errors.Is(err, database.ErrNotFound) {
		s.fatal("get", err)
	}
	return 0
}
