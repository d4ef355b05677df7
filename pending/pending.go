// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pending implements the Pending / Fetcher (spec §4.C): a
// bounded-redundancy request scheduler that parks callbacks for
// missing transmissions and certificates until they are delivered or
// time out. Grounded on networking/tracker/tracker.go's per-node
// resource-tracking shape and poll/poll.go's request-keyed map of
// in-flight state resolved exactly once; the timeout sweep is modeled
// on networking/timeout/manager.go's deadline-ordered expiry.
package pending

import (
	"sync"
	"time"

	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/metrics"
	"github.com/aleobft/core/set"
	"github.com/aleobft/core/types"
	"github.com/luxfi/log"
)

// Result is what a parked Future<body> resolves to: either a body or
// an error (delivery never races a timeout — each callback fires
// exactly once).
type Result struct {
	Body []byte
	Err  error
}

// Requester is the narrow collaborator the Fetcher uses to actually
// send a fetch request to a peer; Worker/Primary supply the real
// network-backed implementation.
type Requester interface {
	RequestFetch(peer types.NodeID, id types.ID)
}

type objectState struct {
	callbacks        []chan Result
	attemptedPeers   set.Set[types.NodeID]
	firstRequestTime time.Time
}

// Fetcher is the Pending layer. maxRedundancy bounds the number of
// distinct peers simultaneously asked for a given object (spec §4.C).
type Fetcher struct {
	mu            sync.Mutex
	entries       map[types.ID]*objectState
	maxRedundancy int
	requester     Requester
	log           log.Logger

	parkedGauge  prometheusGauge
	expiredCount prometheusCounter
}

type prometheusGauge interface {
	Inc()
	Dec()
}

type prometheusCounter interface {
	Inc()
}

// New creates a Fetcher bounded to maxRedundancy simultaneous distinct
// peers per object. m may be nil in tests.
func New(maxRedundancy int, requester Requester, logger log.Logger, m *metrics.Metrics) *Fetcher {
	if maxRedundancy < 1 {
		maxRedundancy = 1
	}
	f := &Fetcher{
		entries:       make(map[types.ID]*objectState),
		maxRedundancy: maxRedundancy,
		requester:     requester,
		log:           logger,
	}
	if m != nil {
		f.parkedGauge = m.Gauge("pending", "parked_objects", "objects with at least one parked callback")
		f.expiredCount = m.Counter("pending", "expired_total", "pending fetches that hit MAX_FETCH_TIMEOUT")
	}
	return f
}

// GetOrFetch registers a callback for id. If body is already resident
// (per residentBody), the returned channel resolves immediately.
// Otherwise a callback is parked and, if peer has not already been
// attempted and attemptedPeers has not reached maxRedundancy, a fetch
// request is sent to peer.
func (f *Fetcher) GetOrFetch(peer types.NodeID, id types.ID, residentBody func() ([]byte, bool)) <-chan Result {
	ch := make(chan Result, 1)

	if body, ok := residentBody(); ok {
		ch <- Result{Body: body}
		return ch
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.entries[id]
	if !ok {
		st = &objectState{
			attemptedPeers:   set.Of[types.NodeID](),
			firstRequestTime: time.Now(),
		}
		f.entries[id] = st
		if f.parkedGauge != nil {
			f.parkedGauge.Inc()
		}
	}
	st.callbacks = append(st.callbacks, ch)

	if !st.attemptedPeers.Contains(peer) && st.attemptedPeers.Len() < f.maxRedundancy {
		st.attemptedPeers.Add(peer)
		if f.requester != nil {
			f.requester.RequestFetch(peer, id)
		}
	}

	return ch
}

// Deliver fires every parked callback for id with body and drops the
// object's pending state. It does not store body anywhere; the Fetcher
// holds no storage reference.
func (f *Fetcher) Deliver(id types.ID, body []byte) {
	f.mu.Lock()
	st, ok := f.entries[id]
	if ok {
		delete(f.entries, id)
		if f.parkedGauge != nil {
			f.parkedGauge.Dec()
		}
	}
	f.mu.Unlock()

	if !ok {
		return
	}
	for _, ch := range st.callbacks {
		ch <- Result{Body: body}
		close(ch)
	}
}

// ExpireOlderThan fails every callback of objects whose
// firstRequestTime is older than deadline with corerr.ErrFetchTimeout.
func (f *Fetcher) ExpireOlderThan(deadline time.Time) {
	f.mu.Lock()
	var expired []*objectState
	for id, st := range f.entries {
		if st.firstRequestTime.Before(deadline) {
			expired = append(expired, st)
			delete(f.entries, id)
			if f.parkedGauge != nil {
				f.parkedGauge.Dec()
			}
		}
	}
	f.mu.Unlock()

	for _, st := range expired {
		if f.expiredCount != nil {
			f.expiredCount.Inc()
		}
		for _, ch := range st.callbacks {
			ch <- Result{Err: corerr.ErrFetchTimeout}
			close(ch)
		}
		if f.log != nil {
			f.log.Debug("pending fetch expired", "callbacks", len(st.callbacks))
		}
	}
}

// AttemptedPeers returns a copy of the peers currently attempted for
// id, used by tests to assert the redundancy-bound invariant.
func (f *Fetcher) AttemptedPeers(id types.ID) []types.NodeID {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.entries[id]
	if !ok {
		return nil
	}
	return st.attemptedPeers.List()
}

// Pending reports whether id currently has parked callbacks.
func (f *Fetcher) Pending(id types.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[id]
	return ok
}
