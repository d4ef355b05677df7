// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ready implements the Ready Queue (spec §4.B): the ordered
// buffer of admitted transmissions awaiting inclusion in the next
// batch proposal. Grounded on
// original_source/node/bft/src/helpers/ready.rs for the operation
// contract, expressed in the map+mutex idiom of
// engine/dag/state/state.go.
package ready

import (
	"sync"

	"github.com/aleobft/core/metrics"
	"github.com/aleobft/core/types"
)

type entry struct {
	body []byte
	kind types.TransmissionKind
}

// Queue is the ordered, per-kind-counted buffer of admitted
// transmission bodies.
type Queue struct {
	mu     sync.Mutex
	bodies map[types.ID]*entry
	order  []types.ID

	counters map[types.TransmissionKind]prometheusGauge
}

type prometheusGauge interface {
	Inc()
	Dec()
}

// New creates an empty Ready Queue. m may be nil in tests.
func New(m *metrics.Metrics) *Queue {
	q := &Queue{
		bodies: make(map[types.ID]*entry),
	}
	if m != nil {
		q.counters = map[types.TransmissionKind]prometheusGauge{
			types.KindRatification: m.Gauge("ready", "ratifications", "ratification markers waiting in the ready queue"),
			types.KindSolution:     m.Gauge("ready", "solutions", "puzzle solutions waiting in the ready queue"),
			types.KindTransaction:  m.Gauge("ready", "transactions", "transactions waiting in the ready queue"),
		}
	}
	return q
}

// Insert admits id with the given kind and body, preserving insertion
// order. Returns true iff id was not already present.
func (q *Queue) Insert(id types.ID, kind types.TransmissionKind, body []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.bodies[id]; ok {
		return false
	}
	q.bodies[id] = &entry{body: body, kind: kind}
	q.order = append(q.order, id)
	q.incr(kind)
	return true
}

// Contains reports whether id is currently admitted.
func (q *Queue) Contains(id types.ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.bodies[id]
	return ok
}

// Get returns the body for id, if admitted.
func (q *Queue) Get(id types.ID) ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.bodies[id]
	if !ok {
		return nil, false
	}
	return e.body, true
}

// Len reports the number of entries currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Drain removes up to n of the oldest entries and returns them.
func (q *Queue) Drain(n int) map[types.ID][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.order) {
		n = len(q.order)
	}
	out := make(map[types.ID][]byte, n)
	for i := 0; i < n; i++ {
		id := q.order[i]
		e := q.bodies[id]
		out[id] = e.body
		delete(q.bodies, id)
		q.decr(e.kind)
	}
	q.order = q.order[n:]
	return out
}

// ClearSolutions removes every entry whose kind is KindSolution, used
// when the puzzle epoch rolls over and pending solutions go stale.
func (q *Queue) ClearSolutions() {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.order[:0:0]
	for _, id := range q.order {
		e := q.bodies[id]
		if e.kind == types.KindSolution {
			delete(q.bodies, id)
			q.decr(e.kind)
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
}

func (q *Queue) incr(kind types.TransmissionKind) {
	if g, ok := q.counters[kind]; ok {
		g.Inc()
	}
}

func (q *Queue) decr(kind types.TransmissionKind) {
	if g, ok := q.counters[kind]; ok {
		g.Dec()
	}
}
