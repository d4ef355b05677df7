// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package worker implements the Worker (spec §4.D): one shard of the
// mempool, owning a Ready Queue, a Pending Fetcher, and a reference to
// the shared Storage Service. Grounded on
// original_source/node/bft/tests/components/worker.rs for the
// operation surface and engine/dag/getter/getter.go for the
// fetch-on-demand idiom.
package worker

import (
	"crypto/sha256"

	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/metrics"
	"github.com/aleobft/core/pending"
	"github.com/aleobft/core/ready"
	"github.com/aleobft/core/storage"
	"github.com/aleobft/core/types"
	"github.com/luxfi/log"
)

// Validator checks admissibility of a transmission's contents,
// independent of the ID<->body hash agreement Worker always enforces.
// Puzzle solutions are checked against the current epoch challenge and
// proof target; transactions against a restrictions-ID predicate
// (spec §4.D "Validation policy"). Kept as a narrow collaborator
// interface since both concerns are explicitly out of this repo's
// scope.
type Validator interface {
	ValidateSolution(body []byte) error
	ValidateTransaction(body []byte) error
}

// Gossiper broadcasts a transmission to peers not already known to
// have it.
type Gossiper interface {
	Gossip(id types.ID, kind types.TransmissionKind, body []byte)
}

// Worker is one shard of the mempool.
type Worker struct {
	ready    *ready.Queue
	pending  *pending.Fetcher
	storage  storage.Service
	validate Validator
	gossip   Gossiper
	log      log.Logger

	acceptedCount prometheusCounter
	rejectedCount prometheusCounter
}

type prometheusCounter interface {
	Inc()
}

// New creates a Worker over the given Ready Queue, Pending Fetcher,
// and shared Storage Service.
func New(rq *ready.Queue, pf *pending.Fetcher, svc storage.Service, v Validator, g Gossiper, logger log.Logger, m *metrics.Metrics) *Worker {
	w := &Worker{
		ready:    rq,
		pending:  pf,
		storage:  svc,
		validate: v,
		gossip:   g,
		log:      logger,
	}
	if m != nil {
		w.acceptedCount = m.Counter("worker", "transmissions_accepted_total", "transmissions admitted to the ready queue")
		w.rejectedCount = m.Counter("worker", "transmissions_rejected_total", "transmissions rejected on hash or validation failure")
	}
	return w
}

// ProcessTransmissionFromPeer validates id against body's canonical
// hash, then — if valid and not already present — admits it to the
// Ready Queue and gossips it onward. Equivocating or malformed
// transmissions are a protocol violation (spec §4.D, §7).
func (w *Worker) ProcessTransmissionFromPeer(peer types.NodeID, id types.TransmissionID, body []byte) error {
	if id.ContentHash != bodyHash(body) {
		w.reject()
		return corerr.ErrProtocolViolation
	}

	if err := w.validateKind(id.Kind, body); err != nil {
		w.reject()
		return err
	}

	contentID := id.ID()
	if w.storage.Contains(contentID) {
		return nil
	}

	if !w.ready.Insert(contentID, id.Kind, body) {
		return nil
	}
	w.accept()

	if w.gossip != nil {
		w.gossip.Gossip(contentID, id.Kind, body)
	}
	return nil
}

func (w *Worker) validateKind(kind types.TransmissionKind, body []byte) error {
	if w.validate == nil {
		return nil
	}
	switch kind {
	case types.KindSolution:
		return w.validate.ValidateSolution(body)
	case types.KindTransaction:
		return w.validate.ValidateTransaction(body)
	default:
		return nil
	}
}

// bodyHash computes the canonical content hash a transmission's body
// must match, enforcing ID<->body agreement independent of whether a
// Validator collaborator is configured (spec §4.D: "provers with no
// execution capability ... must still enforce ID<->body hash
// agreement").
func bodyHash(body []byte) types.ID {
	return types.ID(sha256.Sum256(body))
}

// GetOrFetchTransmission delegates to the Pending Fetcher, resolving
// immediately from Storage if the transmission is already resident.
func (w *Worker) GetOrFetchTransmission(peer types.NodeID, id types.ID) <-chan pending.Result {
	return w.pending.GetOrFetch(peer, id, func() ([]byte, bool) {
		return w.storage.Get(id)
	})
}

// ContainsTransmission queries Storage for id's residency.
func (w *Worker) ContainsTransmission(id types.ID) bool {
	return w.storage.Contains(id)
}

func (w *Worker) accept() {
	if w.acceptedCount != nil {
		w.acceptedCount.Inc()
	}
}

func (w *Worker) reject() {
	if w.rejectedCount != nil {
		w.rejectedCount.Inc()
	}
}
