// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bft implements the BFT Orderer (spec §4.F): leader election,
// anchor commit, deterministic sub-DAG flattening, and garbage
// collection over the certificate DAG. Grounded on
// engine/fastdag/engine.go's round-gated Decider/tryDecide shape
// (generalized from MYSTICETI's uncertified fast-path decisions to
// Bullshark-style anchor commit) and dag/dag.go's two-flat-maps DAG
// storage design.
package bft

import (
	"sync"

	"github.com/aleobft/core/types"
)

// DAG is the certificate store: two flat maps the way dag/dag.go holds
// blocks, generalized from block IDs to certificate IDs keyed
// additionally by round and author for the quorum/anchor lookups the
// orderer needs.
type DAG struct {
	mu       sync.RWMutex
	certs    map[types.ID]*types.Certificate
	byRound  map[uint64]map[types.NodeID]types.ID
	maxRound uint64
}

// NewDAG creates an empty certificate DAG.
func NewDAG() *DAG {
	return &DAG{
		certs:   make(map[types.ID]*types.Certificate),
		byRound: make(map[uint64]map[types.NodeID]types.ID),
	}
}

// Insert adds cert to the DAG. Per spec §3's equivocation invariant,
// callers (Primary) must not call Insert twice for the same
// (round, author) pair with different certificate IDs — the DAG itself
// does not re-check equivocation, it only stores what it is given.
func (d *DAG) Insert(cert *types.Certificate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := cert.ID()
	d.certs[id] = cert

	round := cert.Round()
	byAuthor, ok := d.byRound[round]
	if !ok {
		byAuthor = make(map[types.NodeID]types.ID)
		d.byRound[round] = byAuthor
	}
	byAuthor[cert.Author()] = id

	if round > d.maxRound {
		d.maxRound = round
	}
}

// Get returns the certificate for id, if stored.
func (d *DAG) Get(id types.ID) (*types.Certificate, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.certs[id]
	return c, ok
}

// CertificatesAtRound returns the author->certificate-ID map for
// round, a defensive copy safe for the caller to range over.
func (d *DAG) CertificatesAtRound(round uint64) map[types.NodeID]types.ID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	byAuthor := d.byRound[round]
	out := make(map[types.NodeID]types.ID, len(byAuthor))
	for a, id := range byAuthor {
		out[a] = id
	}
	return out
}

// GC drops every certificate at a round <= horizon. Called once an
// anchor at round r commits, with horizon = r - GC_DEPTH (spec §4.F).
func (d *DAG) GC(horizon uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for round, byAuthor := range d.byRound {
		if round > horizon {
			continue
		}
		for _, id := range byAuthor {
			delete(d.certs, id)
		}
		delete(d.byRound, round)
	}
}
