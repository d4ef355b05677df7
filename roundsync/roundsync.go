// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package roundsync resolves spec §9's Open Question #1 (certificate
// backfill): a round-indexed locator exchange that tells a node which
// certificates its peers hold so it can target fetch requests at rounds
// it is missing, plus light fork detection against Ping/Pong locators.
// Genesis/block-sync is explicitly out of scope (spec §1); this package
// only ever reasons about rounds and certificate IDs already inside the
// DAG-BFT core.
//
// Grounded on original_source/node/sync/src/round_sync.rs's
// round-to-certificate / certificate-to-round / certificate-to-peer
// triple of maps and its GC-round watermark.
package roundsync

import (
	"sync"

	"github.com/aleobft/core/bft"
	"github.com/aleobft/core/set"
	"github.com/aleobft/core/types"
)

// Locators is one peer's advertised view of which certificate IDs it
// holds at which rounds.
type Locators struct {
	Certificates map[uint64][]types.ID
}

// Tracker accumulates per-peer round locators and answers which
// certificates are missing locally but corroborated by enough peers to
// be worth fetching. Not safe to copy; share by pointer.
type Tracker struct {
	mu sync.RWMutex

	roundToCerts map[uint64]set.Set[types.ID]
	certToRound  map[types.ID]uint64
	certToPeers  map[types.ID]set.Set[types.NodeID]

	gcRound uint64
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		roundToCerts: make(map[uint64]set.Set[types.ID]),
		certToRound:  make(map[types.ID]uint64),
		certToPeers:  make(map[types.ID]set.Set[types.NodeID]),
	}
}

// UpdateLocators merges peer's advertised locators into the tracker.
// Rounds at or below the current GC watermark are ignored.
func (t *Tracker) UpdateLocators(peer types.NodeID, loc Locators) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for round, certIDs := range loc.Certificates {
		if round <= t.gcRound {
			continue
		}
		for _, certID := range certIDs {
			certs, ok := t.roundToCerts[round]
			if !ok {
				certs = set.Of[types.ID]()
				t.roundToCerts[round] = certs
			}
			certs.Add(certID)
			t.certToRound[certID] = round

			peers, ok := t.certToPeers[certID]
			if !ok {
				peers = set.Of[types.NodeID]()
				t.certToPeers[certID] = peers
			}
			peers.Add(peer)
		}
	}
}

// FindMissing performs GC up to nextGCRound, then returns the
// certificate IDs, grouped by round, that the tracker has heard about
// from at least thresholdPeers distinct peers but which the caller
// reports not having (via resident). This bounds backfill requests to
// certificates with enough corroboration to be worth fetching, the way
// the original round-sync only surfaces IDs with sufficient IP overlap.
func (t *Tracker) FindMissing(resident func(round uint64, certID types.ID) bool, nextGCRound uint64, thresholdPeers int) map[uint64][]types.ID {
	t.gc(nextGCRound)

	t.mu.RLock()
	defer t.mu.RUnlock()

	missing := make(map[uint64][]types.ID)
	for round, certs := range t.roundToCerts {
		for certID := range certs {
			if resident(round, certID) {
				continue
			}
			if t.certToPeers[certID].Len() < thresholdPeers {
				continue
			}
			missing[round] = append(missing[round], certID)
		}
	}
	return missing
}

// PeersFor returns the distinct peers known to hold certID.
func (t *Tracker) PeersFor(certID types.ID) []types.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	peers, ok := t.certToPeers[certID]
	if !ok {
		return nil
	}
	return peers.List()
}

// GCRound returns the current GC watermark (inclusive).
func (t *Tracker) GCRound() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gcRound
}

// gc drops every round at or below nextGCRound and advances the
// watermark. A no-op if nextGCRound does not advance the watermark.
func (t *Tracker) gc(nextGCRound uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if nextGCRound <= t.gcRound {
		return
	}
	for round, certs := range t.roundToCerts {
		if round > nextGCRound {
			continue
		}
		for certID := range certs {
			delete(t.certToRound, certID)
			delete(t.certToPeers, certID)
		}
		delete(t.roundToCerts, round)
	}
	t.gcRound = nextGCRound
}

// DetectFork reports whether peerCertID, advertised by peerAuthor for
// round, conflicts with the local DAG's own view of that round: the
// local DAG already holds a certificate from that same author at that
// round, and it isn't peerCertID. A peer advertising a certificate from
// an author the local DAG has no opinion on yet is never flagged —
// that's the peer legitimately being ahead, not a fork — since two
// distinct honest authors can each certify their own header in the same
// round without conflicting. Grounded on the consistency check in
// node/router/src/helpers/sync.rs's check_consistent_block_locators,
// narrowed from block history to a single author/round/certificate-ID
// triple.
func DetectFork(dag *bft.DAG, round uint64, peerAuthor types.NodeID, peerCertID types.ID) bool {
	ours := dag.CertificatesAtRound(round)
	ourID, ok := ours[peerAuthor]
	if !ok {
		return false
	}
	return ourID != peerCertID
}
