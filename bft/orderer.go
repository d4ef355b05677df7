// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bft

import (
	"encoding/binary"
	"sort"

	"github.com/aleobft/core/committee"
	"github.com/aleobft/core/types"
)

// CommitBatch is one entry of the committed commit stream handed to
// the executor (spec §6): an anchor and its deterministically ordered
// sub-DAG.
type CommitBatch struct {
	Round              uint64
	AnchorCertificate  types.ID
	SubDAGCertificates []types.ID
}

// Orderer is the BFT Orderer (spec §4.F): leader election over the
// DAG, anchor commit, sub-DAG flattening, and GC. Safety-only — it
// never commits without the commit rule being satisfied, and simply
// waits (TryCommit returns nil) when quorum cannot be reached.
type Orderer struct {
	dag           *DAG
	gcDepth       uint64
	lastCommitted uint64 // last committed anchor round; 0 before genesis
	committed     map[types.ID]struct{}
}

// NewOrderer creates an Orderer over dag with the given GC depth
// (spec §4.F "Garbage collection").
func NewOrderer(dag *DAG, gcDepth uint64) *Orderer {
	return &Orderer{
		dag:       dag,
		gcDepth:   gcDepth,
		committed: make(map[types.ID]struct{}),
	}
}

// LeaderOf deterministically elects round's leader from c: identical
// on every honest node holding the same committee snapshot, per
// spec §4.F. Only even rounds have a meaningful leader schedule
// position (odd rounds never anchor).
func LeaderOf(round uint64, c *committee.Committee) types.NodeID {
	members := c.Members()
	hasher := committee.BatchHasher()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], round)
	hasher.Write(buf[:])
	cid := c.ID()
	hasher.Write(cid[:])
	sum := hasher.Sum(nil)

	var idx uint64
	for i := 0; i < 8 && i < len(sum); i++ {
		idx = idx<<8 | uint64(sum[i])
	}
	return members[idx%uint64(len(members))]
}

// TryCommit checks whether the anchor of even round r (the certificate
// authored by LeaderOf(r, c)) now commits: at least AvailabilityThreshold
// stake of round r+1's certificates reference it in their
// previous-certificate-IDs. If it commits, TryCommit also backfills any
// skipped anchors between the last committed round and r whose causal
// history the new anchor includes, and returns one CommitBatch per
// newly-committed anchor in increasing-round order. Returns nil if the
// anchor does not (yet) commit.
func (o *Orderer) TryCommit(r uint64, c *committee.Committee) []CommitBatch {
	if r%2 != 0 || r <= o.lastCommitted {
		return nil
	}

	anchorID, ok := o.dag.CertificatesAtRound(r)[LeaderOf(r, c)]
	if !ok {
		return nil // anchor itself not yet certified; wait
	}
	if !o.anchorReferenced(r, anchorID, c) {
		return nil
	}

	// Walk back over skipped even anchors, keeping only those whose
	// causal history the new anchor includes, in increasing order.
	var toCommit []struct {
		round  uint64
		anchor types.ID
	}
	closure := o.causalClosure(anchorID)
	for round := o.lastCommitted + 2; round < r; round += 2 {
		skippedAnchor, ok := o.dag.CertificatesAtRound(round)[LeaderOf(round, c)]
		if !ok {
			continue
		}
		if _, included := closure[skippedAnchor]; included {
			toCommit = append(toCommit, struct {
				round  uint64
				anchor types.ID
			}{round, skippedAnchor})
		}
	}
	toCommit = append(toCommit, struct {
		round  uint64
		anchor types.ID
	}{r, anchorID})

	batches := make([]CommitBatch, 0, len(toCommit))
	for _, a := range toCommit {
		batches = append(batches, o.flatten(a.round, a.anchor))
	}

	o.lastCommitted = r
	if r > o.gcDepth {
		o.dag.GC(r - o.gcDepth)
	}
	return batches
}

// anchorReferenced reports whether, among round r+1's certificates,
// stake >= AvailabilityThreshold references anchorID in their
// previous-certificate-IDs (spec §4.F "Anchor commit rule").
func (o *Orderer) anchorReferenced(r uint64, anchorID types.ID, c *committee.Committee) bool {
	next := o.dag.CertificatesAtRound(r + 1)
	var referencing []types.NodeID
	for author, certID := range next {
		cert, ok := o.dag.Get(certID)
		if !ok {
			continue
		}
		for _, prev := range cert.Header.PreviousCertificateIDs {
			if prev == anchorID {
				referencing = append(referencing, author)
				break
			}
		}
	}
	return c.HasAvailability(referencing)
}

// causalClosure is the BFS closure over previous-certificate-IDs
// starting from anchorID, restricted to certificates not already
// committed.
func (o *Orderer) causalClosure(anchorID types.ID) map[types.ID]struct{} {
	visited := make(map[types.ID]struct{})
	queue := []types.ID{anchorID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := visited[id]; seen {
			continue
		}
		if _, already := o.committed[id]; already {
			continue
		}
		cert, ok := o.dag.Get(id)
		if !ok {
			continue
		}
		visited[id] = struct{}{}
		queue = append(queue, cert.Header.PreviousCertificateIDs...)
	}
	return visited
}

// flatten produces the deterministically ordered sub-DAG for an
// anchor that has just committed: the causal closure, sorted by
// (round asc, author tie-break, certificate-ID asc) per spec §4.F's
// determinism requirement.
func (o *Orderer) flatten(round uint64, anchorID types.ID) CommitBatch {
	closure := o.causalClosure(anchorID)
	ids := make([]types.ID, 0, len(closure))
	for id := range closure {
		ids = append(ids, id)
		o.committed[id] = struct{}{}
	}

	sort.Slice(ids, func(i, j int) bool {
		ci, _ := o.dag.Get(ids[i])
		cj, _ := o.dag.Get(ids[j])
		if ci.Round() != cj.Round() {
			return ci.Round() < cj.Round()
		}
		if ci.Author() != cj.Author() {
			return types.LessNodeID(ci.Author(), cj.Author())
		}
		return types.LessID(ids[i], ids[j])
	})

	return CommitBatch{
		Round:              round,
		AnchorCertificate:  anchorID,
		SubDAGCertificates: ids,
	}
}
