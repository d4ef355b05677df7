// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package types holds the canonical data model of the DAG-BFT core:
// transmissions, batch headers, signatures, and certificates (spec §3).
package types

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"time"

	"github.com/luxfi/ids"
)

// Core identifier aliases, the way types.ID = ids.ID aliases the
// underlying identifier package everywhere else in this tree.
type (
	ID     = ids.ID
	NodeID = ids.NodeID
)

// TransmissionKind distinguishes the three units of inclusion spec §3
// names: a ratification marker, a puzzle solution, or a transaction.
type TransmissionKind uint8

const (
	KindRatification TransmissionKind = iota
	KindSolution
	KindTransaction
)

func (k TransmissionKind) String() string {
	switch k {
	case KindRatification:
		return "ratification"
	case KindSolution:
		return "solution"
	case KindTransaction:
		return "transaction"
	default:
		return "unknown"
	}
}

// TransmissionID is the canonical identity of a transmission:
// (kind, content hash, checksum). It is comparable and safe to use as a
// map key.
type TransmissionID struct {
	Kind        TransmissionKind
	ContentHash ID
	Checksum    uint32
}

// ID folds the triple into a single content-addressed identifier used
// for storage keys, fetch requests, and batch-header membership.
func (t TransmissionID) ID() ID {
	var buf [1 + 32 + 4]byte
	buf[0] = byte(t.Kind)
	copy(buf[1:33], t.ContentHash[:])
	binary.BigEndian.PutUint32(buf[33:], t.Checksum)
	return ID(sha256.Sum256(buf[:]))
}

// Transmission is an admitted unit of inclusion: its identity plus body.
// Transmissions are immutable once admitted (spec §3).
type Transmission struct {
	TransmissionID
	Body []byte
}

// BatchHeader is one validator's proposal for round Round. Fields match
// spec §3 exactly: author, round, timestamp, committee identifier,
// ordered transmission IDs, previous-certificate IDs, an optional
// aborted-transmission set, and the author's signature over the rest.
type BatchHeader struct {
	Author                 NodeID
	Round                  uint64
	Timestamp              time.Time
	CommitteeID            ID
	TransmissionIDs        []TransmissionID
	PreviousCertificateIDs []ID
	AbortedTransmissionIDs []TransmissionID
	AuthorSignature        []byte
}

// Hash is the header hash: deterministic over every field except the
// author signature itself, so it can be signed and independently
// recomputed by verifiers.
func (h *BatchHeader) Hash() ID {
	hasher := sha256.New()
	var u64 [8]byte

	hasher.Write(h.Author[:])
	binary.BigEndian.PutUint64(u64[:], h.Round)
	hasher.Write(u64[:])
	binary.BigEndian.PutUint64(u64[:], uint64(h.Timestamp.UnixNano()))
	hasher.Write(u64[:])
	hasher.Write(h.CommitteeID[:])

	for _, tid := range h.TransmissionIDs {
		id := tid.ID()
		hasher.Write(id[:])
	}

	// Previous-certificate IDs are sorted so two logically identical
	// headers built from differently-ordered inputs hash identically.
	prev := append([]ID(nil), h.PreviousCertificateIDs...)
	sort.Slice(prev, func(i, j int) bool { return lessID(prev[i], prev[j]) })
	for _, id := range prev {
		hasher.Write(id[:])
	}

	for _, tid := range h.AbortedTransmissionIDs {
		id := tid.ID()
		hasher.Write(id[:])
	}

	var out ID
	copy(out[:], hasher.Sum(nil))
	return out
}

func lessID(a, b ID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// LessID reports whether a sorts before b under the fixed byte-wise
// ordering spec §4.F's determinism requirement mandates for tie-breaks.
func LessID(a, b ID) bool { return lessID(a, b) }

// Signature is a validator's commitment to a batch header (spec §3):
// the signer, the header hash they signed, the signature bytes, and the
// time the signature was produced.
type Signature struct {
	Signer     NodeID
	HeaderHash ID
	Value      []byte
	Timestamp  time.Time
}

// Certificate is a batch header plus a quorum of signatures from
// distinct validators (spec §3). It is immutable once formed.
type Certificate struct {
	Header     BatchHeader
	Signatures []Signature
}

// ID is the deterministic certificate identifier: the hash of the
// header hash and the sorted signer set, per spec §3.
func (c *Certificate) ID() ID {
	signers := make([]NodeID, 0, len(c.Signatures))
	for _, s := range c.Signatures {
		signers = append(signers, s.Signer)
	}
	sort.Slice(signers, func(i, j int) bool {
		return lessNodeID(signers[i], signers[j])
	})

	hasher := sha256.New()
	headerHash := c.Header.Hash()
	hasher.Write(headerHash[:])
	for _, s := range signers {
		hasher.Write(s[:])
	}

	var out ID
	copy(out[:], hasher.Sum(nil))
	return out
}

func lessNodeID(a, b NodeID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// LessNodeID sorts validator keys under a fixed byte-wise ordering, used
// for both the certificate ID's signer-set canonicalization and
// sub-DAG tie-breaking (spec §4.F).
func LessNodeID(a, b NodeID) bool { return lessNodeID(a, b) }

// Round returns the header's round, a convenience accessor used
// throughout the DAG and orderer packages.
func (c *Certificate) Round() uint64 { return c.Header.Round }

// Author returns the certificate's proposing validator.
func (c *Certificate) Author() NodeID { return c.Header.Author }

// SignerSet returns the distinct set of signers on the certificate.
func (c *Certificate) SignerSet() map[NodeID]struct{} {
	out := make(map[NodeID]struct{}, len(c.Signatures))
	for _, s := range c.Signatures {
		out[s.Signer] = struct{}{}
	}
	return out
}
