// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package primary implements the Primary (spec §4.E): the
// per-validator DAG builder. Each Primary runs a state machine over
// rounds (Proposing -> GatheringSignatures -> CertifyingPeers ->
// Advancing), built on the shared certificate DAG from package bft.
// Grounded on engine/fastdag/engine.go's Engine struct shape
// (roundClockLoop/proposerLoop/decisionLoop goroutines over channels),
// the closest teacher analogue to a round-based DAG-BFT proposer,
// re-targeted from MYSTICETI uncertified-DAG block proposals to
// certified batch-header/certificate rounds.
package primary

import (
	"fmt"
	"time"

	"github.com/aleobft/core/bft"
	"github.com/aleobft/core/committee"
	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/metrics"
	"github.com/aleobft/core/types"
	"github.com/luxfi/log"
	"golang.org/x/sync/errgroup"
)

// State is one of the four observable states a round proceeds
// through (spec §4.E).
type State int

const (
	Proposing State = iota
	GatheringSignatures
	CertifyingPeers
	Advancing
)

func (s State) String() string {
	switch s {
	case Proposing:
		return "proposing"
	case GatheringSignatures:
		return "gathering_signatures"
	case CertifyingPeers:
		return "certifying_peers"
	case Advancing:
		return "advancing"
	default:
		return "unknown"
	}
}

// Signer produces and verifies signatures over batch-header hashes.
type Signer interface {
	Sign(headerHash types.ID) ([]byte, error)
	Verify(signer types.NodeID, headerHash types.ID, sig []byte) bool
}

// Primary is one validator's round state machine.
type Primary struct {
	self      types.NodeID
	committee *committee.Snapshot
	dag       *bft.DAG
	signer    Signer
	maxSkew   time.Duration
	now       func() time.Time
	log       log.Logger

	round          uint64
	state          State
	ownHeader      *types.BatchHeader
	ownHeaderHash  types.ID
	signatures     map[types.NodeID]types.Signature
	equivocationOf map[types.NodeID]types.ID // author -> header hash counter-signed this round

	roundsAdvanced prometheusCounter
}

type prometheusCounter interface {
	Inc()
}

// New creates a Primary at round 1 (genesis), Proposing state.
func New(self types.NodeID, snap *committee.Snapshot, dag *bft.DAG, signer Signer, maxSkew time.Duration, logger log.Logger, m *metrics.Metrics) *Primary {
	p := &Primary{
		self:           self,
		committee:      snap,
		dag:            dag,
		signer:         signer,
		maxSkew:        maxSkew,
		now:            time.Now,
		log:            logger,
		round:          1,
		state:          Proposing,
		signatures:     make(map[types.NodeID]types.Signature),
		equivocationOf: make(map[types.NodeID]types.ID),
	}
	if m != nil {
		p.roundsAdvanced = m.Counter("primary", "rounds_advanced_total", "rounds the local Primary has advanced past")
	}
	return p
}

// Round returns the round currently in progress.
func (p *Primary) Round() uint64 { return p.round }

// State returns the current observable state.
func (p *Primary) State() State { return p.state }

// Propose builds this Primary's batch header for the current round:
// previous-certificate-IDs are the certificates received for r-1 (all
// of them, not just a quorum subset, per spec §4.E step 1), signs it
// with our own signature, and moves to GatheringSignatures.
func (p *Primary) Propose(transmissionIDs []types.TransmissionID, abortedIDs []types.TransmissionID) (*types.BatchHeader, error) {
	if p.state != Proposing {
		return nil, fmt.Errorf("primary: Propose called outside Proposing state (current: %s)", p.state)
	}

	c := p.committee.Current()
	var prev []types.ID
	if p.round > 1 {
		for _, certID := range p.dag.CertificatesAtRound(p.round - 1) {
			prev = append(prev, certID)
		}
	}

	header := &types.BatchHeader{
		Author:                 p.self,
		Round:                  p.round,
		Timestamp:              p.now(),
		CommitteeID:            c.ID(),
		TransmissionIDs:        transmissionIDs,
		PreviousCertificateIDs: prev,
		AbortedTransmissionIDs: abortedIDs,
	}
	headerHash := header.Hash()
	sig, err := p.signer.Sign(headerHash)
	if err != nil {
		return nil, fmt.Errorf("primary: signing own header: %w", err)
	}
	header.AuthorSignature = sig

	p.ownHeader = header
	p.ownHeaderHash = headerHash
	p.signatures = map[types.NodeID]types.Signature{
		p.self: {Signer: p.self, HeaderHash: headerHash, Value: sig, Timestamp: header.Timestamp},
	}
	p.state = GatheringSignatures
	return header, nil
}

// ReceiveSignatureOnOwnHeader records a peer's signature on our
// proposed header. Once the accumulated stake reaches quorum, the
// Primary forms and returns its own certificate; ErrQuorumNotReached
// is not a failure, the caller simply stays in GatheringSignatures
// (spec §4.E step 2).
func (p *Primary) ReceiveSignatureOnOwnHeader(sig types.Signature) (*types.Certificate, error) {
	if p.state != GatheringSignatures || p.ownHeader == nil {
		return nil, fmt.Errorf("primary: no own header awaiting signatures")
	}
	c := p.committee.Current()
	if !c.Contains(sig.Signer) {
		return nil, fmt.Errorf("primary: signer not in committee: %w", corerr.ErrInvalidCommittee)
	}
	if sig.HeaderHash != p.ownHeaderHash {
		return nil, fmt.Errorf("primary: signature over wrong header hash: %w", corerr.ErrInvalidSignature)
	}
	if !p.signer.Verify(sig.Signer, sig.HeaderHash, sig.Value) {
		return nil, fmt.Errorf("primary: signature verification failed: %w", corerr.ErrInvalidSignature)
	}

	p.signatures[sig.Signer] = sig

	signers := make([]types.NodeID, 0, len(p.signatures))
	for id := range p.signatures {
		signers = append(signers, id)
	}
	if !c.HasQuorum(signers) {
		return nil, corerr.ErrQuorumNotReached
	}

	cert := &types.Certificate{Header: *p.ownHeader, Signatures: sigSlice(p.signatures)}
	p.dag.Insert(cert)
	p.state = CertifyingPeers
	return cert, nil
}

// AcceptPeerHeader validates a peer's batch header against the
// acceptance rules of spec §4.E and, if valid, counter-signs it.
// Missing referenced transmissions surface as ErrMissingDependency: the
// caller fetches via Worker's Pending and retries.
func (p *Primary) AcceptPeerHeader(header *types.BatchHeader, transmissionsResident func(ids []types.TransmissionID) bool) (types.Signature, error) {
	c := p.committee.Current()

	if !c.Contains(header.Author) {
		return types.Signature{}, fmt.Errorf("primary: author not in committee: %w", corerr.ErrInvalidCommittee)
	}
	if header.CommitteeID != c.ID() {
		return types.Signature{}, fmt.Errorf("primary: header committee id mismatch: %w", corerr.ErrProtocolViolation)
	}
	if header.Round != p.round {
		return types.Signature{}, fmt.Errorf("primary: header round %d != local round %d: %w", header.Round, p.round, corerr.ErrProtocolViolation)
	}
	if skew := p.now().Sub(header.Timestamp); skew > p.maxSkew || skew < -p.maxSkew {
		return types.Signature{}, fmt.Errorf("primary: header timestamp outside clock skew bound: %w", corerr.ErrProtocolViolation)
	}
	if prevHash, ok := p.equivocationOf[header.Author]; ok && prevHash != header.Hash() {
		return types.Signature{}, fmt.Errorf("primary: equivocating header from author this round: %w", corerr.ErrProtocolViolation)
	}

	if header.Round > 1 {
		if err := p.verifyPreviousCertificates(header.PreviousCertificateIDs, c); err != nil {
			return types.Signature{}, err
		}
	}

	if !transmissionsResident(header.TransmissionIDs) {
		return types.Signature{}, corerr.ErrMissingDependency
	}

	headerHash := header.Hash()
	sig, err := p.signer.Sign(headerHash)
	if err != nil {
		return types.Signature{}, fmt.Errorf("primary: signing peer header: %w", err)
	}
	p.equivocationOf[header.Author] = headerHash

	return types.Signature{Signer: p.self, HeaderHash: headerHash, Value: sig, Timestamp: p.now()}, nil
}

// verifyPreviousCertificates checks that every previous-certificate-ID
// resolves to a stored certificate of round-1, with distinct authors
// whose stake sums to quorum(round-1) (spec §4.E "Batch-header
// acceptance").
func (p *Primary) verifyPreviousCertificates(prevIDs []types.ID, c *committee.Committee) error {
	authors := make([]types.NodeID, 0, len(prevIDs))
	for _, id := range prevIDs {
		cert, ok := p.dag.Get(id)
		if !ok {
			return fmt.Errorf("primary: unresolved previous certificate %s: %w", id, corerr.ErrMissingDependency)
		}
		if cert.Round() != p.round-1 {
			return fmt.Errorf("primary: previous certificate %s not at round %d: %w", id, p.round-1, corerr.ErrProtocolViolation)
		}
		authors = append(authors, cert.Author())
	}
	if !c.HasQuorum(authors) {
		return fmt.Errorf("primary: previous certificates do not reach quorum(r-1): %w", corerr.ErrProtocolViolation)
	}
	return nil
}

// ReceiveCertificate ingests a peer certificate: verifies its
// signature set reaches quorum and every signer is a committee member,
// then stores it (spec §4.E "Certificate formation"). Signature
// verification is the expensive step, so every signature is checked
// concurrently off the caller's goroutine rather than one at a time.
func (p *Primary) ReceiveCertificate(cert *types.Certificate) error {
	c := p.committee.Current()
	if cert.Header.CommitteeID != c.ID() {
		return fmt.Errorf("primary: certificate committee id mismatch: %w", corerr.ErrProtocolViolation)
	}

	signers := make([]types.NodeID, len(cert.Signatures))
	for i, sig := range cert.Signatures {
		if !c.Contains(sig.Signer) {
			return fmt.Errorf("primary: certificate signer not in committee: %w", corerr.ErrInvalidCommittee)
		}
		signers[i] = sig.Signer
	}

	var g errgroup.Group
	for _, sig := range cert.Signatures {
		sig := sig
		g.Go(func() error {
			if !p.signer.Verify(sig.Signer, sig.HeaderHash, sig.Value) {
				return fmt.Errorf("primary: certificate signature invalid from %s: %w", sig.Signer, corerr.ErrInvalidSignature)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if !c.HasQuorum(signers) {
		return fmt.Errorf("primary: certificate signatures below quorum: %w", corerr.ErrProtocolViolation)
	}

	if _, ok := p.dag.Get(cert.ID()); !ok {
		p.dag.Insert(cert)
	}
	return nil
}

// AdvanceIfQuorum advances to round+1 and resets round state once the
// stake of certificates stored for the current round reaches quorum
// (spec §4.E step 4). Returns the new round and true if it advanced.
func (p *Primary) AdvanceIfQuorum() (uint64, bool) {
	c := p.committee.Current()
	byAuthor := p.dag.CertificatesAtRound(p.round)
	authors := make([]types.NodeID, 0, len(byAuthor))
	for a := range byAuthor {
		authors = append(authors, a)
	}
	if !c.HasQuorum(authors) {
		return p.round, false
	}

	p.round++
	p.state = Proposing
	p.ownHeader = nil
	p.ownHeaderHash = types.ID{}
	p.signatures = make(map[types.NodeID]types.Signature)
	p.equivocationOf = make(map[types.NodeID]types.ID)
	if p.roundsAdvanced != nil {
		p.roundsAdvanced.Inc()
	}
	return p.round, true
}

func sigSlice(m map[types.NodeID]types.Signature) []types.Signature {
	out := make([]types.Signature, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}
