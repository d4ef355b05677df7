// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package p2pmsg defines the logical peer-to-peer messages of spec §6
// and the Comm transport collaborator Primaries and Workers send them
// through. Grounded on engine/bft/messages.go's one-constructor-per-
// variant shape (newBlockProposal, newVote, ...) into a tagged
// envelope, and engine/bft/comm.go's Send/Broadcast Comm interface.
// Wire encoding uses google.golang.org/protobuf's low-level
// protowire primitives directly (tag-length-value), the same
// self-describing variant-tagged shape the teacher's generated
// p2p.BFT envelope uses, without requiring a .proto/codegen step this
// environment cannot run.
package p2pmsg

import (
	"time"

	"github.com/aleobft/core/types"
	"github.com/luxfi/version"
)

// Kind tags an Envelope's payload as one of spec §6's logical message
// variants.
type Kind uint8

const (
	KindChallengeRequest Kind = iota
	KindChallengeResponse
	KindBatchProposal
	KindBatchSignature
	KindBatchCertified
	KindTransmissionRequest
	KindTransmissionResponse
	KindCertificateRequest
	KindCertificateResponse
	KindPing
	KindPong
	KindPeerRequest
	KindPeerResponse
	KindDisconnect
)

func (k Kind) String() string {
	switch k {
	case KindChallengeRequest:
		return "challenge_request"
	case KindChallengeResponse:
		return "challenge_response"
	case KindBatchProposal:
		return "batch_proposal"
	case KindBatchSignature:
		return "batch_signature"
	case KindBatchCertified:
		return "batch_certified"
	case KindTransmissionRequest:
		return "transmission_request"
	case KindTransmissionResponse:
		return "transmission_response"
	case KindCertificateRequest:
		return "certificate_request"
	case KindCertificateResponse:
		return "certificate_response"
	case KindPing:
		return "ping"
	case KindPong:
		return "pong"
	case KindPeerRequest:
		return "peer_request"
	case KindPeerResponse:
		return "peer_response"
	case KindDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// ChallengeRequest begins the two-step handshake (spec §4.E, §6).
type ChallengeRequest struct {
	ProtocolVersion   version.Semantic
	ListeningPort     uint16
	Nonce             uint64
	GenesisHeaderHash types.ID
	RestrictionsID    types.ID
}

// ChallengeResponse answers a ChallengeRequest with a signature over
// the nonce.
type ChallengeResponse struct {
	SignatureOverNonce []byte
}

// BatchProposal is broadcast by a proposing Primary.
type BatchProposal struct {
	Header types.BatchHeader
}

// BatchSignature is a unicast reply from a signer to the proposer.
type BatchSignature struct {
	HeaderHash types.ID
	Signer     types.NodeID
	Value      []byte
}

// BatchCertified is broadcast once a certificate reaches quorum.
type BatchCertified struct {
	Certificate types.Certificate
}

// TransmissionRequest asks a peer for a transmission body by ID.
type TransmissionRequest struct {
	ID types.ID
}

// TransmissionResponse answers a TransmissionRequest.
type TransmissionResponse struct {
	ID   types.ID
	Body []byte
}

// CertificateRequest asks a peer for a certificate by ID.
type CertificateRequest struct {
	CertificateID types.ID
}

// CertificateResponse answers a CertificateRequest.
type CertificateResponse struct {
	Certificate types.Certificate
}

// Ping carries liveness and light-sync information (round-sync
// locators, spec §9 Open Question #1).
type Ping struct {
	ProtocolVersion version.Semantic
	ForkDepth       uint64
	Locators        []types.ID
}

// Pong answers a Ping, reporting whether the sender believes the peer
// has forked and echoing its own locators.
type Pong struct {
	IsFork   bool
	Locators []types.ID
}

// PeerRequest asks for known peer listening addresses.
type PeerRequest struct{}

// PeerResponse answers a PeerRequest.
type PeerResponse struct {
	Addrs []string
}

// Disconnect notifies a peer why the connection is closing.
type Disconnect struct {
	Reason string
}

// Envelope is the variant-tagged wrapper every message travels in on
// the wire (spec §6). EncodeEnvelope adds no outer length prefix;
// delimiting frames on a stream is left to the Sender's transport.
type Envelope struct {
	Kind      Kind
	Payload   []byte
	Timestamp time.Time
}
