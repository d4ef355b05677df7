// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package p2pmsg

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/types"
	"github.com/luxfi/version"
	"google.golang.org/protobuf/encoding/protowire"
)

// DefaultMaxMessageSize bounds a decoded envelope frame when the caller
// has no configured limit of its own (spec §6: "message size is capped;
// oversize messages are a protocol violation"). config.Config carries
// the operator-tunable value that normally overrides this.
const DefaultMaxMessageSize = 4 << 20 // 4 MiB

// Field numbers used across the tag-length-value wire encodings below.
// Kept small and message-local; there is no shared schema to version.
const (
	fieldProtocolVersion = protowire.Number(1)
	fieldNonce           = protowire.Number(2)
	fieldGenesisHash     = protowire.Number(3)
	fieldRestrictionsID  = protowire.Number(4)
	fieldListeningPort   = protowire.Number(5)
	fieldSignature       = protowire.Number(6)
	fieldHeaderHash      = protowire.Number(7)
	fieldSigner          = protowire.Number(8)
	fieldID              = protowire.Number(9)
	fieldBody            = protowire.Number(10)
	fieldForkDepth       = protowire.Number(11)
	fieldLocator         = protowire.Number(12)
	fieldIsFork          = protowire.Number(13)
	fieldReason          = protowire.Number(14)
	fieldAddr            = protowire.Number(15)
)

// marshalSemantic appends a length-delimited Semantic version field.
func marshalSemantic(b []byte, num protowire.Number, v version.Semantic) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	var packed [12]byte
	be32(packed[0:4], uint32(v.Major))
	be32(packed[4:8], uint32(v.Minor))
	be32(packed[8:12], uint32(v.Patch))
	return protowire.AppendBytes(b, packed[:])
}

func unmarshalSemantic(b []byte) (version.Semantic, error) {
	if len(b) != 12 {
		return version.Semantic{}, fmt.Errorf("p2pmsg: malformed semantic version field (len=%d)", len(b))
	}
	return version.Semantic{
		Major: int(be32Read(b[0:4])),
		Minor: int(be32Read(b[4:8])),
		Patch: int(be32Read(b[8:12])),
	}, nil
}

func be32(dst []byte, v uint32) {
	dst[0], dst[1], dst[2], dst[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
}

func be32Read(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func marshalID(b []byte, num protowire.Number, id types.ID) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, id[:])
}

func unmarshalID(raw []byte) (types.ID, error) {
	var id types.ID
	if len(raw) != len(id) {
		return id, fmt.Errorf("p2pmsg: malformed id field (len=%d)", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MarshalChallengeRequest encodes a ChallengeRequest as a
// tag-length-value payload using protowire's low-level primitives
// directly, without a .proto/codegen step.
func MarshalChallengeRequest(m ChallengeRequest) []byte {
	var b []byte
	b = marshalSemantic(b, fieldProtocolVersion, m.ProtocolVersion)
	b = protowire.AppendTag(b, fieldListeningPort, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ListeningPort))
	b = protowire.AppendTag(b, fieldNonce, protowire.VarintType)
	b = protowire.AppendVarint(b, m.Nonce)
	b = marshalID(b, fieldGenesisHash, m.GenesisHeaderHash)
	b = marshalID(b, fieldRestrictionsID, m.RestrictionsID)
	return b
}

// UnmarshalChallengeRequest decodes a ChallengeRequest payload
// produced by MarshalChallengeRequest.
func UnmarshalChallengeRequest(b []byte) (ChallengeRequest, error) {
	var m ChallengeRequest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, fmt.Errorf("p2pmsg: malformed challenge request tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldProtocolVersion:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed protocol version: %w", protowire.ParseError(n))
			}
			b = b[n:]
			v, err := unmarshalSemantic(raw)
			if err != nil {
				return m, err
			}
			m.ProtocolVersion = v
		case fieldListeningPort:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed listening port: %w", protowire.ParseError(n))
			}
			b = b[n:]
			m.ListeningPort = uint16(v)
		case fieldNonce:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed nonce: %w", protowire.ParseError(n))
			}
			b = b[n:]
			m.Nonce = v
		case fieldGenesisHash:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed genesis hash: %w", protowire.ParseError(n))
			}
			b = b[n:]
			id, err := unmarshalID(raw)
			if err != nil {
				return m, err
			}
			m.GenesisHeaderHash = id
		case fieldRestrictionsID:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed restrictions id: %w", protowire.ParseError(n))
			}
			b = b[n:]
			id, err := unmarshalID(raw)
			if err != nil {
				return m, err
			}
			m.RestrictionsID = id
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}

// MarshalTransmissionRequest encodes a TransmissionRequest.
func MarshalTransmissionRequest(m TransmissionRequest) []byte {
	return marshalID(nil, fieldID, m.ID)
}

// UnmarshalTransmissionRequest decodes a TransmissionRequest payload.
func UnmarshalTransmissionRequest(b []byte) (TransmissionRequest, error) {
	num, _, n := protowire.ConsumeTag(b)
	if n < 0 || num != fieldID {
		return TransmissionRequest{}, fmt.Errorf("p2pmsg: malformed transmission request")
	}
	b = b[n:]
	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return TransmissionRequest{}, fmt.Errorf("p2pmsg: malformed transmission request id")
	}
	id, err := unmarshalID(raw)
	if err != nil {
		return TransmissionRequest{}, err
	}
	return TransmissionRequest{ID: id}, nil
}

// MarshalTransmissionResponse encodes a TransmissionResponse.
func MarshalTransmissionResponse(m TransmissionResponse) []byte {
	b := marshalID(nil, fieldID, m.ID)
	b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
	return protowire.AppendBytes(b, m.Body)
}

// UnmarshalTransmissionResponse decodes a TransmissionResponse payload.
func UnmarshalTransmissionResponse(b []byte) (TransmissionResponse, error) {
	var m TransmissionResponse
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, fmt.Errorf("p2pmsg: malformed transmission response tag")
		}
		b = b[n:]
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return m, fmt.Errorf("p2pmsg: malformed transmission response field %d", num)
		}
		b = b[n:]
		switch num {
		case fieldID:
			id, err := unmarshalID(raw)
			if err != nil {
				return m, err
			}
			m.ID = id
		case fieldBody:
			m.Body = append([]byte(nil), raw...)
		}
	}
	return m, nil
}

// MarshalPing encodes a Ping.
func MarshalPing(m Ping) []byte {
	b := marshalSemantic(nil, fieldProtocolVersion, m.ProtocolVersion)
	b = protowire.AppendTag(b, fieldForkDepth, protowire.VarintType)
	b = protowire.AppendVarint(b, m.ForkDepth)
	for _, loc := range m.Locators {
		b = marshalID(b, fieldLocator, loc)
	}
	return b
}

// UnmarshalPing decodes a Ping payload.
func UnmarshalPing(b []byte) (Ping, error) {
	var m Ping
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, fmt.Errorf("p2pmsg: malformed ping tag")
		}
		b = b[n:]
		switch num {
		case fieldProtocolVersion:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed ping protocol version")
			}
			b = b[n:]
			v, err := unmarshalSemantic(raw)
			if err != nil {
				return m, err
			}
			m.ProtocolVersion = v
		case fieldForkDepth:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed fork depth")
			}
			b = b[n:]
			m.ForkDepth = v
		case fieldLocator:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed ping locator")
			}
			b = b[n:]
			id, err := unmarshalID(raw)
			if err != nil {
				return m, err
			}
			m.Locators = append(m.Locators, id)
		default:
			return m, fmt.Errorf("p2pmsg: unknown ping field %d", num)
		}
	}
	return m, nil
}

// MarshalPong encodes a Pong.
func MarshalPong(m Pong) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldIsFork, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(m.IsFork))
	for _, loc := range m.Locators {
		b = marshalID(b, fieldLocator, loc)
	}
	return b
}

// UnmarshalPong decodes a Pong payload.
func UnmarshalPong(b []byte) (Pong, error) {
	var m Pong
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, fmt.Errorf("p2pmsg: malformed pong tag")
		}
		b = b[n:]
		switch num {
		case fieldIsFork:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed is_fork")
			}
			b = b[n:]
			m.IsFork = protowire.DecodeBool(v)
		case fieldLocator:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, fmt.Errorf("p2pmsg: malformed pong locator")
			}
			b = b[n:]
			id, err := unmarshalID(raw)
			if err != nil {
				return m, err
			}
			m.Locators = append(m.Locators, id)
		default:
			return m, fmt.Errorf("p2pmsg: unknown pong field %d", num)
		}
	}
	return m, nil
}

// MarshalBatchSignature encodes a BatchSignature.
func MarshalBatchSignature(m BatchSignature) []byte {
	b := marshalID(nil, fieldHeaderHash, m.HeaderHash)
	b = protowire.AppendTag(b, fieldSigner, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Signer[:])
	b = protowire.AppendTag(b, fieldSignature, protowire.BytesType)
	return protowire.AppendBytes(b, m.Value)
}

// UnmarshalBatchSignature decodes a BatchSignature payload.
func UnmarshalBatchSignature(b []byte) (BatchSignature, error) {
	var m BatchSignature
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, fmt.Errorf("p2pmsg: malformed batch signature tag")
		}
		b = b[n:]
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return m, fmt.Errorf("p2pmsg: malformed batch signature field %d", num)
		}
		b = b[n:]
		switch num {
		case fieldHeaderHash:
			id, err := unmarshalID(raw)
			if err != nil {
				return m, err
			}
			m.HeaderHash = id
		case fieldSigner:
			if len(raw) != len(m.Signer) {
				return m, fmt.Errorf("p2pmsg: malformed batch signature signer (len=%d)", len(raw))
			}
			copy(m.Signer[:], raw)
		case fieldSignature:
			m.Value = append([]byte(nil), raw...)
		}
	}
	return m, nil
}

// MarshalDisconnect encodes a Disconnect.
func MarshalDisconnect(m Disconnect) []byte {
	b := protowire.AppendTag(nil, fieldReason, protowire.BytesType)
	return protowire.AppendBytes(b, []byte(m.Reason))
}

// UnmarshalDisconnect decodes a Disconnect payload.
func UnmarshalDisconnect(b []byte) (Disconnect, error) {
	num, _, n := protowire.ConsumeTag(b)
	if n < 0 || num != fieldReason {
		return Disconnect{}, fmt.Errorf("p2pmsg: malformed disconnect")
	}
	b = b[n:]
	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return Disconnect{}, fmt.Errorf("p2pmsg: malformed disconnect reason")
	}
	return Disconnect{Reason: string(raw)}, nil
}

// MarshalChallengeResponse encodes a ChallengeResponse.
func MarshalChallengeResponse(m ChallengeResponse) []byte {
	b := protowire.AppendTag(nil, fieldSignature, protowire.BytesType)
	return protowire.AppendBytes(b, m.SignatureOverNonce)
}

// UnmarshalChallengeResponse decodes a ChallengeResponse payload.
func UnmarshalChallengeResponse(b []byte) (ChallengeResponse, error) {
	num, _, n := protowire.ConsumeTag(b)
	if n < 0 || num != fieldSignature {
		return ChallengeResponse{}, fmt.Errorf("p2pmsg: malformed challenge response")
	}
	b = b[n:]
	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return ChallengeResponse{}, fmt.Errorf("p2pmsg: malformed challenge response signature")
	}
	return ChallengeResponse{SignatureOverNonce: append([]byte(nil), raw...)}, nil
}

// MarshalPeerRequest encodes a PeerRequest, which carries no fields.
func MarshalPeerRequest(PeerRequest) []byte { return nil }

// UnmarshalPeerRequest decodes a PeerRequest payload.
func UnmarshalPeerRequest([]byte) (PeerRequest, error) { return PeerRequest{}, nil }

// MarshalPeerResponse encodes a PeerResponse.
func MarshalPeerResponse(m PeerResponse) []byte {
	var b []byte
	for _, addr := range m.Addrs {
		b = protowire.AppendTag(b, fieldAddr, protowire.BytesType)
		b = protowire.AppendBytes(b, []byte(addr))
	}
	return b
}

// UnmarshalPeerResponse decodes a PeerResponse payload.
func UnmarshalPeerResponse(b []byte) (PeerResponse, error) {
	var m PeerResponse
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 || num != fieldAddr {
			return m, fmt.Errorf("p2pmsg: malformed peer response tag")
		}
		b = b[n:]
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return m, fmt.Errorf("p2pmsg: malformed peer response addr")
		}
		b = b[n:]
		m.Addrs = append(m.Addrs, string(raw))
	}
	return m, nil
}

// MarshalCertificateRequest encodes a CertificateRequest.
func MarshalCertificateRequest(m CertificateRequest) []byte {
	return marshalID(nil, fieldID, m.CertificateID)
}

// UnmarshalCertificateRequest decodes a CertificateRequest payload.
func UnmarshalCertificateRequest(b []byte) (CertificateRequest, error) {
	num, _, n := protowire.ConsumeTag(b)
	if n < 0 || num != fieldID {
		return CertificateRequest{}, fmt.Errorf("p2pmsg: malformed certificate request")
	}
	b = b[n:]
	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return CertificateRequest{}, fmt.Errorf("p2pmsg: malformed certificate request id")
	}
	id, err := unmarshalID(raw)
	if err != nil {
		return CertificateRequest{}, err
	}
	return CertificateRequest{CertificateID: id}, nil
}

// Nested field numbers for the BatchHeader/Signature/Certificate
// sub-messages carried by BatchProposal, BatchCertified, and
// CertificateResponse. Local to each sub-message's own byte string, so
// they safely reuse small numbers independent of the top-level field
// numbers above.
const (
	hdrAuthor      = protowire.Number(1)
	hdrRound       = protowire.Number(2)
	hdrTimestamp   = protowire.Number(3)
	hdrCommitteeID = protowire.Number(4)
	hdrTxID        = protowire.Number(5)
	hdrPrevCertID  = protowire.Number(6)
	hdrAbortedID   = protowire.Number(7)
	hdrAuthorSig   = protowire.Number(8)

	sigSigner    = protowire.Number(1)
	sigHeaderH   = protowire.Number(2)
	sigValue     = protowire.Number(3)
	sigTimestamp = protowire.Number(4)

	certHeader = protowire.Number(1)
	certSig    = protowire.Number(2)
)

func marshalTransmissionID(t types.TransmissionID) []byte {
	buf := make([]byte, 37)
	buf[0] = byte(t.Kind)
	copy(buf[1:33], t.ContentHash[:])
	binary.BigEndian.PutUint32(buf[33:], t.Checksum)
	return buf
}

func unmarshalTransmissionID(b []byte) (types.TransmissionID, error) {
	var t types.TransmissionID
	if len(b) != 37 {
		return t, fmt.Errorf("p2pmsg: malformed transmission id (len=%d)", len(b))
	}
	t.Kind = types.TransmissionKind(b[0])
	copy(t.ContentHash[:], b[1:33])
	t.Checksum = binary.BigEndian.Uint32(b[33:])
	return t, nil
}

func marshalBatchHeader(h types.BatchHeader) []byte {
	var b []byte
	b = protowire.AppendTag(b, hdrAuthor, protowire.BytesType)
	b = protowire.AppendBytes(b, h.Author[:])
	b = protowire.AppendTag(b, hdrRound, protowire.VarintType)
	b = protowire.AppendVarint(b, h.Round)
	b = protowire.AppendTag(b, hdrTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Timestamp.UnixNano()))
	b = marshalID(b, hdrCommitteeID, h.CommitteeID)
	for _, tid := range h.TransmissionIDs {
		b = protowire.AppendTag(b, hdrTxID, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalTransmissionID(tid))
	}
	for _, id := range h.PreviousCertificateIDs {
		b = marshalID(b, hdrPrevCertID, id)
	}
	for _, tid := range h.AbortedTransmissionIDs {
		b = protowire.AppendTag(b, hdrAbortedID, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalTransmissionID(tid))
	}
	b = protowire.AppendTag(b, hdrAuthorSig, protowire.BytesType)
	return protowire.AppendBytes(b, h.AuthorSignature)
}

func unmarshalBatchHeader(b []byte) (types.BatchHeader, error) {
	var h types.BatchHeader
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return h, fmt.Errorf("p2pmsg: malformed batch header tag")
		}
		b = b[n:]
		switch num {
		case hdrRound:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return h, fmt.Errorf("p2pmsg: malformed batch header round")
			}
			b = b[n:]
			h.Round = v
		case hdrTimestamp:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return h, fmt.Errorf("p2pmsg: malformed batch header timestamp")
			}
			b = b[n:]
			h.Timestamp = time.Unix(0, int64(v)).UTC()
		default:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return h, fmt.Errorf("p2pmsg: malformed batch header field %d", num)
			}
			b = b[n:]
			switch num {
			case hdrAuthor:
				if len(raw) != len(h.Author) {
					return h, fmt.Errorf("p2pmsg: malformed batch header author")
				}
				copy(h.Author[:], raw)
			case hdrCommitteeID:
				id, err := unmarshalID(raw)
				if err != nil {
					return h, err
				}
				h.CommitteeID = id
			case hdrTxID:
				tid, err := unmarshalTransmissionID(raw)
				if err != nil {
					return h, err
				}
				h.TransmissionIDs = append(h.TransmissionIDs, tid)
			case hdrPrevCertID:
				id, err := unmarshalID(raw)
				if err != nil {
					return h, err
				}
				h.PreviousCertificateIDs = append(h.PreviousCertificateIDs, id)
			case hdrAbortedID:
				tid, err := unmarshalTransmissionID(raw)
				if err != nil {
					return h, err
				}
				h.AbortedTransmissionIDs = append(h.AbortedTransmissionIDs, tid)
			case hdrAuthorSig:
				h.AuthorSignature = append([]byte(nil), raw...)
			}
		}
	}
	return h, nil
}

func marshalSignature(s types.Signature) []byte {
	var b []byte
	b = protowire.AppendTag(b, sigSigner, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Signer[:])
	b = marshalID(b, sigHeaderH, s.HeaderHash)
	b = protowire.AppendTag(b, sigValue, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Value)
	b = protowire.AppendTag(b, sigTimestamp, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(s.Timestamp.UnixNano()))
}

func unmarshalSignature(b []byte) (types.Signature, error) {
	var s types.Signature
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return s, fmt.Errorf("p2pmsg: malformed signature tag")
		}
		b = b[n:]
		if num == sigTimestamp {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return s, fmt.Errorf("p2pmsg: malformed signature timestamp")
			}
			b = b[n:]
			s.Timestamp = time.Unix(0, int64(v)).UTC()
			continue
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return s, fmt.Errorf("p2pmsg: malformed signature field %d", num)
		}
		b = b[n:]
		switch num {
		case sigSigner:
			if len(raw) != len(s.Signer) {
				return s, fmt.Errorf("p2pmsg: malformed signature signer")
			}
			copy(s.Signer[:], raw)
		case sigHeaderH:
			id, err := unmarshalID(raw)
			if err != nil {
				return s, err
			}
			s.HeaderHash = id
		case sigValue:
			s.Value = append([]byte(nil), raw...)
		}
	}
	return s, nil
}

func marshalCertificate(c types.Certificate) []byte {
	b := protowire.AppendTag(nil, certHeader, protowire.BytesType)
	b = protowire.AppendBytes(b, marshalBatchHeader(c.Header))
	for _, s := range c.Signatures {
		b = protowire.AppendTag(b, certSig, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalSignature(s))
	}
	return b
}

func unmarshalCertificate(b []byte) (types.Certificate, error) {
	var c types.Certificate
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return c, fmt.Errorf("p2pmsg: malformed certificate tag")
		}
		b = b[n:]
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return c, fmt.Errorf("p2pmsg: malformed certificate field %d", num)
		}
		b = b[n:]
		switch num {
		case certHeader:
			h, err := unmarshalBatchHeader(raw)
			if err != nil {
				return c, err
			}
			c.Header = h
		case certSig:
			s, err := unmarshalSignature(raw)
			if err != nil {
				return c, err
			}
			c.Signatures = append(c.Signatures, s)
		}
	}
	return c, nil
}

// MarshalBatchProposal encodes a BatchProposal.
func MarshalBatchProposal(m BatchProposal) []byte {
	return marshalBatchHeader(m.Header)
}

// UnmarshalBatchProposal decodes a BatchProposal payload.
func UnmarshalBatchProposal(b []byte) (BatchProposal, error) {
	h, err := unmarshalBatchHeader(b)
	if err != nil {
		return BatchProposal{}, err
	}
	return BatchProposal{Header: h}, nil
}

// MarshalBatchCertified encodes a BatchCertified.
func MarshalBatchCertified(m BatchCertified) []byte {
	return marshalCertificate(m.Certificate)
}

// UnmarshalBatchCertified decodes a BatchCertified payload.
func UnmarshalBatchCertified(b []byte) (BatchCertified, error) {
	c, err := unmarshalCertificate(b)
	if err != nil {
		return BatchCertified{}, err
	}
	return BatchCertified{Certificate: c}, nil
}

const (
	envelopeKind      = protowire.Number(1)
	envelopePayload   = protowire.Number(2)
	envelopeTimestamp = protowire.Number(3)
)

// EncodeEnvelope frames a Kind-tagged payload for the wire (spec §6):
// every message, regardless of variant, travels as one of these.
func EncodeEnvelope(e Envelope) []byte {
	var b []byte
	b = protowire.AppendTag(b, envelopeKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Kind))
	b = protowire.AppendTag(b, envelopePayload, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Payload)
	b = protowire.AppendTag(b, envelopeTimestamp, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(e.Timestamp.UnixNano()))
}

// DecodeEnvelope parses a frame produced by EncodeEnvelope. It does not
// decode Payload; callers dispatch on Kind and call the matching
// UnmarshalXxx function. A frame longer than maxSize is rejected as a
// protocol violation before any parsing is attempted (spec §6, §7);
// pass DefaultMaxMessageSize absent a configured bound.
func DecodeEnvelope(b []byte, maxSize int) (Envelope, error) {
	var e Envelope
	if maxSize > 0 && len(b) > maxSize {
		return e, fmt.Errorf("p2pmsg: envelope frame of %d bytes exceeds max message size %d: %w", len(b), maxSize, corerr.ErrProtocolViolation)
	}
	for len(b) > 0 {
		num, _, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, fmt.Errorf("p2pmsg: malformed envelope tag")
		}
		b = b[n:]
		switch num {
		case envelopeKind:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("p2pmsg: malformed envelope kind")
			}
			b = b[n:]
			e.Kind = Kind(v)
		case envelopeTimestamp:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, fmt.Errorf("p2pmsg: malformed envelope timestamp")
			}
			b = b[n:]
			e.Timestamp = time.Unix(0, int64(v)).UTC()
		case envelopePayload:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return e, fmt.Errorf("p2pmsg: malformed envelope payload")
			}
			b = b[n:]
			e.Payload = append([]byte(nil), raw...)
		default:
			return e, fmt.Errorf("p2pmsg: unknown envelope field %d", num)
		}
	}
	return e, nil
}

// MarshalCertificateResponse encodes a CertificateResponse.
func MarshalCertificateResponse(m CertificateResponse) []byte {
	return marshalCertificate(m.Certificate)
}

// UnmarshalCertificateResponse decodes a CertificateResponse payload.
func UnmarshalCertificateResponse(b []byte) (CertificateResponse, error) {
	c, err := unmarshalCertificate(b)
	if err != nil {
		return CertificateResponse{}, err
	}
	return CertificateResponse{Certificate: c}, nil
}
