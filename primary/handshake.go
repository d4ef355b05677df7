// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package primary

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/types"
	"github.com/luxfi/version"
)

// Challenge is the first half of the two-Primary handshake contract
// (spec §4.E, §6): a shared genesis header hash, a restrictions-ID,
// and a random nonce proving the peer is not ourselves. Grounded on
// engine/bft/comm.go's NewComm self-check (errNodeNotFound),
// generalized from "are we a validator" to the full challenge/response
// contract spec.md's handshake requires.
type Challenge struct {
	ProtocolVersion   version.Semantic
	NodeID            types.NodeID
	Nonce             uint64
	GenesisHeaderHash types.ID
	RestrictionsID    types.ID
}

// Response answers a Challenge: a signature over the nonce, proving
// key ownership.
type Response struct {
	NodeID             types.NodeID
	SignatureOverNonce []byte
}

// NewChallenge builds a Challenge carrying a fresh random nonce.
func NewChallenge(self types.NodeID, protocolVersion version.Semantic, genesisHeaderHash, restrictionsID types.ID) (Challenge, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Challenge{}, fmt.Errorf("primary: generating handshake nonce: %w", err)
	}
	return Challenge{
		ProtocolVersion:   protocolVersion,
		NodeID:            self,
		Nonce:             binary.BigEndian.Uint64(buf[:]),
		GenesisHeaderHash: genesisHeaderHash,
		RestrictionsID:    restrictionsID,
	}, nil
}

// ValidateChallenge enforces the handshake contract of spec §4.E: a
// shared genesis header hash, a shared restrictions-ID, a non-self
// peer, and a matching protocol version. A failure here is always
// ErrProtocolViolation; the peer is disconnected.
func ValidateChallenge(self types.NodeID, localProtocolVersion version.Semantic, localGenesisHeaderHash, localRestrictionsID types.ID, peer Challenge) error {
	if peer.NodeID == self {
		return fmt.Errorf("primary: self-connection: %w", corerr.ErrProtocolViolation)
	}
	if peer.GenesisHeaderHash != localGenesisHeaderHash {
		return fmt.Errorf("primary: genesis header hash mismatch: %w", corerr.ErrProtocolViolation)
	}
	if peer.RestrictionsID != localRestrictionsID {
		return fmt.Errorf("primary: restrictions-id mismatch: %w", corerr.ErrProtocolViolation)
	}
	// Compared field-by-field rather than through version.Semantic's own
	// Compare method: that method's receiver/parameter shape (value vs.
	// pointer) is never shown anywhere in the pack, so calling it here
	// would risk guessing a signature that doesn't exist.
	if peer.ProtocolVersion != localProtocolVersion {
		return fmt.Errorf("primary: protocol version mismatch (local %s, peer %s): %w",
			localProtocolVersion, peer.ProtocolVersion, corerr.ErrProtocolViolation)
	}
	return nil
}
