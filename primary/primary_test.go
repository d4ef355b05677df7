// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package primary

import (
	"testing"
	"time"

	"github.com/aleobft/core/bft"
	"github.com/aleobft/core/committee"
	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/types"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

// fakeSigner signs by concatenating the signer's node ID onto the
// header hash, so Verify can check provenance without real crypto.
type fakeSigner struct{ self types.NodeID }

func (s fakeSigner) Sign(headerHash types.ID) ([]byte, error) {
	return append([]byte(nil), s.self[:]...), nil
}

func (s fakeSigner) Verify(signer types.NodeID, headerHash types.ID, sig []byte) bool {
	return string(sig) == string(signer[:])
}

func fourNodeCommittee(t *testing.T) (*committee.Committee, []types.NodeID) {
	t.Helper()
	keys := []types.NodeID{
		ids.GenerateTestNodeID(), ids.GenerateTestNodeID(),
		ids.GenerateTestNodeID(), ids.GenerateTestNodeID(),
	}
	members := map[types.NodeID]uint64{keys[0]: 1, keys[1]: 1, keys[2]: 1, keys[3]: 1}
	c, err := committee.New(1, members)
	require.NoError(t, err)
	return c, keys
}

func newTestPrimary(t *testing.T, self types.NodeID, c *committee.Committee, dag *bft.DAG) *Primary {
	t.Helper()
	return New(self, committee.NewSnapshot(c), dag, fakeSigner{self: self}, time.Hour, nil, nil)
}

func alwaysResident([]types.TransmissionID) bool { return true }

func TestProposeMovesToGatheringSignatures(t *testing.T) {
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()
	p := newTestPrimary(t, keys[0], c, dag)

	header, err := p.Propose(nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), header.Round)
	require.Equal(t, GatheringSignatures, p.State())
}

func TestReceiveSignatureFormsCertificateAtQuorum(t *testing.T) {
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()
	p := newTestPrimary(t, keys[0], c, dag)

	_, err := p.Propose(nil, nil)
	require.NoError(t, err)

	for _, k := range keys[1:3] {
		sig := types.Signature{Signer: k, HeaderHash: p.ownHeaderHash, Value: []byte(k[:])}
		cert, err := p.ReceiveSignatureOnOwnHeader(sig)
		if err == nil {
			require.NotNil(t, cert)
			require.Equal(t, CertifyingPeers, p.State())
			return
		}
		require.ErrorIs(t, err, corerr.ErrQuorumNotReached)
	}
	t.Fatal("expected quorum to be reached before exhausting signers")
}

func TestReceiveSignatureRejectsUnknownSigner(t *testing.T) {
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()
	p := newTestPrimary(t, keys[0], c, dag)
	_, err := p.Propose(nil, nil)
	require.NoError(t, err)

	stranger := ids.GenerateTestNodeID()
	_, err = p.ReceiveSignatureOnOwnHeader(types.Signature{Signer: stranger, HeaderHash: p.ownHeaderHash, Value: []byte("x")})
	require.ErrorIs(t, err, corerr.ErrInvalidCommittee)
}

func TestAcceptPeerHeaderRejectsWrongCommittee(t *testing.T) {
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()
	p := newTestPrimary(t, keys[0], c, dag)

	header := &types.BatchHeader{
		Author:      keys[1],
		Round:       1,
		Timestamp:   time.Now(),
		CommitteeID: ids.GenerateTestID(),
	}
	_, err := p.AcceptPeerHeader(header, alwaysResident)
	require.ErrorIs(t, err, corerr.ErrProtocolViolation)
}

func TestAcceptPeerHeaderCountersignsValidHeader(t *testing.T) {
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()
	p := newTestPrimary(t, keys[0], c, dag)

	header := &types.BatchHeader{
		Author:      keys[1],
		Round:       1,
		Timestamp:   time.Now(),
		CommitteeID: c.ID(),
	}
	sig, err := p.AcceptPeerHeader(header, alwaysResident)
	require.NoError(t, err)
	require.Equal(t, keys[0], sig.Signer)
}

func TestAcceptPeerHeaderDetectsEquivocation(t *testing.T) {
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()
	p := newTestPrimary(t, keys[0], c, dag)

	headerA := &types.BatchHeader{Author: keys[1], Round: 1, Timestamp: time.Now(), CommitteeID: c.ID()}
	_, err := p.AcceptPeerHeader(headerA, alwaysResident)
	require.NoError(t, err)

	headerB := &types.BatchHeader{
		Author: keys[1], Round: 1, Timestamp: time.Now(), CommitteeID: c.ID(),
		TransmissionIDs: []types.TransmissionID{{Kind: types.KindTransaction, Checksum: 1}},
	}
	_, err = p.AcceptPeerHeader(headerB, alwaysResident)
	require.ErrorIs(t, err, corerr.ErrProtocolViolation)
}

func TestAcceptPeerHeaderSurfacesMissingDependency(t *testing.T) {
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()
	p := newTestPrimary(t, keys[0], c, dag)

	header := &types.BatchHeader{Author: keys[1], Round: 1, Timestamp: time.Now(), CommitteeID: c.ID()}
	_, err := p.AcceptPeerHeader(header, func([]types.TransmissionID) bool { return false })
	require.ErrorIs(t, err, corerr.ErrMissingDependency)
}

func TestAdvanceIfQuorumRequiresStake(t *testing.T) {
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()
	p := newTestPrimary(t, keys[0], c, dag)

	_, advanced := p.AdvanceIfQuorum()
	require.False(t, advanced)

	for i, k := range keys[:3] {
		header := types.BatchHeader{Author: k, Round: 1, Timestamp: time.Now()}
		cert := &types.Certificate{Header: header, Signatures: []types.Signature{
			{Signer: k, HeaderHash: header.Hash(), Value: []byte(k[:])},
		}}
		dag.Insert(cert)
		_ = i
	}

	round, advanced := p.AdvanceIfQuorum()
	require.True(t, advanced)
	require.Equal(t, uint64(2), round)
	require.Equal(t, Proposing, p.State())
}

func TestReceiveCertificateRejectsBelowQuorum(t *testing.T) {
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()
	p := newTestPrimary(t, keys[0], c, dag)

	header := types.BatchHeader{Author: keys[1], Round: 1, Timestamp: time.Now(), CommitteeID: c.ID()}
	cert := &types.Certificate{Header: header, Signatures: []types.Signature{
		{Signer: keys[1], HeaderHash: header.Hash(), Value: []byte(keys[1][:])},
	}}

	err := p.ReceiveCertificate(cert)
	require.ErrorIs(t, err, corerr.ErrProtocolViolation)
}
