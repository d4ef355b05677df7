// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package primary

import (
	"testing"
	"time"

	"github.com/aleobft/core/bft"
	"github.com/aleobft/core/committee"
	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/primary/primarymock"
	"github.com/aleobft/core/types"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// TestReceiveCertificateVerifiesEverySignatureExactlyOnce pins the
// concurrent-verification contract: every signature in the certificate
// gets its own Verify call, regardless of fan-out order, and quorum is
// only accepted once all of them pass.
func TestReceiveCertificateVerifiesEverySignatureExactlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()

	mockSigner := primarymock.NewSigner(ctrl)
	p := New(keys[0], committee.NewSnapshot(c), dag, mockSigner, time.Hour, nil, nil)

	header := types.BatchHeader{Author: keys[0], Round: 1, Timestamp: time.Now(), CommitteeID: c.ID()}
	headerHash := header.Hash()
	cert := &types.Certificate{Header: header, Signatures: []types.Signature{
		{Signer: keys[0], HeaderHash: headerHash, Value: []byte("a")},
		{Signer: keys[1], HeaderHash: headerHash, Value: []byte("b")},
		{Signer: keys[2], HeaderHash: headerHash, Value: []byte("c")},
	}}

	for _, sig := range cert.Signatures {
		mockSigner.EXPECT().Verify(sig.Signer, headerHash, sig.Value).Return(true).Times(1)
	}

	err := p.ReceiveCertificate(cert)
	require.NoError(t, err)
	_, ok := dag.Get(cert.ID())
	require.True(t, ok)
}

func TestReceiveCertificateRejectsWhenAnySignatureFailsVerification(t *testing.T) {
	ctrl := gomock.NewController(t)
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()

	mockSigner := primarymock.NewSigner(ctrl)
	p := New(keys[0], committee.NewSnapshot(c), dag, mockSigner, time.Hour, nil, nil)

	header := types.BatchHeader{Author: keys[0], Round: 1, Timestamp: time.Now(), CommitteeID: c.ID()}
	headerHash := header.Hash()
	cert := &types.Certificate{Header: header, Signatures: []types.Signature{
		{Signer: keys[0], HeaderHash: headerHash, Value: []byte("a")},
		{Signer: keys[1], HeaderHash: headerHash, Value: []byte("bad")},
		{Signer: keys[2], HeaderHash: headerHash, Value: []byte("c")},
	}}

	mockSigner.EXPECT().Verify(keys[0], headerHash, []byte("a")).Return(true).AnyTimes()
	mockSigner.EXPECT().Verify(keys[1], headerHash, []byte("bad")).Return(false).AnyTimes()
	mockSigner.EXPECT().Verify(keys[2], headerHash, []byte("c")).Return(true).AnyTimes()

	err := p.ReceiveCertificate(cert)
	require.Error(t, err)
	_, ok := dag.Get(cert.ID())
	require.False(t, ok)
}

// TestReceiveCertificateRejectsNonMemberSignerWithoutVerifyingAny pins
// that committee membership is checked for every signer before any
// verification goroutine is launched: a non-member signer anywhere in
// the list must reject the certificate with no Verify call at all, so
// every launched goroutine is still joined by g.Wait() rather than
// abandoned behind an early return.
func TestReceiveCertificateRejectsNonMemberSignerWithoutVerifyingAny(t *testing.T) {
	ctrl := gomock.NewController(t)
	c, keys := fourNodeCommittee(t)
	dag := bft.NewDAG()

	mockSigner := primarymock.NewSigner(ctrl)
	p := New(keys[0], committee.NewSnapshot(c), dag, mockSigner, time.Hour, nil, nil)

	header := types.BatchHeader{Author: keys[0], Round: 1, Timestamp: time.Now(), CommitteeID: c.ID()}
	headerHash := header.Hash()
	outsider := ids.GenerateTestNodeID()
	cert := &types.Certificate{Header: header, Signatures: []types.Signature{
		{Signer: keys[0], HeaderHash: headerHash, Value: []byte("a")},
		{Signer: outsider, HeaderHash: headerHash, Value: []byte("b")},
		{Signer: keys[2], HeaderHash: headerHash, Value: []byte("c")},
	}}

	mockSigner.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	err := p.ReceiveCertificate(cert)
	require.ErrorIs(t, err, corerr.ErrInvalidCommittee)
	_, ok := dag.Get(cert.ID())
	require.False(t, ok)
}
