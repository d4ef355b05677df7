// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package worker

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/pending"
	"github.com/aleobft/core/ready"
	"github.com/aleobft/core/storage/memory"
	"github.com/aleobft/core/types"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

type nopRequester struct{}

func (nopRequester) RequestFetch(types.NodeID, types.ID) {}

type recordingGossiper struct {
	calls int
}

func (g *recordingGossiper) Gossip(types.ID, types.TransmissionKind, []byte) { g.calls++ }

type rejectAllValidator struct{}

func (rejectAllValidator) ValidateSolution(body []byte) error    { return errors.New("rejected") }
func (rejectAllValidator) ValidateTransaction(body []byte) error { return errors.New("rejected") }

func newTestWorker(v Validator, g Gossiper) (*Worker, *memory.Store) {
	store := memory.New(nil, nil)
	w := New(ready.New(nil), pending.New(4, nopRequester{}, nil, nil), store, v, g, nil, nil)
	return w, store
}

func transmissionFor(body []byte, kind types.TransmissionKind) (types.TransmissionID, []byte) {
	hash := sha256.Sum256(body)
	return types.TransmissionID{Kind: kind, ContentHash: types.ID(hash), Checksum: 1}, body
}

func TestProcessTransmissionFromPeerAdmitsValidBody(t *testing.T) {
	w, _ := newTestWorker(nil, nil)
	tid, body := transmissionFor([]byte("payload"), types.KindTransaction)

	err := w.ProcessTransmissionFromPeer(ids.GenerateTestNodeID(), tid, body)
	require.NoError(t, err)
	require.True(t, w.ready.Contains(tid.ID()))
}

func TestProcessTransmissionFromPeerRejectsHashMismatch(t *testing.T) {
	w, _ := newTestWorker(nil, nil)
	tid, _ := transmissionFor([]byte("payload"), types.KindTransaction)

	err := w.ProcessTransmissionFromPeer(ids.GenerateTestNodeID(), tid, []byte("tampered"))
	require.ErrorIs(t, err, corerr.ErrProtocolViolation)
	require.False(t, w.ready.Contains(tid.ID()))
}

func TestProcessTransmissionFromPeerRejectsFailedValidation(t *testing.T) {
	w, _ := newTestWorker(rejectAllValidator{}, nil)
	tid, body := transmissionFor([]byte("solution-bytes"), types.KindSolution)

	err := w.ProcessTransmissionFromPeer(ids.GenerateTestNodeID(), tid, body)
	require.Error(t, err)
	require.False(t, w.ready.Contains(tid.ID()))
}

func TestProcessTransmissionFromPeerGossipsOnNewAdmission(t *testing.T) {
	g := &recordingGossiper{}
	w, _ := newTestWorker(nil, g)
	tid, body := transmissionFor([]byte("payload"), types.KindTransaction)

	require.NoError(t, w.ProcessTransmissionFromPeer(ids.GenerateTestNodeID(), tid, body))
	require.NoError(t, w.ProcessTransmissionFromPeer(ids.GenerateTestNodeID(), tid, body))
	require.Equal(t, 1, g.calls, "a duplicate admission must not re-gossip")
}

func TestContainsTransmissionQueriesStorage(t *testing.T) {
	w, store := newTestWorker(nil, nil)
	tid, body := transmissionFor([]byte("payload"), types.KindTransaction)
	certID := ids.GenerateTestID()

	require.False(t, w.ContainsTransmission(tid.ID()))
	store.Insert(certID, []types.TransmissionID{tid}, nil, map[types.ID][]byte{tid.ID(): body})
	require.True(t, w.ContainsTransmission(tid.ID()))
}

func TestGetOrFetchTransmissionResolvesFromStorage(t *testing.T) {
	w, store := newTestWorker(nil, nil)
	tid, body := transmissionFor([]byte("payload"), types.KindTransaction)
	certID := ids.GenerateTestID()
	store.Insert(certID, []types.TransmissionID{tid}, nil, map[types.ID][]byte{tid.ID(): body})

	ch := w.GetOrFetchTransmission(ids.GenerateTestNodeID(), tid.ID())
	res := <-ch
	require.NoError(t, res.Err)
	require.Equal(t, body, res.Body)
}
