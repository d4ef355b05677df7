// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pending

import (
	"testing"
	"time"

	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/types"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

type recordingRequester struct {
	requests []struct {
		peer types.NodeID
		id   types.ID
	}
}

func (r *recordingRequester) RequestFetch(peer types.NodeID, id types.ID) {
	r.requests = append(r.requests, struct {
		peer types.NodeID
		id   types.ID
	}{peer, id})
}

func notResident() ([]byte, bool) { return nil, false }

func TestGetOrFetchResolvesImmediatelyWhenResident(t *testing.T) {
	f := New(4, &recordingRequester{}, nil, nil)
	id := ids.GenerateTestID()
	peer := ids.GenerateTestNodeID()

	ch := f.GetOrFetch(peer, id, func() ([]byte, bool) { return []byte("body"), true })
	res := <-ch
	require.NoError(t, res.Err)
	require.Equal(t, []byte("body"), res.Body)
	require.False(t, f.Pending(id))
}

func TestGetOrFetchSendsAtMostOneRequestPerPeer(t *testing.T) {
	req := &recordingRequester{}
	f := New(4, req, nil, nil)
	id := ids.GenerateTestID()
	peer := ids.GenerateTestNodeID()

	f.GetOrFetch(peer, id, notResident)
	f.GetOrFetch(peer, id, notResident)

	require.Len(t, req.requests, 1)
	require.Len(t, f.AttemptedPeers(id), 1)
}

func TestGetOrFetchRespectsRedundancyBound(t *testing.T) {
	req := &recordingRequester{}
	f := New(2, req, nil, nil)
	id := ids.GenerateTestID()
	peers := []types.NodeID{ids.GenerateTestNodeID(), ids.GenerateTestNodeID(), ids.GenerateTestNodeID()}

	for _, p := range peers {
		f.GetOrFetch(p, id, notResident)
	}

	require.Len(t, req.requests, 2, "a third distinct peer must not trigger a new request once maxRedundancy is reached")
	require.Len(t, f.AttemptedPeers(id), 2)
}

func TestDeliverFiresAllParkedCallbacksExactlyOnce(t *testing.T) {
	f := New(4, &recordingRequester{}, nil, nil)
	id := ids.GenerateTestID()
	peerA := ids.GenerateTestNodeID()
	peerB := ids.GenerateTestNodeID()

	chA := f.GetOrFetch(peerA, id, notResident)
	chB := f.GetOrFetch(peerB, id, notResident)

	f.Deliver(id, []byte("payload"))

	resA := <-chA
	resB := <-chB
	require.Equal(t, []byte("payload"), resA.Body)
	require.Equal(t, []byte("payload"), resB.Body)
	require.False(t, f.Pending(id))
}

func TestExpireOlderThanFailsCallbacksWithTimeout(t *testing.T) {
	f := New(4, &recordingRequester{}, nil, nil)
	id := ids.GenerateTestID()
	peer := ids.GenerateTestNodeID()

	ch := f.GetOrFetch(peer, id, notResident)
	f.ExpireOlderThan(time.Now().Add(time.Second))

	res := <-ch
	require.ErrorIs(t, res.Err, corerr.ErrFetchTimeout)
	require.False(t, f.Pending(id))
}

func TestExpireOlderThanLeavesFreshEntriesUntouched(t *testing.T) {
	f := New(4, &recordingRequester{}, nil, nil)
	id := ids.GenerateTestID()
	peer := ids.GenerateTestNodeID()

	f.GetOrFetch(peer, id, notResident)
	f.ExpireOlderThan(time.Now().Add(-time.Hour))

	require.True(t, f.Pending(id))
}
