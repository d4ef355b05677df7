// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package durable

import (
	"testing"
	"time"

	"github.com/aleobft/core/types"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func testTransmissionID(t *testing.T, seed byte) types.TransmissionID {
	t.Helper()
	var hash types.ID
	hash[0] = seed
	return types.TransmissionID{Kind: types.KindTransaction, ContentHash: hash, Checksum: uint32(seed)}
}

func testHeader(t *testing.T, tids ...types.TransmissionID) *types.BatchHeader {
	t.Helper()
	return &types.BatchHeader{
		Author:          ids.GenerateTestNodeID(),
		Round:           1,
		Timestamp:       time.Unix(0, 0),
		TransmissionIDs: tids,
	}
}

func TestFindMissingFailsOnUnresolvedDependency(t *testing.T) {
	s := New(memdb.New(), nil, nil)
	tid := testTransmissionID(t, 1)
	header := testHeader(t, tid)

	_, err := s.FindMissing(header, nil, nil)
	require.Error(t, err)
}

func TestFindMissingResolvesFromSupplied(t *testing.T) {
	s := New(memdb.New(), nil, nil)
	tid := testTransmissionID(t, 1)
	header := testHeader(t, tid)
	supplied := map[types.ID][]byte{tid.ID(): []byte("body")}

	missing, err := s.FindMissing(header, supplied, nil)
	require.NoError(t, err)
	require.Equal(t, supplied, missing)
}

func TestInsertIsRefCounted(t *testing.T) {
	s := New(memdb.New(), nil, nil)
	tid := testTransmissionID(t, 1)
	certA := ids.GenerateTestID()
	certB := ids.GenerateTestID()

	s.Insert(certA, []types.TransmissionID{tid}, nil, map[types.ID][]byte{tid.ID(): []byte("x")})
	s.Insert(certB, []types.TransmissionID{tid}, nil, nil)

	require.Equal(t, 2, s.RefCount(tid.ID()))
	require.True(t, s.Contains(tid.ID()))

	body, ok := s.Get(tid.ID())
	require.True(t, ok)
	require.Equal(t, []byte("x"), body)
}

func TestRemoveDropsOnlyWhenRefSetEmpties(t *testing.T) {
	s := New(memdb.New(), nil, nil)
	tid := testTransmissionID(t, 1)
	certA := ids.GenerateTestID()
	certB := ids.GenerateTestID()

	s.Insert(certA, []types.TransmissionID{tid}, nil, map[types.ID][]byte{tid.ID(): []byte("x")})
	s.Insert(certB, []types.TransmissionID{tid}, nil, nil)

	s.Remove(certA, []types.TransmissionID{tid})
	require.True(t, s.Contains(tid.ID()))
	require.Equal(t, 1, s.RefCount(tid.ID()))

	s.Remove(certB, []types.TransmissionID{tid})
	require.False(t, s.Contains(tid.ID()))
}

func TestRemoveOverRemovalIsNoOp(t *testing.T) {
	s := New(memdb.New(), nil, nil)
	tid := testTransmissionID(t, 1)
	certA := ids.GenerateTestID()
	unrelated := ids.GenerateTestID()

	s.Insert(certA, []types.TransmissionID{tid}, nil, map[types.ID][]byte{tid.ID(): []byte("x")})
	s.Remove(unrelated, []types.TransmissionID{tid})

	require.True(t, s.Contains(tid.ID()))
	require.Equal(t, 1, s.RefCount(tid.ID()))
}

func TestAbortedTransmissionsTrackedSeparatelyFromLive(t *testing.T) {
	s := New(memdb.New(), nil, nil)
	tid := testTransmissionID(t, 9)
	certID := ids.GenerateTestID()

	s.Insert(certID, nil, []types.TransmissionID{tid}, nil)

	require.True(t, s.Contains(tid.ID()))
	_, ok := s.Get(tid.ID())
	require.False(t, ok, "aborted transmissions have no body and are not returned by Get")
}

func TestInsertRemoveRoundTripLeavesStoreUnchanged(t *testing.T) {
	s := New(memdb.New(), nil, nil)
	tidA := testTransmissionID(t, 1)
	tidB := testTransmissionID(t, 2)
	certID := ids.GenerateTestID()

	s.Insert(certID, []types.TransmissionID{tidA, tidB}, nil, map[types.ID][]byte{
		tidA.ID(): []byte("a"),
		tidB.ID(): []byte("b"),
	})
	s.Remove(certID, []types.TransmissionID{tidA, tidB})

	require.False(t, s.Contains(tidA.ID()))
	require.False(t, s.Contains(tidB.ID()))
}

func TestMultipleTransmissionsDoNotCollideOnDisk(t *testing.T) {
	s := New(memdb.New(), nil, nil)
	tidA := testTransmissionID(t, 1)
	tidB := testTransmissionID(t, 2)
	certID := ids.GenerateTestID()

	s.Insert(certID, []types.TransmissionID{tidA, tidB}, nil, map[types.ID][]byte{
		tidA.ID(): []byte("a"),
		tidB.ID(): []byte("b"),
	})

	bodyA, ok := s.Get(tidA.ID())
	require.True(t, ok)
	require.Equal(t, []byte("a"), bodyA)

	bodyB, ok := s.Get(tidB.ID())
	require.True(t, ok)
	require.Equal(t, []byte("b"), bodyB)
}
