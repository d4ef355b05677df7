// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ready

import (
	"testing"

	"github.com/aleobft/core/types"
	"github.com/stretchr/testify/require"
)

func testID(seed byte) types.ID {
	var id types.ID
	id[0] = seed
	return id
}

func TestInsertReturnsFalseOnDuplicate(t *testing.T) {
	q := New(nil)
	id := testID(1)

	require.True(t, q.Insert(id, types.KindTransaction, []byte("a")))
	require.False(t, q.Insert(id, types.KindTransaction, []byte("b")))
	require.Equal(t, 1, q.Len())
}

func TestContainsAndGet(t *testing.T) {
	q := New(nil)
	id := testID(1)
	q.Insert(id, types.KindTransaction, []byte("body"))

	require.True(t, q.Contains(id))
	body, ok := q.Get(id)
	require.True(t, ok)
	require.Equal(t, []byte("body"), body)

	_, ok = q.Get(testID(2))
	require.False(t, ok)
}

func TestDrainPreservesInsertionOrder(t *testing.T) {
	q := New(nil)
	ids := []types.ID{testID(1), testID(2), testID(3)}
	for i, id := range ids {
		q.Insert(id, types.KindTransaction, []byte{byte(i)})
	}

	drained := q.Drain(2)
	require.Len(t, drained, 2)
	_, ok := drained[ids[0]]
	require.True(t, ok)
	_, ok = drained[ids[1]]
	require.True(t, ok)
	require.Equal(t, 1, q.Len())

	rest := q.Drain(10)
	require.Len(t, rest, 1)
	require.Equal(t, 0, q.Len())
}

func TestClearSolutionsRemovesOnlySolutionKind(t *testing.T) {
	q := New(nil)
	tx := testID(1)
	sol := testID(2)
	q.Insert(tx, types.KindTransaction, []byte("tx"))
	q.Insert(sol, types.KindSolution, []byte("sol"))

	q.ClearSolutions()

	require.True(t, q.Contains(tx))
	require.False(t, q.Contains(sol))
	require.Equal(t, 1, q.Len())
}

func TestDrainZeroIsNoOp(t *testing.T) {
	q := New(nil)
	q.Insert(testID(1), types.KindTransaction, []byte("a"))

	drained := q.Drain(0)
	require.Empty(t, drained)
	require.Equal(t, 1, q.Len())
}
