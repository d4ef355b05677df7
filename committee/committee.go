// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package committee holds the stake-weighted validator set fixed per
// epoch (spec §3) along with the quorum and availability thresholds
// derived from it. Grounded on validators/validators.go's Set/Manager
// interfaces, narrowed to the stake arithmetic this domain needs.
package committee

import (
	"fmt"
	"sort"

	"github.com/aleobft/core/types"
)

// Committee is an immutable mapping from validator key to stake weight,
// fixed per epoch (spec §3).
type Committee struct {
	id      types.ID
	epoch   uint64
	members map[types.NodeID]uint64
	total   uint64
}

// New builds a Committee from a stake map. The committee ID is derived
// deterministically from the epoch and sorted membership so every
// honest node computes the same ID for the same committee.
func New(epoch uint64, members map[types.NodeID]uint64) (*Committee, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("committee: empty member set")
	}
	cloned := make(map[types.NodeID]uint64, len(members))
	var total uint64
	for id, stake := range members {
		if stake == 0 {
			return nil, fmt.Errorf("committee: validator %s has zero stake", id)
		}
		cloned[id] = stake
		total += stake
	}
	c := &Committee{epoch: epoch, members: cloned, total: total}
	c.id = c.computeID()
	return c, nil
}

func (c *Committee) computeID() types.ID {
	keys := make([]types.NodeID, 0, len(c.members))
	for id := range c.members {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return types.LessNodeID(keys[i], keys[j]) })

	h := BatchHasher()
	writeUint64(h, c.epoch)
	for _, k := range keys {
		h.Write(k[:])
		writeUint64(h, c.members[k])
	}
	var out types.ID
	copy(out[:], h.Sum(nil))
	return out
}

// ID is the deterministic committee identifier, matched against
// BatchHeader.CommitteeID during batch-header acceptance (spec §4.E).
func (c *Committee) ID() types.ID { return c.id }

// Epoch returns the epoch this committee snapshot belongs to.
func (c *Committee) Epoch() uint64 { return c.epoch }

// Size returns the number of validators in the committee.
func (c *Committee) Size() int { return len(c.members) }

// TotalStake returns the sum of every validator's stake weight.
func (c *Committee) TotalStake() uint64 { return c.total }

// Contains reports whether id is a member of this committee.
func (c *Committee) Contains(id types.NodeID) bool {
	_, ok := c.members[id]
	return ok
}

// StakeOf returns id's stake weight, or 0 if id is not a member.
func (c *Committee) StakeOf(id types.NodeID) uint64 {
	return c.members[id]
}

// Members returns every validator key in the committee. The returned
// slice is a copy; callers are free to mutate it.
func (c *Committee) Members() []types.NodeID {
	out := make([]types.NodeID, 0, len(c.members))
	for id := range c.members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return types.LessNodeID(out[i], out[j]) })
	return out
}

// QuorumThreshold is the minimum stake needed to form a certificate
// (spec §3): ⌊2·total_stake/3⌋+1, the standard BFT quorum bound that
// reduces to the familiar 2f+1-of-3f+1 validators when stake is equal
// per validator (spec §8's committee-size-4 boundary: quorum=3).
func (c *Committee) QuorumThreshold() uint64 {
	return (2*c.total)/3 + 1
}

// AvailabilityThreshold is the minimum stake that guarantees at least
// one honest signer (spec §3, GLOSSARY): ⌊total_stake/3⌋+1, reducing
// to f+1 validators under equal stake (spec §8: availability=2 at
// committee size 4).
func (c *Committee) AvailabilityThreshold() uint64 {
	return c.total/3 + 1
}

// StakeOfSet sums the stake of a set of distinct validator keys,
// ignoring any key not in the committee.
func (c *Committee) StakeOfSet(ids []types.NodeID) uint64 {
	var sum uint64
	seen := make(map[types.NodeID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sum += c.members[id]
	}
	return sum
}

// HasQuorum reports whether the stake of a distinct set of validator
// keys reaches the quorum threshold.
func (c *Committee) HasQuorum(ids []types.NodeID) bool {
	return c.StakeOfSet(ids) >= c.QuorumThreshold()
}

// HasAvailability reports whether the stake of a distinct set of
// validator keys reaches the availability threshold (spec §4.F's
// anchor commit rule: "at least f+1 distinct authors").
func (c *Committee) HasAvailability(ids []types.NodeID) bool {
	return c.StakeOfSet(ids) >= c.AvailabilityThreshold()
}
