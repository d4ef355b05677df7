// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package committee

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// BatchHasher returns the hash function used to derive deterministic
// committee IDs. Kept as a single named constructor so every call site
// that needs "the" committee hash uses the same primitive.
func BatchHasher() hash.Hash { return sha256.New() }

func writeUint64(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}
