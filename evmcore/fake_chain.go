// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package evmcore provides the minimal chain execution context the reward
// engines depend on: block heights and retrievable block hashes. The
// engines never execute transactions; they only need a head height to
// timestamp commitments against and a delayed block hash to feed the
// lottery's randomness source.
//
// This file implements a fake in-process chain for development and tests.
// Block hashes are derived deterministically from a seed, so a whole
// lottery run can be replayed bit-for-bit, while still being unknowable
// "in advance" from the perspective of a commitment made at an earlier
// height — exactly the property the commit-reveal protocol relies on.
package evmcore

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-opera-tower/inter"
)

// FakeGenesisTime is the default timestamp of the fake genesis block.
// Timestamp: 1608600000 seconds since the Unix epoch (December 22, 2020),
// kept from the node's fake-network tooling so replays line up.
var FakeGenesisTime = inter.Timestamp(1608600000 * uint64(time.Second))

// BlockHashHorizon is how many recent block hashes stay retrievable,
// mirroring the EVM's BLOCKHASH opcode limit. Hashes older than this are
// gone, which is what ultimately expires unresolved commitments.
const BlockHashHorizon idx.Block = 256

// FakeBlockInterval is the simulated time between consecutive fake blocks.
const FakeBlockInterval = time.Second

// FakeChain is a deterministic chain stub: height, per-block hashes and a
// synthetic clock. Safe for concurrent use.
type FakeChain struct {
	mu   sync.RWMutex
	seed common.Hash
	head idx.Block
}

// NewFakeChain creates a fake chain at height 0 whose block hashes are all
// derived from the seed. Two chains with the same seed are identical.
func NewFakeChain(seed common.Hash) *FakeChain {
	return &FakeChain{seed: seed}
}

// Advance appends n blocks and returns the new head height.
func (c *FakeChain) Advance(n idx.Block) idx.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head += n
	return c.head
}

// HeadHeight returns the height of the latest block.
func (c *FakeChain) HeadHeight() idx.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head
}

// BlockHash returns the hash of the block at the given height, and whether
// it is still retrievable: heights above the head do not exist yet, and
// heights more than BlockHashHorizon below it have aged out.
func (c *FakeChain) BlockHash(height idx.Block) (common.Hash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if height > c.head {
		return common.Hash{}, false
	}
	if c.head-height >= BlockHashHorizon {
		return common.Hash{}, false
	}
	return c.hashOf(height), true
}

// Time returns the synthetic timestamp of the current head block.
func (c *FakeChain) Time() inter.Timestamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return FakeGenesisTime + inter.Timestamp(uint64(c.head)*uint64(FakeBlockInterval))
}

// hashOf derives the deterministic hash of a block: keccak256(seed || height).
func (c *FakeChain) hashOf(height idx.Block) common.Hash {
	var hb [8]byte
	binary.BigEndian.PutUint64(hb[:], uint64(height))
	return crypto.Keccak256Hash(c.seed.Bytes(), hb[:])
}
