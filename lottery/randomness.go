// Package lottery implements the commit-reveal protocol that gates the
// tower payout: commitments to a secret, reveals validated against a
// delayed public randomness source, win-condition rolls and expiry.
//
// Fairness model:
//
//	The randomness for a commitment derives from information unknown at
//	commit time (a block produced after the commitment) combined with a
//	secret chosen by the player before that block exists. The committer
//	cannot bias the outcome (they commit before the randomness exists) and
//	observers cannot front-run it (they do not know the secret). The reveal
//	window bounds how long a commitment can stay pending or exploitable.
package lottery

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// RandomnessSource is the delayed public randomness capability.
//
// For a commitment recorded at some height, the source yields a value that
// did not exist at that height and stops yielding it once the height falls
// out of the retrievable horizon. On a chain this is the hash of the block
// after the commit block; any reimplementation needs an equivalent delayed,
// externally-unpredictable-at-commit-time source (a threshold beacon, a
// VDF) to preserve the fairness property.
type RandomnessSource interface {
	// Head returns the current height, used to measure reveal windows.
	Head() idx.Block

	// Randomness returns the public randomness for a commitment recorded
	// at the given height and whether it is retrievable: false both before
	// the value exists and after it has aged out.
	Randomness(height idx.Block) (common.Hash, bool)
}

// ChainReader is the minimal chain surface a chain-backed source needs.
// evmcore.FakeChain implements it for local runs and tests.
type ChainReader interface {
	// HeadHeight returns the height of the latest block.
	HeadHeight() idx.Block

	// BlockHash returns the hash of the block at the given height, and
	// whether it is still retrievable within the chain's hash horizon.
	BlockHash(height idx.Block) (common.Hash, bool)
}

// ChainSource derives commitment randomness from block hashes: the
// randomness for a commitment at height h is the hash of block h+1, the
// first block the committer could not have known when committing.
type ChainSource struct {
	chain ChainReader
}

// NewChainSource wraps a chain as a randomness source.
func NewChainSource(chain ChainReader) *ChainSource {
	return &ChainSource{chain: chain}
}

// Head returns the chain's current height.
func (s *ChainSource) Head() idx.Block {
	return s.chain.HeadHeight()
}

// Randomness returns the hash of the block following the commit height.
// Unavailable while that block does not exist yet, and again once it has
// fallen out of the chain's retrievable horizon.
func (s *ChainSource) Randomness(height idx.Block) (common.Hash, bool) {
	target := height + 1
	if s.chain.HeadHeight() < target {
		return common.Hash{}, false
	}
	return s.chain.BlockHash(target)
}
