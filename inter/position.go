// Package inter defines the core data structures shared across the reward
// ledger: positions, lottery commitments and the event records the engines
// emit. These types bridge the accounting core (ledger, lottery) and the
// supporting layers (store, launcher) the same way consensus data structures
// bridge the DAG and the execution layer in the node.
//
// Key concepts:
//   - Position: one participant's entry into the ledger. Identified by a
//     strictly increasing sequence number that is never reused.
//   - EarningsDebt: the snapshot of the global accumulator taken at entry
//     time. A position only earns from value distributed after it existed.
//   - Round: the lottery epoch a position belongs to (tower variant). A
//     topple seals the current round and starts the next one.
//
// Positions are immutable once created, with a single exception: Claimed,
// which only the claim operation advances and which never decreases.

package inter

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// PositionID is the entry sequence number of a position.
// IDs are 1-indexed, strictly increasing and never reused, so they double as
// a total order of entries and as the arena key in the store.
type PositionID uint64

// Position represents one participant's entry into the reward ledger.
type Position struct {
	// ID is the entry sequence number. The first position ever created is 1.
	ID PositionID

	// Owner is the account that paid for the entry and collects its earnings.
	Owner common.Address

	// Created is the time the entry was applied.
	Created Timestamp

	// Round identifies the lottery epoch the position was created in.
	// The stack variant has no lottery and keeps every position in round 0.
	Round idx.Epoch

	// EarningsDebt is the value of the global accumulator at entry time,
	// scaled by the accumulator precision. It is immutable once set: the
	// position's accrued earnings are always measured against this snapshot,
	// which is what makes entries O(1) regardless of population size.
	EarningsDebt *big.Int

	// Claimed is the total amount already paid out to the owner for this
	// position. Monotonically non-decreasing; only the claim operation
	// advances it, and never past the position's accrued earnings.
	Claimed *big.Int
}

// NewPosition creates a position with the given identity and accumulator
// snapshot. The debt is deep-copied so later accumulator advances cannot
// reach back into the position.
func NewPosition(id PositionID, owner common.Address, created Timestamp, round idx.Epoch, debt *big.Int) *Position {
	return &Position{
		ID:           id,
		Owner:        owner,
		Created:      created,
		Round:        round,
		EarningsDebt: new(big.Int).Set(debt),
		Claimed:      new(big.Int),
	}
}

// Copy creates a deep copy of the position.
// Necessary because EarningsDebt and Claimed are *big.Int and would be
// shared by a shallow copy, leading to unintended mutations.
func (p *Position) Copy() *Position {
	cp := *p
	cp.EarningsDebt = new(big.Int).Set(p.EarningsDebt)
	cp.Claimed = new(big.Int).Set(p.Claimed)
	return &cp
}
