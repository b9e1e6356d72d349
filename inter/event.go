package inter

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// LedgerEvent is the common interface of the audit records emitted by the
// engines. Every mutating operation that succeeds produces exactly one
// event; listeners receive them in the same total order the mutations were
// applied in.
type LedgerEvent interface {
	// Kind returns a stable, log-friendly name for the event type.
	Kind() string
}

// EntryEvent records a successful entry into the ledger.
type EntryEvent struct {
	Account  common.Address // the entrant
	Position PositionID     // the freshly appended position
	Round    idx.Epoch      // the round the position belongs to
	Amount   *big.Int       // the full entry payment
	Time     Timestamp
}

// ClaimEvent records a payout of accrued earnings.
type ClaimEvent struct {
	Account common.Address
	Amount  *big.Int // total paid across all of the account's positions
	Time    Timestamp
}

// CommitEvent records a new lottery commitment.
type CommitEvent struct {
	Position PositionID
	Account  common.Address
	Hash     common.Hash // keccak256 of the committer's secret
	Height   idx.Block   // commit-time block height
	Time     Timestamp
}

// ToppleEvent records a lottery win: the pot drained and the tower reset.
type ToppleEvent struct {
	Round  idx.Epoch      // the round that just ended
	Winner common.Address // the account the pot was paid to
	Pot    *big.Int       // the full pot amount
	Height idx.Block      // head height just before the reset
	Time   Timestamp
}

// ExpireEvent records a commitment timing out without resolution.
type ExpireEvent struct {
	Position PositionID
	Account  common.Address // the original committer
	Height   idx.Block      // commit-time block height of the expired attempt
	Time     Timestamp
}

// RuleChangeEvent records an owner-gated configuration mutation.
// What gets a record: entry cost, split ratios, pause state, pool withdrawals.
type RuleChangeEvent struct {
	Parameter string         // which knob was turned, e.g. "entrycost"
	By        common.Address // always the owner; kept for the audit trail
	Detail    string         // human-readable old -> new description
	Time      Timestamp
}

func (e EntryEvent) Kind() string      { return "entry" }
func (e ClaimEvent) Kind() string      { return "claim" }
func (e CommitEvent) Kind() string     { return "commit" }
func (e ToppleEvent) Kind() string     { return "topple" }
func (e ExpireEvent) Kind() string     { return "expire" }
func (e RuleChangeEvent) Kind() string { return "rulechange" }
