// Package ledger implements the proportional distribution core of the
// reward contracts: the positions arena and the global fixed-point
// accumulator.
//
// The accumulator pattern:
//
//	Paying every existing position on every entry would cost O(n) per entry
//	and grow without bound as the population grows. Instead the ledger keeps
//	one global accumulator: when an entry distributes a participant share S
//	across n active positions, the accumulator advances by S*precision/n and
//	no per-position storage is touched. A position created when the
//	accumulator was at D (its earnings debt) has accrued exactly
//	(accumulator-D)/precision at any later point. Every operation is O(1)
//	in the population size; only claiming iterates, and only over the
//	claimant's own positions.
//
// Rounds:
//
//	The tower variant resets the structure when the pot is won. The reset
//	must not confiscate, nor keep growing, the earnings of positions from
//	previous rounds: sealing a round snapshots the accumulator value those
//	positions are measured against, while the global accumulator itself
//	stays monotonic and keeps serving the new round. Sealed earnings remain
//	claimable forever.
//
// Numeric policy: all division is integer division truncating toward zero.
// Truncation dust is never distributed; it stays with the protocol, which
// keeps the ledger solvent by construction. The Ledger itself is not
// thread-safe: the engines in stackcore serialize all access behind one
// mutex, per the single-writer execution model.
package ledger

import (
	"errors"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-tower/inter"
)

// AccumulatorPrecision is the fixed-point scaling factor of the global
// accumulator. Using 1e12 keeps per-position truncation loss below one
// trillionth of a base unit per accrual while leaving ample headroom in
// big.Int arithmetic.
var AccumulatorPrecision = big.NewInt(1_000_000_000_000)

// Errors reported by ledger operations.
var (
	// ErrNothingToClaim is returned when an account claims with no pending
	// earnings. A claim immediately repeated without new entries in between
	// hits this: claiming is idempotent up to new accrual.
	ErrNothingToClaim = errors.New("nothing to claim: no unclaimed earnings for account")

	// ErrZeroAmount is returned for distributions that carry no value.
	ErrZeroAmount = errors.New("zero amount: distribution must be positive")
)

// Ledger maintains the set of positions, the running accumulator and the
// per-position earnings bookkeeping. It owns all position state exclusively;
// nothing outside this package mutates a stored position.
type Ledger struct {
	positions map[inter.PositionID]*inter.Position
	byOwner   map[common.Address][]inter.PositionID

	// lastID is the most recently assigned sequence number. IDs are
	// 1-indexed, strictly increasing and never reused, across rounds too.
	lastID inter.PositionID

	// activeCount is the number of positions in the current round: the
	// denominator of future distributions. Past-round positions still hold
	// earnings but no longer take part in splits.
	activeCount uint64

	// accumulator is the global scaled earnings-per-position counter.
	// Monotonically non-decreasing for the life of the ledger.
	accumulator *big.Int

	// round is the current lottery epoch. The stack variant stays at 0.
	round idx.Epoch

	// sealed maps each finished round to the accumulator value at the
	// moment it was sealed. Positions of that round are measured against
	// this frozen value instead of the live accumulator.
	sealed map[idx.Epoch]*big.Int
}

// New creates an empty ledger at round 0.
func New() *Ledger {
	return &Ledger{
		positions:   make(map[inter.PositionID]*inter.Position),
		byOwner:     make(map[common.Address][]inter.PositionID),
		accumulator: new(big.Int),
		sealed:      make(map[idx.Epoch]*big.Int),
	}
}

// Distribute spreads amount across all active positions by advancing the
// accumulator. If no active positions exist, nothing advances and the
// method reports redirect=true: the caller must route the amount to the
// pool instead, because there is no one to pay.
func (l *Ledger) Distribute(amount *big.Int) (redirect bool, err error) {
	if amount == nil || amount.Sign() <= 0 {
		return false, ErrZeroAmount
	}
	if l.activeCount == 0 {
		return true, nil
	}
	// accumulator += amount * precision / activeCount
	// Scaling happens before the division so the truncation loss is bounded
	// by activeCount/precision base units per distribution.
	delta := new(big.Int).Mul(amount, AccumulatorPrecision)
	delta.Quo(delta, new(big.Int).SetUint64(l.activeCount))
	l.accumulator.Add(l.accumulator, delta)
	return false, nil
}

// Append creates the next position for the owner and puts it into the
// current round. The new position's earnings debt snapshots the live
// accumulator, so it owes nothing from entries before it existed.
func (l *Ledger) Append(owner common.Address, created inter.Timestamp) *inter.Position {
	l.lastID++
	p := inter.NewPosition(l.lastID, owner, created, l.round, l.accumulator)
	l.positions[p.ID] = p
	l.byOwner[owner] = append(l.byOwner[owner], p.ID)
	l.activeCount++
	return p.Copy()
}

// Unclaimed returns the pending earnings of a single position:
// accrued-so-far minus already-claimed. Returns 0 for positions that never
// existed.
func (l *Ledger) Unclaimed(id inter.PositionID) *big.Int {
	p, ok := l.positions[id]
	if !ok {
		return new(big.Int)
	}
	return l.pending(p)
}

// UnclaimedOf returns the pending earnings summed over every position the
// account owns, across all rounds.
func (l *Ledger) UnclaimedOf(owner common.Address) *big.Int {
	total := new(big.Int)
	for _, id := range l.byOwner[owner] {
		total.Add(total, l.pending(l.positions[id]))
	}
	return total
}

// Claim advances every position of the account to its current accrued value
// and returns the total amount to pay out. The caller transfers the funds;
// the claimed counters are advanced first, so a reentrant call during the
// transfer finds nothing left to claim.
func (l *Ledger) Claim(owner common.Address) (*big.Int, error) {
	total := new(big.Int)
	for _, id := range l.byOwner[owner] {
		p := l.positions[id]
		pending := l.pending(p)
		if pending.Sign() > 0 {
			total.Add(total, pending)
			p.Claimed.Add(p.Claimed, pending)
		}
	}
	if total.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	return total, nil
}

// SealRound freezes the current round and starts the next one: the live
// accumulator value is recorded as the final measure for this round's
// positions, and the active count resets to zero. Past earnings stay
// claimable; only the future denominator is affected.
func (l *Ledger) SealRound() idx.Epoch {
	l.sealed[l.round] = new(big.Int).Set(l.accumulator)
	l.round++
	l.activeCount = 0
	return l.round
}

// pending computes accrued-minus-claimed for one position against the
// accumulator value that applies to its round.
func (l *Ledger) pending(p *inter.Position) *big.Int {
	acc := l.accumulator
	if p.Round != l.round {
		acc = l.sealed[p.Round]
	}
	accrued := new(big.Int).Sub(acc, p.EarningsDebt)
	accrued.Quo(accrued, AccumulatorPrecision)
	return accrued.Sub(accrued, p.Claimed)
}

// TotalUnclaimed sums pending earnings over every position in the ledger.
// O(n); used by the solvency checks in tests and diagnostics, never on the
// operation path.
func (l *Ledger) TotalUnclaimed() *big.Int {
	total := new(big.Int)
	for _, p := range l.positions {
		total.Add(total, l.pending(p))
	}
	return total
}

// ActiveCount returns the number of positions in the current round.
func (l *Ledger) ActiveCount() uint64 {
	return l.activeCount
}

// Round returns the current round identifier.
func (l *Ledger) Round() idx.Epoch {
	return l.round
}

// LastID returns the most recently assigned position sequence number.
func (l *Ledger) LastID() inter.PositionID {
	return l.lastID
}

// Accumulator returns a copy of the scaled global accumulator.
func (l *Ledger) Accumulator() *big.Int {
	return new(big.Int).Set(l.accumulator)
}

// Position returns a copy of the stored position, if it exists.
func (l *Ledger) Position(id inter.PositionID) (*inter.Position, bool) {
	p, ok := l.positions[id]
	if !ok {
		return nil, false
	}
	return p.Copy(), true
}

// PositionsOf returns the account's position ids in entry order.
func (l *Ledger) PositionsOf(owner common.Address) []inter.PositionID {
	ids := l.byOwner[owner]
	out := make([]inter.PositionID, len(ids))
	copy(out, ids)
	return out
}

// Snapshot is the full persistable state of a ledger.
type Snapshot struct {
	Positions    []*inter.Position
	LastID       inter.PositionID
	ActiveCount  uint64
	Accumulator  *big.Int
	Round        idx.Epoch
	SealedRounds map[idx.Epoch]*big.Int
}

// Snapshot captures a deep copy of the ledger state for persistence.
func (l *Ledger) Snapshot() *Snapshot {
	s := &Snapshot{
		Positions:    make([]*inter.Position, 0, len(l.positions)),
		LastID:       l.lastID,
		ActiveCount:  l.activeCount,
		Accumulator:  new(big.Int).Set(l.accumulator),
		Round:        l.round,
		SealedRounds: make(map[idx.Epoch]*big.Int, len(l.sealed)),
	}
	// Iterate in id order so snapshots are deterministic.
	for id := inter.PositionID(1); id <= l.lastID; id++ {
		if p, ok := l.positions[id]; ok {
			s.Positions = append(s.Positions, p.Copy())
		}
	}
	for r, acc := range l.sealed {
		s.SealedRounds[r] = new(big.Int).Set(acc)
	}
	return s
}

// FromSnapshot reconstructs a ledger from a persisted snapshot.
func FromSnapshot(s *Snapshot) *Ledger {
	l := New()
	l.lastID = s.LastID
	l.activeCount = s.ActiveCount
	l.accumulator = new(big.Int).Set(s.Accumulator)
	l.round = s.Round
	for r, acc := range s.SealedRounds {
		l.sealed[r] = new(big.Int).Set(acc)
	}
	for _, p := range s.Positions {
		cp := p.Copy()
		l.positions[cp.ID] = cp
		l.byOwner[cp.Owner] = append(l.byOwner[cp.Owner], cp.ID)
	}
	return l
}
