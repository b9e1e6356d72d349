// Package stackcore implements the two reward-ledger contract engines: the
// open-ended "stack" and the lottery-gated "tower". Both compose the same
// parts — the distribution ledger, the asset ledger and the rules — behind
// one mutex, so every mutating operation executes atomically and in total
// order relative to every other one, exactly like the single serialized
// state machine of the reference execution model.
//
// Security Model:
//   - All mutating operations run under a single critical section; no two
//     mutations are ever in flight concurrently and a reader always sees a
//     consistent accumulator/debt pair
//   - Calls into the asset ledger are the only points where control leaves
//     the engine; all solvency-affecting bookkeeping is finalized before
//     outbound transfers, so a reentrant call observes completed state
//   - Inbound debits happen first and are fully validated: a failed debit
//     aborts the operation with the engine untouched
//   - A violated solvency invariant is a programming error, prevented by
//     construction and checked fatally, never handled at runtime
package stackcore

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-tower/inter"
	"github.com/rony4d/go-opera-tower/ledger"
	"github.com/rony4d/go-opera-tower/lottery"
	"github.com/rony4d/go-opera-tower/tower"
	"github.com/rony4d/go-opera-tower/tower/assets"
)

// Engine-level errors. Configuration errors from the tower package and
// transfer errors from the assets package propagate unchanged.
var (
	// ErrPaused rejects entries while the pause flag is set. Claims remain
	// allowed: pausing stops new liabilities, it never locks earned funds.
	ErrPaused = errors.New("entries are paused")

	// ErrWrongEntryAmount rejects entries that do not pay exactly the
	// configured entry cost.
	ErrWrongEntryAmount = errors.New("entry amount must equal the configured entry cost")

	// ErrNotOwner rejects admin operations from anyone but the owner.
	ErrNotOwner = errors.New("caller is not the contract owner")

	// ErrNotPositionOwner rejects lottery operations on someone else's
	// position.
	ErrNotPositionOwner = errors.New("caller does not own the position")

	// ErrUnknownPosition is returned for operations on a position id that
	// was never assigned.
	ErrUnknownPosition = errors.New("unknown position")

	// ErrWithdrawExceedsPool rejects owner withdrawals beyond the
	// undistributed pool balance.
	ErrWithdrawExceedsPool = errors.New("withdrawal exceeds pool balance")
)

// Stats is the aggregate view exposed to the application layer.
type Stats struct {
	Variant          tower.Variant
	Paused           bool
	EntryCost        *big.Int
	ActiveCount      uint64   // positions in the current round (the split denominator)
	Positions        uint64   // positions ever created
	Round            idx.Epoch
	HeadHeight       idx.Block // 0 for the stack variant (no chain context)
	PoolBalance      *big.Int  // undistributed pool (stack) / pot (tower)
	TotalBurned      *big.Int
	TotalPaidOut     *big.Int // value actually transferred out: claims, instant rewards, pots
	TotalDistributed *big.Int // participant shares routed through the accumulator
}

// State is the full persistable engine state; the store package reads and
// writes it as a unit.
type State struct {
	Rules            tower.Rules
	Paused           bool
	Ledger           *ledger.Snapshot
	Lottery          *lottery.Snapshot // nil for the stack variant
	Pool             *big.Int
	TotalBurned      *big.Int
	TotalPaidOut     *big.Int
	TotalDistributed *big.Int
}

// engine is the state and behaviour shared by both variants. It is always
// embedded, never used directly.
type engine struct {
	mu sync.Mutex

	rules  tower.Rules
	paused bool

	token assets.Ledger
	self  common.Address // the engine's reserve account on the asset ledger
	owner common.Address // the admin account

	led *ledger.Ledger

	pool             *big.Int // undistributed pool / pot, part of the reserve
	totalBurned      *big.Int
	totalPaidOut     *big.Int
	totalDistributed *big.Int

	now      func() inter.Timestamp
	listener func(inter.LedgerEvent)
	log      *logrus.Entry
}

func newEngine(rules tower.Rules, token assets.Ledger, self, owner common.Address) (*engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &engine{
		rules:            rules.Copy(),
		token:            token,
		self:             self,
		owner:            owner,
		led:              ledger.New(),
		pool:             new(big.Int),
		totalBurned:      new(big.Int),
		totalPaidOut:     new(big.Int),
		totalDistributed: new(big.Int),
		now:              func() inter.Timestamp { return inter.FromTime(time.Now()) },
		log: logrus.WithFields(logrus.Fields{
			"module":  "stackcore",
			"variant": rules.Variant.String(),
			"network": rules.Name,
		}),
	}, nil
}

// SetClock replaces the timestamp source. Tests and simulations use it to
// get deterministic position creation times.
func (e *engine) SetClock(now func() inter.Timestamp) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// SetListener registers a callback receiving every emitted event, in the
// order the mutations were applied.
func (e *engine) SetListener(fn func(inter.LedgerEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = fn
}

// emit delivers an event to the listener and the log. Caller holds mu.
func (e *engine) emit(ev inter.LedgerEvent) {
	e.log.WithField("event", ev.Kind()).Debugf("%+v", ev)
	if e.listener != nil {
		e.listener(ev)
	}
}

// split divides an entry payment per the configured basis points. The pool
// share is the remainder, so the four parts always sum exactly to amount
// and basis-point truncation dust lands in the pool, in favor of the
// protocol.
func (e *engine) split(amount *big.Int) (participant, burn, instant, pool *big.Int) {
	den := new(big.Int).SetUint64(tower.BasisPointDenominator)
	part := func(bp uint64) *big.Int {
		v := new(big.Int).Mul(amount, new(big.Int).SetUint64(bp))
		return v.Quo(v, den)
	}
	participant = part(e.rules.Split.ParticipantBP)
	burn = part(e.rules.Split.BurnBP)
	instant = part(e.rules.Split.InstantBP)
	pool = new(big.Int).Sub(amount, participant)
	pool.Sub(pool, burn)
	pool.Sub(pool, instant)
	return
}

// enter runs the variant-independent part of an entry: preconditions, the
// inbound debit, the burn, the accumulator distribution and the position
// append. The instant-reward share is returned to the caller, which routes
// it per variant. Caller holds mu.
func (e *engine) enter(account common.Address, amount *big.Int) (pos *inter.Position, instant *big.Int, err error) {
	if e.paused {
		return nil, nil, ErrPaused
	}
	if amount == nil || amount.Cmp(e.rules.EntryCost) != 0 {
		return nil, nil, ErrWrongEntryAmount
	}

	participant, burn, instant, poolShare := e.split(amount)

	// Debit first: if the payer cannot fund the entry, nothing happened.
	if err := e.token.TransferFrom(account, e.self, e.self, amount); err != nil {
		return nil, nil, err
	}

	if burn.Sign() > 0 {
		e.mustTransfer(assets.BurnAddress, burn)
		e.totalBurned.Add(e.totalBurned, burn)
	}

	if participant.Sign() > 0 {
		redirect, err := e.led.Distribute(participant)
		if err != nil {
			// Unreachable: participant > 0 by the guard above.
			panic(fmt.Sprintf("distribute: %v", err))
		}
		if redirect {
			// No one to pay yet; the share backs the pool instead.
			e.pool.Add(e.pool, participant)
		} else {
			e.totalDistributed.Add(e.totalDistributed, participant)
		}
	}

	e.pool.Add(e.pool, poolShare)
	pos = e.led.Append(account, e.now())

	e.emit(inter.EntryEvent{
		Account:  account,
		Position: pos.ID,
		Round:    pos.Round,
		Amount:   new(big.Int).Set(amount),
		Time:     pos.Created,
	})
	return pos, instant, nil
}

// Claim pays out every pending earning of the account across all of its
// positions and rounds. Idempotent up to new accrual: an immediate second
// claim fails with ledger.ErrNothingToClaim.
func (e *engine) Claim(account common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	total, err := e.led.Claim(account)
	if err != nil {
		return nil, err
	}
	// Claimed counters are already advanced; the transfer comes last so a
	// reentrant claim during it finds nothing left.
	e.mustTransfer(account, total)
	e.totalPaidOut.Add(e.totalPaidOut, total)

	e.emit(inter.ClaimEvent{Account: account, Amount: new(big.Int).Set(total), Time: e.now()})
	return new(big.Int).Set(total), nil
}

// mustTransfer pays out of the engine's reserve. A failure means the
// ledger promised more than it holds — the solvency invariant is violated,
// which the arithmetic is built to make impossible, so it is fatal rather
// than handled. Caller holds mu.
func (e *engine) mustTransfer(to common.Address, amount *big.Int) {
	if err := e.token.Transfer(e.self, to, amount); err != nil {
		e.log.WithError(err).Errorf("reserve transfer of %v to %s failed", amount, to.String())
		panic(fmt.Sprintf("solvency invariant violated: %v", err))
	}
}

// CheckSolvency verifies the global invariant: the ledger never promises
// more than the reserve actually holds. O(n) over all positions; used by
// tests and diagnostics, never on the operation path.
func (e *engine) CheckSolvency() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	promised := e.led.TotalUnclaimed()
	promised.Add(promised, e.pool)
	held := e.token.BalanceOf(e.self)
	if promised.Cmp(held) > 0 {
		return fmt.Errorf("ledger promises %v but holds %v", promised, held)
	}
	return nil
}

// UnclaimedOf returns the account's pending earnings across all positions.
func (e *engine) UnclaimedOf(account common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.led.UnclaimedOf(account)
}

// Unclaimed returns the pending earnings of one position; zero if it never
// existed.
func (e *engine) Unclaimed(id inter.PositionID) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.led.Unclaimed(id)
}

// PositionsOf returns the account's position ids in entry order.
func (e *engine) PositionsOf(account common.Address) []inter.PositionID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.led.PositionsOf(account)
}

// Position returns a copy of the stored position, if it exists.
func (e *engine) Position(id inter.PositionID) (*inter.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.led.Position(id)
}

// Rules returns a deep copy of the active rules.
func (e *engine) Rules() tower.Rules {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules.Copy()
}

// Owner returns the admin account.
func (e *engine) Owner() common.Address {
	return e.owner
}

// stats fills the variant-independent part of Stats. Caller holds mu.
func (e *engine) stats() Stats {
	return Stats{
		Variant:          e.rules.Variant,
		Paused:           e.paused,
		EntryCost:        new(big.Int).Set(e.rules.EntryCost),
		ActiveCount:      e.led.ActiveCount(),
		Positions:        uint64(e.led.LastID()),
		Round:            e.led.Round(),
		PoolBalance:      new(big.Int).Set(e.pool),
		TotalBurned:      new(big.Int).Set(e.totalBurned),
		TotalPaidOut:     new(big.Int).Set(e.totalPaidOut),
		TotalDistributed: new(big.Int).Set(e.totalDistributed),
	}
}

// state fills the variant-independent part of State. Caller holds mu.
func (e *engine) state() *State {
	return &State{
		Rules:            e.rules.Copy(),
		Paused:           e.paused,
		Ledger:           e.led.Snapshot(),
		Pool:             new(big.Int).Set(e.pool),
		TotalBurned:      new(big.Int).Set(e.totalBurned),
		TotalPaidOut:     new(big.Int).Set(e.totalPaidOut),
		TotalDistributed: new(big.Int).Set(e.totalDistributed),
	}
}

// restore applies the variant-independent part of State. Caller holds mu.
func (e *engine) restore(s *State) {
	e.rules = s.Rules.Copy()
	e.paused = s.Paused
	e.led = ledger.FromSnapshot(s.Ledger)
	e.pool = new(big.Int).Set(s.Pool)
	e.totalBurned = new(big.Int).Set(s.TotalBurned)
	e.totalPaidOut = new(big.Int).Set(s.TotalPaidOut)
	e.totalDistributed = new(big.Int).Set(s.TotalDistributed)
}
