package stackcore

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-tower/inter"
	"github.com/rony4d/go-opera-tower/tower"
)

// SetEntryCost replaces the entry cost for future entries. Positions taken
// under the old cost are unaffected: their earnings came from past splits.
func (e *engine) SetEntryCost(caller common.Address, cost *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	updated := e.rules.Copy()
	updated.EntryCost = new(big.Int).Set(cost)
	if err := updated.Validate(); err != nil {
		return err
	}
	e.rules = updated

	e.emit(inter.RuleChangeEvent{
		Parameter: "entrycost",
		By:        caller,
		Detail:    cost.String(),
		Time:      e.now(),
	})
	return nil
}

// SetSplit replaces the entry split for future entries. The full variant
// validation applies, so an instant share cannot be introduced into a
// tower and the parts can never exceed the whole.
func (e *engine) SetSplit(caller common.Address, split tower.SplitRules) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	updated := e.rules.Copy()
	updated.Split = split
	if err := updated.Validate(); err != nil {
		return err
	}
	e.rules = updated

	e.emit(inter.RuleChangeEvent{
		Parameter: "split",
		By:        caller,
		Detail:    fmt.Sprintf("participant=%d burn=%d instant=%d", split.ParticipantBP, split.BurnBP, split.InstantBP),
		Time:      e.now(),
	})
	return nil
}

// SetPaused sets the pause flag. Pausing rejects new entries only; claims
// and lottery resolution of already-taken positions stay available.
func (e *engine) SetPaused(caller common.Address, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	e.paused = paused

	e.emit(inter.RuleChangeEvent{
		Parameter: "paused",
		By:        caller,
		Detail:    fmt.Sprintf("%v", paused),
		Time:      e.now(),
	})
	return nil
}

// WithdrawPool transfers part of the undistributed pool to the owner. The
// pool is the only reserve slice not promised to participants, so the
// withdrawal cap keeps the solvency invariant intact.
func (e *engine) WithdrawPool(caller common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return ErrNotOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrWithdrawExceedsPool
	}
	if amount.Cmp(e.pool) > 0 {
		return ErrWithdrawExceedsPool
	}
	e.pool.Sub(e.pool, amount)
	e.mustTransfer(caller, amount)

	e.emit(inter.RuleChangeEvent{
		Parameter: "poolwithdrawal",
		By:        caller,
		Detail:    amount.String(),
		Time:      e.now(),
	})
	return nil
}
