package stackcore

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-tower/inter"
	"github.com/rony4d/go-opera-tower/lottery"
	"github.com/rony4d/go-opera-tower/tower"
	"github.com/rony4d/go-opera-tower/tower/assets"
)

// Tower is the lottery-gated variant: entries feed a pot instead of an
// instant reward, and any position holder may try to topple the tower
// through a commit-reveal lottery. A win drains the whole pot to the
// winner and seals the round: the survivors' earnings freeze but stay
// claimable forever, and the next round starts empty.
type Tower struct {
	*engine

	chain lottery.RandomnessSource
	lt    *lottery.Lottery
}

// NewTower builds a tower engine over the given asset ledger and
// randomness source.
func NewTower(rules tower.Rules, token assets.Ledger, chain lottery.RandomnessSource, self, owner common.Address) (*Tower, error) {
	if rules.Variant != tower.VariantTower {
		return nil, ErrWrongVariant
	}
	e, err := newEngine(rules, token, self, owner)
	if err != nil {
		return nil, err
	}
	return &Tower{
		engine: e,
		chain:  chain,
		lt:     lottery.New(rules.Lottery.Modulo, rules.Lottery.RevealWindow, chain),
	}, nil
}

// Enter takes a new position, paying exactly the entry cost. With a
// non-zero commitment hash the entry atomically opens a lottery attempt
// for the new position, anchored at the current chain head.
func (t *Tower) Enter(account common.Address, amount *big.Int, commitment common.Hash) (inter.PositionID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, instant, err := t.enter(account, amount)
	if err != nil {
		return 0, err
	}
	if instant.Sign() > 0 {
		// Unreachable: tower rules validate InstantBP to zero.
		t.pool.Add(t.pool, instant)
	}

	if commitment != (common.Hash{}) {
		if err := t.commit(pos.ID, commitment, account); err != nil {
			return pos.ID, err
		}
	}
	return pos.ID, nil
}

// Commit opens a lottery attempt for an existing position the caller
// owns. The commitment is the keccak256 hash of a secret the caller keeps
// until reveal; it anchors at the current chain head, so the randomness it
// will be judged against does not exist yet.
func (t *Tower) Commit(caller common.Address, id inter.PositionID, commitment common.Hash) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.led.Position(id)
	if !ok {
		return ErrUnknownPosition
	}
	if pos.Owner != caller {
		return ErrNotPositionOwner
	}
	return t.commit(id, commitment, caller)
}

// commit records the attempt and emits the event. Caller holds mu.
func (t *Tower) commit(id inter.PositionID, commitment common.Hash, account common.Address) error {
	c, err := t.lt.Commit(id, commitment, account)
	if err != nil {
		return err
	}
	t.emit(inter.CommitEvent{
		Position: id,
		Account:  account,
		Hash:     c.Hash,
		Height:   c.Height,
		Time:     t.now(),
	})
	return nil
}

// CheckOutcome previews the lottery outcome of a revealed secret without
// mutating anything. It is how a client decides whether to spend a
// resolution on the reveal.
func (t *Tower) CheckOutcome(id inter.PositionID, reveal []byte) (lottery.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lt.CheckOutcome(id, reveal)
}

// ResolveWin reveals the secret behind the position's commitment and, on a
// winning roll, topples the tower: the whole pot transfers to the caller
// and the round seals. A valid reveal with a losing roll consumes the
// commitment and returns lottery.ErrLosingRoll; the position itself
// survives either way.
func (t *Tower) ResolveWin(caller common.Address, id inter.PositionID, reveal []byte) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.lt.Resolve(id, reveal, caller); err != nil {
		return nil, err
	}

	// The roll hit. Seal the round before money moves: survivors freeze at
	// their current earnings and the next round opens empty.
	height := t.chain.Head()
	ended := t.led.SealRound()

	pot := t.pool
	t.pool = new(big.Int)
	t.totalPaidOut.Add(t.totalPaidOut, pot)
	t.mustTransfer(caller, pot)

	t.emit(inter.ToppleEvent{
		Round:  ended,
		Winner: caller,
		Pot:    new(big.Int).Set(pot),
		Height: height,
		Time:   t.now(),
	})
	return new(big.Int).Set(pot), nil
}

// Expire clears a commitment whose reveal window elapsed, so the position
// can commit again. Anyone may call it.
func (t *Tower) Expire(id inter.PositionID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.lt.Commitment(id)
	if !ok {
		return lottery.ErrNoCommitment
	}
	if err := t.lt.Expire(id); err != nil {
		return err
	}
	t.emit(inter.ExpireEvent{
		Account:  c.Account,
		Position: id,
		Height:   c.Height,
		Time:     t.now(),
	})
	return nil
}

// Pot returns the current pot balance.
func (t *Tower) Pot() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.pool)
}

// Stats returns the aggregate engine view, including the chain head the
// lottery is anchored to.
func (t *Tower) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats()
	s.HeadHeight = t.chain.Head()
	return s
}

// State returns the full persistable engine state.
func (t *Tower) State() *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state()
	s.Lottery = t.lt.Snapshot()
	return s
}

// NewTowerFromState rebuilds a tower engine from persisted state.
func NewTowerFromState(state *State, token assets.Ledger, chain lottery.RandomnessSource, self, owner common.Address) (*Tower, error) {
	t, err := NewTower(state.Rules, token, chain, self, owner)
	if err != nil {
		return nil, err
	}
	t.restore(state)
	if state.Lottery != nil {
		t.lt.Restore(state.Lottery)
	}
	return t, nil
}
