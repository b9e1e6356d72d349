package stackcore

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-tower/inter"
	"github.com/rony4d/go-opera-tower/tower"
	"github.com/rony4d/go-opera-tower/tower/assets"
)

// ErrWrongVariant is returned when an engine is built from rules of the
// other variant.
var ErrWrongVariant = errors.New("rules are for a different engine variant")

// Stack is the open-ended variant: one ever-growing round, no lottery, and
// an optional instant reward paid straight to the latest previous entrant.
type Stack struct {
	*engine
}

// NewStack builds a stack engine over the given asset ledger. self is the
// engine's reserve account, owner the admin.
func NewStack(rules tower.Rules, token assets.Ledger, self, owner common.Address) (*Stack, error) {
	if rules.Variant != tower.VariantStack {
		return nil, ErrWrongVariant
	}
	e, err := newEngine(rules, token, self, owner)
	if err != nil {
		return nil, err
	}
	return &Stack{engine: e}, nil
}

// Enter takes a new position for account, paying exactly the entry cost.
// The payment splits into the participant share (distributed pro rata over
// everyone already in), the burn share, the instant share (paid to the
// most recent previous entrant) and the pool remainder. The new position
// starts with zero pending earnings.
func (s *Stack) Enter(account common.Address, amount *big.Int) (inter.PositionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The instant reward goes to whoever topped the stack before this
	// entry; resolve the target before the append shifts it.
	var instantTo common.Address
	var haveTarget bool
	if top, ok := s.led.Position(s.led.LastID()); ok {
		instantTo = top.Owner
		haveTarget = true
	}

	pos, instant, err := s.enter(account, amount)
	if err != nil {
		return 0, err
	}

	if instant.Sign() > 0 {
		if haveTarget {
			s.mustTransfer(instantTo, instant)
			s.totalPaidOut.Add(s.totalPaidOut, instant)
		} else {
			// First entry ever: no one to reward, the share backs the pool.
			s.pool.Add(s.pool, instant)
		}
	}
	return pos.ID, nil
}

// Stats returns the aggregate engine view.
func (s *Stack) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats()
}

// State returns the full persistable engine state.
func (s *Stack) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// NewStackFromState rebuilds a stack engine from persisted state.
func NewStackFromState(state *State, token assets.Ledger, self, owner common.Address) (*Stack, error) {
	s, err := NewStack(state.Rules, token, self, owner)
	if err != nil {
		return nil, err
	}
	s.restore(state)
	return s, nil
}
