package integration

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-tower/evmcore"
	"github.com/rony4d/go-opera-tower/inter"
	"github.com/rony4d/go-opera-tower/ledger"
	"github.com/rony4d/go-opera-tower/lottery"
	"github.com/rony4d/go-opera-tower/stackcore"
	"github.com/rony4d/go-opera-tower/store"
	"github.com/rony4d/go-opera-tower/tower"
	"github.com/rony4d/go-opera-tower/tower/assets"
)

// Well-known fakenet accounts. The engine holds its reserve on
// EngineAddress; OwnerAddress is the administrative account.
var (
	EngineAddress = common.HexToAddress("0x00000000000000000000000000000000000070e1")
	OwnerAddress  = common.HexToAddress("0x00000000000000000000000000000000000070ad")
)

// SimAccount derives the deterministic address of the i-th fakenet account.
func SimAccount(i int) common.Address {
	return common.BigToAddress(new(big.Int).SetUint64(0xFA000000 + uint64(i)))
}

// Engine is the surface shared by both variant engines; World exposes
// whichever one the rules selected through it.
type Engine interface {
	Claim(account common.Address) (*big.Int, error)
	Unclaimed(id inter.PositionID) *big.Int
	UnclaimedOf(account common.Address) *big.Int
	CheckSolvency() error
	SetListener(fn func(inter.LedgerEvent))
	Rules() tower.Rules
	Stats() stackcore.Stats
	State() *stackcore.State
}

// World is a fully assembled ledger runtime: token ledger, fake chain,
// the engine the rules selected, and an optional store for persistence.
// Exactly one of Stack and Tower is non-nil.
type World struct {
	Rules tower.Rules
	Token *assets.TokenLedger
	Chain *evmcore.FakeChain
	Store *store.Store
	Stack *stackcore.Stack
	Tower *stackcore.Tower

	log *logrus.Entry
}

// MakeWorld assembles a runtime for the given rules. If the store holds
// prior state, the engine is restored from it and the stored rules take
// precedence over the requested ones; the reveal chain and the engine
// reserve are rebuilt to match.
func MakeWorld(rules tower.Rules, s *store.Store, log *logrus.Entry) (*World, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	token := assets.NewTokenLedger()
	chain := evmcore.NewFakeChain(crypto.Keccak256Hash([]byte(rules.Name)))

	var state *stackcore.State
	if s != nil {
		st, err := s.Load()
		if err != nil && !errors.Is(err, store.ErrNoState) {
			return nil, err
		}
		if err == nil {
			state = st
			rules = st.Rules
			log.WithField("network", rules.Name).Info("existing ledger state loaded")
		}
	}

	w := &World{Rules: rules, Token: token, Chain: chain, Store: s, log: log}
	switch rules.Variant {
	case tower.VariantStack:
		var (
			stk *stackcore.Stack
			err error
		)
		if state != nil {
			stk, err = stackcore.NewStackFromState(state, token, EngineAddress, OwnerAddress)
		} else {
			stk, err = stackcore.NewStack(rules, token, EngineAddress, OwnerAddress)
		}
		if err != nil {
			return nil, err
		}
		w.Stack = stk
	case tower.VariantTower:
		src := lottery.NewChainSource(chain)
		var (
			twr *stackcore.Tower
			err error
		)
		if state != nil {
			twr, err = stackcore.NewTowerFromState(state, token, src, EngineAddress, OwnerAddress)
		} else {
			twr, err = stackcore.NewTower(rules, token, src, EngineAddress, OwnerAddress)
		}
		if err != nil {
			return nil, err
		}
		twr.SetClock(chain.Time)
		w.Tower = twr
	default:
		return nil, fmt.Errorf("unknown engine variant: %s", rules.Variant)
	}

	w.Engine().SetListener(func(ev inter.LedgerEvent) {
		log.WithField("event", ev.Kind()).Debug("ledger event")
	})
	if state != nil {
		w.refillReserve(state)
	}
	return w, nil
}

// Engine returns whichever variant engine the world runs.
func (w *World) Engine() Engine {
	if w.Stack != nil {
		return w.Stack
	}
	return w.Tower
}

// Save persists the engine state to the store, if one is attached.
func (w *World) Save() error {
	if w.Store == nil {
		return nil
	}
	return w.Store.Save(w.Engine().State())
}

// refillReserve mints the engine's reserve back after a restore. The token
// ledger is in-memory and not persisted, so a restored engine would
// otherwise start insolvent: the accounting promises the pool plus every
// position's unclaimed earnings.
func (w *World) refillReserve(state *stackcore.State) {
	reserve := new(big.Int).Set(state.Pool)
	for _, p := range state.Ledger.Positions {
		reserve.Add(reserve, w.Engine().Unclaimed(p.ID))
	}
	if reserve.Sign() > 0 {
		w.Token.Mint(EngineAddress, reserve)
	}
}

// SimResult summarises a simulation run.
type SimResult struct {
	Entries  int
	Claims   int
	Wins     int
	Losses   int
	Expiries int
	PotWon   *big.Int // total pot value drained by winning reveals
	Claimed  *big.Int // total value paid out through claims
	Stats    stackcore.Stats
}

// Run drives the world through a deterministic simulation: funded accounts
// enter, tower entries commit and reveal (skipping every Nth reveal so the
// expiry path fires), and accounts claim on a fixed cadence. The run fails
// on any error the protocol does not expect, and on a solvency violation
// at the end.
func (w *World) Run(p PresetConfig) (*SimResult, error) {
	rng := rand.New(rand.NewSource(int64(p.Seed)))
	cost := w.Rules.EntryCost

	accounts := make([]common.Address, p.Accounts)
	for i := range accounts {
		accounts[i] = SimAccount(i)
		need := new(big.Int).Mul(cost, big.NewInt(int64(p.Entries)))
		w.Token.Mint(accounts[i], need)
		w.Token.Approve(accounts[i], EngineAddress, need)
	}

	res := &SimResult{PotWon: new(big.Int), Claimed: new(big.Int)}
	var unrevealed []inter.PositionID

	for i := 0; i < p.Entries; i++ {
		account := accounts[rng.Intn(len(accounts))]

		if w.Stack != nil {
			if _, err := w.Stack.Enter(account, cost); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
		} else {
			secret := []byte(fmt.Sprintf("sim-%d-%d", p.Seed, i))
			id, err := w.Tower.Enter(account, cost, lottery.CommitHash(secret))
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			w.Chain.Advance(1)

			if p.SkipRevealEvery > 0 && (i+1)%p.SkipRevealEvery == 0 {
				unrevealed = append(unrevealed, id)
			} else {
				pot, err := w.Tower.ResolveWin(account, id, secret)
				switch {
				case err == nil:
					res.Wins++
					res.PotWon.Add(res.PotWon, pot)
					w.log.WithFields(logrus.Fields{
						"entry":  i,
						"pot":    pot,
						"winner": account.String(),
					}).Info("tower toppled")
				case errors.Is(err, lottery.ErrLosingRoll):
					res.Losses++
				default:
					return nil, fmt.Errorf("reveal for entry %d: %w", i, err)
				}
			}
		}
		res.Entries++

		if p.ClaimEvery > 0 && (i+1)%p.ClaimEvery == 0 {
			claimant := accounts[rng.Intn(len(accounts))]
			total, err := w.Engine().Claim(claimant)
			if err == nil {
				res.Claims++
				res.Claimed.Add(res.Claimed, total)
			} else if !errors.Is(err, ledger.ErrNothingToClaim) {
				return nil, fmt.Errorf("claim after entry %d: %w", i, err)
			}
		}
		if p.SaveEvery > 0 && (i+1)%p.SaveEvery == 0 {
			if err := w.Save(); err != nil {
				return nil, fmt.Errorf("save after entry %d: %w", i, err)
			}
		}
	}

	if w.Tower != nil && len(unrevealed) > 0 {
		w.Chain.Advance(w.Rules.Lottery.RevealWindow + 2)
		for _, id := range unrevealed {
			if err := w.Tower.Expire(id); err != nil {
				return nil, fmt.Errorf("expire position %d: %w", id, err)
			}
			res.Expiries++
		}
	}

	if err := w.Engine().CheckSolvency(); err != nil {
		return nil, err
	}
	if err := w.Save(); err != nil {
		return nil, err
	}
	res.Stats = w.Engine().Stats()
	return res, nil
}
