// Package tower defines the network rules and configuration parameters for
// the reward-ledger contracts ("stack" and "tower" variants).
//
// This package provides:
//   - Network identification constants (MainNet, TestNet, FakeNet)
//   - Entry rules (the fixed entry cost)
//   - Split rules: how each entry payment is divided between the existing
//     participants, the burn sink, the instant reward and the pool/pot
//   - Lottery rules for the tower variant (win modulo, reveal window)
//   - Variant selection (stack vs tower)
//
// The Rules type is the central configuration structure: every
// consensus-critical parameter of a deployment lives here, and the engines
// in stackcore treat a validated Rules value as immutable except through
// the owner-gated admin operations.

package tower

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/params"
)

// Network identification constants.
const (
	// MainNetworkID is the chain ID of the production deployment (0xfa = 250).
	MainNetworkID uint64 = 0xfa

	// TestNetworkID is the chain ID of the test deployment (0xfa2 = 4002).
	TestNetworkID uint64 = 0xfa2

	// FakeNetworkID is the chain ID for local/fake networks used in testing (0xfa3 = 4003).
	FakeNetworkID uint64 = 0xfa3
)

const (
	// BasisPointDenominator is the denominator of every split ratio.
	// A ratio of 8000 basis points is 80% of the entry payment.
	BasisPointDenominator uint64 = 10000

	// DefaultLotteryModulo gives a 1-in-69 chance of a winning roll.
	// The roll is keccak256(reveal || randomness) mod this value; a roll of
	// exactly zero topples the tower.
	DefaultLotteryModulo uint64 = 69

	// DefaultRevealWindow is how many blocks after the commit height the
	// public randomness stays retrievable. It mirrors the EVM's 256-block
	// blockhash horizon: one block must pass before the randomness exists,
	// so 255 usable blocks remain.
	DefaultRevealWindow idx.Block = 255
)

// Variant selects which of the two ledger contracts a deployment runs.
type Variant uint8

const (
	// VariantStack is the open-ended variant: entries accrue forever and
	// part of each payment is handed straight to the previous entrant.
	VariantStack Variant = iota

	// VariantTower adds the commit-reveal lottery: entries feed a pot that
	// one winning reveal drains, resetting the structure.
	VariantTower
)

// String returns the variant name used in logs and config dumps.
func (v Variant) String() string {
	switch v {
	case VariantStack:
		return "stack"
	case VariantTower:
		return "tower"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// Configuration validation errors. These are rejected before any state
// mutation, so a caller can correct the input and retry.
var (
	ErrInvalidSplit   = errors.New("invalid split: ratios exceed 10000 basis points in aggregate")
	ErrInstantInTower = errors.New("invalid split: instant reward ratio is a stack-variant parameter")
	ErrZeroEntryCost  = errors.New("invalid entry cost: must be positive")
	ErrInvalidModulo  = errors.New("invalid lottery modulo: must be at least 2")
	ErrZeroWindow     = errors.New("invalid reveal window: must be positive")
)

// SplitRules describes how an entry payment is divided, in basis points.
// The portions do not have to cover the whole payment: whatever remains
// after participant, burn and instant shares goes to the pool (stack) or
// the pot (tower). That remainder is computed, never configured, so the
// split can never promise more than 100%.
type SplitRules struct {
	// ParticipantBP is the share distributed among all existing positions
	// through the accumulator. If no positions exist yet, this share is
	// redirected to the pool (there is no one to pay).
	ParticipantBP uint64

	// BurnBP is the share transferred to the dead sink address,
	// irrecoverably removing it from circulation.
	BurnBP uint64

	// InstantBP is the share handed immediately to the most recent previous
	// entrant. Stack variant only; must be zero for the tower.
	InstantBP uint64
}

// Sum returns the configured basis points in aggregate (pool excluded).
func (s SplitRules) Sum() uint64 {
	return s.ParticipantBP + s.BurnBP + s.InstantBP
}

// PoolBP returns the implicit pool/pot share: the remainder of the payment.
func (s SplitRules) PoolBP() uint64 {
	return BasisPointDenominator - s.Sum()
}

// LotteryRules holds the tower-variant lottery parameters.
type LotteryRules struct {
	// Modulo is the roll space; a roll of zero out of Modulo wins.
	Modulo uint64

	// RevealWindow is how many blocks after the commit height a commitment
	// can still be resolved. Past it the commitment can only expire.
	RevealWindow idx.Block
}

// Rules describes the complete configuration of a ledger deployment.
type Rules struct {
	// Name is the network name identifier (e.g. "main", "test", "fake").
	Name string

	// NetworkID distinguishes deployments; surfaced in logs and stats.
	NetworkID uint64

	// Variant selects the stack or tower contract.
	Variant Variant

	// EntryCost is the exact payment required per entry, in the asset
	// ledger's base units. Entries with any other amount are rejected.
	EntryCost *big.Int

	// Split is the division of each entry payment.
	Split SplitRules

	// Lottery parameters; only read by the tower variant.
	Lottery LotteryRules
}

// MainNetRules returns the production tower configuration:
// 80% to participants, 5% burned, the remaining 15% feeds the pot.
func MainNetRules() Rules {
	return Rules{
		Name:      "main",
		NetworkID: MainNetworkID,
		Variant:   VariantTower,
		EntryCost: new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether)), // 100 tokens
		Split: SplitRules{
			ParticipantBP: 8000,
			BurnBP:        500,
		},
		Lottery: LotteryRules{
			Modulo:       DefaultLotteryModulo,
			RevealWindow: DefaultRevealWindow,
		},
	}
}

// TestNetRules returns the testnet configuration. Same split as mainnet so
// accounting behaves realistically, but a far cheaper entry.
func TestNetRules() Rules {
	cfg := MainNetRules()
	cfg.Name = "test"
	cfg.NetworkID = TestNetworkID
	cfg.EntryCost = new(big.Int).Mul(big.NewInt(100), big.NewInt(params.GWei))
	return cfg
}

// FakeNetRules returns the configuration for local/fake networks.
// Parameters are scaled down for fast test cycles:
//   - entry cost of 100 base units so traces stay readable
//   - a 16-block reveal window so expiry is quick to reach
func FakeNetRules() Rules {
	return Rules{
		Name:      "fake",
		NetworkID: FakeNetworkID,
		Variant:   VariantTower,
		EntryCost: big.NewInt(100),
		Split: SplitRules{
			ParticipantBP: 8000,
			BurnBP:        1000,
		},
		Lottery: LotteryRules{
			Modulo:       DefaultLotteryModulo,
			RevealWindow: 16,
		},
	}
}

// FakeStackRules returns the stack-variant counterpart of FakeNetRules:
// 80% to participants, 10% burned, 5% instant reward, 5% pool remainder.
func FakeStackRules() Rules {
	cfg := FakeNetRules()
	cfg.Variant = VariantStack
	cfg.Split = SplitRules{
		ParticipantBP: 8000,
		BurnBP:        1000,
		InstantBP:     500,
	}
	cfg.Lottery = LotteryRules{}
	return cfg
}

// Validate checks the rules for internal consistency. Engines refuse to
// start, and admin operations refuse to apply, on rules that fail here.
func (r Rules) Validate() error {
	if r.EntryCost == nil || r.EntryCost.Sign() <= 0 {
		return ErrZeroEntryCost
	}
	// Each share is bounded on its own first, so the uint64 aggregate
	// below cannot wrap.
	if r.Split.ParticipantBP > BasisPointDenominator ||
		r.Split.BurnBP > BasisPointDenominator ||
		r.Split.InstantBP > BasisPointDenominator {
		return ErrInvalidSplit
	}
	if r.Split.Sum() > BasisPointDenominator {
		return ErrInvalidSplit
	}
	if r.Variant == VariantTower {
		if r.Split.InstantBP != 0 {
			return ErrInstantInTower
		}
		if r.Lottery.Modulo < 2 {
			return ErrInvalidModulo
		}
		if r.Lottery.RevealWindow == 0 {
			return ErrZeroWindow
		}
	}
	return nil
}

// Copy creates a deep copy of Rules.
// This is necessary because Rules contains pointer types (*big.Int) that
// would be shared in a shallow copy, leading to unintended mutations.
func (r Rules) Copy() Rules {
	cp := r
	cp.EntryCost = new(big.Int).Set(r.EntryCost)
	return cp
}

// String returns a JSON representation of Rules for debugging and logging.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
