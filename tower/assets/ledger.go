// Package assets implements the fungible-asset ledger the reward contracts
// settle against: per-account balances, spending allowances and an
// irrecoverable burn sink.
//
// Overview:
//
//	The reward engines never hold raw balances themselves. Every entry debits
//	the payer through this ledger, every payout credits the recipient through
//	it, and burned value is moved to a conventional unspendable sink address.
//	The engines only require atomicity of three operations: debit-from-payer
//	-with-authorization (TransferFrom), credit-to-account (Transfer) and the
//	burn transfer.
//
// Security Model:
//   - TransferFrom enforces the payer's allowance for the spender, so the
//     engine can only pull funds the payer explicitly authorized
//   - No partial debit ever occurs: a transfer either fully applies or
//     fully fails with the balance sheet untouched
//   - The burn sink is an ordinary address nothing holds a key for; value
//     sent there is gone by construction, not by special-casing
package assets

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// BurnAddress is the conventional unspendable sink. Transfers to it are
// irrecoverable; the ledger tracks them as burned supply.
var BurnAddress = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

// Transfer failure modes. These propagate unchanged through the reward
// engines: a failed debit aborts the whole operation before any ledger
// bookkeeping happens.
var (
	ErrInsufficientFunds     = errors.New("insufficient funds: payer balance below transfer amount")
	ErrInsufficientAllowance = errors.New("insufficient allowance: spender not authorized for transfer amount")
	ErrInsufficientReserve   = errors.New("insufficient reserve: payout exceeds held balance")
	ErrNegativeAmount        = errors.New("negative amount: transfers must carry a non-negative value")
)

// Ledger is the asset-ledger surface the reward engines consume.
// Implementations must apply each call atomically.
type Ledger interface {
	// TransferFrom moves amount from owner to recipient on the authority of
	// spender, consuming that much of owner's allowance for spender.
	TransferFrom(owner, spender, to common.Address, amount *big.Int) error

	// Transfer moves amount out of the caller-controlled reserve account.
	// In the engines' usage `from` is always the contract's own account, so
	// a shortfall is reported as ErrInsufficientReserve.
	Transfer(from, to common.Address, amount *big.Int) error

	// BalanceOf returns the current balance of the account.
	BalanceOf(account common.Address) *big.Int
}

// TokenLedger is an in-process implementation of Ledger with ERC-20-style
// balance and allowance semantics. It exists so the engines, the launcher
// simulation and the tests can run without an execution substrate.
type TokenLedger struct {
	mu         sync.RWMutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewTokenLedger creates an empty token ledger. Fund it with Mint.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits freshly created supply to the account. Genesis funding only;
// the reward engines never mint.
func (l *TokenLedger) Mint(account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(account, amount)
}

// Approve sets (not increments) owner's allowance for spender.
func (l *TokenLedger) Approve(owner, spender common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row := l.allowances[owner]
	if row == nil {
		row = make(map[common.Address]*big.Int)
		l.allowances[owner] = row
	}
	row[spender] = new(big.Int).Set(amount)
}

// Allowance returns how much spender may still pull from owner.
func (l *TokenLedger) Allowance(owner, spender common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if row := l.allowances[owner]; row != nil && row[spender] != nil {
		return new(big.Int).Set(row[spender])
	}
	return new(big.Int)
}

// BalanceOf returns the current balance of the account.
func (l *TokenLedger) BalanceOf(account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b := l.balances[account]; b != nil {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// TotalBurned returns the supply accumulated at the burn sink.
func (l *TokenLedger) TotalBurned() *big.Int {
	return l.BalanceOf(BurnAddress)
}

// TransferFrom moves amount from owner to recipient on spender's authority.
// The allowance check happens before the balance check, and both happen
// before any mutation, so a failure leaves the ledger untouched.
func (l *TokenLedger) TransferFrom(owner, spender, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowanceLocked(owner, spender)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if l.balanceLocked(owner).Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}

	row := l.allowances[owner]
	if row == nil {
		row = make(map[common.Address]*big.Int)
		l.allowances[owner] = row
	}
	row[spender] = allowance.Sub(allowance, amount)
	l.debit(owner, amount)
	l.credit(to, amount)
	return nil
}

// Transfer moves amount from the reserve account to the recipient.
func (l *TokenLedger) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balanceLocked(from).Cmp(amount) < 0 {
		return ErrInsufficientReserve
	}
	l.debit(from, amount)
	l.credit(to, amount)
	return nil
}

// balanceLocked returns the live balance pointer view; caller holds mu.
func (l *TokenLedger) balanceLocked(account common.Address) *big.Int {
	if b := l.balances[account]; b != nil {
		return b
	}
	return new(big.Int)
}

// allowanceLocked returns a copy of the allowance; caller holds mu.
func (l *TokenLedger) allowanceLocked(owner, spender common.Address) *big.Int {
	if row := l.allowances[owner]; row != nil && row[spender] != nil {
		return new(big.Int).Set(row[spender])
	}
	return new(big.Int)
}

func (l *TokenLedger) credit(account common.Address, amount *big.Int) {
	b := l.balances[account]
	if b == nil {
		b = new(big.Int)
		l.balances[account] = b
	}
	b.Add(b, amount)
}

func (l *TokenLedger) debit(account common.Address, amount *big.Int) {
	b := l.balances[account]
	b.Sub(b, amount)
}
