package stackcore

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-tower/inter"
	"github.com/rony4d/go-opera-tower/ledger"
	"github.com/rony4d/go-opera-tower/tower"
	"github.com/rony4d/go-opera-tower/tower/assets"
)

var (
	engineAddr = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	adminAddr  = common.HexToAddress("0x00000000000000000000000000000000000000ad")
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func requireAmount(t *testing.T, want int64, got *big.Int) {
	t.Helper()
	require.Zero(t, got.Cmp(big.NewInt(want)), "want %d, got %v", want, got)
}

// fund mints enough for n entries and approves the engine to pull them.
func fund(token *assets.TokenLedger, account common.Address, cost *big.Int, n int64) {
	total := new(big.Int).Mul(cost, big.NewInt(n))
	token.Mint(account, total)
	token.Approve(account, engineAddr, total)
}

func newTestStack(t *testing.T) (*Stack, *assets.TokenLedger) {
	token := assets.NewTokenLedger()
	s, err := NewStack(tower.FakeStackRules(), token, engineAddr, adminAddr)
	require.NoError(t, err)

	var tick uint64
	s.SetClock(func() inter.Timestamp {
		tick++
		return inter.Timestamp(tick)
	})
	return s, token
}

func TestNewStack_RejectsTowerRules(t *testing.T) {
	_, err := NewStack(tower.FakeNetRules(), assets.NewTokenLedger(), engineAddr, adminAddr)
	require.ErrorIs(t, err, ErrWrongVariant)
}

func TestStack_FirstEntry(t *testing.T) {
	s, token := newTestStack(t)
	cost := s.Rules().EntryCost
	a := addr(1)
	fund(token, a, cost, 1)

	id, err := s.Enter(a, cost)
	require.NoError(t, err)
	require.Equal(t, inter.PositionID(1), id)

	// With no one in yet, both the participant and the instant shares
	// back the pool: 80 + 5 + 5 = 90 out of 100, the rest burned.
	st := s.Stats()
	require.Equal(t, uint64(1), st.ActiveCount)
	requireAmount(t, 90, st.PoolBalance)
	requireAmount(t, 10, st.TotalBurned)
	requireAmount(t, 0, st.TotalDistributed)
	requireAmount(t, 0, s.UnclaimedOf(a))
	require.NoError(t, s.CheckSolvency())
}

func TestStack_EntryDistribution(t *testing.T) {
	s, token := newTestStack(t)
	cost := s.Rules().EntryCost
	a, b, c := addr(1), addr(2), addr(3)
	for _, acc := range []common.Address{a, b, c} {
		fund(token, acc, cost, 1)
	}

	_, err := s.Enter(a, cost)
	require.NoError(t, err)
	_, err = s.Enter(b, cost)
	require.NoError(t, err)
	_, err = s.Enter(c, cost)
	require.NoError(t, err)

	// The second entry's participant share went to a alone, the third's
	// split evenly between a and b.
	requireAmount(t, 120, s.UnclaimedOf(a))
	requireAmount(t, 40, s.UnclaimedOf(b))
	requireAmount(t, 0, s.UnclaimedOf(c))

	// The instant share of each later entry went straight to the previous
	// entrant's balance, no claim needed.
	requireAmount(t, 5, token.BalanceOf(a))
	requireAmount(t, 5, token.BalanceOf(b))
	requireAmount(t, 0, token.BalanceOf(c))

	st := s.Stats()
	require.Equal(t, uint64(3), st.ActiveCount)
	requireAmount(t, 160, st.TotalDistributed)
	requireAmount(t, 30, st.TotalBurned)
	require.NoError(t, s.CheckSolvency())
}

func TestStack_Claim(t *testing.T) {
	s, token := newTestStack(t)
	cost := s.Rules().EntryCost
	a, b := addr(1), addr(2)
	fund(token, a, cost, 1)
	fund(token, b, cost, 1)

	_, err := s.Enter(a, cost)
	require.NoError(t, err)
	_, err = s.Enter(b, cost)
	require.NoError(t, err)

	paid, err := s.Claim(a)
	require.NoError(t, err)
	requireAmount(t, 80, paid)
	// 80 claimed plus the 5 instant reward already on the balance.
	requireAmount(t, 85, token.BalanceOf(a))
	requireAmount(t, 0, s.UnclaimedOf(a))

	_, err = s.Claim(a)
	require.ErrorIs(t, err, ledger.ErrNothingToClaim)

	_, err = s.Claim(addr(9))
	require.ErrorIs(t, err, ledger.ErrNothingToClaim)
	require.NoError(t, s.CheckSolvency())
}

func TestStack_EnterRejections(t *testing.T) {
	s, token := newTestStack(t)
	cost := s.Rules().EntryCost
	a := addr(1)

	// No funds, no approval.
	_, err := s.Enter(a, cost)
	require.ErrorIs(t, err, assets.ErrInsufficientAllowance)

	// Approved but short on balance.
	token.Approve(a, engineAddr, cost)
	_, err = s.Enter(a, cost)
	require.ErrorIs(t, err, assets.ErrInsufficientFunds)

	// Wrong amount, even if affordable.
	fund(token, a, cost, 2)
	_, err = s.Enter(a, new(big.Int).Add(cost, big.NewInt(1)))
	require.ErrorIs(t, err, ErrWrongEntryAmount)
	_, err = s.Enter(a, nil)
	require.ErrorIs(t, err, ErrWrongEntryAmount)

	// Nothing above may have touched the ledger.
	require.Equal(t, uint64(0), s.Stats().ActiveCount)

	require.NoError(t, s.SetPaused(adminAddr, true))
	_, err = s.Enter(a, cost)
	require.ErrorIs(t, err, ErrPaused)

	require.NoError(t, s.SetPaused(adminAddr, false))
	_, err = s.Enter(a, cost)
	require.NoError(t, err)
}

func TestStack_PauseKeepsClaimsOpen(t *testing.T) {
	s, token := newTestStack(t)
	cost := s.Rules().EntryCost
	a, b := addr(1), addr(2)
	fund(token, a, cost, 1)
	fund(token, b, cost, 1)

	_, err := s.Enter(a, cost)
	require.NoError(t, err)
	_, err = s.Enter(b, cost)
	require.NoError(t, err)

	require.NoError(t, s.SetPaused(adminAddr, true))

	paid, err := s.Claim(a)
	require.NoError(t, err)
	requireAmount(t, 80, paid)
}

func TestStack_Admin(t *testing.T) {
	s, _ := newTestStack(t)
	outsider := addr(7)

	require.ErrorIs(t, s.SetEntryCost(outsider, big.NewInt(1)), ErrNotOwner)
	require.ErrorIs(t, s.SetPaused(outsider, true), ErrNotOwner)
	require.ErrorIs(t, s.SetSplit(outsider, tower.SplitRules{}), ErrNotOwner)
	require.ErrorIs(t, s.WithdrawPool(outsider, big.NewInt(1)), ErrNotOwner)

	require.ErrorIs(t, s.SetEntryCost(adminAddr, big.NewInt(0)), tower.ErrZeroEntryCost)
	require.NoError(t, s.SetEntryCost(adminAddr, big.NewInt(250)))
	requireAmount(t, 250, s.Rules().EntryCost)

	over := tower.SplitRules{ParticipantBP: 9000, BurnBP: 2000, InstantBP: 0}
	require.ErrorIs(t, s.SetSplit(adminAddr, over), tower.ErrInvalidSplit)

	// A share sum that wraps uint64 back under the denominator must still
	// be rejected; accepting it would let split() promise more than the
	// payment and break solvency.
	wrapped := tower.SplitRules{ParticipantBP: math.MaxUint64, BurnBP: 10001}
	require.ErrorIs(t, s.SetSplit(adminAddr, wrapped), tower.ErrInvalidSplit)
	require.Equal(t, uint64(8000), s.Rules().Split.ParticipantBP)

	require.NoError(t, s.SetSplit(adminAddr, tower.SplitRules{ParticipantBP: 7000, BurnBP: 0, InstantBP: 1000}))
}

func TestStack_WithdrawPool(t *testing.T) {
	s, token := newTestStack(t)
	cost := s.Rules().EntryCost
	a := addr(1)
	fund(token, a, cost, 1)
	_, err := s.Enter(a, cost)
	require.NoError(t, err)

	// 90 in the pool after the first entry.
	require.ErrorIs(t, s.WithdrawPool(adminAddr, big.NewInt(91)), ErrWithdrawExceedsPool)
	require.ErrorIs(t, s.WithdrawPool(adminAddr, big.NewInt(0)), ErrWithdrawExceedsPool)

	require.NoError(t, s.WithdrawPool(adminAddr, big.NewInt(30)))
	requireAmount(t, 30, token.BalanceOf(adminAddr))
	requireAmount(t, 60, s.Stats().PoolBalance)
	require.NoError(t, s.CheckSolvency())
}

func TestStack_EventOrder(t *testing.T) {
	s, token := newTestStack(t)
	cost := s.Rules().EntryCost
	a, b := addr(1), addr(2)
	fund(token, a, cost, 1)
	fund(token, b, cost, 1)

	var kinds []string
	s.SetListener(func(ev inter.LedgerEvent) {
		kinds = append(kinds, ev.Kind())
	})

	_, err := s.Enter(a, cost)
	require.NoError(t, err)
	_, err = s.Enter(b, cost)
	require.NoError(t, err)
	_, err = s.Claim(a)
	require.NoError(t, err)
	require.NoError(t, s.SetPaused(adminAddr, true))

	require.Equal(t, []string{"entry", "entry", "claim", "rulechange"}, kinds)
}

func TestStack_StateRoundTrip(t *testing.T) {
	s, token := newTestStack(t)
	cost := s.Rules().EntryCost
	a, b := addr(1), addr(2)
	fund(token, a, cost, 2)
	fund(token, b, cost, 1)

	_, err := s.Enter(a, cost)
	require.NoError(t, err)
	_, err = s.Enter(b, cost)
	require.NoError(t, err)
	_, err = s.Enter(a, cost)
	require.NoError(t, err)
	_, err = s.Claim(b)
	require.NoError(t, err)

	restored, err := NewStackFromState(s.State(), token, engineAddr, adminAddr)
	require.NoError(t, err)

	want, got := s.Stats(), restored.Stats()
	require.Equal(t, want.ActiveCount, got.ActiveCount)
	require.Equal(t, want.Positions, got.Positions)
	require.Equal(t, want.Round, got.Round)
	require.Zero(t, want.PoolBalance.Cmp(got.PoolBalance))
	require.Zero(t, want.TotalBurned.Cmp(got.TotalBurned))
	require.Zero(t, want.TotalPaidOut.Cmp(got.TotalPaidOut))
	require.Zero(t, want.TotalDistributed.Cmp(got.TotalDistributed))
	require.Zero(t, s.UnclaimedOf(a).Cmp(restored.UnclaimedOf(a)))
	require.Zero(t, s.UnclaimedOf(b).Cmp(restored.UnclaimedOf(b)))
	require.Equal(t, s.PositionsOf(a), restored.PositionsOf(a))
	require.NoError(t, restored.CheckSolvency())
}
