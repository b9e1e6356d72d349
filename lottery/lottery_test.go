package lottery

import (
	"fmt"
	"math"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-tower/evmcore"
	"github.com/rony4d/go-opera-tower/inter"
)

const (
	testModulo = 69
	testWindow = 16
)

var (
	player   = common.HexToAddress("0x0000000000000000000000000000000000000071")
	stranger = common.HexToAddress("0x0000000000000000000000000000000000000072")
)

// newTestLottery builds a lottery on a deterministic fake chain.
func newTestLottery(seed byte) (*Lottery, *evmcore.FakeChain) {
	chain := evmcore.NewFakeChain(common.Hash{seed})
	chain.Advance(1) // genesis is height 0; start with one real block
	return New(testModulo, testWindow, NewChainSource(chain)), chain
}

// TestCommit verifies the commit preconditions: non-zero hash and no
// pending commitment for the position.
func TestCommit(t *testing.T) {
	require := require.New(t)
	lt, _ := newTestLottery(1)

	_, err := lt.Commit(1, common.Hash{}, player)
	require.ErrorIs(err, ErrZeroCommitment)

	c, err := lt.Commit(1, CommitHash([]byte("secret")), player)
	require.NoError(err)
	require.Equal(inter.CommitmentOpen, c.Status)
	require.Equal(player, c.Account)

	_, err = lt.Commit(1, CommitHash([]byte("other")), player)
	require.ErrorIs(err, ErrCommitmentExists)

	// A different position is unaffected.
	_, err = lt.Commit(2, CommitHash([]byte("other")), stranger)
	require.NoError(err)
}

// TestCheckOutcome_RoundTrip verifies the commit-then-reveal round trip:
// the stored hash must equal keccak256(reveal) for evaluation to proceed,
// and a mismatched reveal always rejects regardless of roll value.
func TestCheckOutcome_RoundTrip(t *testing.T) {
	require := require.New(t)
	lt, chain := newTestLottery(2)

	secret := []byte("my secret entropy")
	_, err := lt.Commit(1, CommitHash(secret), player)
	require.NoError(err)

	// The randomness block does not exist yet: a pending, non-winning
	// result, but not an error — the commitment itself is fine.
	out, err := lt.CheckOutcome(1, secret)
	require.NoError(err)
	require.True(out.Pending)
	require.False(out.Expired)
	require.False(out.Winner)

	chain.Advance(1)

	out, err = lt.CheckOutcome(1, secret)
	require.NoError(err)
	require.False(out.Pending)
	require.False(out.Expired)
	require.Less(out.Roll, uint64(testModulo))
	require.Equal(out.Winner, out.Roll == 0)
	require.NotZero(out.BlocksRemaining)

	// Wrong reveal is rejected before any roll is computed.
	_, err = lt.CheckOutcome(1, []byte("not the secret"))
	require.ErrorIs(err, ErrStaleCommitment)

	// CheckOutcome is pure: repeating it yields the same answer and the
	// commitment is still open afterwards.
	again, err := lt.CheckOutcome(1, secret)
	require.NoError(err)
	require.Equal(out, again)
	c, ok := lt.Commitment(1)
	require.True(ok)
	require.Equal(inter.CommitmentOpen, c.Status)
}

// TestOutcome_PendingVsExpired verifies the read API tells a commitment
// still waiting for its randomness block apart from one whose window has
// elapsed: the first is pending with the full window ahead, the second can
// only expire.
func TestOutcome_PendingVsExpired(t *testing.T) {
	require := require.New(t)
	lt, chain := newTestLottery(3)

	secret := []byte("patience")
	_, err := lt.Commit(1, CommitHash(secret), player)
	require.NoError(err)

	out, err := lt.CheckOutcome(1, secret)
	require.NoError(err)
	require.True(out.Pending)
	require.False(out.Expired)
	require.Equal(idx.Block(testWindow), out.BlocksRemaining)

	// Resolving while pending is rejected and leaves the commitment open.
	_, err = lt.Resolve(1, secret, player)
	require.ErrorIs(err, ErrStaleCommitment)
	c, ok := lt.Commitment(1)
	require.True(ok)
	require.Equal(inter.CommitmentOpen, c.Status)

	// One block later the same reveal produces a real roll.
	chain.Advance(1)
	out, err = lt.CheckOutcome(1, secret)
	require.NoError(err)
	require.False(out.Pending)
	require.False(out.Expired)

	// Past the window the result is expired, not pending.
	chain.Advance(testWindow + 1)
	out, err = lt.CheckOutcome(1, secret)
	require.NoError(err)
	require.False(out.Pending)
	require.True(out.Expired)
	require.Zero(out.BlocksRemaining)
}

// findSecret scans for a secret whose roll has the wanted winner flag under
// the chain's randomness for a commitment at the given height.
func findSecret(chain *evmcore.FakeChain, height idx.Block, modulo uint64, winner bool) []byte {
	randomness, ok := chain.BlockHash(height + 1)
	if !ok {
		panic("randomness not retrievable in test setup")
	}
	for i := 0; ; i++ {
		secret := []byte(fmt.Sprintf("candidate-%d", i))
		if (Roll(secret, randomness, modulo) == 0) == winner {
			return secret
		}
	}
}

// TestResolve_WinAndLoss verifies both terminal reveal paths.
func TestResolve_WinAndLoss(t *testing.T) {
	require := require.New(t)
	lt, chain := newTestLottery(3)
	chain.Advance(2) // make the randomness for height-1 commitments known

	// The chain is deterministic, so we can pick secrets with known rolls.
	winning := findSecret(chain, 1, testModulo, true)
	losing := findSecret(chain, 1, testModulo, false)

	// Losing reveal: commitment consumed, ErrLosingRoll reported.
	lt.open[1] = inter.NewCommitment(CommitHash(losing), 1, player)
	out, err := lt.Resolve(1, losing, player)
	require.ErrorIs(err, ErrLosingRoll)
	require.False(out.Winner)
	_, ok := lt.Commitment(1)
	require.False(ok, "lost commitment must leave the open set")
	require.Len(lt.History(), 1)
	require.Equal(inter.CommitmentLost, lt.History()[0].Status)

	// The same commitment cannot resolve twice.
	_, err = lt.Resolve(1, losing, player)
	require.ErrorIs(err, ErrNoCommitment)

	// Winning reveal, but from the wrong caller: authorization error and
	// the commitment survives untouched.
	lt.open[2] = inter.NewCommitment(CommitHash(winning), 1, player)
	_, err = lt.Resolve(2, winning, stranger)
	require.ErrorIs(err, ErrNotCommitter)
	c, ok := lt.Commitment(2)
	require.True(ok)
	require.Equal(inter.CommitmentOpen, c.Status)

	// Winning reveal from the committer.
	out, err = lt.Resolve(2, winning, player)
	require.NoError(err)
	require.True(out.Winner)
	require.Zero(out.Roll)
	require.Equal(inter.CommitmentWon, lt.History()[1].Status)
}

// TestExpiry verifies the expiry scenario: once the reveal window elapses,
// resolve rejects the commitment as stale and expire succeeds — but not a
// block earlier.
func TestExpiry(t *testing.T) {
	require := require.New(t)
	lt, chain := newTestLottery(4)

	secret := []byte("slow player")
	_, err := lt.Commit(1, CommitHash(secret), player)
	require.NoError(err)

	// Premature expire is rejected while the window is open.
	require.ErrorIs(lt.Expire(1), ErrWindowNotElapsed)

	chain.Advance(testWindow) // head-commit == window: still resolvable
	require.ErrorIs(lt.Expire(1), ErrWindowNotElapsed)
	if _, err := lt.CheckOutcome(1, secret); err != nil {
		t.Fatalf("CheckOutcome at window edge: %v", err)
	}

	chain.Advance(1) // window elapsed

	_, err = lt.Resolve(1, secret, player)
	require.ErrorIs(err, ErrStaleCommitment)

	require.NoError(lt.Expire(1))
	require.Equal(inter.CommitmentExpired, lt.History()[0].Status)

	// Anyone may expire; the expired slot accepts a fresh commitment.
	_, err = lt.Commit(1, CommitHash([]byte("retry")), player)
	require.NoError(err)
}

// TestRoll_Distribution verifies that across a large sample of reveals with
// fixed public randomness the winning rate converges to 1/69 within the
// expected binomial variance.
func TestRoll_Distribution(t *testing.T) {
	randomness := common.HexToHash("0xfeedface")
	const samples = 100000

	wins := 0
	for i := 0; i < samples; i++ {
		if Roll([]byte(fmt.Sprintf("reveal-%d", i)), randomness, testModulo) == 0 {
			wins++
		}
	}

	p := 1.0 / float64(testModulo)
	expected := float64(samples) * p
	// Allow 4 standard deviations: sigma = sqrt(n*p*(1-p)) ~ 38 here.
	sigma := math.Sqrt(float64(samples) * p * (1 - p))
	if diff := math.Abs(float64(wins) - expected); diff > 4*sigma {
		t.Errorf("wins = %d, expected %.0f +/- %.0f", wins, expected, 4*sigma)
	}
}

// TestSnapshotRestore verifies that commitment state survives a snapshot
// round trip, open and resolved alike.
func TestSnapshotRestore(t *testing.T) {
	require := require.New(t)
	lt, chain := newTestLottery(5)
	chain.Advance(2)

	_, err := lt.Commit(1, CommitHash([]byte("a")), player)
	require.NoError(err)
	lt.open[2] = inter.NewCommitment(CommitHash([]byte("b")), 1, stranger)
	_, _ = lt.Resolve(2, []byte("b"), stranger) // resolves to won or lost

	restored := New(testModulo, testWindow, NewChainSource(chain))
	restored.Restore(lt.Snapshot())

	c, ok := restored.Commitment(1)
	require.True(ok)
	require.Equal(CommitHash([]byte("a")), c.Hash)
	require.Len(restored.History(), 1)
	require.True(restored.History()[0].Status.Resolved())
}
