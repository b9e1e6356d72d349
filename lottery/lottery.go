package lottery

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-opera-tower/inter"
)

// Errors reported by lottery operations.
var (
	// ErrZeroCommitment rejects the zero hash: it cannot represent a real
	// keccak256 commitment and doubles as the "no commitment" marker.
	ErrZeroCommitment = errors.New("zero commitment hash")

	// ErrCommitmentExists rejects a second commitment while an open one is
	// still pending for the position.
	ErrCommitmentExists = errors.New("open commitment already exists for position")

	// ErrNoCommitment is returned when the position has never committed.
	ErrNoCommitment = errors.New("no commitment for position")

	// ErrStaleCommitment is the base error for every rejected reveal:
	// hash mismatch, already-resolved commitment or elapsed window. The
	// concrete reason is wrapped; errors.Is against this sentinel covers
	// all of them.
	ErrStaleCommitment = errors.New("stale or invalid commitment")

	// ErrNotCommitter rejects a resolve attempt by anyone other than the
	// account that committed.
	ErrNotCommitter = errors.New("caller is not the committing account")

	// ErrLosingRoll reports a valid reveal whose roll missed. The
	// commitment is consumed: the secret is public now and cannot be
	// retried against different randomness.
	ErrLosingRoll = errors.New("losing roll")

	// ErrWindowNotElapsed rejects expiring a commitment that can still be
	// resolved.
	ErrWindowNotElapsed = errors.New("reveal window has not elapsed")
)

// Outcome is the result of evaluating a reveal against a commitment.
type Outcome struct {
	// Winner is true iff the roll hit zero.
	Winner bool

	// Roll is the computed value in [0, modulo). Zero wins.
	Roll uint64

	// BlocksRemaining is how many blocks are left in the reveal window.
	BlocksRemaining idx.Block

	// Pending is true while the randomness for the commitment does not
	// exist yet (the block after the commit has not been produced). The
	// roll fields are meaningless; check again after the next block.
	Pending bool

	// Expired is true when the reveal window has elapsed; the outcome is
	// then non-winning regardless of the reveal and the commitment can
	// only expire.
	Expired bool
}

// CommitHash computes the commitment hash for a secret: keccak256(secret).
// Exposed so callers and tests build commitments the same way the reveal
// check verifies them.
func CommitHash(secret []byte) common.Hash {
	return crypto.Keccak256Hash(secret)
}

// Lottery manages one commitment per position and validates reveals
// against the delayed randomness source. It is not thread-safe; the tower
// engine serializes access together with the rest of the ledger state.
type Lottery struct {
	modulo uint64
	window idx.Block
	src    RandomnessSource

	// open holds the current commitment per position. Resolved commitments
	// move to the history and stop blocking new ones for the position.
	open map[inter.PositionID]*inter.Commitment

	// history preserves every resolved commitment for auditability.
	history []*inter.Commitment
}

// New creates a lottery with the given win modulo and reveal window.
func New(modulo uint64, window idx.Block, src RandomnessSource) *Lottery {
	return &Lottery{
		modulo: modulo,
		window: window,
		src:    src,
		open:   make(map[inter.PositionID]*inter.Commitment),
	}
}

// Commit stores a commitment for the position at the current head height.
func (lt *Lottery) Commit(id inter.PositionID, hash common.Hash, account common.Address) (*inter.Commitment, error) {
	if hash == (common.Hash{}) {
		return nil, ErrZeroCommitment
	}
	if _, ok := lt.open[id]; ok {
		return nil, ErrCommitmentExists
	}
	c := inter.NewCommitment(hash, lt.src.Head(), account)
	lt.open[id] = c
	return c.Copy(), nil
}

// CheckOutcome evaluates a reveal without mutating anything. It is the
// read-only pre-check a frontend runs before spending a state-changing
// resolve: callable by anyone, repeatable, and always consistent with what
// Resolve would conclude at the same head.
func (lt *Lottery) CheckOutcome(id inter.PositionID, reveal []byte) (Outcome, error) {
	c, ok := lt.open[id]
	if !ok {
		return Outcome{}, ErrNoCommitment
	}
	if c.Status.Resolved() {
		return Outcome{}, fmt.Errorf("%w: already resolved (%s)", ErrStaleCommitment, c.Status)
	}
	if CommitHash(reveal) != c.Hash {
		return Outcome{}, fmt.Errorf("%w: reveal does not match commitment hash", ErrStaleCommitment)
	}
	return lt.outcome(c, reveal), nil
}

// Resolve validates a winning reveal and settles the commitment.
//
// On a hit (roll == 0) the commitment is marked Won and the caller drains
// the pot. On a valid reveal that misses, the commitment is marked Lost —
// it resolves exactly once — and ErrLosingRoll is returned. If the window
// has elapsed the commitment is left open for Expire and the reveal is
// rejected as stale.
func (lt *Lottery) Resolve(id inter.PositionID, reveal []byte, caller common.Address) (Outcome, error) {
	c, ok := lt.open[id]
	if !ok {
		return Outcome{}, ErrNoCommitment
	}
	if c.Status.Resolved() {
		return Outcome{}, fmt.Errorf("%w: already resolved (%s)", ErrStaleCommitment, c.Status)
	}
	if caller != c.Account {
		return Outcome{}, ErrNotCommitter
	}
	if CommitHash(reveal) != c.Hash {
		return Outcome{}, fmt.Errorf("%w: reveal does not match commitment hash", ErrStaleCommitment)
	}

	out := lt.outcome(c, reveal)
	if out.Expired {
		return out, fmt.Errorf("%w: reveal window expired", ErrStaleCommitment)
	}
	if out.Pending {
		// No roll exists yet; the commitment stays open for a later try.
		return out, fmt.Errorf("%w: randomness not yet available", ErrStaleCommitment)
	}
	if !out.Winner {
		lt.settle(id, c, inter.CommitmentLost)
		return out, ErrLosingRoll
	}
	lt.settle(id, c, inter.CommitmentWon)
	return out, nil
}

// Expire settles a commitment whose reveal window has elapsed without
// resolution. Callable by anyone: it unblocks the position for future
// commitments and gives the system liveness even if the committer is gone.
func (lt *Lottery) Expire(id inter.PositionID) error {
	c, ok := lt.open[id]
	if !ok {
		return ErrNoCommitment
	}
	if c.Status.Resolved() {
		return fmt.Errorf("%w: already resolved (%s)", ErrStaleCommitment, c.Status)
	}
	if !lt.elapsed(c) {
		return ErrWindowNotElapsed
	}
	lt.settle(id, c, inter.CommitmentExpired)
	return nil
}

// Commitment returns a copy of the position's current commitment.
func (lt *Lottery) Commitment(id inter.PositionID) (*inter.Commitment, bool) {
	c, ok := lt.open[id]
	if !ok {
		return nil, false
	}
	return c.Copy(), true
}

// History returns copies of every resolved commitment, oldest first.
func (lt *Lottery) History() []*inter.Commitment {
	out := make([]*inter.Commitment, len(lt.history))
	for i, c := range lt.history {
		out[i] = c.Copy()
	}
	return out
}

// outcome computes the roll for an open commitment with a matching reveal.
func (lt *Lottery) outcome(c *inter.Commitment, reveal []byte) Outcome {
	if lt.elapsed(c) {
		// Past the window the randomness is stale even if technically
		// still retrievable; the commitment can only expire.
		return Outcome{Expired: true}
	}
	randomness, ok := lt.src.Randomness(c.Height)
	if !ok {
		// The block after the commit has not been produced yet.
		return Outcome{Pending: true, BlocksRemaining: lt.remaining(c)}
	}
	roll := Roll(reveal, randomness, lt.modulo)
	return Outcome{
		Winner:          roll == 0,
		Roll:            roll,
		BlocksRemaining: lt.remaining(c),
	}
}

// Roll mixes the revealed secret with the public randomness and reduces it
// to [0, modulo). A roll of zero wins. The hash output is wide enough that
// the modulo bias for small moduli is negligible.
func Roll(reveal []byte, randomness common.Hash, modulo uint64) uint64 {
	h := crypto.Keccak256(reveal, randomness.Bytes())
	return binary.BigEndian.Uint64(h[:8]) % modulo
}

// elapsed reports whether the commitment's reveal window has passed.
func (lt *Lottery) elapsed(c *inter.Commitment) bool {
	head := lt.src.Head()
	return head > c.Height && head-c.Height > lt.window
}

// remaining returns the blocks left before the commitment expires.
func (lt *Lottery) remaining(c *inter.Commitment) idx.Block {
	head := lt.src.Head()
	deadline := c.Height + lt.window
	if head >= deadline {
		return 0
	}
	return deadline - head
}

// settle moves a commitment into its terminal state and archives it.
func (lt *Lottery) settle(id inter.PositionID, c *inter.Commitment, status inter.CommitmentStatus) {
	c.Status = status
	lt.history = append(lt.history, c)
	delete(lt.open, id)
}

// Snapshot is the persistable lottery state.
type Snapshot struct {
	Open    map[inter.PositionID]*inter.Commitment
	History []*inter.Commitment
}

// Snapshot captures a deep copy of the lottery state for persistence.
func (lt *Lottery) Snapshot() *Snapshot {
	s := &Snapshot{
		Open:    make(map[inter.PositionID]*inter.Commitment, len(lt.open)),
		History: make([]*inter.Commitment, len(lt.history)),
	}
	for id, c := range lt.open {
		s.Open[id] = c.Copy()
	}
	for i, c := range lt.history {
		s.History[i] = c.Copy()
	}
	return s
}

// Restore replaces the lottery's commitment state from a snapshot.
func (lt *Lottery) Restore(s *Snapshot) {
	lt.open = make(map[inter.PositionID]*inter.Commitment, len(s.Open))
	for id, c := range s.Open {
		lt.open[id] = c.Copy()
	}
	lt.history = make([]*inter.Commitment, len(s.History))
	for i, c := range s.History {
		lt.history[i] = c.Copy()
	}
}
