package inter

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// CommitmentStatus tracks the lifecycle of a lottery commitment.
//
// The state machine is:
//
//	Open -> Won | Lost | Expired
//
// A commitment resolves exactly once. The terminal states are final and
// irreversible; commitments are never deleted, only marked resolved, which
// preserves an audit trail of every lottery attempt.
type CommitmentStatus uint8

const (
	// CommitmentOpen is the initial state at commit time. The committer has
	// published the hash of a secret but has not revealed it yet.
	CommitmentOpen CommitmentStatus = iota

	// CommitmentWon means the reveal matched the hash and the roll hit zero.
	// The pot was paid out to the committer.
	CommitmentWon

	// CommitmentLost means the reveal matched the hash but the roll missed.
	// The commitment is consumed; the secret is public and cannot be reused.
	CommitmentLost

	// CommitmentExpired means the reveal window elapsed before resolution,
	// either because the randomness is no longer retrievable or because
	// anyone called the expire operation to unblock the position.
	CommitmentExpired
)

// Resolved reports whether the commitment has reached a terminal state.
func (s CommitmentStatus) Resolved() bool {
	return s != CommitmentOpen
}

// String returns a human-readable name for logs and stats dumps.
func (s CommitmentStatus) String() string {
	switch s {
	case CommitmentOpen:
		return "open"
	case CommitmentWon:
		return "won"
	case CommitmentLost:
		return "lost"
	case CommitmentExpired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Commitment is one position's stake in the commit-reveal lottery.
//
// The committer chooses a secret, publishes keccak256(secret) at commit time
// and reveals the secret later, once a block unknown at commit time exists.
// The winning roll mixes the secret with that later block's hash, so neither
// the committer (who commits before the randomness exists) nor an observer
// (who does not know the secret) can bias or front-run the outcome.
type Commitment struct {
	// Hash is the keccak256 of the committer's secret. Never the zero hash.
	Hash common.Hash

	// Height is the block height at commit time. The public randomness for
	// this commitment is the hash of the following block, and it stays
	// retrievable only for a bounded window after Height.
	Height idx.Block

	// Account is the committing account. Only it may resolve a win.
	Account common.Address

	// Status is the current lifecycle state. See CommitmentStatus.
	Status CommitmentStatus
}

// NewCommitment creates an open commitment recorded at the given height.
func NewCommitment(hash common.Hash, height idx.Block, account common.Address) *Commitment {
	return &Commitment{
		Hash:    hash,
		Height:  height,
		Account: account,
		Status:  CommitmentOpen,
	}
}

// Copy creates a copy of the commitment. All fields are value types, so a
// plain struct copy is sufficient; the method exists for symmetry with
// Position.Copy and for callers that hand commitments across goroutines.
func (c *Commitment) Copy() *Commitment {
	cp := *c
	return &cp
}
