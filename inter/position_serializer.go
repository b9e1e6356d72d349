// This file defines the canonical binary encoding of positions and
// commitments using CSER (Canonical Serialization).
//
// CSER is used instead of RLP for the ledger's own records because it is
// compact (small integers cost one byte plus a couple of side-channel bits)
// and strictly canonical: a given position has exactly one valid encoding,
// so stored records can be compared and hashed byte-for-byte. Aggregate
// counters, which are few and rarely touched, go through RLP in the store
// instead.
//
// Wire layout of a Position:
//  1. ID (u64)
//  2. Owner (20 fixed bytes)
//  3. Created (u64 nanoseconds)
//  4. Round (u32)
//  5. EarningsDebt (big int, scaled by the accumulator precision)
//  6. Claimed (big int)
//
// Wire layout of a Commitment:
//  1. Hash (32 fixed bytes)
//  2. Height (u64)
//  3. Account (20 fixed bytes)
//  4. Status (2 bits in the bit stream)

package inter

import (
	"errors"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-tower/utils/cser"
)

// Errors related to record serialization.
var (
	ErrSerMalformedPosition   = errors.New("serialization of malformed position: structure violates ledger rules")
	ErrSerMalformedCommitment = errors.New("serialization of malformed commitment: structure violates lottery rules")
)

// MarshalCSER serializes the position into the writer.
func (p *Position) MarshalCSER(w *cser.Writer) error {
	if p.ID == 0 {
		// IDs are 1-indexed; zero means the position was never initialized.
		return ErrSerMalformedPosition
	}
	if p.EarningsDebt == nil || p.Claimed == nil {
		return ErrSerMalformedPosition
	}
	w.U64(uint64(p.ID))
	w.FixedBytes(p.Owner.Bytes())
	w.U64(uint64(p.Created))
	w.U32(uint32(p.Round))
	w.BigInt(p.EarningsDebt)
	w.BigInt(p.Claimed)
	return nil
}

// UnmarshalCSER deserializes the position from the reader.
func (p *Position) UnmarshalCSER(r *cser.Reader) error {
	p.ID = PositionID(r.U64())
	if p.ID == 0 {
		return ErrSerMalformedPosition
	}
	r.FixedBytes(p.Owner[:])
	p.Created = Timestamp(r.U64())
	p.Round = idx.Epoch(r.U32())
	p.EarningsDebt = r.BigInt()
	p.Claimed = r.BigInt()
	return nil
}

// MarshalBinary encodes the position into the raw CSER container format.
func (p *Position) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(p.MarshalCSER)
}

// UnmarshalBinary decodes a position from the raw CSER container format.
func (p *Position) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, p.UnmarshalCSER)
}

// MarshalCSER serializes the commitment into the writer.
func (c *Commitment) MarshalCSER(w *cser.Writer) error {
	if c.Hash == (common.Hash{}) {
		// The zero hash is rejected at commit time; a stored commitment
		// carrying it is corrupt.
		return ErrSerMalformedCommitment
	}
	if c.Status > CommitmentExpired {
		return ErrSerMalformedCommitment
	}
	w.FixedBytes(c.Hash.Bytes())
	w.U64(uint64(c.Height))
	w.FixedBytes(c.Account.Bytes())
	// Status fits in 2 bits; keep it in the bit stream.
	w.BitsW.Write(2, uint(c.Status))
	return nil
}

// UnmarshalCSER deserializes the commitment from the reader.
func (c *Commitment) UnmarshalCSER(r *cser.Reader) error {
	r.FixedBytes(c.Hash[:])
	if c.Hash == (common.Hash{}) {
		return ErrSerMalformedCommitment
	}
	c.Height = idx.Block(r.U64())
	r.FixedBytes(c.Account[:])
	c.Status = CommitmentStatus(r.BitsR.Read(2))
	return nil
}

// MarshalBinary encodes the commitment into the raw CSER container format.
func (c *Commitment) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(c.MarshalCSER)
}

// UnmarshalBinary decodes a commitment from the raw CSER container format.
func (c *Commitment) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, c.UnmarshalCSER)
}
