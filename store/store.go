// Package store persists engine state in a key-value database. Records are
// kept in per-type tables carved out of one underlying kvdb store by key
// prefix; positions and commitments use the compact canonical encoding,
// aggregates use RLP.
package store

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/table"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-tower/inter"
	"github.com/rony4d/go-opera-tower/ledger"
	"github.com/rony4d/go-opera-tower/lottery"
	"github.com/rony4d/go-opera-tower/stackcore"
	"github.com/rony4d/go-opera-tower/tower"
)

// ErrNoState is returned by Load when the database holds no saved state.
var ErrNoState = errors.New("no state in database")

var metaKey = []byte("m")

// Store is a checkpointing layer over a kvdb: Save writes the full engine
// state as one consistent unit, Load reads it back. It performs no partial
// updates; the engines own the live state and the store owns durability.
type Store struct {
	db kvdb.Store

	tables struct {
		Meta        kvdb.Store
		Positions   kvdb.Store
		Commitments kvdb.Store
		History     kvdb.Store
	}

	log *logrus.Entry
}

// New wraps an opened database.
func New(db kvdb.Store) *Store {
	s := &Store{
		db:  db,
		log: logrus.WithField("module", "store"),
	}
	s.tables.Meta = table.New(db, []byte("m"))
	s.tables.Positions = table.New(db, []byte("p"))
	s.tables.Commitments = table.New(db, []byte("c"))
	s.tables.History = table.New(db, []byte("h"))
	return s
}

// NewMemory returns a store over a fresh in-memory database.
func NewMemory() *Store {
	return New(memorydb.New())
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// storedMeta is the RLP shape of the engine aggregates. Maps are flattened
// into sorted slices: RLP has no map kind, and sorting keeps the encoding
// deterministic.
type storedMeta struct {
	Rules            tower.Rules
	Paused           bool
	Pool             *big.Int
	TotalBurned      *big.Int
	TotalPaidOut     *big.Int
	TotalDistributed *big.Int

	LastID      inter.PositionID
	ActiveCount uint64
	Accumulator *big.Int
	Round       idx.Epoch
	Sealed      []storedRound

	HasLottery bool
}

type storedRound struct {
	Round       idx.Epoch
	Accumulator *big.Int
}

// Save writes the full engine state, replacing whatever was stored before.
func (s *Store) Save(state *stackcore.State) error {
	meta := storedMeta{
		Rules:            state.Rules,
		Paused:           state.Paused,
		Pool:             state.Pool,
		TotalBurned:      state.TotalBurned,
		TotalPaidOut:     state.TotalPaidOut,
		TotalDistributed: state.TotalDistributed,
		LastID:           state.Ledger.LastID,
		ActiveCount:      state.Ledger.ActiveCount,
		Accumulator:      state.Ledger.Accumulator,
		Round:            state.Ledger.Round,
		HasLottery:       state.Lottery != nil,
	}
	for r := idx.Epoch(0); r < state.Ledger.Round; r++ {
		if acc, ok := state.Ledger.SealedRounds[r]; ok {
			meta.Sealed = append(meta.Sealed, storedRound{Round: r, Accumulator: acc})
		}
	}

	raw, err := rlp.EncodeToBytes(&meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := s.tables.Meta.Put(metaKey, raw); err != nil {
		return err
	}

	for _, p := range state.Ledger.Positions {
		raw, err := p.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode position %d: %w", p.ID, err)
		}
		if err := s.tables.Positions.Put(positionKey(p.ID), raw); err != nil {
			return err
		}
	}

	// Open commitments come and go; the table is rebuilt from scratch so
	// resolved ones do not linger.
	if err := s.erase(s.tables.Commitments); err != nil {
		return err
	}
	if state.Lottery != nil {
		for id, c := range state.Lottery.Open {
			raw, err := c.MarshalBinary()
			if err != nil {
				return fmt.Errorf("encode commitment of position %d: %w", id, err)
			}
			if err := s.tables.Commitments.Put(positionKey(id), raw); err != nil {
				return err
			}
		}
		for i, c := range state.Lottery.History {
			raw, err := c.MarshalBinary()
			if err != nil {
				return fmt.Errorf("encode history entry %d: %w", i, err)
			}
			if err := s.tables.History.Put(bigendian.Uint64ToBytes(uint64(i)), raw); err != nil {
				return err
			}
		}
	}

	s.log.WithFields(logrus.Fields{
		"positions": len(state.Ledger.Positions),
		"round":     state.Ledger.Round,
	}).Debug("state saved")
	return nil
}

// Load reads the last saved engine state; ErrNoState if none was saved.
func (s *Store) Load() (*stackcore.State, error) {
	raw, err := s.tables.Meta.Get(metaKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNoState
	}
	var meta storedMeta
	if err := rlp.DecodeBytes(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}

	state := &stackcore.State{
		Rules:            meta.Rules,
		Paused:           meta.Paused,
		Pool:             meta.Pool,
		TotalBurned:      meta.TotalBurned,
		TotalPaidOut:     meta.TotalPaidOut,
		TotalDistributed: meta.TotalDistributed,
		Ledger: &ledger.Snapshot{
			LastID:       meta.LastID,
			ActiveCount:  meta.ActiveCount,
			Accumulator:  meta.Accumulator,
			Round:        meta.Round,
			SealedRounds: make(map[idx.Epoch]*big.Int, len(meta.Sealed)),
		},
	}
	for _, r := range meta.Sealed {
		state.Ledger.SealedRounds[r.Round] = r.Accumulator
	}

	// Big-endian keys iterate in id order, so positions come back sorted.
	it := s.tables.Positions.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		p := &inter.Position{}
		if err := p.UnmarshalBinary(it.Value()); err != nil {
			return nil, fmt.Errorf("decode position: %w", err)
		}
		state.Ledger.Positions = append(state.Ledger.Positions, p)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}

	if meta.HasLottery {
		state.Lottery = &lottery.Snapshot{
			Open: make(map[inter.PositionID]*inter.Commitment),
		}
		cit := s.tables.Commitments.NewIterator(nil, nil)
		defer cit.Release()
		for cit.Next() {
			c := &inter.Commitment{}
			if err := c.UnmarshalBinary(cit.Value()); err != nil {
				return nil, fmt.Errorf("decode commitment: %w", err)
			}
			id := inter.PositionID(bigendian.BytesToUint64(cit.Key()))
			state.Lottery.Open[id] = c
		}
		if err := cit.Error(); err != nil {
			return nil, err
		}

		hit := s.tables.History.NewIterator(nil, nil)
		defer hit.Release()
		for hit.Next() {
			c := &inter.Commitment{}
			if err := c.UnmarshalBinary(hit.Value()); err != nil {
				return nil, fmt.Errorf("decode history entry: %w", err)
			}
			state.Lottery.History = append(state.Lottery.History, c)
		}
		if err := hit.Error(); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"positions": len(state.Ledger.Positions),
		"round":     state.Ledger.Round,
	}).Debug("state loaded")
	return state, nil
}

// HasState reports whether a saved state exists.
func (s *Store) HasState() (bool, error) {
	return s.tables.Meta.Has(metaKey)
}

func positionKey(id inter.PositionID) []byte {
	return bigendian.Uint64ToBytes(uint64(id))
}

// erase drops every record of a table.
func (s *Store) erase(t kvdb.Store) error {
	it := t.NewIterator(nil, nil)
	defer it.Release()
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte{}, it.Key()...))
	}
	if err := it.Error(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := t.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
