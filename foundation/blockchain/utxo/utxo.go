// Package utxo implements the in-memory unspent-transaction-output set: the
// ledger every balance query and transaction validation reads from.
package utxo

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/keys"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
)

// ErrDuplicateUTXO is returned by Add when the (txid, index) key already
// exists. This is a hard consensus failure, not a silent overwrite.
var ErrDuplicateUTXO = errors.New("utxo: duplicate output")

// ErrMissingUTXO is returned by Remove when the (txid, index) key does not
// exist. This is a hard consensus failure, not a silently ignored no-op.
var ErrMissingUTXO = errors.New("utxo: output not found")

// Outpoint identifies a transaction output by its owning txid and index
// within that transaction.
type Outpoint struct {
	TxID  chainhash.Hash
	Index uint32
}

// Entry is an unspent output's recorded state.
type Entry struct {
	Value        int64
	PubKeyScript []byte
	BlockHeight  uint32
	IsCoinbase   bool
}

// Set is the mutex-guarded collection of every unspent output known to the
// chain at the position of the coordinator's current best tip.
type Set struct {
	mu      sync.RWMutex
	entries map[Outpoint]Entry
}

// New constructs an empty UTXO set.
func New() *Set {
	return &Set{entries: make(map[Outpoint]Entry)}
}

// Add inserts a new unspent output, failing ErrDuplicateUTXO if the key is
// already present.
func (s *Set) Add(op Outpoint, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[op]; exists {
		return fmt.Errorf("%w: %s:%d", ErrDuplicateUTXO, op.TxID, op.Index)
	}
	s.entries[op] = entry
	return nil
}

// Remove deletes and returns the entry at op, failing ErrMissingUTXO if it
// is not present.
func (s *Set) Remove(op Outpoint) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[op]
	if !exists {
		return Entry{}, fmt.Errorf("%w: %s:%d", ErrMissingUTXO, op.TxID, op.Index)
	}
	delete(s.entries, op)
	return entry, nil
}

// Get looks up the entry at op without removing it.
func (s *Set) Get(op Outpoint) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[op]
	return entry, exists
}

// BalanceOf sums the value of every unspent output whose pubkey_script
// equals hash160's hex encoding.
func (s *Set) BalanceOf(hash160 keys.PubKeyHash) int64 {
	target := hash160.Hex()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, entry := range s.entries {
		if hex.EncodeToString(entry.PubKeyScript) == target {
			total += entry.Value
		}
	}
	return total
}

// Diff records the UTXO-set mutations a single block applied, so that
// RevertBlock can undo them in O(changes) rather than replaying the whole
// chain from genesis.
type Diff struct {
	Removed []removedEntry // outputs consumed by this block's inputs.
	Added   []Outpoint     // outputs created by this block, in application order.
}

type removedEntry struct {
	Outpoint Outpoint
	Entry    Entry
}

// ApplyBlock spends every non-coinbase input and creates every output of
// every transaction in txs, in array order (inputs removed before that
// same transaction's outputs are added, so a transaction may only spend an
// earlier transaction's outputs within the same block, never its own or a
// later one's). Returns a Diff that RevertBlock can use to undo the block.
func (s *Set) ApplyBlock(txs []transaction.Transaction, height uint32) (Diff, error) {
	var diff Diff

	for i, tx := range txs {
		isCoinbase := i == 0

		if !isCoinbase {
			for _, in := range tx.Inputs {
				op := Outpoint{TxID: in.PrevTxID, Index: in.PrevOutputIndex}
				entry, err := s.Remove(op)
				if err != nil {
					return Diff{}, err
				}
				diff.Removed = append(diff.Removed, removedEntry{Outpoint: op, Entry: entry})
			}
		}

		txid := tx.TxID()
		for idx, out := range tx.Outputs {
			op := Outpoint{TxID: txid, Index: uint32(idx)}
			entry := Entry{
				Value:        out.Value,
				PubKeyScript: out.PubKeyScript,
				BlockHeight:  height,
				IsCoinbase:   isCoinbase,
			}
			if err := s.Add(op, entry); err != nil {
				return Diff{}, err
			}
			diff.Added = append(diff.Added, op)
		}
	}

	return diff, nil
}

// RevertBlock undoes the effect of a previously applied block: it removes
// every output the block added, then restores every output it removed. It
// is the exact inverse of ApplyBlock, applied using the recorded diff
// instead of a full chain replay.
func (s *Set) RevertBlock(diff Diff) error {
	for i := len(diff.Added) - 1; i >= 0; i-- {
		if _, err := s.Remove(diff.Added[i]); err != nil {
			return err
		}
	}

	for i := len(diff.Removed) - 1; i >= 0; i-- {
		r := diff.Removed[i]
		if err := s.Add(r.Outpoint, r.Entry); err != nil {
			return err
		}
	}

	return nil
}

// Clone returns a deep copy of the set, used to build a working view during
// validation and reorg without mutating the committed UTXO set.
func (s *Set) Clone() *Set {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := New()
	for op, entry := range s.entries {
		clone.entries[op] = entry
	}
	return clone
}

// OutpointEntry pairs an outpoint with its entry, for enumerating the whole
// set, e.g. to serialize a snapshot.
type OutpointEntry struct {
	Outpoint Outpoint
	Entry    Entry
}

// All returns every unspent output currently tracked, in no particular
// order.
func (s *Set) All() []OutpointEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]OutpointEntry, 0, len(s.entries))
	for op, entry := range s.entries {
		all = append(all, OutpointEntry{Outpoint: op, Entry: entry})
	}
	return all
}

// Len reports the number of unspent outputs currently tracked.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
