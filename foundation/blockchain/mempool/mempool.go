// Package mempool maintains the set of validated, not-yet-confirmed
// transactions a node is willing to relay and mine, ordered by descending
// fee rate.
package mempool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/consensus"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/utxo"
)

// entry is a pooled transaction plus the fee-rate it was admitted with.
type entry struct {
	tx      transaction.Transaction
	fee     int64
	size    int
	feeRate float64 // satoshis per byte.
}

// Mempool holds pending transactions keyed by txid, ordered for block
// assembly by descending fee rate.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[chainhash.Hash]entry
	spends   map[utxo.Outpoint]chainhash.Hash // outpoint -> spending txid, for double-spend detection.
	totalLen int
	maxBytes int
}

// New constructs an empty Mempool bounded at maxBytes total serialized size
// across all pooled transactions.
func New(maxBytes int) *Mempool {
	return &Mempool{
		pool:     make(map[chainhash.Hash]entry),
		spends:   make(map[utxo.Outpoint]chainhash.Hash),
		maxBytes: maxBytes,
	}
}

// Count returns the number of pooled transactions.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return len(mp.pool)
}

// Has reports whether txid is currently pooled.
func (mp *Mempool) Has(txid chainhash.Hash) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	_, ok := mp.pool[txid]
	return ok
}

// Add validates tx against set (must not be a coinbase, every input must
// resolve in set, inputs must cover outputs) and admits it to the pool,
// rejecting double-spends against both the UTXO set and other pooled
// transactions, and enforcing the pool's byte-size cap.
func (mp *Mempool) Add(tx transaction.Transaction, set *utxo.Set) error {
	if tx.IsCoinbase() {
		return consensus.NewMempoolError(fmt.Errorf("%w: coinbase transactions are never relayed", consensus.ErrBadCoinbase))
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	txid := tx.TxID()
	if _, ok := mp.pool[txid]; ok {
		return nil // already pooled, not an error.
	}

	var totalIn int64
	for _, in := range tx.Inputs {
		op := utxo.Outpoint{TxID: in.PrevTxID, Index: in.PrevOutputIndex}

		if spender, ok := mp.spends[op]; ok && spender != txid {
			return consensus.NewMempoolError(fmt.Errorf("%w: %s:%d already spent by pooled tx %s", consensus.ErrMempoolDoubleSpend, op.TxID, op.Index, spender))
		}

		out, ok := set.Get(op)
		if !ok {
			return consensus.NewMempoolError(fmt.Errorf("%w: %s:%d", consensus.ErrMissingUTXO, op.TxID, op.Index))
		}
		totalIn += out.Value
	}

	var totalOut int64
	for _, out := range tx.Outputs {
		totalOut += out.Value
	}

	if totalIn < totalOut {
		return consensus.NewMempoolError(fmt.Errorf("%w: inputs %d less than outputs %d", consensus.ErrOutputOverflow, totalIn, totalOut))
	}

	size := len(tx.Serialize())
	if mp.totalLen+size > mp.maxBytes {
		return consensus.NewMempoolError(fmt.Errorf("%w: adding %d bytes would exceed cap of %d", consensus.ErrMempoolFull, size, mp.maxBytes))
	}

	fee := totalIn - totalOut
	mp.pool[txid] = entry{
		tx:      tx,
		fee:     fee,
		size:    size,
		feeRate: float64(fee) / float64(size),
	}
	for _, in := range tx.Inputs {
		mp.spends[utxo.Outpoint{TxID: in.PrevTxID, Index: in.PrevOutputIndex}] = txid
	}
	mp.totalLen += size

	return nil
}

// Remove drops txid from the pool without regard to whether it confirmed.
func (mp *Mempool) Remove(txid chainhash.Hash) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.removeLocked(txid)
}

func (mp *Mempool) removeLocked(txid chainhash.Hash) {
	e, ok := mp.pool[txid]
	if !ok {
		return
	}
	for _, in := range e.tx.Inputs {
		op := utxo.Outpoint{TxID: in.PrevTxID, Index: in.PrevOutputIndex}
		if mp.spends[op] == txid {
			delete(mp.spends, op)
		}
	}
	delete(mp.pool, txid)
	mp.totalLen -= e.size
}

// RemoveConfirmed drops every transaction in txs from the pool. Call it
// after a block containing them has been accepted.
func (mp *Mempool) RemoveConfirmed(txs []transaction.Transaction) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	for _, tx := range txs {
		mp.removeLocked(tx.TxID())
	}
}

// Reinsert re-admits txs (typically the non-coinbase transactions of a
// block undone by a reorg) into the pool against set. It silently drops
// any that no longer validate, for example because one of their inputs
// was itself undone.
func (mp *Mempool) Reinsert(txs []transaction.Transaction, set *utxo.Set) {
	for _, tx := range txs {
		_ = mp.Add(tx, set)
	}
}

// TakeTop returns pooled transactions in descending fee-rate order, taking
// as many as fit within limitBytes. Ties break by txid for determinism.
func (mp *Mempool) TakeTop(limitBytes int) []transaction.Transaction {
	mp.mu.RLock()
	entries := make([]entry, 0, len(mp.pool))
	for _, e := range mp.pool {
		entries = append(entries, e)
	}
	mp.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].feeRate != entries[j].feeRate {
			return entries[i].feeRate > entries[j].feeRate
		}
		return entries[i].tx.TxID().String() < entries[j].tx.TxID().String()
	})

	var picked []transaction.Transaction
	var used int
	for _, e := range entries {
		if used+e.size > limitBytes {
			continue
		}
		picked = append(picked, e.tx)
		used += e.size
	}

	return picked
}

// All returns every pooled transaction, in no particular order.
func (mp *Mempool) All() []transaction.Transaction {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	all := make([]transaction.Transaction, 0, len(mp.pool))
	for _, e := range mp.pool {
		all = append(all, e.tx)
	}
	return all
}

// Truncate clears the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.pool = make(map[chainhash.Hash]entry)
	mp.spends = make(map[utxo.Outpoint]chainhash.Hash)
	mp.totalLen = 0
}
