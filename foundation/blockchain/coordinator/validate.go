package coordinator

import (
	"encoding/hex"
	"fmt"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/block"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/consensus"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/utxo"
)

// validateBlock runs the full block-acceptance pipeline for b, which is
// expected to extend parentHash at height, against view (the UTXO state at
// parentHash, not yet mutated by b). It never mutates view; callers apply
// the block to their own set afterward once validateBlock has succeeded.
func (c *Coordinator) validateBlock(b block.Block, height uint32, parentHash chainhash.Hash, view *utxo.Set) error {
	if err := c.validateHeader(b, height, parentHash); err != nil {
		return consensus.NewValidationError(err)
	}

	if b.Size() > block.MaxBlockSize {
		return consensus.NewValidationError(fmt.Errorf("%w: %d bytes", consensus.ErrBlockTooLarge, b.Size()))
	}

	totalFees, err := c.validateTransactions(b, height, view)
	if err != nil {
		return consensus.NewValidationError(err)
	}

	if err := consensus.ValidateCoinbaseStructure(b.Transactions, height, totalFees); err != nil {
		return consensus.NewValidationError(err)
	}

	root, err := block.MerkleRoot(b.Transactions)
	if err != nil {
		return consensus.NewValidationError(err)
	}
	if root != b.Header.MerkleRoot {
		return consensus.NewValidationError(fmt.Errorf("%w: got %s, want %s", consensus.ErrBadMerkleRoot, root, b.Header.MerkleRoot))
	}

	if err := consensus.ValidateNoDuplicateTxIDs(b.Transactions); err != nil {
		return consensus.NewValidationError(err)
	}

	return nil
}

// validateHeader checks proof-of-work, the expected difficulty, and the
// timestamp rules (Median Time Past and the future-time window).
func (c *Coordinator) validateHeader(b block.Block, height uint32, parentHash chainhash.Hash) error {
	if !meetsPoW(b) {
		return fmt.Errorf("%w: hash %s exceeds target for bits %#x", consensus.ErrInvalidPoW, b.Hash(), b.Header.Bits)
	}

	parentHeader := c.blocksByHash[parentHash].Block.Header
	expected := c.expectedDifficultyFor(height, parentHash, parentHeader)
	if b.Header.Bits != expected {
		return fmt.Errorf("%w: got %#x, expected %#x", consensus.ErrInvalidDifficulty, b.Header.Bits, expected)
	}

	ancestors := c.ancestorTimestamps(parentHash, consensus.MedianTimePastWindow)
	if err := consensus.ValidateTimestamp(b.Header.Timestamp, ancestors, nowUnix()); err != nil {
		return err
	}

	return nil
}

// validateTransactions validates every non-coinbase transaction in b in
// array order against original (the UTXO state before b was applied,
// untouched throughout), tracking consumption in a working copy so that
// later transactions in the same block may spend earlier ones' outputs,
// and an attempt to spend an output already consumed earlier in the same
// block is distinguished as a double-spend rather than a missing output.
// It returns the total fees collected, for the coinbase structure check.
func (c *Coordinator) validateTransactions(b block.Block, height uint32, original *utxo.Set) (int64, error) {
	if len(b.Transactions) == 0 {
		return 0, fmt.Errorf("%w: block has no transactions", consensus.ErrBadCoinbase)
	}
	if !b.Transactions[0].IsCoinbase() {
		return 0, fmt.Errorf("%w: first transaction is not a coinbase", consensus.ErrBadCoinbase)
	}

	working := original.Clone()
	var totalFees int64

	for _, tx := range b.Transactions[1:] {
		if tx.IsCoinbase() {
			return 0, fmt.Errorf("%w: non-first transaction is a coinbase", consensus.ErrBadCoinbase)
		}
		if len(tx.Inputs) == 0 || len(tx.Outputs) == 0 {
			return 0, fmt.Errorf("%w: %s", consensus.ErrEmptyTransaction, tx.TxID())
		}

		if err := consensus.ValidateOutputAmounts(tx.Outputs); err != nil {
			return 0, err
		}

		var totalIn int64
		for _, in := range tx.Inputs {
			op := utxo.Outpoint{TxID: in.PrevTxID, Index: in.PrevOutputIndex}

			entry, stillUnspent := working.Get(op)
			if !stillUnspent {
				if _, existedOriginally := original.Get(op); existedOriginally {
					return 0, fmt.Errorf("%w: %s:%d", consensus.ErrDoubleSpend, op.TxID, op.Index)
				}
				return 0, fmt.Errorf("%w: %s:%d", consensus.ErrMissingUTXO, op.TxID, op.Index)
			}

			if err := consensus.ValidateCoinbaseMaturity(entry.IsCoinbase, entry.BlockHeight, height, c.params.CoinbaseMaturity); err != nil {
				return 0, err
			}

			if err := consensus.ValidateInputSignature(tx, in, hex.EncodeToString(entry.PubKeyScript)); err != nil {
				return 0, err
			}

			totalIn += entry.Value

			if _, err := working.Remove(op); err != nil {
				return 0, fmt.Errorf("%w: %s:%d", consensus.ErrDoubleSpend, op.TxID, op.Index)
			}
		}

		var totalOut int64
		for _, out := range tx.Outputs {
			totalOut += out.Value
		}
		if totalIn < totalOut {
			return 0, fmt.Errorf("%w: inputs %d less than outputs %d for %s", consensus.ErrOutputOverflow, totalIn, totalOut, tx.TxID())
		}
		totalFees += totalIn - totalOut

		txid := tx.TxID()
		for idx, out := range tx.Outputs {
			op := utxo.Outpoint{TxID: txid, Index: uint32(idx)}
			if err := working.Add(op, utxo.Entry{Value: out.Value, PubKeyScript: out.PubKeyScript, BlockHeight: height, IsCoinbase: false}); err != nil {
				return 0, err
			}
		}
	}

	return totalFees, nil
}

