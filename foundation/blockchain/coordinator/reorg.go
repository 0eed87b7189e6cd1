package coordinator

import (
	"fmt"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/consensus"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/utxo"
)

// reorganize switches the best chain to the one ending at newTipHash
// (height newTipHeight), which is known to be strictly longer than the
// current best chain but does not extend it directly.
//
// Every mutation against c.utxo is paired with an exact inverse that runs
// on failure, so a failed reorg leaves c.utxo byte-for-byte as it was
// found. AddBlock holds c.mu for the whole call, so no observer can ever
// see an intermediate state either way.
func (c *Coordinator) reorganize(newTipHash chainhash.Hash, newTipHeight uint32) error {
	ancestor, oldPath, newPath, err := c.findCommonAncestor(c.bestTip, newTipHash)
	if err != nil {
		return err
	}

	c.evHandler("coordinator: reorganize: ancestor[%s] unwind[%d] rewind[%d]", ancestor, len(oldPath), len(newPath))

	// Unwind the old chain, tip toward ancestor, using each block's diff
	// from when it was applied to the live set. The freed transactions are
	// only reinserted into the mempool once the whole reorg has committed.
	// Reinserting here would leave them pooled against a live chain that
	// never actually changed if the rewind below fails.
	var freedTxs []transaction.Transaction
	for _, hash := range oldPath {
		sb := c.blocksByHash[hash]
		if err := c.utxo.RevertBlock(sb.Diff); err != nil {
			return errInvariant("reverting previously-committed block %s during reorg: %v", hash, err)
		}
		freedTxs = append(freedTxs, sb.Block.Transactions[1:]...)
	}

	// Rewind the new chain, ancestor toward new tip, fully revalidating
	// each block against the partially-reconstructed UTXO set before
	// applying it.
	var rewoundDiffs []utxo.Diff
	for _, hash := range newPath {
		sb := c.blocksByHash[hash]
		parentHash := sb.Block.Header.PrevBlockHash

		if err := c.validateBlock(sb.Block, sb.Height, parentHash, c.utxo); err != nil {
			c.rollback(oldPath, newPath[:len(rewoundDiffs)], rewoundDiffs)
			return consensus.NewValidationError(fmt.Errorf("%w: %v", consensus.ErrInvalidReorg, err))
		}

		diff, err := c.utxo.ApplyBlock(sb.Block.Transactions, sb.Height)
		if err != nil {
			c.rollback(oldPath, newPath[:len(rewoundDiffs)], rewoundDiffs)
			return consensus.NewValidationError(fmt.Errorf("%w: %v", consensus.ErrInvalidReorg, err))
		}
		rewoundDiffs = append(rewoundDiffs, diff)

		sb.Diff = diff
		c.blocksByHash[hash] = sb
	}

	// Success: move the height index onto the new chain and switch best_tip.
	for _, hash := range oldPath {
		delete(c.heightIndex, c.blocksByHash[hash].Height)
	}
	for _, hash := range newPath {
		sb := c.blocksByHash[hash]
		c.heightIndex[sb.Height] = hash
		c.mempool.RemoveConfirmed(sb.Block.Transactions)
	}

	c.bestTip = newTipHash
	c.bestHeight = newTipHeight

	c.mempool.Reinsert(freedTxs, c.utxo)

	return nil
}

// rollback restores c.utxo to its pre-reorg state: it first reverts
// whatever prefix of the new chain had already been rewound, in reverse
// (tip-to-ancestor) order, then re-applies the unwound old-chain blocks in
// forward (ancestor-to-tip) order.
func (c *Coordinator) rollback(oldPath, rewoundNewPath []chainhash.Hash, rewoundDiffs []utxo.Diff) {
	for i := len(rewoundNewPath) - 1; i >= 0; i-- {
		if err := c.utxo.RevertBlock(rewoundDiffs[i]); err != nil {
			panic(errInvariant("rolling back reorg rewind of %s: %v", rewoundNewPath[i], err))
		}
	}

	for i := len(oldPath) - 1; i >= 0; i-- {
		hash := oldPath[i]
		sb := c.blocksByHash[hash]
		diff, err := c.utxo.ApplyBlock(sb.Block.Transactions, sb.Height)
		if err != nil {
			panic(errInvariant("rolling back reorg unwind of %s: %v", hash, err))
		}
		sb.Diff = diff
		c.blocksByHash[hash] = sb
	}
}

// findCommonAncestor returns the hash shared by both chains, plus the old
// chain's blocks from oldTip down to (excluding) the ancestor in
// tip-to-ancestor order, and the new chain's blocks from (excluding) the
// ancestor up to newTip in ancestor-to-tip order.
func (c *Coordinator) findCommonAncestor(oldTip, newTip chainhash.Hash) (chainhash.Hash, []chainhash.Hash, []chainhash.Hash, error) {
	oldChain, err := c.pathFromGenesis(oldTip)
	if err != nil {
		return chainhash.Hash{}, nil, nil, err
	}
	newChain, err := c.pathFromGenesis(newTip)
	if err != nil {
		return chainhash.Hash{}, nil, nil, err
	}

	var split int
	for split < len(oldChain) && split < len(newChain) && oldChain[split] == newChain[split] {
		split++
	}
	if split == 0 {
		return chainhash.Hash{}, nil, nil, errInvariant("old and new chains share no common ancestor, not even genesis")
	}
	ancestor := oldChain[split-1]

	oldPath := make([]chainhash.Hash, len(oldChain)-split)
	for i, h := range oldChain[split:] {
		oldPath[len(oldPath)-1-i] = h
	}

	newPath := append([]chainhash.Hash(nil), newChain[split:]...)

	return ancestor, oldPath, newPath, nil
}
