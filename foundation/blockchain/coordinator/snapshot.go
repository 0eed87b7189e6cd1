package coordinator

import (
	"fmt"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/block"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/consensus"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/mempool"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/miner"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/utxo"
)

// AllBlocks returns every block known to the coordinator, on every fork.
// This is the full archival store, not just the best chain.
func (c *Coordinator) AllBlocks() []block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	blocks := make([]block.Block, 0, len(c.blocksByHash))
	for _, sb := range c.blocksByHash {
		blocks = append(blocks, sb.Block)
	}
	return blocks
}

// Tips returns the hash of every chain tip (a block with no known child).
func (c *Coordinator) Tips() []chainhash.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()

	tips := make([]chainhash.Hash, 0, len(c.tips))
	for hash := range c.tips {
		tips = append(tips, hash)
	}
	return tips
}

// MempoolTransactions returns every transaction currently pooled.
func (c *Coordinator) MempoolTransactions() []transaction.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mempool.All()
}

// UTXOEntries returns every unspent output at the current best tip.
func (c *Coordinator) UTXOEntries() []utxo.OutpointEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.utxo.All()
}

// Params returns the consensus parameter profile the coordinator was
// constructed with.
func (c *Coordinator) Params() consensus.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Restore rebuilds a Coordinator from a previously exported state: every
// block on every fork, the best tip's unspent outputs, the pooled
// transactions, the chain tips, and the best tip itself. Heights are
// recomputed by walking each block's parent chain back to genesis (the
// block whose PrevBlockHash is the zero hash), rather than trusted from the
// snapshot, so a tampered or stale height never survives a reload.
//
// Pooled transactions are re-admitted via the mempool's own validation
// (Mempool.Reinsert), silently dropping any that no longer validate against
// the restored UTXO set, rather than trusted verbatim.
func Restore(params consensus.Params, evHandler EvHandler, blocks []block.Block, utxoEntries []utxo.OutpointEntry, mempoolTxs []transaction.Transaction, tips []chainhash.Hash, bestTip chainhash.Hash) (*Coordinator, error) {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	byHash := make(map[chainhash.Hash]block.Block, len(blocks))
	for _, b := range blocks {
		byHash[b.Hash()] = b
	}

	heights := make(map[chainhash.Hash]uint32, len(blocks))
	var heightOf func(hash chainhash.Hash) (uint32, error)
	heightOf = func(hash chainhash.Hash) (uint32, error) {
		if h, ok := heights[hash]; ok {
			return h, nil
		}
		b, ok := byHash[hash]
		if !ok {
			return 0, errInvariant("restoring snapshot: block %s is referenced but was not included", hash)
		}
		if b.Header.PrevBlockHash == chainhash.ZeroHash {
			heights[hash] = 0
			return 0, nil
		}
		parentHeight, err := heightOf(b.Header.PrevBlockHash)
		if err != nil {
			return 0, err
		}
		heights[hash] = parentHeight + 1
		return heights[hash], nil
	}

	c := &Coordinator{
		params:       params,
		blocksByHash: make(map[chainhash.Hash]storedBlock, len(byHash)),
		heightIndex:  make(map[uint32]chainhash.Hash),
		tips:         make(map[chainhash.Hash]struct{}, len(tips)),
		utxo:         utxo.New(),
		mempool:      mempool.New(maxMempoolBytes),
		miner:        miner.New(false, evHandler),
		evHandler:    evHandler,
	}

	for hash, b := range byHash {
		height, err := heightOf(hash)
		if err != nil {
			return nil, err
		}
		c.blocksByHash[hash] = storedBlock{Block: b, Height: height}
	}

	for _, hash := range tips {
		if _, ok := c.blocksByHash[hash]; !ok {
			return nil, errInvariant("restoring snapshot: tip %s is not among the included blocks", hash)
		}
		c.tips[hash] = struct{}{}
	}

	bestHeight, err := heightOf(bestTip)
	if err != nil {
		return nil, err
	}
	c.bestTip = bestTip
	c.bestHeight = bestHeight

	// Walk the best chain from tip back to genesis to build the height
	// index, collecting the same path in genesis-to-tip order.
	bestPath := make([]chainhash.Hash, 0, bestHeight+1)
	for hash := bestTip; ; {
		sb := c.blocksByHash[hash]
		c.heightIndex[sb.Height] = hash
		bestPath = append(bestPath, hash)
		if sb.Block.Header.PrevBlockHash == chainhash.ZeroHash {
			break
		}
		hash = sb.Block.Header.PrevBlockHash
	}
	for i, j := 0, len(bestPath)-1; i < j; i, j = i+1, j-1 {
		bestPath[i], bestPath[j] = bestPath[j], bestPath[i]
	}

	// Re-derive each best-chain block's Diff by replaying it against a
	// throwaway UTXO set from genesis, rather than trusting the snapshot's
	// balance-only utxoEntries. A future reorg away from this chain unwinds
	// blocks strictly by replaying storedBlock.Diff (reorg.go), and a
	// zero-value Diff silently reverts nothing, so Restore must recompute it
	// just as pathFromGenesis/buildUTXOView would for a chain built live.
	replay := utxo.New()
	for _, hash := range bestPath {
		sb := c.blocksByHash[hash]
		diff, err := replay.ApplyBlock(sb.Block.Transactions, sb.Height)
		if err != nil {
			return nil, fmt.Errorf("restoring snapshot: replaying block %s to recover its diff: %w", hash, err)
		}
		sb.Diff = diff
		c.blocksByHash[hash] = sb
	}

	for _, oe := range utxoEntries {
		if err := c.utxo.Add(oe.Outpoint, oe.Entry); err != nil {
			return nil, err
		}
	}

	c.mempool.Reinsert(mempoolTxs, c.utxo)

	return c, nil
}
