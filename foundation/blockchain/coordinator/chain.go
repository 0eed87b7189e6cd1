package coordinator

import (
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/block"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/consensus"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/pow"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/utxo"
)

// pathFromGenesis walks backward from hash via PrevBlockHash until it
// reaches genesis (the block whose PrevBlockHash is the zero hash),
// returning the chain in genesis-to-hash order.
func (c *Coordinator) pathFromGenesis(hash chainhash.Hash) ([]chainhash.Hash, error) {
	var reversed []chainhash.Hash

	cur := hash
	for {
		sb, ok := c.blocksByHash[cur]
		if !ok {
			return nil, errInvariant("block %s missing from store while walking ancestors", cur)
		}
		reversed = append(reversed, cur)
		if sb.Block.Header.PrevBlockHash == chainhash.ZeroHash {
			break
		}
		cur = sb.Block.Header.PrevBlockHash
	}

	path := make([]chainhash.Hash, len(reversed))
	for i, h := range reversed {
		path[len(reversed)-1-i] = h
	}
	return path, nil
}

// buildUTXOView returns the UTXO set as of parentHash: a clone of the live
// set when parentHash is the current best tip (the common case), or a
// from-genesis replay along parentHash's own chain otherwise. The replay
// path validates a block extending a side chain that is not yet the best
// tip.
func (c *Coordinator) buildUTXOView(parentHash chainhash.Hash) (*utxo.Set, error) {
	if parentHash == c.bestTip {
		return c.utxo.Clone(), nil
	}

	path, err := c.pathFromGenesis(parentHash)
	if err != nil {
		return nil, err
	}

	set := utxo.New()
	for _, h := range path {
		sb := c.blocksByHash[h]
		if _, err := set.ApplyBlock(sb.Block.Transactions, sb.Height); err != nil {
			return nil, errInvariant("replaying previously-accepted block %s: %v", h, err)
		}
	}
	return set, nil
}

// ancestorTimestamps returns up to n timestamps starting at parentHash and
// walking backward, stopping early at genesis. Used for the Median Time
// Past check, where order does not matter since the median is computed
// over a sorted copy.
func (c *Coordinator) ancestorTimestamps(parentHash chainhash.Hash, n int) []uint32 {
	var out []uint32

	cur := parentHash
	for i := 0; i < n; i++ {
		sb, ok := c.blocksByHash[cur]
		if !ok {
			break
		}
		out = append(out, sb.Block.Header.Timestamp)
		if sb.Height == 0 {
			break
		}
		cur = sb.Block.Header.PrevBlockHash
	}
	return out
}

// ancestorHeader returns the header steps blocks behind hash (steps=0
// returns hash's own header).
func (c *Coordinator) ancestorHeader(hash chainhash.Hash, steps int) (block.Header, bool) {
	cur := hash
	for i := 0; i < steps; i++ {
		sb, ok := c.blocksByHash[cur]
		if !ok {
			return block.Header{}, false
		}
		if sb.Height == 0 {
			return block.Header{}, false
		}
		cur = sb.Block.Header.PrevBlockHash
	}
	sb, ok := c.blocksByHash[cur]
	if !ok {
		return block.Header{}, false
	}
	return sb.Block.Header, true
}

// expectedDifficultyFor computes the compact bits a block at height,
// extending parentHash (whose header is parentHeader), must carry.
func (c *Coordinator) expectedDifficultyFor(height uint32, parentHash chainhash.Hash, parentHeader block.Header) uint32 {
	if !consensus.ShouldAdjust(height, c.params.AdjustmentInterval) {
		return parentHeader.Bits
	}

	first, ok := c.ancestorHeader(parentHash, int(c.params.AdjustmentInterval)-1)
	if !ok {
		// Not enough history to retarget yet; keep the parent's bits rather
		// than fail a block that arrives before the chain has grown deep
		// enough for a first adjustment.
		return parentHeader.Bits
	}

	return consensus.ExpectedDifficulty(height, c.params, parentHeader.Bits, first.Timestamp, parentHeader.Timestamp)
}

// meetsPoW reports whether b's hash satisfies its own declared bits.
func meetsPoW(b block.Block) bool {
	return pow.MeetsTarget(b.Hash(), b.Header.Bits)
}
