package coordinator

import (
	"fmt"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/block"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/consensus"
)

// AddBlock validates and, on success, inserts b into the store, updating
// tips. Depending on whether b extends the best tip, extends a side chain
// that is now longer, or neither, it advances the best chain directly,
// triggers a reorganization, or simply stores the block for later.
func (c *Coordinator) AddBlock(b block.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := b.Hash()

	if _, exists := c.blocksByHash[hash]; exists {
		return consensus.NewValidationError(fmt.Errorf("%w: %s", consensus.ErrDuplicateBlock, hash))
	}

	parentHash := b.Header.PrevBlockHash
	parent, ok := c.blocksByHash[parentHash]
	if !ok {
		return consensus.NewValidationError(fmt.Errorf("%w: parent %s not known", consensus.ErrOrphanBlock, parentHash))
	}

	height := parent.Height + 1

	view, err := c.buildUTXOView(parentHash)
	if err != nil {
		return err
	}

	if err := c.validateBlock(b, height, parentHash, view); err != nil {
		return err
	}

	c.evHandler("coordinator: AddBlock: accepted: height[%d] hash[%s]", height, hash)

	delete(c.tips, parentHash)
	c.blocksByHash[hash] = storedBlock{Block: b, Height: height}
	c.tips[hash] = struct{}{}

	switch {
	case parentHash == c.bestTip:
		diff, err := c.utxo.ApplyBlock(b.Transactions, height)
		if err != nil {
			return errInvariant("applying already-validated block %s: %v", hash, err)
		}
		sb := c.blocksByHash[hash]
		sb.Diff = diff
		c.blocksByHash[hash] = sb

		c.bestTip = hash
		c.bestHeight = height
		c.heightIndex[height] = hash
		c.mempool.RemoveConfirmed(b.Transactions)

	case height > c.bestHeight:
		if err := c.reorganize(hash, height); err != nil {
			return err
		}

	default:
		c.evHandler("coordinator: AddBlock: stored side chain block: height[%d] hash[%s]", height, hash)
	}

	return nil
}
