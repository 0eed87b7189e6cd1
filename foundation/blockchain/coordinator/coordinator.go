// Package coordinator owns the block store, the UTXO set, and the mempool,
// and is the single actor that mutates all three. It accepts new blocks,
// runs them through validation, advances or reorganizes the best chain, and
// assembles and submits newly-mined blocks.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/block"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/consensus"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/keys"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/mempool"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/miner"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/utxo"
)

// EvHandler receives progress/event strings, in the style of the rest of
// this module's logging.
type EvHandler func(v string, args ...any)

// storedBlock is a block plus the height it was inserted at (cached once on
// insertion rather than recomputed by walking parents every time) and,
// once the block has been applied to the live UTXO set, the Diff that
// application produced. A later reorg uses the Diff to unwind the block in
// O(changes) instead of replaying the chain from genesis.
type storedBlock struct {
	Block  block.Block
	Height uint32
	Diff   utxo.Diff
}

// Coordinator is the chain's single mutator: the block store (every block
// ever accepted, on any fork), the current best chain's UTXO set, the
// mempool, and the set of chain tips (leaf blocks with no known child).
//
// Every externally facing method takes mu. All but MineNextBlock hold it
// for their full duration, so AddBlock, AddTransaction, and BalanceOf are
// atomic with respect to each other. MineNextBlock holds mu while it reads
// the chain state and mempool for its template and again, through AddBlock,
// while submitting the solved block; the nonce search runs without it.
type Coordinator struct {
	mu sync.Mutex

	params consensus.Params

	blocksByHash map[chainhash.Hash]storedBlock
	heightIndex  map[uint32]chainhash.Hash // best-chain height -> hash, maintained only for the current best chain.
	tips         map[chainhash.Hash]struct{}

	bestTip    chainhash.Hash
	bestHeight uint32

	utxo    *utxo.Set
	mempool *mempool.Mempool

	miner     *miner.Miner
	evHandler EvHandler
}

// maxMempoolBytes bounds total pooled transaction size. It is not part of
// the consensus parameter profile (mempool policy, unlike validation rules,
// may vary freely between nodes), so it is fixed here rather than in
// consensus.Params.
const maxMempoolBytes = 32_000_000

// New constructs a Coordinator seeded with the genesis block for params's
// profile, inserted without proof-of-work verification per the external
// interface contract.
func New(params consensus.Params, evHandler EvHandler) (*Coordinator, error) {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	c := &Coordinator{
		params:       params,
		blocksByHash: make(map[chainhash.Hash]storedBlock),
		heightIndex:  make(map[uint32]chainhash.Hash),
		tips:         make(map[chainhash.Hash]struct{}),
		utxo:         utxo.New(),
		mempool:      mempool.New(maxMempoolBytes),
		miner:        miner.New(false, evHandler),
		evHandler:    evHandler,
	}

	genesis := block.Block{
		Header: block.Header{
			Version:       transaction.Version,
			PrevBlockHash: chainhash.ZeroHash,
			MerkleRoot:    chainhash.ZeroHash,
			Timestamp:     consensus.GenesisTimestamp,
			Bits:          params.MaxTargetBits,
			Nonce:         0,
		},
	}

	hash := genesis.Hash()
	c.blocksByHash[hash] = storedBlock{Block: genesis, Height: 0}
	c.heightIndex[0] = hash
	c.tips[hash] = struct{}{}
	c.bestTip = hash
	c.bestHeight = 0

	return c, nil
}

// BestTip returns the hash of the current best chain's tip block.
func (c *Coordinator) BestTip() chainhash.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bestTip
}

// Height returns the height of the current best chain's tip.
func (c *Coordinator) Height() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bestHeight
}

// BlockByHash looks up a block by hash, on any known fork.
func (c *Coordinator) BlockByHash(hash chainhash.Hash) (block.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sb, ok := c.blocksByHash[hash]
	return sb.Block, ok
}

// BlockByHeight looks up a block at height on the current best chain only.
func (c *Coordinator) BlockByHeight(height uint32) (block.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hash, ok := c.heightIndex[height]
	if !ok {
		return block.Block{}, false
	}
	sb := c.blocksByHash[hash]
	return sb.Block, true
}

// UTXOSnapshot returns a defensive copy of the live UTXO set (the state at
// the current best tip). External consumers only ever see read-only views.
func (c *Coordinator) UTXOSnapshot() *utxo.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.utxo.Clone()
}

// BalanceOf sums the value of every unspent output locked to hash160, at
// the current best tip.
func (c *Coordinator) BalanceOf(hash160 keys.PubKeyHash) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.utxo.BalanceOf(hash160)
}

// AddTransaction validates tx against the current best-tip UTXO view and
// admits it to the mempool.
func (c *Coordinator) AddTransaction(tx transaction.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mempool.Add(tx, c.utxo)
}

// MineNextBlock assembles a template from the current mempool atop the best
// tip, mines it, and submits it to itself via AddBlock.
func (c *Coordinator) MineNextBlock(ctx context.Context, recipient keys.PubKeyHash) (block.Block, error) {
	c.mu.Lock()
	height := c.bestHeight + 1
	parentHash := c.bestTip
	parentHeader := c.blocksByHash[c.bestTip].Block.Header
	txs := c.mempool.TakeTop(block.MaxBlockSize / 2)
	bits := c.expectedDifficultyFor(height, parentHash, parentHeader)
	c.mu.Unlock()

	var totalFees int64
	for _, tx := range txs {
		in, out := c.inputOutputTotals(tx)
		totalFees += in - out
	}

	coinbase := transaction.CreateCoinbase(height, int64(consensus.BlockReward(height))+totalFees, recipient, 0)
	allTxs := append([]transaction.Transaction{coinbase}, txs...)

	root, err := block.MerkleRoot(allTxs)
	if err != nil {
		return block.Block{}, err
	}

	tmpl := miner.Template{
		Header: block.Header{
			Version:       transaction.Version,
			PrevBlockHash: parentHash,
			MerkleRoot:    root,
			Timestamp:     nowUnix(),
			Bits:          bits,
			Nonce:         0,
		},
		Transactions: allTxs,
		Height:       height,
	}

	mined, err := c.miner.MineBlock(ctx, tmpl)
	if err != nil {
		return block.Block{}, err
	}

	if err := c.AddBlock(mined); err != nil {
		return block.Block{}, err
	}

	return mined, nil
}

// inputOutputTotals sums a transaction's input values (looked up against
// the live UTXO set) and output values, for fee accounting during template
// assembly.
func (c *Coordinator) inputOutputTotals(tx transaction.Transaction) (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var in int64
	for _, input := range tx.Inputs {
		op := utxo.Outpoint{TxID: input.PrevTxID, Index: input.PrevOutputIndex}
		if entry, ok := c.utxo.Get(op); ok {
			in += entry.Value
		}
	}
	var out int64
	for _, output := range tx.Outputs {
		out += output.Value
	}
	return in, out
}

// errInvariant marks a failure that should be impossible given the
// coordinator's own bookkeeping. It signals a fatal internal
// inconsistency, not a rejected block or transaction.
func errInvariant(format string, args ...any) error {
	return fmt.Errorf("coordinator: internal invariant violated: "+format, args...)
}
