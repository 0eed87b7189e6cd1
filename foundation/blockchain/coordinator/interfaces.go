package coordinator

import (
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/block"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/utxo"
)

// ChainView is the read-only surface a validator or block-template
// assembler needs: blocks by hash/height and the current UTXO snapshot.
// It exists so neither depends on the coordinator's concrete type,
// breaking what would otherwise be a circular import between the
// coordinator and the components it drives.
type ChainView interface {
	BlockByHash(hash chainhash.Hash) (block.Block, bool)
	BlockByHeight(height uint32) (block.Block, bool)
	BestTip() chainhash.Hash
	Height() uint32
	UTXOSnapshot() *utxo.Set
}

// BlockSink is the single entry point a miner uses to submit a solved
// block back to the coordinator.
type BlockSink interface {
	AddBlock(b block.Block) error
}
