// Package snapshot exports and re-imports a coordinator's full state as
// JSON: every block on every fork, the best tip's unspent outputs, the
// pooled transactions, and the chain tips. It is the opt-in on-disk
// persistence this node otherwise has none of.
package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/block"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/consensus"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/coordinator"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/utxo"
)

// document is the on-the-wire JSON shape. Blocks and transactions are
// stored as their bit-exact wire serialization, hex-encoded. These are the
// same bytes consensus hashes and validates, not a field-by-field
// re-derivation that could silently drift from the wire format.
type document struct {
	Blocks  []string    `json:"blocks"`
	UTXO    []utxoEntry `json:"utxo"`
	Mempool []string    `json:"mempool"`
	Tips    []string    `json:"tips"`
	BestTip string      `json:"best_tip"`
}

type utxoEntry struct {
	TxID         string `json:"txid"`
	Index        uint32 `json:"index"`
	Value        int64  `json:"value"`
	PubKeyScript string `json:"pubkey_script"`
	BlockHeight  uint32 `json:"block_height"`
	IsCoinbase   bool   `json:"is_coinbase"`
}

// Write serializes c's full state as JSON to w.
func Write(w io.Writer, c *coordinator.Coordinator) error {
	doc := document{
		BestTip: c.BestTip().String(),
	}

	for _, b := range c.AllBlocks() {
		doc.Blocks = append(doc.Blocks, hex.EncodeToString(b.Serialize()))
	}

	for _, oe := range c.UTXOEntries() {
		doc.UTXO = append(doc.UTXO, utxoEntry{
			TxID:         oe.Outpoint.TxID.String(),
			Index:        oe.Outpoint.Index,
			Value:        oe.Entry.Value,
			PubKeyScript: hex.EncodeToString(oe.Entry.PubKeyScript),
			BlockHeight:  oe.Entry.BlockHeight,
			IsCoinbase:   oe.Entry.IsCoinbase,
		})
	}

	for _, tx := range c.MempoolTransactions() {
		doc.Mempool = append(doc.Mempool, hex.EncodeToString(tx.Serialize()))
	}

	for _, tip := range c.Tips() {
		doc.Tips = append(doc.Tips, tip.String())
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Read parses JSON written by Write and rebuilds a Coordinator from it
// against params, via coordinator.Restore. Restoring re-derives every
// block's height from its parent chain and re-admits mempool transactions
// through the mempool's own validation, so heights and the pool come from
// the wire bytes, not the document's bookkeeping. The document's UTXO
// entries are loaded as written.
func Read(r io.Reader, params consensus.Params, evHandler coordinator.EvHandler) (*coordinator.Coordinator, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("snapshot: decoding document: %w", err)
	}

	blocks := make([]block.Block, 0, len(doc.Blocks))
	for _, enc := range doc.Blocks {
		raw, err := hex.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decoding block hex: %w", err)
		}
		b, err := block.DeserializeBlock(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot: deserializing block: %w", err)
		}
		blocks = append(blocks, b)
	}

	utxoEntries := make([]utxo.OutpointEntry, 0, len(doc.UTXO))
	for _, ue := range doc.UTXO {
		txid, err := chainhash.NewHashFromDisplayHex(ue.TxID)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decoding utxo txid: %w", err)
		}
		script, err := hex.DecodeString(ue.PubKeyScript)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decoding utxo pubkey_script: %w", err)
		}
		utxoEntries = append(utxoEntries, utxo.OutpointEntry{
			Outpoint: utxo.Outpoint{TxID: txid, Index: ue.Index},
			Entry: utxo.Entry{
				Value:        ue.Value,
				PubKeyScript: script,
				BlockHeight:  ue.BlockHeight,
				IsCoinbase:   ue.IsCoinbase,
			},
		})
	}

	mempoolTxs := make([]transaction.Transaction, 0, len(doc.Mempool))
	for _, enc := range doc.Mempool {
		raw, err := hex.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decoding mempool tx hex: %w", err)
		}
		tx, err := transaction.Deserialize(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot: deserializing mempool tx: %w", err)
		}
		mempoolTxs = append(mempoolTxs, tx)
	}

	tips := make([]chainhash.Hash, 0, len(doc.Tips))
	for _, s := range doc.Tips {
		hash, err := chainhash.NewHashFromDisplayHex(s)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decoding tip hash: %w", err)
		}
		tips = append(tips, hash)
	}

	bestTip, err := chainhash.NewHashFromDisplayHex(doc.BestTip)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decoding best_tip: %w", err)
	}

	return coordinator.Restore(params, evHandler, blocks, utxoEntries, mempoolTxs, tips, bestTip)
}
