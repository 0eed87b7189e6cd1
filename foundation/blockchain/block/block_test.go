package block_test

import (
	"testing"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/block"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/keys"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
)

const (
	success = "✓"
	failed  = "✗"
)

func sampleBlock() block.Block {
	var recipient keys.PubKeyHash
	coinbase := transaction.CreateCoinbase(1, 5_000_000_000, recipient, 0)
	spend := transaction.Transaction{
		Version: transaction.Version,
		Inputs:  []transaction.Input{{PrevTxID: chainhash.DoubleSHA256([]byte("prev")), PrevOutputIndex: 0}},
		Outputs: []transaction.Output{{Value: 100, PubKeyScript: []byte("dest")}},
	}

	root, err := block.MerkleRoot([]transaction.Transaction{coinbase, spend})
	if err != nil {
		panic(err)
	}

	return block.Block{
		Header: block.Header{
			Version:       1,
			PrevBlockHash: chainhash.ZeroHash,
			MerkleRoot:    root,
			Timestamp:     1700000000,
			Bits:          0x207fffff,
			Nonce:         0,
		},
		Transactions: []transaction.Transaction{coinbase, spend},
	}
}

func TestHeaderSerializeDeserializeRoundTrip(t *testing.T) {
	t.Log("Given a block header, its 80-byte wire encoding must round-trip exactly.")
	{
		t.Logf("\tTest 0:\tWhen serializing and deserializing a header.")
		{
			b := sampleBlock()

			raw := b.Header.Serialize()
			if len(raw) != block.HeaderSize {
				t.Fatalf("\t%s\tShould serialize to exactly %d bytes, got %d.", failed, block.HeaderSize, len(raw))
			}

			got, err := block.DeserializeHeader(raw)
			if err != nil {
				t.Fatalf("\t%s\tShould deserialize without error: %v", failed, err)
			}
			if got.Hash() != b.Header.Hash() {
				t.Fatalf("\t%s\tShould recover a header with the same hash.", failed)
			}
			t.Logf("\t%s\tShould round-trip to the same header hash.", success)
		}
	}
}

func TestBlockSerializeDeserializeRoundTrip(t *testing.T) {
	t.Log("Given a block with a coinbase and an ordinary transaction, its wire encoding must round-trip exactly.")
	{
		t.Logf("\tTest 0:\tWhen serializing and deserializing the full block.")
		{
			b := sampleBlock()

			got, err := block.DeserializeBlock(b.Serialize())
			if err != nil {
				t.Fatalf("\t%s\tShould deserialize without error: %v", failed, err)
			}
			if got.Hash() != b.Hash() {
				t.Fatalf("\t%s\tShould recover a block with the same hash.", failed)
			}
			if len(got.Transactions) != len(b.Transactions) {
				t.Fatalf("\t%s\tShould recover every transaction, got %d want %d.", failed, len(got.Transactions), len(b.Transactions))
			}
			for i := range b.Transactions {
				if got.Transactions[i].TxID() != b.Transactions[i].TxID() {
					t.Fatalf("\t%s\tShould recover transaction %d with the same txid.", failed, i)
				}
			}
			t.Logf("\t%s\tShould round-trip the header, transaction count, and every txid.", success)
		}
	}
}

func TestMerkleRootOfEmptyTransactionListIsZero(t *testing.T) {
	t.Log("Given a block with no transactions, its merkle root must be the all-zero hash.")
	{
		t.Logf("\tTest 0:\tWhen computing the merkle root of an empty transaction list.")
		{
			root, err := block.MerkleRoot(nil)
			if err != nil {
				t.Fatalf("\t%s\tShould not error on an empty transaction list: %v", failed, err)
			}
			if root != chainhash.ZeroHash {
				t.Fatalf("\t%s\tShould root to the zero hash, got %s.", failed, root)
			}
			t.Logf("\t%s\tShould root to the zero hash.", success)
		}
	}
}

func TestCoinbaseTransactionIsFirst(t *testing.T) {
	t.Log("Given a constructed block, CoinbaseTransaction must return its first transaction.")
	{
		t.Logf("\tTest 0:\tWhen fetching the coinbase from a block with multiple transactions.")
		{
			b := sampleBlock()
			if b.CoinbaseTransaction().TxID() != b.Transactions[0].TxID() {
				t.Fatalf("\t%s\tShould return the first transaction.", failed)
			}
			if !b.CoinbaseTransaction().IsCoinbase() {
				t.Fatalf("\t%s\tShould return a transaction that reports itself as a coinbase.", failed)
			}
			t.Logf("\t%s\tShould return the block's first, coinbase transaction.", success)
		}
	}
}
