package miner_test

import (
	"context"
	"testing"
	"time"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/block"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/keys"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/miner"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/pow"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
)

const (
	success = "✓"
	failed  = "✗"
)

func sampleTemplate(bits uint32) miner.Template {
	var recipient keys.PubKeyHash
	coinbase := transaction.CreateCoinbase(1, 5_000_000_000, recipient, 0)

	root, err := block.MerkleRoot([]transaction.Transaction{coinbase})
	if err != nil {
		panic(err)
	}

	return miner.Template{
		Header: block.Header{
			Version:       1,
			PrevBlockHash: chainhash.ZeroHash,
			MerkleRoot:    root,
			Timestamp:     1700000000,
			Bits:          bits,
		},
		Transactions: []transaction.Transaction{coinbase},
		Height:       1,
	}
}

func TestMineBlockFindsASolvingNonce(t *testing.T) {
	t.Log("Given the easiest possible difficulty target, MineBlock must return a block whose hash meets it.")
	{
		t.Logf("\tTest 0:\tWhen mining against bits=0x207fffff.")
		{
			m := miner.New(false, nil)
			tmpl := sampleTemplate(0x207fffff)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			got, err := m.MineBlock(ctx, tmpl)
			if err != nil {
				t.Fatalf("\t%s\tShould find a solving nonce before the deadline: %v", failed, err)
			}
			if !pow.MeetsTarget(got.Hash(), got.Header.Bits) {
				t.Fatalf("\t%s\tShould return a block whose hash satisfies the target.", failed)
			}
			t.Logf("\t%s\tShould return a block whose hash satisfies the target.", success)
		}
	}
}

func TestInstantMineBypassesSearch(t *testing.T) {
	t.Log("Given a Miner constructed in instant-mine mode, MineBlock must return immediately without searching.")
	{
		t.Logf("\tTest 0:\tWhen mining against an unreachable, nearly-impossible target.")
		{
			m := miner.New(true, nil)
			tmpl := sampleTemplate(0x03000001)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			got, err := m.MineBlock(ctx, tmpl)
			if err != nil {
				t.Fatalf("\t%s\tShould return immediately without error: %v", failed, err)
			}
			if got.Header.Nonce != 0 {
				t.Fatalf("\t%s\tShould leave the nonce at zero rather than searching, got %d.", failed, got.Header.Nonce)
			}
			t.Logf("\t%s\tShould return a block with nonce zero without searching.", success)
		}
	}
}

func TestMineBlockRespectsCancellation(t *testing.T) {
	t.Log("Given an already-cancelled context, MineBlock must return promptly with the context's error.")
	{
		t.Logf("\tTest 0:\tWhen mining against an unreachable target with a cancelled context.")
		{
			m := miner.New(false, nil)
			tmpl := sampleTemplate(0x03000001)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := m.MineBlock(ctx, tmpl)
			if err == nil {
				t.Fatalf("\t%s\tShould return an error once the context is cancelled.", failed)
			}
			t.Logf("\t%s\tShould return the context's cancellation error.", success)
		}
	}
}
