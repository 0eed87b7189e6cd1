package utxo_test

import (
	"encoding/hex"
	"testing"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/keys"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/utxo"
)

const (
	success = "✓"
	failed  = "✗"
)

func TestAddRejectsDuplicate(t *testing.T) {
	t.Log("Given an outpoint already present in the set, adding it again must fail.")
	{
		t.Logf("\tTest 0:\tWhen adding the same outpoint twice.")
		{
			set := utxo.New()
			op := utxo.Outpoint{TxID: chainhash.DoubleSHA256([]byte("a")), Index: 0}
			entry := utxo.Entry{Value: 100}

			if err := set.Add(op, entry); err != nil {
				t.Fatalf("\t%s\tShould add the outpoint the first time: %v", failed, err)
			}
			if err := set.Add(op, entry); err == nil {
				t.Fatalf("\t%s\tShould reject adding the same outpoint twice.", failed)
			}
			t.Logf("\t%s\tShould reject adding the same outpoint twice.", success)
		}
	}
}

func TestRemoveRejectsMissing(t *testing.T) {
	t.Log("Given an outpoint never added to the set, removing it must fail.")
	{
		t.Logf("\tTest 0:\tWhen removing an outpoint that was never added.")
		{
			set := utxo.New()
			op := utxo.Outpoint{TxID: chainhash.DoubleSHA256([]byte("ghost")), Index: 0}

			if _, err := set.Remove(op); err == nil {
				t.Fatalf("\t%s\tShould reject removing a missing outpoint.", failed)
			}
			t.Logf("\t%s\tShould reject removing a missing outpoint.", success)
		}
	}
}

func TestBalanceOfSumsMatchingScripts(t *testing.T) {
	t.Log("Given several outputs locked to the same and different recipients, BalanceOf must sum only the matching ones.")
	{
		t.Logf("\tTest 0:\tWhen querying the balance of one recipient among several outputs.")
		{
			set := utxo.New()
			priv, _ := keys.Generate()
			mine := priv.PublicKey().Hash160()
			other, _ := keys.Generate()
			theirs := other.PublicKey().Hash160()

			mustAdd := func(idx uint32, value int64, hash160 keys.PubKeyHash) {
				op := utxo.Outpoint{TxID: chainhash.DoubleSHA256([]byte{byte(idx)}), Index: idx}
				raw, err := hex.DecodeString(hash160.Hex())
				if err != nil {
					t.Fatalf("\t%s\tShould decode the fixture hash160: %v", failed, err)
				}
				if err := set.Add(op, utxo.Entry{Value: value, PubKeyScript: raw}); err != nil {
					t.Fatalf("\t%s\tShould add fixture outputs: %v", failed, err)
				}
			}

			mustAdd(0, 500, mine)
			mustAdd(1, 700, mine)
			mustAdd(2, 999, theirs)

			if got := set.BalanceOf(mine); got != 1200 {
				t.Fatalf("\t%s\tShould sum only outputs locked to the queried recipient, got %d.", failed, got)
			}
			t.Logf("\t%s\tShould sum only outputs locked to the queried recipient.", success)
		}
	}
}

func TestApplyThenRevertIsIdentity(t *testing.T) {
	t.Log("Given a set, applying a block and then reverting it must restore the original contents exactly.")
	{
		t.Logf("\tTest 0:\tWhen applying and reverting a block that spends a funded output.")
		{
			set := utxo.New()
			fundingOp := utxo.Outpoint{TxID: chainhash.DoubleSHA256([]byte("funding")), Index: 0}
			if err := set.Add(fundingOp, utxo.Entry{Value: 1000, PubKeyScript: []byte("recipient")}); err != nil {
				t.Fatalf("\t%s\tShould fund the set: %v", failed, err)
			}

			before := set.Len()

			coinbase := transaction.Transaction{
				Version: transaction.Version,
				Inputs:  []transaction.Input{{PrevTxID: chainhash.ZeroHash, PrevOutputIndex: transaction.CoinbaseSequence, Sequence: transaction.CoinbaseSequence}},
				Outputs: []transaction.Output{{Value: 5_000_000_000, PubKeyScript: []byte("miner")}},
			}
			spend := transaction.Transaction{
				Version: transaction.Version,
				Inputs:  []transaction.Input{{PrevTxID: fundingOp.TxID, PrevOutputIndex: fundingOp.Index}},
				Outputs: []transaction.Output{{Value: 900, PubKeyScript: []byte("new-recipient")}},
			}

			diff, err := set.ApplyBlock([]transaction.Transaction{coinbase, spend}, 1)
			if err != nil {
				t.Fatalf("\t%s\tShould apply the block: %v", failed, err)
			}
			t.Logf("\t%s\tShould apply the block.", success)

			if _, ok := set.Get(fundingOp); ok {
				t.Fatalf("\t%s\tShould have spent the funding output.", failed)
			}

			if err := set.RevertBlock(diff); err != nil {
				t.Fatalf("\t%s\tShould revert the block: %v", failed, err)
			}
			t.Logf("\t%s\tShould revert the block.", success)

			if set.Len() != before {
				t.Fatalf("\t%s\tShould restore the original entry count, got %d want %d.", failed, set.Len(), before)
			}
			if _, ok := set.Get(fundingOp); !ok {
				t.Fatalf("\t%s\tShould restore the spent funding output.", failed)
			}
			t.Logf("\t%s\tShould restore the set to its pre-apply contents.", success)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Log("Given a cloned set, mutating the clone must not affect the original.")
	{
		t.Logf("\tTest 0:\tWhen removing an entry from a clone.")
		{
			set := utxo.New()
			op := utxo.Outpoint{TxID: chainhash.DoubleSHA256([]byte("a")), Index: 0}
			if err := set.Add(op, utxo.Entry{Value: 1}); err != nil {
				t.Fatalf("\t%s\tShould fund the set: %v", failed, err)
			}

			clone := set.Clone()
			if _, err := clone.Remove(op); err != nil {
				t.Fatalf("\t%s\tShould remove from the clone: %v", failed, err)
			}

			if _, ok := set.Get(op); !ok {
				t.Fatalf("\t%s\tShould leave the original set untouched.", failed)
			}
			t.Logf("\t%s\tShould leave the original set untouched.", success)
		}
	}
}
