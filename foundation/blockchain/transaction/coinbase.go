package transaction

import (
	"bytes"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/encoding"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/keys"
)

// CreateCoinbase builds the block-reward transaction for the block being
// mined at height, paying reward satoshis to recipient.
//
// The coinbase's signature_script encodes the block height BIP34-style
// (length-prefixed, minimal little-endian encoding) followed by an 8-byte
// little-endian extra_nonce, so that re-mining the same height with a
// different extra_nonce produces a distinct txid (and therefore a distinct
// merkle root) once the nonce space for a given coinbase is exhausted.
func CreateCoinbase(height uint32, reward int64, recipient keys.PubKeyHash, extraNonce uint64) Transaction {
	return Transaction{
		Version: Version,
		Inputs: []Input{
			{
				PrevTxID:        chainhash.ZeroHash,
				PrevOutputIndex: CoinbaseSequence,
				SignatureScript: encodeCoinbaseScript(height, extraNonce),
				Sequence:        CoinbaseSequence,
			},
		},
		Outputs: []Output{
			{
				Value:        reward,
				PubKeyScript: append([]byte(nil), recipient[:]...),
			},
		},
	}
}

// WithExtraNonce returns a copy of a coinbase transaction with its
// extra_nonce field replaced, for use when the miner exhausts the nonce
// space and must roll the coinbase forward to search a new merkle root.
func WithExtraNonce(coinbase Transaction, height uint32, extraNonce uint64) Transaction {
	next := coinbase
	next.Inputs = []Input{coinbase.Inputs[0]}
	next.Inputs[0].SignatureScript = encodeCoinbaseScript(height, extraNonce)
	next.Outputs = append([]Output(nil), coinbase.Outputs...)
	return next
}

func encodeCoinbaseScript(height uint32, extraNonce uint64) []byte {
	heightBytes := minimalLittleEndian(uint64(height))

	var buf bytes.Buffer
	buf.WriteByte(byte(len(heightBytes)))
	buf.Write(heightBytes)

	var nonceBuf bytes.Buffer
	encoding.PutUint64LE(&nonceBuf, extraNonce)
	buf.Write(nonceBuf.Bytes())

	return buf.Bytes()
}

// minimalLittleEndian returns the smallest little-endian byte encoding of
// v with no superfluous trailing zero byte, matching BIP34 height encoding.
func minimalLittleEndian(v uint64) []byte {
	if v == 0 {
		return nil
	}

	var b []byte
	for v > 0 {
		b = append(b, byte(v))
		v >>= 8
	}
	return b
}
