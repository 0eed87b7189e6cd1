// Package transaction implements the transaction model: inputs, outputs,
// coinbase construction, bit-exact serialization, and txid computation.
package transaction

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/encoding"
)

// CoinbaseSequence is the prev-output-index every coinbase input carries.
const CoinbaseSequence = math.MaxUint32

// MaxMoney is the hard cap on satoshis that can ever exist: 21,000,000 BTC.
const MaxMoney = 21_000_000 * 100_000_000

// Version is the transaction format version written on the wire.
const Version = 1

// =============================================================================

// Input references a previous transaction's output being spent.
type Input struct {
	PrevTxID        chainhash.Hash
	PrevOutputIndex uint32
	SignatureScript []byte // P2PKH template: signature(64) || pubkey(33).
	Sequence        uint32
}

// IsCoinbase reports whether the input is the distinguished coinbase input
// (zero prev-txid, max prev-output-index).
func (in Input) IsCoinbase() bool {
	return in.PrevTxID.IsZero() && in.PrevOutputIndex == CoinbaseSequence
}

// Output is a claimable value locked to a P2PKH-template script.
type Output struct {
	Value        int64 // satoshis, >= 0
	PubKeyScript []byte // hex-decoded hash160 of the recipient, per the P2PKH template.
}

// IsDust reports whether the output's value is below threshold. Dust
// outputs are never rejected; this is informational only.
func (o Output) IsDust(threshold int64) bool {
	return o.Value < threshold
}

// PubKeyScriptHex returns the output's script as lowercase hex, the form
// stored in the UTXO set and compared against a spending input's pubkey.
func (o Output) PubKeyScriptHex() string {
	return hex.EncodeToString(o.PubKeyScript)
}

// Transaction is the core unit of value transfer: a list of inputs spending
// prior outputs and a list of outputs creating new ones.
type Transaction struct {
	Version  int32
	Inputs   []Input
	Outputs  []Output
	LockTime uint32
}

// IsCoinbase reports whether tx is the distinguished block-reward
// transaction: exactly one input, and that input is the coinbase input.
func (tx Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].IsCoinbase()
}

// TxID returns the double-SHA-256 of the transaction's serialized bytes.
func (tx Transaction) TxID() chainhash.Hash {
	return chainhash.DoubleSHA256(tx.Serialize())
}

// Serialize writes the bit-exact wire encoding: version(4 LE),
// varint(input count), each input, varint(output count), each output,
// locktime(4 LE).
func (tx Transaction) Serialize() []byte {
	var buf bytes.Buffer

	encoding.PutUint32LE(&buf, uint32(tx.Version))

	encoding.PutVarInt(&buf, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf.Write(in.PrevTxID[:])
		encoding.PutUint32LE(&buf, in.PrevOutputIndex)
		encoding.PutVarBytes(&buf, in.SignatureScript)
		encoding.PutUint32LE(&buf, in.Sequence)
	}

	encoding.PutVarInt(&buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		encoding.PutUint64LE(&buf, uint64(out.Value))
		encoding.PutVarBytes(&buf, out.PubKeyScript)
	}

	encoding.PutUint32LE(&buf, tx.LockTime)

	return buf.Bytes()
}

// Deserialize parses the wire encoding written by Serialize.
func Deserialize(data []byte) (Transaction, error) {
	r := bytes.NewReader(data)

	tx, err := DeserializeReader(r)
	if err != nil {
		return Transaction{}, err
	}

	if r.Len() != 0 {
		return Transaction{}, fmt.Errorf("%w: trailing bytes after transaction", encoding.ErrInvalidEncoding)
	}

	return tx, nil
}

// DeserializeReader parses one transaction's wire encoding off r, leaving
// the reader positioned immediately after it. Used when several
// transactions are packed back-to-back in a single stream, e.g. a block's
// body, where Deserialize's trailing-bytes check would reject everything
// after the first.
func DeserializeReader(r io.Reader) (Transaction, error) {
	version, err := encoding.ReadUint32LE(r)
	if err != nil {
		return Transaction{}, err
	}

	inCount, err := encoding.ReadVarInt(r)
	if err != nil {
		return Transaction{}, err
	}

	tx := Transaction{Version: int32(version)}

	for i := uint64(0); i < inCount; i++ {
		in, err := readInput(r)
		if err != nil {
			return Transaction{}, err
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	outCount, err := encoding.ReadVarInt(r)
	if err != nil {
		return Transaction{}, err
	}

	for i := uint64(0); i < outCount; i++ {
		out, err := readOutput(r)
		if err != nil {
			return Transaction{}, err
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	lockTime, err := encoding.ReadUint32LE(r)
	if err != nil {
		return Transaction{}, err
	}
	tx.LockTime = lockTime

	return tx, nil
}

func readInput(r io.Reader) (Input, error) {
	var in Input

	var prevTxID [chainhash.Size]byte
	if _, err := io.ReadFull(r, prevTxID[:]); err != nil {
		return in, fmt.Errorf("%w: %v", encoding.ErrInvalidEncoding, err)
	}
	in.PrevTxID = chainhash.Hash(prevTxID)

	idx, err := encoding.ReadUint32LE(r)
	if err != nil {
		return in, err
	}
	in.PrevOutputIndex = idx

	script, err := encoding.ReadVarBytes(r)
	if err != nil {
		return in, err
	}
	in.SignatureScript = script

	seq, err := encoding.ReadUint32LE(r)
	if err != nil {
		return in, err
	}
	in.Sequence = seq

	return in, nil
}

func readOutput(r io.Reader) (Output, error) {
	var out Output

	value, err := encoding.ReadUint64LE(r)
	if err != nil {
		return out, err
	}
	out.Value = int64(value)

	script, err := encoding.ReadVarBytes(r)
	if err != nil {
		return out, err
	}
	out.PubKeyScript = script

	return out, nil
}

// =============================================================================
// merkle.Hashable[Transaction] implementation.

// Hash returns the raw bytes of the transaction's txid, satisfying
// merkle.Hashable.
func (tx Transaction) Hash() ([]byte, error) {
	id := tx.TxID()
	return id[:], nil
}

// Equals reports whether two transactions have the same txid.
func (tx Transaction) Equals(other Transaction) bool {
	return tx.TxID() == other.TxID()
}

// =============================================================================

// ErrNotCoinbase is returned when a non-coinbase transaction is passed to a
// coinbase-only operation.
var ErrNotCoinbase = errors.New("transaction: not a coinbase transaction")
