// Package block implements the 80-byte block header, the block, and the
// merkle-root computation that commits a header to its transaction list.
package block

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/encoding"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/merkle"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
)

// HeaderSize is the exact wire size of a BlockHeader: 4+32+32+4+4+4 bytes.
const HeaderSize = 80

// MaxBlockSize is the maximum serialized size of a block, in bytes. The
// consensus package is the source of truth for the error raised when a
// block exceeds this, since block-rejection causes are aggregated there.
const MaxBlockSize = 1_000_000

// Header is the 80-byte, bit-exact-serialized commitment every block hash
// is computed over. Height is deliberately absent: it is derived from a
// block's position in the chain, never stored on the wire.
type Header struct {
	Version       int32
	PrevBlockHash chainhash.Hash
	MerkleRoot    chainhash.Hash
	Timestamp     uint32
	Bits          uint32 // compact target ("nBits").
	Nonce         uint32
}

// Serialize writes the exact 80-byte wire encoding.
func (h Header) Serialize() []byte {
	var buf bytes.Buffer
	encoding.PutUint32LE(&buf, uint32(h.Version))
	buf.Write(h.PrevBlockHash[:])
	buf.Write(h.MerkleRoot[:])
	encoding.PutUint32LE(&buf, h.Timestamp)
	encoding.PutUint32LE(&buf, h.Bits)
	encoding.PutUint32LE(&buf, h.Nonce)
	return buf.Bytes()
}

// DeserializeHeader parses the 80-byte wire encoding written by Serialize.
func DeserializeHeader(data []byte) (Header, error) {
	if len(data) != HeaderSize {
		return Header{}, fmt.Errorf("%w: header must be %d bytes, got %d", encoding.ErrInvalidEncoding, HeaderSize, len(data))
	}

	r := bytes.NewReader(data)
	var h Header

	version, err := encoding.ReadUint32LE(r)
	if err != nil {
		return Header{}, err
	}
	h.Version = int32(version)

	var prev, root [chainhash.Size]byte
	if _, err := io.ReadFull(r, prev[:]); err != nil {
		return Header{}, err
	}
	h.PrevBlockHash = chainhash.Hash(prev)

	if _, err := io.ReadFull(r, root[:]); err != nil {
		return Header{}, err
	}
	h.MerkleRoot = chainhash.Hash(root)

	if h.Timestamp, err = encoding.ReadUint32LE(r); err != nil {
		return Header{}, err
	}
	if h.Bits, err = encoding.ReadUint32LE(r); err != nil {
		return Header{}, err
	}
	if h.Nonce, err = encoding.ReadUint32LE(r); err != nil {
		return Header{}, err
	}

	return h, nil
}

// Hash returns double-SHA-256(serialize(header)), the block's identity.
func (h Header) Hash() chainhash.Hash {
	return chainhash.DoubleSHA256(h.Serialize())
}

// Block is a header plus its ordered transaction list. transactions[0] is
// always expected to be the coinbase.
type Block struct {
	Header       Header
	Transactions []transaction.Transaction
}

// Hash returns the block's identity, i.e. its header's hash.
func (b Block) Hash() chainhash.Hash {
	return b.Header.Hash()
}

// Size returns the serialized byte size of the block.
func (b Block) Size() int {
	return len(b.Serialize())
}

// Serialize writes the header followed by varint(tx count) and each
// transaction's own serialization.
func (b Block) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(b.Header.Serialize())
	encoding.PutVarInt(&buf, uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		buf.Write(tx.Serialize())
	}
	return buf.Bytes()
}

// DeserializeBlock parses the wire encoding written by Block.Serialize.
func DeserializeBlock(data []byte) (Block, error) {
	if len(data) < HeaderSize {
		return Block{}, fmt.Errorf("%w: block shorter than header", encoding.ErrInvalidEncoding)
	}

	header, err := DeserializeHeader(data[:HeaderSize])
	if err != nil {
		return Block{}, err
	}

	r := bytes.NewReader(data[HeaderSize:])

	txCount, err := encoding.ReadVarInt(r)
	if err != nil {
		return Block{}, err
	}

	b := Block{Header: header, Transactions: make([]transaction.Transaction, 0, txCount)}
	for i := uint64(0); i < txCount; i++ {
		tx, err := transaction.DeserializeReader(r)
		if err != nil {
			return Block{}, err
		}
		b.Transactions = append(b.Transactions, tx)
	}

	if r.Len() != 0 {
		return Block{}, fmt.Errorf("%w: trailing bytes after block", encoding.ErrInvalidEncoding)
	}

	return b, nil
}

// MerkleRoot computes the merkle root of the block's transactions' txids,
// applying Bitcoin's duplicate-last-node rule at every odd-count level. An
// empty transaction list roots to the all-zero hash.
func MerkleRoot(txs []transaction.Transaction) (chainhash.Hash, error) {
	if len(txs) == 0 {
		return chainhash.ZeroHash, nil
	}

	tree, err := merkle.NewTree(txs)
	if err != nil {
		return chainhash.Hash{}, err
	}

	return chainhash.NewHashFromBytes(tree.MerkleRoot)
}

// CoinbaseTransaction returns the block's first transaction, which by
// construction must be its coinbase.
func (b Block) CoinbaseTransaction() transaction.Transaction {
	return b.Transactions[0]
}
