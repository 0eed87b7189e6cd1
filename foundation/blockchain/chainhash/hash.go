// Package chainhash provides the 32-byte hash type shared by every data
// structure in the blockchain, along with the double-SHA-256 and hash160
// constructions Bitcoin builds on top of SHA-256 and RIPEMD-160.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD-160 is required by the protocol, not a choice.
)

// Size is the number of bytes in a Hash.
const Size = 32

// ZeroHash is the all-zero hash used as the coinbase's previous-txid and as
// a genesis block's previous-block-hash.
var ZeroHash Hash

// Hash is a 32-byte double-SHA-256 digest, stored in the internal byte order
// produced by the hash function. Display (String) reverses the bytes to
// match Bitcoin's conventional "RPC byte order".
type Hash [Size]byte

// String returns the reversed-byte-order hex encoding of the hash, matching
// the convention used to display block and transaction hashes.
func (h Hash) String() string {
	var reversed Hash
	for i := 0; i < Size; i++ {
		reversed[i] = h[Size-1-i]
	}
	return hex.EncodeToString(reversed[:])
}

// IsZero reports whether the hash is the all-zero value.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// NewHashFromBytes copies exactly Size bytes (internal byte order, not the
// reversed display order) into a Hash.
func NewHashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Size {
		return h, errors.New("chainhash: wrong byte length for hash")
	}
	copy(h[:], b)
	return h, nil
}

// NewHashFromDisplayHex parses a reversed-byte-order ("RPC byte order") hex
// string, the form produced by String, back into internal byte order.
func NewHashFromDisplayHex(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(raw) != Size {
		return h, errors.New("chainhash: wrong hex length for hash")
	}
	for i := 0; i < Size; i++ {
		h[i] = raw[Size-1-i]
	}
	return h, nil
}

// =============================================================================

// SHA256 returns the single SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// DoubleSHA256 returns SHA-256(SHA-256(data)), Bitcoin's hash256 construction,
// used for block hashing, txid computation, and merkle tree nodes.
func DoubleSHA256(data []byte) Hash {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return Hash(second)
}

// Hash160 returns RIPEMD160(SHA256(data)), the 20-byte public-key-hash
// construction behind P2PKH scripts and addresses.
func Hash160(data []byte) [20]byte {
	sum := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sum[:]) //nolint:errcheck // ripemd160.Write never errors.

	var out [20]byte
	copy(out[:], r.Sum(nil))
	return out
}
