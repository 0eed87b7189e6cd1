// Package keys provides secp256k1 key generation, ECDSA signing and
// verification, and the hash160/address derivations built on top of a
// public key.
//
// Signing reuses go-ethereum's secp256k1 plumbing (the teacher's existing
// dependency), but the message digest fed into it is Bitcoin's
// double-SHA-256 rather than Ethereum's Keccak256-with-stamp scheme.
package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/encoding"
)

// ErrInvalidSignature is returned when a signature fails to verify.
var ErrInvalidSignature = errors.New("invalid signature")

// AddressVersion is the Base58Check version byte for mainnet P2PKH
// addresses.
const AddressVersion = 0x00

// PubKeyHash is the 20-byte hash160 of a public key. It is the canonical
// key used for UTXO and wallet lookups. Address is only a display form,
// never used directly as a lookup key.
type PubKeyHash [20]byte

// Hex returns the lowercase hex encoding of the hash, the form stored in a
// P2PKH pubkey_script.
func (h PubKeyHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// PubKeyHashFromHex parses a hex-encoded hash160 value.
func PubKeyHashFromHex(s string) (PubKeyHash, error) {
	var h PubKeyHash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("%w: %v", encoding.ErrInvalidEncoding, err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("%w: pubkey hash must be 20 bytes", encoding.ErrInvalidEncoding)
	}
	copy(h[:], raw)
	return h, nil
}

// Address is the Base58Check display form of a PubKeyHash. Conversion to
// and from PubKeyHash only happens at the edges (user input/output); all
// internal lookups stay in PubKeyHash form.
type Address string

// ToAddress renders the hash160 as a Base58Check mainnet P2PKH address.
func (h PubKeyHash) ToAddress() Address {
	return Address(encoding.Base58CheckEncode(AddressVersion, h[:]))
}

// ToPubKeyHash parses a Base58Check address back into its hash160.
func (a Address) ToPubKeyHash() (PubKeyHash, error) {
	var h PubKeyHash
	version, payload, err := encoding.Base58CheckDecode(string(a))
	if err != nil {
		return h, err
	}
	if version != AddressVersion {
		return h, fmt.Errorf("%w: unexpected address version %#x", encoding.ErrInvalidEncoding, version)
	}
	if len(payload) != len(h) {
		return h, fmt.Errorf("%w: address payload must be 20 bytes", encoding.ErrInvalidEncoding)
	}
	copy(h[:], payload)
	return h, nil
}

// =============================================================================

// PrivateKey wraps a secp256k1 scalar.
type PrivateKey struct {
	key *ecdsa.PrivateKey
}

// PublicKey is the compressed (33-byte) SEC encoding of a secp256k1 point.
// Compressed encoding is fixed for the lifetime of this module: every
// hash160/address derivation in this system is taken from the compressed
// form, never the uncompressed one.
type PublicKey [33]byte

// Generate produces a new uniformly random private key.
func Generate() (PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{key: key}, nil
}

// FromHex parses a hex-encoded 32-byte secp256k1 scalar.
func FromHex(s string) (PrivateKey, error) {
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("%w: %v", encoding.ErrInvalidEncoding, err)
	}
	return PrivateKey{key: key}, nil
}

// PublicKey returns the compressed public key that corresponds to priv.
func (priv PrivateKey) PublicKey() PublicKey {
	compressed := crypto.CompressPubkey(&priv.key.PublicKey)
	var pk PublicKey
	copy(pk[:], compressed)
	return pk
}

// Sign produces a 64-byte (R||S) ECDSA signature over the double-SHA-256 of
// message. The recovery id go-ethereum's crypto.Sign also returns is
// discarded: the verifier is always handed the signer's public key
// explicitly (via the signature_script), so recovery is never needed.
func (priv PrivateKey) Sign(message []byte) ([]byte, error) {
	digest := chainhash.DoubleSHA256(message)
	sig, err := crypto.Sign(digest[:], priv.key)
	if err != nil {
		return nil, err
	}
	return sig[:64], nil
}

// Verify checks a 64-byte (R||S) signature over the double-SHA-256 of
// message against pub.
func Verify(pub PublicKey, message, signature []byte) error {
	if len(signature) != 64 {
		return fmt.Errorf("%w: signature must be 64 bytes", ErrInvalidSignature)
	}

	digest := chainhash.DoubleSHA256(message)
	if !crypto.VerifySignature(pub[:], digest[:], signature) {
		return ErrInvalidSignature
	}
	return nil
}

// Hash160 returns the hash160 of the public key's compressed SEC encoding.
func (pub PublicKey) Hash160() PubKeyHash {
	return PubKeyHash(chainhash.Hash160(pub[:]))
}

// Hex returns the lowercase hex encoding of the compressed public key.
func (pub PublicKey) Hex() string {
	return hex.EncodeToString(pub[:])
}

// PublicKeyFromHex parses a hex-encoded compressed (33-byte) public key.
func PublicKeyFromHex(s string) (PublicKey, error) {
	var pub PublicKey
	raw, err := hex.DecodeString(s)
	if err != nil {
		return pub, fmt.Errorf("%w: %v", encoding.ErrInvalidEncoding, err)
	}
	if len(raw) != len(pub) {
		return pub, fmt.Errorf("%w: public key must be 33 bytes (compressed)", encoding.ErrInvalidEncoding)
	}
	copy(pub[:], raw)
	return pub, nil
}
