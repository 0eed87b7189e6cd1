// Package encoding provides the little-endian integer helpers,
// Bitcoin-style variable-length integers, and Base58Check codec the wire
// formats in this module build on.
package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
)

// ErrInvalidEncoding is returned for malformed varints, truncated reads, and
// Base58Check checksum mismatches.
var ErrInvalidEncoding = errors.New("invalid encoding")

// =============================================================================
// Fixed-width little-endian integers.

// PutUint32LE appends a little-endian uint32 to dst.
func PutUint32LE(dst *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	dst.Write(b[:])
}

// PutUint64LE appends a little-endian uint64 to dst.
func PutUint64LE(dst *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	dst.Write(b[:])
}

// ReadUint32LE reads a little-endian uint32, wrapping ErrInvalidEncoding on
// a short read.
func ReadUint32LE(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadUint64LE reads a little-endian uint64, wrapping ErrInvalidEncoding on
// a short read.
func ReadUint64LE(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// =============================================================================
// Variable-length integers (CompactSize, Bitcoin's varint encoding).

// PutVarInt appends the CompactSize encoding of v to dst.
func PutVarInt(dst *bytes.Buffer, v uint64) {
	switch {
	case v < 0xfd:
		dst.WriteByte(byte(v))
	case v <= 0xffff:
		dst.WriteByte(0xfd)
		PutUint16LE(dst, uint16(v))
	case v <= 0xffffffff:
		dst.WriteByte(0xfe)
		PutUint32LE(dst, uint32(v))
	default:
		dst.WriteByte(0xff)
		PutUint64LE(dst, v)
	}
}

// PutUint16LE appends a little-endian uint16 to dst.
func PutUint16LE(dst *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	dst.Write(b[:])
}

// ReadVarInt reads a CompactSize-encoded integer.
func ReadVarInt(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	switch prefix[0] {
	case 0xfd:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
		return uint64(binary.LittleEndian.Uint16(b[:])), nil
	case 0xfe:
		v, err := ReadUint32LE(r)
		return uint64(v), err
	case 0xff:
		return ReadUint64LE(r)
	default:
		return uint64(prefix[0]), nil
	}
}

// PutVarBytes writes varint(len(b)) followed by b itself.
func PutVarBytes(dst *bytes.Buffer, b []byte) {
	PutVarInt(dst, uint64(len(b)))
	dst.Write(b)
}

// ReadVarBytes reads a varint length prefix followed by that many bytes.
func ReadVarBytes(r io.Reader) ([]byte, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return buf, nil
}

// =============================================================================
// Base58Check.

// Base58CheckEncode prepends version to payload, appends the first 4 bytes
// of double-SHA-256(version||payload) as a checksum, and Base58-encodes the
// result.
func Base58CheckEncode(version byte, payload []byte) string {
	body := make([]byte, 0, 1+len(payload)+4)
	body = append(body, version)
	body = append(body, payload...)

	checksum := chainhash.DoubleSHA256(body)
	body = append(body, checksum[:4]...)

	return base58.Encode(body)
}

// Base58CheckDecode reverses Base58CheckEncode, failing with
// ErrInvalidEncoding if the checksum does not match.
func Base58CheckDecode(s string) (version byte, payload []byte, err error) {
	decoded := base58.Decode(s)
	if len(decoded) < 5 {
		return 0, nil, fmt.Errorf("%w: base58check payload too short", ErrInvalidEncoding)
	}

	body, checksum := decoded[:len(decoded)-4], decoded[len(decoded)-4:]
	want := chainhash.DoubleSHA256(body)
	if !bytes.Equal(want[:4], checksum) {
		return 0, nil, fmt.Errorf("%w: base58check checksum mismatch", ErrInvalidEncoding)
	}

	return body[0], body[1:], nil
}
