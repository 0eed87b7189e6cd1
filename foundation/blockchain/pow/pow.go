// Package pow implements the compact-bits ("nBits") encoding of a 256-bit
// proof-of-work target, and the target comparison a candidate block hash
// must satisfy.
package pow

import (
	"github.com/holiman/uint256"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
)

// TargetFromCompact expands a compact 4-byte difficulty representation
// (nBits) into the full 256-bit target it denotes.
//
// bits = 0xAABBCCDD: AA is the exponent (byte-length of the target), and
// BBCCDD is the 3-byte mantissa. target = mantissa * 256^(exponent-3).
// Bit 0x00800000 of bits is a sign bit; a "negative" target is clamped to
// zero, matching the original implementation's behavior for malformed
// compact values.
func TargetFromCompact(bits uint32) *uint256.Int {
	exponent := bits >> 24
	mantissa := uint256.NewInt(uint64(bits & 0x007fffff))

	negative := bits&0x00800000 != 0

	target := new(uint256.Int)
	switch {
	case exponent <= 3:
		shift := 8 * (3 - exponent)
		target.Rsh(mantissa, uint(shift))
	default:
		shift := 8 * (exponent - 3)
		target.Lsh(mantissa, uint(shift))
	}

	if negative {
		return uint256.NewInt(0)
	}
	return target
}

// CompactFromTarget is the inverse of TargetFromCompact: the most compact
// representation of target, canonicalized so that CompactFromTarget is
// idempotent with TargetFromCompact. CompactFromTarget(TargetFromCompact(b))
// equals b for every canonical b.
func CompactFromTarget(target *uint256.Int) uint32 {
	if target.IsZero() {
		return 0
	}

	raw := target.Bytes() // big-endian, no leading zeros.
	exponent := uint32(len(raw))

	var mantissaBytes [3]byte
	switch {
	case len(raw) >= 3:
		copy(mantissaBytes[:], raw[:3])
	default:
		// A target shorter than 3 bytes is left-aligned in the mantissa, so
		// TargetFromCompact's right shift by 8*(3-exponent) recovers it.
		copy(mantissaBytes[:], raw)
	}
	mantissa := uint32(mantissaBytes[0])<<16 | uint32(mantissaBytes[1])<<8 | uint32(mantissaBytes[2])

	// If the high bit of the mantissa is set it would be misread as the
	// sign bit, so shift one byte out of the mantissa into the exponent.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	return exponent<<24 | mantissa&0x007fffff
}

// HashToBig interprets a block hash (stored internally in little-endian
// byte order) as a big-endian 256-bit integer, the representation the
// target comparison is defined over.
func HashToBig(h chainhash.Hash) *uint256.Int {
	var reversed [chainhash.Size]byte
	for i := 0; i < chainhash.Size; i++ {
		reversed[i] = h[chainhash.Size-1-i]
	}
	return new(uint256.Int).SetBytes(reversed[:])
}

// MeetsTarget reports whether hash, read as a big-endian integer, is less
// than or equal to the target denoted by bits.
func MeetsTarget(h chainhash.Hash, bits uint32) bool {
	target := TargetFromCompact(bits)
	return HashToBig(h).Cmp(target) <= 0
}
