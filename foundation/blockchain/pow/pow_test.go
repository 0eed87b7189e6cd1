package pow_test

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/pow"
)

const (
	success = "✓"
	failed  = "✗"
)

func TestCompactTargetRoundTrip(t *testing.T) {
	t.Log("Given a canonical compact difficulty value, expanding then recompacting it must return the same value.")
	{
		values := []uint32{0x1d00ffff, 0x1b0404cb, 0x207fffff, 0x01010000, 0x02010000}
		for _, bits := range values {
			t.Logf("\tTest %#x:\tWhen expanding and recompacting %#x.", bits, bits)
			{
				target := pow.TargetFromCompact(bits)
				got := pow.CompactFromTarget(target)
				if got != bits {
					t.Fatalf("\t%s\tShould round-trip to %#x, got %#x.", failed, bits, got)
				}
				t.Logf("\t%s\tShould round-trip to %#x.", success, bits)
			}
		}
	}
}

func TestTargetFromCompactClampsNegative(t *testing.T) {
	t.Log("Given a compact value with the sign bit set, the expanded target must clamp to zero.")
	{
		t.Logf("\tTest 0:\tWhen expanding a compact value with bit 0x00800000 set.")
		{
			target := pow.TargetFromCompact(0x01800000)
			if !target.IsZero() {
				t.Fatalf("\t%s\tShould clamp a negative compact value to zero, got %s.", failed, target.String())
			}
			t.Logf("\t%s\tShould clamp a negative compact value to zero.", success)
		}
	}
}

func TestMeetsTargetBoundary(t *testing.T) {
	t.Log("Given a fixed difficulty target, a hash must meet it if and only if it is less than or equal to the target.")
	{
		bits := uint32(0x1d00ffff)
		target := pow.TargetFromCompact(bits)

		t.Logf("\tTest 0:\tWhen the hash equals the target exactly.")
		{
			h := bigToHash(target)
			if !pow.MeetsTarget(h, bits) {
				t.Fatalf("\t%s\tShould meet the target when the hash equals it exactly.", failed)
			}
			t.Logf("\t%s\tShould meet the target when the hash equals it exactly.", success)
		}

		t.Logf("\tTest 1:\tWhen the hash exceeds the target by one.")
		{
			above := new(uint256.Int).Add(target, uint256.NewInt(1))
			h := bigToHash(above)
			if pow.MeetsTarget(h, bits) {
				t.Fatalf("\t%s\tShould not meet the target when the hash exceeds it.", failed)
			}
			t.Logf("\t%s\tShould not meet the target when the hash exceeds it.", success)
		}
	}
}

func bigToHash(v *uint256.Int) chainhash.Hash {
	be := v.Bytes32()

	var h chainhash.Hash
	for i := 0; i < chainhash.Size; i++ {
		h[i] = be[chainhash.Size-1-i]
	}
	return h
}
