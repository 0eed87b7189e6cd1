package encoding_test

import (
	"bytes"
	"testing"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/encoding"
)

const (
	success = "✓"
	failed  = "✗"
)

func TestVarIntRoundTrip(t *testing.T) {
	t.Log("Given the CompactSize varint encoding, every boundary value must round-trip.")
	{
		values := []uint64{0, 1, 0xfc, 0xfd, 0xfe, 0xffff, 0x10000, 0xffffffff, 0x100000000, 1 << 40}
		for _, v := range values {
			t.Logf("\tTest %d:\tWhen encoding and decoding %d.", v, v)
			{
				var buf bytes.Buffer
				encoding.PutVarInt(&buf, v)

				got, err := encoding.ReadVarInt(&buf)
				if err != nil {
					t.Fatalf("\t%s\tShould decode without error: %v", failed, err)
				}
				if got != v {
					t.Fatalf("\t%s\tShould round-trip %d, got %d.", failed, v, got)
				}
				t.Logf("\t%s\tShould round-trip %d.", success, v)
			}
		}
	}
}

func TestVarBytesRoundTrip(t *testing.T) {
	t.Log("Given a length-prefixed byte string.")
	{
		t.Logf("\tTest 0:\tWhen encoding and decoding an arbitrary payload.")
		{
			want := []byte("a signature script of arbitrary length")

			var buf bytes.Buffer
			encoding.PutVarBytes(&buf, want)

			got, err := encoding.ReadVarBytes(&buf)
			if err != nil {
				t.Fatalf("\t%s\tShould decode without error: %v", failed, err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("\t%s\tShould round-trip the exact bytes.", failed)
			}
			t.Logf("\t%s\tShould round-trip the exact bytes.", success)
		}
	}
}

func TestFixedWidthIntegersRoundTrip(t *testing.T) {
	t.Log("Given the fixed-width little-endian integer helpers.")
	{
		t.Logf("\tTest 0:\tWhen round-tripping a uint32 and a uint64.")
		{
			var buf bytes.Buffer
			encoding.PutUint32LE(&buf, 0xdeadbeef)
			encoding.PutUint64LE(&buf, 0x0102030405060708)

			u32, err := encoding.ReadUint32LE(&buf)
			if err != nil || u32 != 0xdeadbeef {
				t.Fatalf("\t%s\tShould round-trip the uint32, got %#x, err %v.", failed, u32, err)
			}
			u64, err := encoding.ReadUint64LE(&buf)
			if err != nil || u64 != 0x0102030405060708 {
				t.Fatalf("\t%s\tShould round-trip the uint64, got %#x, err %v.", failed, u64, err)
			}
			t.Logf("\t%s\tShould round-trip both fixed-width integers.", success)
		}
	}
}

func TestBase58CheckRoundTrip(t *testing.T) {
	t.Log("Given Base58Check encoding.")
	{
		t.Logf("\tTest 0:\tWhen encoding and decoding a version byte and payload.")
		{
			payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}

			s := encoding.Base58CheckEncode(0x00, payload)

			version, got, err := encoding.Base58CheckDecode(s)
			if err != nil {
				t.Fatalf("\t%s\tShould decode without error: %v", failed, err)
			}
			if version != 0x00 {
				t.Fatalf("\t%s\tShould recover the version byte, got %#x.", failed, version)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("\t%s\tShould recover the exact payload.", failed)
			}
			t.Logf("\t%s\tShould round-trip version and payload.", success)
		}
	}
}

func TestBase58CheckDetectsCorruption(t *testing.T) {
	t.Log("Given a Base58Check string with a flipped character.")
	{
		t.Logf("\tTest 0:\tWhen decoding a corrupted encoding.")
		{
			s := encoding.Base58CheckEncode(0x00, []byte("some payload bytes"))
			corrupted := []byte(s)
			corrupted[0]++
			if corrupted[0] == s[0] {
				corrupted[0]++
			}

			if _, _, err := encoding.Base58CheckDecode(string(corrupted)); err == nil {
				t.Fatalf("\t%s\tShould reject a corrupted checksum.", failed)
			}
			t.Logf("\t%s\tShould reject a corrupted checksum.", success)
		}
	}
}
