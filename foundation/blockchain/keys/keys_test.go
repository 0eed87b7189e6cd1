package keys_test

import (
	"testing"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/keys"
)

const (
	success = "✓"
	failed  = "✗"
)

func TestSignAndVerify(t *testing.T) {
	t.Log("Given a generated key pair, a signature over a message must verify against the public key.")
	{
		t.Logf("\tTest 0:\tWhen signing and verifying a message.")
		{
			priv, err := keys.Generate()
			if err != nil {
				t.Fatalf("\t%s\tShould be able to generate a key pair: %v", failed, err)
			}
			pub := priv.PublicKey()

			sig, err := priv.Sign([]byte("pay alice 10 satoshis"))
			if err != nil {
				t.Fatalf("\t%s\tShould be able to sign: %v", failed, err)
			}
			if len(sig) != 64 {
				t.Fatalf("\t%s\tShould produce a 64-byte signature, got %d.", failed, len(sig))
			}
			t.Logf("\t%s\tShould produce a 64-byte signature.", success)

			if err := keys.Verify(pub, []byte("pay alice 10 satoshis"), sig); err != nil {
				t.Fatalf("\t%s\tShould verify against the signer's public key: %v", failed, err)
			}
			t.Logf("\t%s\tShould verify against the signer's public key.", success)
		}
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	t.Log("Given a signature produced by one key, it must not verify against a different key.")
	{
		t.Logf("\tTest 0:\tWhen verifying against an unrelated public key.")
		{
			signer, _ := keys.Generate()
			other, _ := keys.Generate()

			sig, err := signer.Sign([]byte("message"))
			if err != nil {
				t.Fatalf("\t%s\tShould be able to sign: %v", failed, err)
			}

			if err := keys.Verify(other.PublicKey(), []byte("message"), sig); err == nil {
				t.Fatalf("\t%s\tShould reject the signature under the wrong key.", failed)
			}
			t.Logf("\t%s\tShould reject the signature under the wrong key.", success)
		}
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	t.Log("Given a valid signature, it must not verify against a different message.")
	{
		t.Logf("\tTest 0:\tWhen verifying against a tampered message.")
		{
			priv, _ := keys.Generate()
			sig, err := priv.Sign([]byte("original message"))
			if err != nil {
				t.Fatalf("\t%s\tShould be able to sign: %v", failed, err)
			}

			if err := keys.Verify(priv.PublicKey(), []byte("tampered message"), sig); err == nil {
				t.Fatalf("\t%s\tShould reject a signature over a different message.", failed)
			}
			t.Logf("\t%s\tShould reject a signature over a different message.", success)
		}
	}
}

func TestAddressRoundTrip(t *testing.T) {
	t.Log("Given a public key hash, its Base58Check address must parse back to the same hash.")
	{
		t.Logf("\tTest 0:\tWhen round-tripping through ToAddress/ToPubKeyHash.")
		{
			priv, _ := keys.Generate()
			hash160 := priv.PublicKey().Hash160()

			addr := hash160.ToAddress()

			got, err := addr.ToPubKeyHash()
			if err != nil {
				t.Fatalf("\t%s\tShould parse the address back: %v", failed, err)
			}
			if got != hash160 {
				t.Fatalf("\t%s\tShould recover the exact same hash160.", failed)
			}
			t.Logf("\t%s\tShould recover the exact same hash160.", success)
		}
	}
}

func TestPublicKeyHexRoundTrip(t *testing.T) {
	t.Log("Given a compressed public key, its hex encoding must parse back to the same key.")
	{
		t.Logf("\tTest 0:\tWhen round-tripping through Hex/PublicKeyFromHex.")
		{
			priv, _ := keys.Generate()
			pub := priv.PublicKey()

			got, err := keys.PublicKeyFromHex(pub.Hex())
			if err != nil {
				t.Fatalf("\t%s\tShould parse the hex back: %v", failed, err)
			}
			if got != pub {
				t.Fatalf("\t%s\tShould recover the exact same public key.", failed)
			}
			t.Logf("\t%s\tShould recover the exact same public key.", success)
		}
	}
}
