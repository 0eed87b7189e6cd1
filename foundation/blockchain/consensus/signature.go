package consensus

import (
	"fmt"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/keys"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
)

// sigScriptLen is the exact length of a P2PKH signature_script: a 64-byte
// (R||S) signature followed by a 33-byte compressed public key.
const sigScriptLen = 64 + 33

// ValidateInputSignature verifies that input's signature_script both
// unlocks prevOutScript (its public key hashes to the script's committed
// hash160) and carries a valid signature over tx's sighash digest.
//
// Unlike the graceful-degradation behavior some implementations apply to
// malformed scripts or unparseable keys, every failure here is a hard
// ErrInvalidSignature. A validator that silently accepts unparseable
// signatures is not enforcing anything.
func ValidateInputSignature(tx transaction.Transaction, in transaction.Input, prevOutScriptHex string) error {
	script := in.SignatureScript
	if len(script) != sigScriptLen {
		return fmt.Errorf("%w: signature_script must be %d bytes, got %d", ErrInvalidSignature, sigScriptLen, len(script))
	}

	sig := script[:64]
	pubKeyBytes := script[64:]

	var pub keys.PublicKey
	copy(pub[:], pubKeyBytes)

	if pub.Hash160().Hex() != prevOutScriptHex {
		return fmt.Errorf("%w: public key does not hash to the output's locking script", ErrInvalidSignature)
	}

	digest := tx.SighashDigest()
	if err := keys.Verify(pub, digest, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return nil
}
