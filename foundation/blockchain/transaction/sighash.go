package transaction

// SighashDigest returns the message every input's signature commits to: the
// transaction serialized with every input's SignatureScript cleared first,
// so the bytes are identical whether they are produced before any input is
// signed or reconstructed afterward by a validator. The bytes are not hashed
// here; keys.Sign and keys.Verify apply double-SHA-256 to them.
func (tx Transaction) SighashDigest() []byte {
	stripped := tx
	stripped.Inputs = make([]Input, len(tx.Inputs))
	for i, in := range tx.Inputs {
		in.SignatureScript = nil
		stripped.Inputs[i] = in
	}
	digest := stripped.Serialize()
	return digest
}
