package merkle

import (
	"bytes"
	"hash"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
)

// doubleSHA256Hash buffers everything written to it and computes
// chainhash.DoubleSHA256 on Sum, adapting Bitcoin's hash256 construction to
// the streaming hash.Hash interface the merkle tree's hash strategy expects.
type doubleSHA256Hash struct {
	buf bytes.Buffer
}

// NewDoubleSHA256 returns a hash.Hash that computes double-SHA-256 over
// everything written to it before Sum is called.
func NewDoubleSHA256() hash.Hash {
	return &doubleSHA256Hash{}
}

func (d *doubleSHA256Hash) Write(p []byte) (int, error) { return d.buf.Write(p) }
func (d *doubleSHA256Hash) Sum(b []byte) []byte {
	digest := chainhash.DoubleSHA256(d.buf.Bytes())
	return append(b, digest[:]...)
}
func (d *doubleSHA256Hash) Reset()         { d.buf.Reset() }
func (d *doubleSHA256Hash) Size() int      { return chainhash.Size }
func (d *doubleSHA256Hash) BlockSize() int { return 64 }
