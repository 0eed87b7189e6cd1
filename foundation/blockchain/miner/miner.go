// Package miner implements the proof-of-work nonce search: given a block
// template, find a nonce (rolling the coinbase's extra_nonce forward and
// recomputing the merkle root on exhaustion) whose header hash satisfies
// the target.
package miner

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/block"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/pow"
	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
)

// Template is the candidate block content the miner searches a nonce for.
// Height is needed so the coinbase can be rolled forward on nonce
// exhaustion.
type Template struct {
	Header       block.Header
	Transactions []transaction.Transaction
	Height       uint32
}

// Miner searches nonces for a block template until it finds one that
// satisfies the template's difficulty target, or the context is cancelled.
type Miner struct {
	instantMine bool
	evHandler   func(v string, args ...any)
}

// New constructs a Miner. instantMine, when true, causes MineBlock to
// accept nonce=0 unconditionally without searching. This mode is intended
// only for tests that bypass the coordinator's own proof-of-work check,
// since a block mined this way will fail validation everywhere else.
func New(instantMine bool, evHandler func(v string, args ...any)) *Miner {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}
	return &Miner{instantMine: instantMine, evHandler: evHandler}
}

// MineBlock searches for a nonce (and, on nonce-space exhaustion, a fresh
// coinbase extra_nonce) that satisfies tmpl.Header.Bits, returning the
// solved block.
func (m *Miner) MineBlock(ctx context.Context, tmpl Template) (block.Block, error) {
	m.evHandler("miner: MineBlock: started: height[%d]", tmpl.Height)
	defer m.evHandler("miner: MineBlock: completed: height[%d]", tmpl.Height)

	if m.instantMine {
		tmpl.Header.Nonce = 0
		return block.Block{Header: tmpl.Header, Transactions: tmpl.Transactions}, nil
	}

	var extraNonce uint64
	var attempts uint64

	for {
		nonceStart, err := randomUint32()
		if err != nil {
			return block.Block{}, err
		}

		header := tmpl.Header
		nonce := nonceStart

		for {
			attempts++
			if attempts%1_000_000 == 0 {
				m.evHandler("miner: MineBlock: attempts[%d]", attempts)
			}

			if ctx.Err() != nil {
				m.evHandler("miner: MineBlock: CANCELLED")
				return block.Block{}, ctx.Err()
			}

			header.Nonce = nonce
			if pow.MeetsTarget(header.Hash(), header.Bits) {
				m.evHandler("miner: MineBlock: SOLVED: height[%d] nonce[%d] attempts[%d]", tmpl.Height, nonce, attempts)
				return block.Block{Header: header, Transactions: tmpl.Transactions}, nil
			}

			if nonce == math.MaxUint32 {
				break // nonce space exhausted, roll the coinbase forward.
			}
			nonce++
		}

		m.evHandler("miner: MineBlock: nonce space exhausted, rolling extra_nonce")
		extraNonce++
		tmpl.Transactions[0] = transaction.WithExtraNonce(tmpl.Transactions[0], tmpl.Height, extraNonce)

		root, err := block.MerkleRoot(tmpl.Transactions)
		if err != nil {
			return block.Block{}, err
		}
		tmpl.Header.MerkleRoot = root
	}
}

func randomUint32() (uint32, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(math.MaxUint32)))
	if err != nil {
		return 0, err
	}
	return uint32(n.Uint64()), nil
}
