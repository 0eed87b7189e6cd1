// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides a merkle tree generic over any Hashable leaf
// type. Odd-count levels are handled by duplicating the last node, at
// every level and not only the leaves. This is the behavior the block
// header's merkle_root field must match bit-for-bit.
package merkle

import (
	"bytes"
	"errors"
	"fmt"
	"hash"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/chainhash"
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint.
type Tree[T Hashable[T]] struct {
	Root         *Node[T]
	Leafs        []*Node[T]
	MerkleRoot   []byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using
// double-SHA-256 when constructing a new tree.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface. The default hash
// strategy is Bitcoin's double-SHA-256.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: NewDoubleSHA256,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the leafs and nodes of the tree from the specified
// data. If the tree has been generated previously, the tree is re-generated
// from scratch.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return errors.New("cannot construct tree with no content")
	}

	var leafs []*Node[T]
	for _, value := range values {
		h, err := value.Hash()
		if err != nil {
			return err
		}

		leafs = append(leafs, &Node[T]{
			Hash:  h,
			Value: value,
			leaf:  true,
			Tree:  t,
		})
	}

	if len(leafs) == 1 {
		t.Root = leafs[0]
		t.Leafs = leafs
		t.MerkleRoot = leafs[0].Hash
		return nil
	}

	root, err := buildIntermediate(leafs, t)
	if err != nil {
		return err
	}

	t.Root = root
	t.Leafs = leafs
	t.MerkleRoot = root.Hash

	return nil
}

// Rebuild is a helper function that will rebuild the tree reusing only the
// data that it currently holds in the leaves.
func (t *Tree[T]) Rebuild() error {
	var data []T
	for _, node := range t.Leafs {
		data = append(data, node.Value)
	}

	return t.Generate(data)
}

// Proof returns the set of sibling hashes and their left/right order needed
// to recompute the root starting from data's leaf hash.
func (t *Tree[T]) Proof(data T) ([][]byte, []int64, error) {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		var merkleProof [][]byte
		var order []int64
		nodeParent := node.Parent

		for nodeParent != nil {
			if bytes.Equal(nodeParent.Left.Hash, node.Hash) {
				merkleProof = append(merkleProof, nodeParent.Right.Hash)
				order = append(order, 1) // right leaf, concat second.
			} else {
				merkleProof = append(merkleProof, nodeParent.Left.Hash)
				order = append(order, 0) // left leaf, concat first.
			}
			node = nodeParent
			nodeParent = nodeParent.Parent
		}

		return merkleProof, order, nil
	}

	return nil, nil, errors.New("unable to find data in tree")
}

// VerifyProof recomputes the root from a leaf hash and a proof path,
// reporting whether it matches root.
func VerifyProof(strategy func() hash.Hash, leafHash []byte, proof [][]byte, order []int64, root []byte) bool {
	current := leafHash
	for i, sibling := range proof {
		h := strategy()
		if order[i] == 0 {
			h.Write(sibling) //nolint:errcheck
			h.Write(current) //nolint:errcheck
		} else {
			h.Write(current) //nolint:errcheck
			h.Write(sibling) //nolint:errcheck
		}
		current = h.Sum(nil)
	}
	return bytes.Equal(current, root)
}

// Values returns the slice of leaf values stored in the tree, with a
// trailing odd-count duplicate (if any) removed.
func (t *Tree[T]) Values() []T {
	var values []T
	for _, leaf := range t.Leafs {
		values = append(values, leaf.Value)
	}
	return values
}

// RootHex converts the merkle root byte hash to its display hex encoding.
func (t *Tree[T]) RootHex() string {
	h, _ := chainhash.NewHashFromBytes(t.MerkleRoot)
	return h.String()
}

// String returns a string representation of the tree. Only leaf nodes are
// included in the output.
func (t *Tree[T]) String() string {
	s := ""
	for _, l := range t.Leafs {
		s += fmt.Sprint(l)
		s += "\n"
	}
	return s
}

// =============================================================================

// Node represents a node, root, or leaf in the tree.
type Node[T Hashable[T]] struct {
	Tree   *Tree[T]
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   []byte
	Value  T
	leaf   bool
}

// String returns a string representation of the node.
func (n *Node[T]) String() string {
	return fmt.Sprintf("%t %v %v", n.leaf, n.Hash, n.Value)
}

// =============================================================================

// buildIntermediate constructs the intermediate and root levels of the tree
// for a given list of leaf nodes, duplicating the last node whenever a
// level's count is odd and greater than one. This preserves Bitcoin's
// merkle bug at every level, not only the leaves.
func buildIntermediate[T Hashable[T]](nl []*Node[T], t *Tree[T]) (*Node[T], error) {
	var nodes []*Node[T]

	for i := 0; i < len(nl); i += 2 {
		left, right := i, i+1
		if i+1 == len(nl) {
			right = i
		}

		h := t.hashStrategy()
		if _, err := h.Write(nl[left].Hash); err != nil {
			return nil, err
		}
		if _, err := h.Write(nl[right].Hash); err != nil {
			return nil, err
		}

		n := Node[T]{
			Left:  nl[left],
			Right: nl[right],
			Hash:  h.Sum(nil),
			Tree:  t,
		}

		nodes = append(nodes, &n)
		nl[left].Parent = &n
		nl[right].Parent = &n

		if len(nl) == 2 {
			return &n, nil
		}
	}

	return buildIntermediate(nodes, t)
}
