// Copyright 2025 Chainanchor
//
// MerkleBuilder assembles a bounded-depth, left-packed binary tree over a
// batch's candidates. Unlike a conventional in-memory Merkle tree, interior
// node hashing is delegated to the content-addressed store: each node
// {l: CID, r: CID} is itself a stored object, and its CID is the parent
// value. The root CID is the batch's Merkle root.

package merkle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainanchor/anchor-core/internal/cas"
	"github.com/chainanchor/anchor-core/internal/model"
)

// ErrBatchTooLarge is returned when the candidate count exceeds what maxDepth
// can hold. Callers must bound their selection limit to 2^maxDepth beforehand.
var ErrBatchTooLarge = errors.New("merkle: batch too large for configured depth")

// node is the stored representation of an interior tree node.
type node struct {
	L string `json:"l"`
	R string `json:"r"`
}

// Leaf is one candidate's position in the built tree.
type Leaf struct {
	Candidate *model.Candidate
	Path      string
}

// Tree is the result of a successful build: the root CID and the per-leaf
// path assignment in candidate order.
type Tree struct {
	Root  string
	Leaves []Leaf
}

// Build lays out candidates left-packed across the lowest level of a binary
// tree that can hold them (bounded by maxDepth), then hashes bottom-up
// through store, combining sibling CIDs into new stored nodes.
//
// An empty candidate list returns an empty Tree and no error; the caller is
// expected to skip the cycle rather than write anything.
func Build(ctx context.Context, store cas.Store, candidates []*model.Candidate, maxDepth int) (*Tree, error) {
	n := len(candidates)
	if n == 0 {
		return &Tree{}, nil
	}

	depth := depthFor(n)
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: %d candidates exceeds depth %d capacity %d", ErrBatchTooLarge, n, maxDepth, 1<<maxDepth)
	}

	width := 1 << depth
	level := make([]string, width)
	leaves := make([]Leaf, n)
	for i, c := range candidates {
		level[i] = c.Cid
		leaves[i] = Leaf{Candidate: c, Path: pathFor(i, depth)}
	}

	for len(level) > 1 {
		next := make([]string, len(level)/2)
		for i := range next {
			left, right := level[2*i], level[2*i+1]
			combined, err := combine(ctx, store, left, right)
			if err != nil {
				return nil, fmt.Errorf("combine node %d: %w", i, err)
			}
			next[i] = combined
		}
		level = next
	}

	return &Tree{Root: level[0], Leaves: leaves}, nil
}

// combine pairs two child CIDs into a stored interior node. An empty slot
// (absent leaf, left-packed tail) promotes its sibling unchanged rather than
// minting a new node — this keeps odd-sized batches from needing padding.
func combine(ctx context.Context, store cas.Store, left, right string) (string, error) {
	switch {
	case left == "" && right == "":
		return "", nil
	case right == "":
		return left, nil
	case left == "":
		return right, nil
	}
	return store.Put(ctx, node{L: left, R: right})
}

// depthFor returns the smallest d such that 2^d >= n.
func depthFor(n int) int {
	d := 0
	for (1 << d) < n {
		d++
	}
	return d
}

// pathFor renders leaf index i's root-to-leaf bit path at the given depth,
// e.g. index 1 at depth 2 is "0/1".
func pathFor(i, depth int) string {
	if depth == 0 {
		return ""
	}
	bits := strconv.FormatInt(int64(i), 2)
	for len(bits) < depth {
		bits = "0" + bits
	}
	parts := make([]string, depth)
	for j, b := range bits {
		parts[j] = string(b)
	}
	return strings.Join(parts, "/")
}
