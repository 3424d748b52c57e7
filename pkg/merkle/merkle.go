// Package merkle builds Merkle trees over sequences of (id, leaf-hash) pairs
// and produces/verifies inclusion proofs, using the domain-separated hashing
// from vexhash.
package merkle

import (
	"encoding/json"
	"errors"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

// MaxProofJSONSize bounds proof deserialization to guard against unbounded
// recursion/allocation from untrusted input.
const MaxProofJSONSize = 1 << 20 // 1 MB

// iterativeThreshold is the leaf count at which DFS traversal switches from
// recursive to an explicit stack, per the spec's "implementation may switch
// at >=128 leaves" allowance.
const iterativeThreshold = 128

var (
	// ErrProofTooLarge is returned when a serialized proof exceeds MaxProofJSONSize.
	ErrProofTooLarge = errors.New("merkle: proof JSON exceeds size limit")
	// ErrLeafNotFound is returned when no leaf with the requested hash exists.
	ErrLeafNotFound = errors.New("merkle: leaf not found")
)

// node is an internal tree node. Both left and right are non-nil for
// internal nodes; both are nil for leaves.
type node struct {
	hash  vexhash.Hash
	id    string // only meaningful for leaves
	left  *node
	right *node
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// Leaf is an (id, leaf-hash) input pair.
type Leaf struct {
	ID   string
	Hash vexhash.Hash
}

// Tree is an immutable Merkle tree built from a fixed leaf set.
type Tree struct {
	root  *node
	count int
}

// Build constructs a tree from leaves in the given order. N=0 yields an empty
// tree (Root() returns the zero hash). Construction pairs consecutive
// siblings bottom-up; a trailing unpaired node at any level is carried up
// unchanged.
func Build(leaves []Leaf) *Tree {
	if len(leaves) == 0 {
		return &Tree{}
	}

	level := make([]*node, len(leaves))
	for i, l := range leaves {
		level[i] = &node{hash: l.Hash, id: l.ID}
	}

	for len(level) > 1 {
		next := make([]*node, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			left, right := level[i], level[i+1]
			next = append(next, &node{
				hash:  vexhash.CombineInternal(left.hash, right.hash),
				left:  left,
				right: right,
			})
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}

	return &Tree{root: level[0], count: len(leaves)}
}

// Root returns the tree's root hash (zero hash for an empty tree).
func (t *Tree) Root() vexhash.Hash {
	if t.root == nil {
		return vexhash.Hash{}
	}
	return t.root.hash
}

// Len returns the number of leaves the tree was built from.
func (t *Tree) Len() int {
	return t.count
}

// Contains reports whether h appears as a leaf hash anywhere in the tree.
func (t *Tree) Contains(h vexhash.Hash) bool {
	if t.root == nil {
		return false
	}
	if t.count >= iterativeThreshold {
		return containsIterative(t.root, h)
	}
	return containsRecursive(t.root, h)
}

func containsRecursive(n *node, h vexhash.Hash) bool {
	if n == nil {
		return false
	}
	if n.isLeaf() {
		return n.hash == h
	}
	return containsRecursive(n.left, h) || containsRecursive(n.right, h)
}

func containsIterative(root *node, h vexhash.Hash) bool {
	stack := []*node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.isLeaf() {
			if n.hash == h {
				return true
			}
			continue
		}
		stack = append(stack, n.left, n.right)
	}
	return false
}

// Direction indicates which side of a combine step a sibling hash occupies.
type Direction int

const (
	Left Direction = iota
	Right
)

func (d Direction) String() string {
	if d == Left {
		return "left"
	}
	return "right"
}

// ProofStep is one sibling hash on the path from a leaf to the root.
type ProofStep struct {
	SiblingHash vexhash.Hash
	Direction   Direction
}

// Proof is an inclusion proof: the leaf hash/id, the ordered path of sibling
// steps from leaf to root, and the root the proof is expected to reproduce.
type Proof struct {
	LeafHash     vexhash.Hash
	LeafID       string
	Path         []ProofStep
	ExpectedRoot vexhash.Hash
}

// GetProofByHash finds the first leaf with the given hash via DFS and builds
// an inclusion proof for it.
func (t *Tree) GetProofByHash(h vexhash.Hash) (*Proof, error) {
	if t.root == nil {
		return nil, ErrLeafNotFound
	}

	var path []ProofStep
	var found bool

	var walk func(n *node) bool
	walk = func(n *node) bool {
		if n.isLeaf() {
			return n.hash == h
		}
		if walk(n.left) {
			path = append(path, ProofStep{SiblingHash: n.right.hash, Direction: Right})
			return true
		}
		if walk(n.right) {
			path = append(path, ProofStep{SiblingHash: n.left.hash, Direction: Left})
			return true
		}
		return false
	}
	found = walk(t.root)
	if !found {
		return nil, ErrLeafNotFound
	}

	// path was appended as each recursive call returned, deepest level
	// first, so it is already ordered leaf-to-root.

	return &Proof{
		LeafHash:     h,
		LeafID:       leafID(t.root, h),
		Path:         path,
		ExpectedRoot: t.Root(),
	}, nil
}

func leafID(n *node, h vexhash.Hash) string {
	if n == nil {
		return ""
	}
	if n.isLeaf() {
		if n.hash == h {
			return n.id
		}
		return ""
	}
	if id := leafID(n.left, h); id != "" {
		return id
	}
	return leafID(n.right, h)
}

// Verify replays the proof's path, combining the leaf hash with each sibling
// in order, and compares the result against root.
func (p *Proof) Verify(root vexhash.Hash) bool {
	current := p.LeafHash
	for _, step := range p.Path {
		switch step.Direction {
		case Left:
			current = vexhash.CombineInternal(step.SiblingHash, current)
		case Right:
			current = vexhash.CombineInternal(current, step.SiblingHash)
		}
	}
	return current == root
}

// proofJSON is the wire representation of a Proof.
type proofJSON struct {
	LeafHash     string      `json:"leaf_hash"`
	LeafID       string      `json:"leaf_id"`
	Path         []stepJSON  `json:"path"`
	ExpectedRoot string      `json:"expected_root"`
}

type stepJSON struct {
	SiblingHash string `json:"sibling_hash"`
	Direction   string `json:"direction"`
}

// MarshalJSON renders the proof as JSON.
func (p *Proof) MarshalJSON() ([]byte, error) {
	pj := proofJSON{
		LeafHash:     p.LeafHash.Hex(),
		LeafID:       p.LeafID,
		ExpectedRoot: p.ExpectedRoot.Hex(),
	}
	for _, s := range p.Path {
		pj.Path = append(pj.Path, stepJSON{SiblingHash: s.SiblingHash.Hex(), Direction: s.Direction.String()})
	}
	return json.Marshal(pj)
}

// UnmarshalProofJSON parses a serialized proof, rejecting payloads larger
// than MaxProofJSONSize.
func UnmarshalProofJSON(data []byte) (*Proof, error) {
	if len(data) > MaxProofJSONSize {
		return nil, ErrProofTooLarge
	}

	var pj proofJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, err
	}

	leafHash, err := vexhash.ParseHex(pj.LeafHash)
	if err != nil {
		return nil, err
	}
	root, err := vexhash.ParseHex(pj.ExpectedRoot)
	if err != nil {
		return nil, err
	}

	path := make([]ProofStep, 0, len(pj.Path))
	for _, s := range pj.Path {
		sibling, err := vexhash.ParseHex(s.SiblingHash)
		if err != nil {
			return nil, err
		}
		dir := Left
		if s.Direction == "right" {
			dir = Right
		}
		path = append(path, ProofStep{SiblingHash: sibling, Direction: dir})
	}

	return &Proof{
		LeafHash:     leafHash,
		LeafID:       pj.LeafID,
		Path:         path,
		ExpectedRoot: root,
	}, nil
}
