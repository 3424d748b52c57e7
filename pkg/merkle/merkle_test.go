package merkle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

func leaves(ids ...string) []Leaf {
	out := make([]Leaf, len(ids))
	for i, id := range ids {
		out[i] = Leaf{ID: id, Hash: vexhash.Leaf([]byte(id))}
	}
	return out
}

func TestBuildEmptyTreeHasZeroRoot(t *testing.T) {
	tree := Build(nil)
	assert.True(t, tree.Root().IsZero())
	assert.Equal(t, 0, tree.Len())
}

func TestBuildSingleLeafRootEqualsLeafHash(t *testing.T) {
	ls := leaves("a")
	tree := Build(ls)
	assert.Equal(t, ls[0].Hash, tree.Root())
}

func TestBuildOddLeafCountCarriesUp(t *testing.T) {
	tree := Build(leaves("a", "b", "c"))
	assert.False(t, tree.Root().IsZero())
	assert.Equal(t, 3, tree.Len())
}

func TestContainsFindsEveryLeaf(t *testing.T) {
	ls := leaves("a", "b", "c", "d", "e")
	tree := Build(ls)
	for _, l := range ls {
		assert.True(t, tree.Contains(l.Hash), "expected tree to contain leaf %s", l.ID)
	}
	assert.False(t, tree.Contains(vexhash.Leaf([]byte("not-in-tree"))))
}

func TestContainsLargeTreeUsesIterativePath(t *testing.T) {
	ids := make([]string, 200)
	for i := range ids {
		ids[i] = strings.Repeat("x", i+1)
	}
	ls := leaves(ids...)
	tree := Build(ls)
	assert.True(t, tree.Contains(ls[150].Hash))
	assert.False(t, tree.Contains(vexhash.Leaf([]byte("absent"))))
}

// TestThreeLeafInclusionProof covers Scenario S8: a three-leaf tree where a
// valid proof verifies against the root, and corrupting a single sibling byte
// causes verification to fail.
func TestThreeLeafInclusionProof(t *testing.T) {
	ls := leaves("alpha", "bravo", "charlie")
	tree := Build(ls)

	proof, err := tree.GetProofByHash(ls[0].Hash)
	require.NoError(t, err)
	assert.Equal(t, "alpha", proof.LeafID)
	assert.True(t, proof.Verify(tree.Root()))

	corrupted := *proof
	corrupted.Path = append([]ProofStep(nil), proof.Path...)
	corrupted.Path[0].SiblingHash[0] ^= 0xFF
	assert.False(t, corrupted.Verify(tree.Root()), "corrupting a sibling byte must invalidate the proof")
}

func TestGetProofByHashForEveryLeafVerifies(t *testing.T) {
	ls := leaves("a", "b", "c", "d", "e", "f", "g")
	tree := Build(ls)
	for _, l := range ls {
		proof, err := tree.GetProofByHash(l.Hash)
		require.NoError(t, err)
		assert.True(t, proof.Verify(tree.Root()), "proof for leaf %s must verify", l.ID)
	}
}

func TestGetProofByHashMissingLeaf(t *testing.T) {
	tree := Build(leaves("a", "b"))
	_, err := tree.GetProofByHash(vexhash.Leaf([]byte("missing")))
	assert.ErrorIs(t, err, ErrLeafNotFound)
}

func TestProofMarshalUnmarshalRoundTrip(t *testing.T) {
	ls := leaves("a", "b", "c", "d")
	tree := Build(ls)
	proof, err := tree.GetProofByHash(ls[2].Hash)
	require.NoError(t, err)

	data, err := proof.MarshalJSON()
	require.NoError(t, err)

	parsed, err := UnmarshalProofJSON(data)
	require.NoError(t, err)
	assert.Equal(t, proof.LeafHash, parsed.LeafHash)
	assert.Equal(t, proof.ExpectedRoot, parsed.ExpectedRoot)
	assert.True(t, parsed.Verify(tree.Root()))
}

func TestUnmarshalProofJSONRejectsOversizedPayload(t *testing.T) {
	huge := make([]byte, MaxProofJSONSize+1)
	_, err := UnmarshalProofJSON(huge)
	assert.ErrorIs(t, err, ErrProofTooLarge)
}

func TestVerifyFailsAgainstWrongRoot(t *testing.T) {
	ls := leaves("a", "b", "c")
	tree := Build(ls)
	proof, err := tree.GetProofByHash(ls[1].Hash)
	require.NoError(t, err)
	assert.False(t, proof.Verify(vexhash.Leaf([]byte("wrong-root"))))
}
