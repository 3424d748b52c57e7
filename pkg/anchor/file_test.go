package anchor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

func TestFileBackendAnchorAndVerifyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend("anchors.jsonl", dir)
	require.NoError(t, err)

	root := vexhash.Digest([]byte("test_merkle_root"))
	metadata := Metadata{TenantID: "tenant-1", EventCount: 100, Timestamp: time.Now()}

	receipt, err := backend.Anchor(context.Background(), root, metadata)
	require.NoError(t, err)
	assert.Equal(t, "file", receipt.Backend)
	assert.Equal(t, root.Hex(), receipt.RootHash)

	ok, err := backend.Verify(context.Background(), receipt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileBackendVerifyRejectsFakeReceipt(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend("anchors.jsonl", dir)
	require.NoError(t, err)

	root := vexhash.Digest([]byte("root"))
	receipt, err := backend.Anchor(context.Background(), root, Metadata{TenantID: "t", Timestamp: time.Now()})
	require.NoError(t, err)

	fake := receipt
	fake.AnchorID = "fake-id"
	ok, err := backend.Verify(context.Background(), fake)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileBackendRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileBackend("../../etc/passwd", dir)
	assert.Error(t, err)
}

func TestFileBackendRejectsPathOutsideBaseDir(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "evil.jsonl")
	_, err := NewFileBackend(outside, dir)
	assert.Error(t, err)
}

func TestFileBackendMultipleReceiptsAllVerify(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend("anchors.jsonl", dir)
	require.NoError(t, err)

	var receipts []Receipt
	for i := 0; i < 5; i++ {
		root := vexhash.Digest([]byte{byte(i)})
		r, err := backend.Anchor(context.Background(), root, Metadata{TenantID: "t", EventCount: uint64(i), Timestamp: time.Now()})
		require.NoError(t, err)
		receipts = append(receipts, r)
	}

	for _, r := range receipts {
		ok, err := backend.Verify(context.Background(), r)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
