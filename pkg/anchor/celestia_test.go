package anchor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

func TestCelestiaBackendName(t *testing.T) {
	backend := NewCelestiaBackend("http://unused.invalid", "", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	assert.Equal(t, "celestia", backend.Name())
}

func TestCelestiaBackendAnchorReturnsHeightBasedAnchorID(t *testing.T) {
	server := newJSONRPCStub(t, map[string]any{"blob.Submit": uint64(7)})
	defer server.Close()

	backend := NewCelestiaBackend(server.URL, "tok", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	root := vexhash.Digest([]byte("root"))

	receipt, err := backend.Anchor(context.Background(), root, Metadata{TenantID: "t"})
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal("celestia://height:7", receipt.AnchorID)
	assert.NotNil(receipt.Proof)
}

func TestCelestiaBackendVerifyFalseWithoutProof(t *testing.T) {
	backend := NewCelestiaBackend("http://unused.invalid", "", "ns")
	ok, err := backend.Verify(context.Background(), Receipt{})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCelestiaBackendVerifyFalseWithZeroHeightProof(t *testing.T) {
	backend := NewCelestiaBackend("http://unused.invalid", "", "ns")
	proof := `{"height":0,"namespace":"ns","root_hash":"abc"}`
	ok, err := backend.Verify(context.Background(), Receipt{Proof: &proof})
	assert.NoError(t, err)
	assert.False(t, ok)
}
