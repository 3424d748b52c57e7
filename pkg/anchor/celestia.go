package anchor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

type celestiaBlob struct {
	Namespace    string `json:"namespace"`
	Data         string `json:"data"`
	ShareVersion int    `json:"shareVersion"`
}

type celestiaProof struct {
	Height    uint64 `json:"height"`
	Namespace string `json:"namespace"`
	RootHash  string `json:"root_hash"`
}

// CelestiaBackend submits Merkle roots as namespace-keyed blobs to a
// Celestia node over JSON-RPC.
type CelestiaBackend struct {
	nodeURL   string
	authToken string
	namespace string
	client    *http.Client
}

// NewCelestiaBackend constructs a Celestia anchor backend. namespace is the
// base64-encoded Celestia v0 namespace to submit blobs under (configurable
// per Open Question resolution: the reference implementation hardcoded a
// single namespace, but different deployments anchor to different
// namespaces).
func NewCelestiaBackend(nodeURL, authToken, namespace string) *CelestiaBackend {
	return &CelestiaBackend{
		nodeURL:   nodeURL,
		authToken: authToken,
		namespace: namespace,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (b *CelestiaBackend) Name() string { return "celestia" }

func (b *CelestiaBackend) post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newErr(CategoryNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.nodeURL+"/", bytes.NewReader(body))
	if err != nil {
		return nil, newErr(CategoryNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.authToken)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, newErr(CategoryNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, newErr(CategoryNetwork, fmt.Errorf("celestia node returned HTTP %d", resp.StatusCode))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, newErr(CategoryNetwork, err)
	}
	return buf.Bytes(), nil
}

func (b *CelestiaBackend) Anchor(ctx context.Context, root vexhash.Hash, metadata Metadata) (Receipt, error) {
	payload := map[string]any{
		"vex_root":   root.Hex(),
		"tenant_id":  metadata.TenantID,
		"event_count": metadata.EventCount,
		"timestamp":  metadata.Timestamp.Format(time.RFC3339),
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, newErr(CategoryNetwork, err)
	}

	blob := celestiaBlob{
		Namespace:    b.namespace,
		Data:         base64.StdEncoding.EncodeToString(payloadJSON),
		ShareVersion: 0,
	}

	req := map[string]any{
		"id":      1,
		"jsonrpc": "2.0",
		"method":  "blob.Submit",
		"params":  []any{[]celestiaBlob{blob}, map[string]float64{"gas_price": -1.0}},
	}

	raw, err := b.post(ctx, req)
	if err != nil {
		return Receipt{}, err
	}

	var resp struct {
		Result *uint64       `json:"result"`
		Error  *jsonRPCError `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Receipt{}, newErr(CategoryNetwork, err)
	}
	if resp.Error != nil {
		return Receipt{}, newErr(CategoryNetwork, fmt.Errorf("celestia error %d: %s", resp.Error.Code, resp.Error.Message))
	}

	var height uint64
	if resp.Result != nil {
		height = *resp.Result
	}

	anchorID := fmt.Sprintf("celestia://height:%d", height)
	proofJSON, err := json.Marshal(celestiaProof{Height: height, Namespace: b.namespace, RootHash: root.Hex()})
	if err != nil {
		return Receipt{}, newErr(CategoryNetwork, err)
	}
	proof := string(proofJSON)

	return Receipt{
		Backend:    b.Name(),
		RootHash:   root.Hex(),
		AnchorID:   anchorID,
		AnchoredAt: time.Now().UTC(),
		Proof:      &proof,
		Metadata:   metadata,
	}, nil
}

func (b *CelestiaBackend) Verify(ctx context.Context, receipt Receipt) (bool, error) {
	if receipt.Proof == nil {
		return false, nil
	}

	var proof celestiaProof
	if err := json.Unmarshal([]byte(*receipt.Proof), &proof); err != nil {
		return false, newErr(CategoryVerificationFailed, err)
	}
	if proof.Height == 0 {
		return false, nil
	}

	req := map[string]any{
		"id":      1,
		"jsonrpc": "2.0",
		"method":  "blob.GetAll",
		"params":  []any{proof.Height, []string{b.namespace}},
	}

	raw, err := b.post(ctx, req)
	if err != nil {
		return false, nil
	}

	var resp struct {
		Result []map[string]any `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false, newErr(CategoryVerificationFailed, err)
	}

	for _, blob := range resp.Result {
		data, ok := blob["data"].(string)
		if !ok {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			continue
		}
		if strings.Contains(string(decoded), receipt.RootHash) {
			return true, nil
		}
	}
	return false, nil
}

func (b *CelestiaBackend) IsHealthy(ctx context.Context) bool {
	req := map[string]any{
		"id":      1,
		"jsonrpc": "2.0",
		"method":  "header.NetworkHead",
		"params":  []any{},
	}
	_, err := b.post(ctx, req)
	return err == nil
}
