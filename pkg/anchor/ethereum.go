package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

// ethMagicPrefix is the 4-byte VEX marker ("VEX\0") prepended to anchored
// calldata, per the spec's Ethereum magic prefix.
const ethMagicPrefix = "56455800"

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *jsonRPCError   `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// EthereumBackend anchors a root as JSON-RPC eth_call calldata carrying the
// VEX magic prefix. Full eth_sendRawTransaction signing is out of scope;
// eth_call validates the node accepts the calldata without committing state.
type EthereumBackend struct {
	rpcURL      string
	fromAddress string
	client      *http.Client
}

// NewEthereumBackend constructs an Ethereum anchor backend against rpcURL.
func NewEthereumBackend(rpcURL, fromAddress string) *EthereumBackend {
	return &EthereumBackend{
		rpcURL:      rpcURL,
		fromAddress: fromAddress,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (b *EthereumBackend) Name() string { return "ethereum" }

func (b *EthereumBackend) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := jsonRPCRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, newErr(CategoryNetwork, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, newErr(CategoryNetwork, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, newErr(CategoryNetwork, err)
	}
	defer resp.Body.Close()

	var rpcResp jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, newErr(CategoryNetwork, err)
	}
	if rpcResp.Error != nil {
		return nil, newErr(CategoryNetwork, fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message))
	}
	return rpcResp.Result, nil
}

func (b *EthereumBackend) blockNumber(ctx context.Context) (uint64, error) {
	raw, err := b.call(ctx, "eth_blockNumber", []any{})
	if err != nil {
		return 0, err
	}
	var hexStr string
	if err := json.Unmarshal(raw, &hexStr); err != nil {
		return 0, newErr(CategoryNetwork, err)
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(hexStr, "0x"), 16, 64)
	if err != nil {
		return 0, newErr(CategoryNetwork, err)
	}
	return n, nil
}

func (b *EthereumBackend) Anchor(ctx context.Context, root vexhash.Hash, metadata Metadata) (Receipt, error) {
	calldata := "0x" + ethMagicPrefix + root.Hex()

	_, err := b.call(ctx, "eth_call", []any{
		map[string]string{
			"from": b.fromAddress,
			"to":   "0x0000000000000000000000000000000000000000",
			"data": calldata,
		},
		"latest",
	})
	if err != nil {
		return Receipt{}, err
	}

	block, err := b.blockNumber(ctx)
	if err != nil {
		block = 0
	}

	anchorID := fmt.Sprintf("eth://block:%d/calldata:%s", block, root.Hex()[:16])
	return Receipt{
		Backend:    b.Name(),
		RootHash:   root.Hex(),
		AnchorID:   anchorID,
		AnchoredAt: time.Now().UTC(),
		Proof:      &calldata,
		Metadata:   metadata,
	}, nil
}

func (b *EthereumBackend) Verify(_ context.Context, receipt Receipt) (bool, error) {
	if receipt.Proof == nil {
		return false, nil
	}
	expected := "0x" + ethMagicPrefix + receipt.RootHash
	return *receipt.Proof == expected, nil
}

func (b *EthereumBackend) IsHealthy(ctx context.Context) bool {
	_, err := b.blockNumber(ctx)
	return err == nil
}
