// Package grpcprovider implements llm.Provider against an internal
// "thinking service" boundary over gRPC, modeled on the reference
// organization's pkg/llm/client.go (grpc.NewClient), but with a single unary
// Complete RPC in place of a streaming one. No generated protobuf stubs for that
// internal service are available in this tree, so requests/responses are
// carried as google.golang.org/protobuf's structpb.Struct — a real,
// already-vendored protobuf message type — marshaled through the genuine
// grpc.ClientConn.Invoke call path rather than a fabricated .pb.go.
package grpcprovider

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/codeready-toolchain/vex/pkg/llm"
)

// completeMethod is the fully-qualified RPC method path on the thinking
// service boundary.
const completeMethod = "/vex.llm.v1.ThinkingService/Complete"

// Provider is a gRPC-backed llm.Provider.
type Provider struct {
	conn  *grpc.ClientConn
	model string
}

// New dials addr (plaintext; the thinking service runs inside the cluster
// network, mirroring the reference client's transport.Insecure() default)
// and returns a Provider that routes Complete calls to it.
func New(addr, model string) (*Provider, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", llm.ErrConnectionFailed, addr, err)
	}
	return &Provider{conn: conn, model: model}, nil
}

// Close releases the underlying connection.
func (p *Provider) Close() error {
	return p.conn.Close()
}

func (p *Provider) Name() string { return "grpc:" + p.model }

func (p *Provider) IsAvailable(ctx context.Context) bool {
	state := p.conn.GetState()
	return state == connectivity.Ready || state == connectivity.Idle
}

// Complete invokes the thinking service's unary Complete RPC, encoding the
// request and decoding the response as structpb.Struct.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	payload, err := structpb.NewStruct(map[string]any{
		"system":            req.System,
		"prompt":            req.Prompt,
		"temperature":       req.Temperature,
		"top_p":             req.TopP,
		"max_tokens":        req.MaxTokens,
		"presence_penalty":  req.PresencePenalty,
		"frequency_penalty": req.FrequencyPenalty,
		"model":             p.model,
	})
	if err != nil {
		return llm.Response{}, fmt.Errorf("%w: encode request: %v", llm.ErrRequestFailed, err)
	}

	start := time.Now()
	var reply structpb.Struct
	if err := p.conn.Invoke(ctx, completeMethod, payload, &reply); err != nil {
		return llm.Response{}, fmt.Errorf("%w: %v", llm.ErrRequestFailed, err)
	}
	latency := time.Since(start).Milliseconds()

	fields := reply.AsMap()
	content, _ := fields["content"].(string)
	if content == "" {
		return llm.Response{}, fmt.Errorf("%w: empty content field", llm.ErrInvalidResponse)
	}

	resp := llm.Response{
		Content:   content,
		Model:     p.model,
		LatencyMS: latency,
	}
	if tokens, ok := fields["tokens_used"].(float64); ok {
		n := int(tokens)
		resp.TokensUsed = &n
	}
	if root, ok := fields["trace_root"].(string); ok && root != "" {
		resp.TraceRoot = &root
	}
	return resp, nil
}
