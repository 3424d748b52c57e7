package tool

import (
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

// Result is the contract's output envelope.
type Result struct {
	ToolName      string          `json:"tool_name"`
	Output        json.RawMessage `json:"output"`
	Hash          vexhash.Hash    `json:"hash"`
	ExecutionTime time.Duration   `json:"execution_time"`
	TokensUsed    *int            `json:"tokens_used,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// hashInput is the exact field set the deterministic result hash is
// computed over.
type hashInput struct {
	Tool      string          `json:"tool"`
	Args      json.RawMessage `json:"args"`
	Output    json.RawMessage `json:"output"`
	Timestamp int64           `json:"timestamp"`
}

func computeHash(name string, args, output json.RawMessage, timestamp time.Time) (vexhash.Hash, error) {
	canon, err := json.Marshal(hashInput{
		Tool:      name,
		Args:      args,
		Output:    output,
		Timestamp: timestamp.UTC().Unix(),
	})
	if err != nil {
		return vexhash.Hash{}, err
	}
	return vexhash.Digest(canon), nil
}
