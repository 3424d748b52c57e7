package anchor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newJSONRPCStub starts a test JSON-RPC server that returns a canned result
// for each method name present in responses. Methods not listed respond with
// a null result.
func newJSONRPCStub(t *testing.T, responses map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, ok := responses[req.Method]
		if !ok {
			result = nil
		}

		resultJSON, err := json.Marshal(result)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  json.RawMessage(resultJSON),
		})
	}))
}
