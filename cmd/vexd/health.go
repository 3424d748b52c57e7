package main

import (
	"encoding/json"
	"net/http"

	"github.com/codeready-toolchain/vex/pkg/anchor"
	"github.com/codeready-toolchain/vex/pkg/queue"
	"github.com/codeready-toolchain/vex/pkg/storage"
)

type healthStatus struct {
	Storage bool `json:"storage"`
	Queue   bool `json:"queue"`
	Anchor  bool `json:"anchor"`
}

func (h healthStatus) ok() bool {
	return h.Storage && h.Queue && h.Anchor
}

// healthHandler reports liveness of the storage backend, worker pool, and
// anchor backend as a single JSON document, returning 503 if any is down.
func healthHandler(backend storage.Backend, pool *queue.Pool, anchorBackend anchor.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{
			Storage: backend.IsHealthy(r.Context()),
			Queue:   pool.Health(),
			Anchor:  anchorBackend.IsHealthy(r.Context()),
		}

		w.Header().Set("Content-Type", "application/json")
		if !status.ok() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}
