package anchor

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

// FileBackend appends anchor receipts to a local JSON-Lines file. Suitable
// for development, testing, and single-node deployments.
type FileBackend struct {
	path string
}

// NewFileBackend validates path against baseDir (rejecting ".." traversal
// and any resolved path outside baseDir) before accepting it.
func NewFileBackend(path, baseDir string) (*FileBackend, error) {
	if strings.Contains(path, "..") {
		return nil, newErr(CategoryBackendUnavailable, fmt.Errorf("path traversal detected in %q", path))
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(baseDir, path)
	}
	resolved = filepath.Clean(resolved)

	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, newErr(CategoryBackendUnavailable, err)
	}
	resolvedAbs, err := filepath.Abs(resolved)
	if err != nil {
		return nil, newErr(CategoryBackendUnavailable, err)
	}
	if !strings.HasPrefix(resolvedAbs, baseAbs) {
		return nil, newErr(CategoryBackendUnavailable, fmt.Errorf("path %q is outside allowed directory %q", resolvedAbs, baseAbs))
	}

	return &FileBackend{path: resolvedAbs}, nil
}

// NewFileBackendUnchecked skips path validation; callers must only use this
// with a trusted, already-validated path (e.g. in tests).
func NewFileBackendUnchecked(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) Anchor(_ context.Context, root vexhash.Hash, metadata Metadata) (Receipt, error) {
	receipt := Receipt{
		Backend:    b.Name(),
		RootHash:   root.Hex(),
		AnchorID:   uuid.New().String(),
		AnchoredAt: time.Now().UTC(),
		Metadata:   metadata,
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return Receipt{}, newErr(CategoryBackendUnavailable, err)
	}

	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return Receipt{}, newErr(CategoryBackendUnavailable, err)
	}
	defer f.Close()

	line, err := json.Marshal(receipt)
	if err != nil {
		return Receipt{}, newErr(CategoryBackendUnavailable, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return Receipt{}, newErr(CategoryBackendUnavailable, err)
	}

	return receipt, nil
}

func (b *FileBackend) Verify(_ context.Context, receipt Receipt) (bool, error) {
	f, err := os.Open(b.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, newErr(CategoryVerificationFailed, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var stored Receipt
		if err := json.Unmarshal([]byte(line), &stored); err != nil {
			continue
		}
		idMatch := subtle.ConstantTimeCompare([]byte(stored.AnchorID), []byte(receipt.AnchorID)) == 1
		hashMatch := subtle.ConstantTimeCompare([]byte(stored.RootHash), []byte(receipt.RootHash)) == 1
		if idMatch && hashMatch {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func (b *FileBackend) IsHealthy(_ context.Context) bool {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return false
	}
	return true
}
