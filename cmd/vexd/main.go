// vexd is the VEX runtime entrypoint: it loads configuration, opens the
// storage backend, and wires the audit chain, anchor backend, durable job
// queue, and agent executor/orchestrator together before starting the
// worker pool and blocking until shut down. This mirrors the reference
// organization's cmd/tarsy entrypoint shape (-config-dir flag, .env loading
// from the config directory, log.Fatalf on unrecoverable startup errors);
// the HTTP/RPC surface itself is out of scope beyond the health endpoint
// below.
package main

import (
	"context"
	stdsql "database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/vex/pkg/anchor"
	"github.com/codeready-toolchain/vex/pkg/audit"
	"github.com/codeready-toolchain/vex/pkg/breaker"
	"github.com/codeready-toolchain/vex/pkg/config"
	"github.com/codeready-toolchain/vex/pkg/evomemory"
	"github.com/codeready-toolchain/vex/pkg/llm"
	"github.com/codeready-toolchain/vex/pkg/llm/grpcprovider"
	"github.com/codeready-toolchain/vex/pkg/queue"
	"github.com/codeready-toolchain/vex/pkg/storage"
	"github.com/codeready-toolchain/vex/pkg/storage/postgres"
	"github.com/codeready-toolchain/vex/pkg/storage/sqlite"
)

// anchorInterval is how often the anchor loop commits the audit chain's
// current Merkle root to the configured external backend.
const anchorInterval = 5 * time.Minute

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func podID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fmt.Sprintf("vexd-%d", os.Getpid())
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	log.Printf("Starting vexd")
	log.Printf("Config Directory: %s", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	backend, dialect, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open storage backend: %v", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Printf("Error closing storage backend: %v", err)
		}
	}()
	slog.Info("storage backend ready", "driver", cfg.Storage.Driver)

	anchorBackend, err := openAnchor(cfg.Anchor)
	if err != nil {
		log.Fatalf("Failed to open anchor backend: %v", err)
	}
	slog.Info("anchor backend ready", "backend", anchorBackend.Name())

	chain := audit.New(backend)
	provider := openLLMProvider()
	memory := evomemory.New()

	store := queue.NewStore(backend, dialect)
	registry := queue.NewRegistry()
	registry.Register(&agentRoundHandler{
		provider:  provider,
		genomeCfg: cfg.Genome,
		audit:     chain,
		memory:    memory,
		maxDepth:  cfg.Genome.MaxDepth,
	})

	pool := queue.NewPool(store, registry, cfg.Queue, podID())
	pool.Start(ctx)
	slog.Info("worker pool started", "pod_id", podID(), "workers", cfg.Queue.WorkerCount)

	anchorBreaker := breaker.New("anchor:"+anchorBackend.Name(), cfg.Breaker)
	go runAnchorLoop(ctx, chain, anchorBackend, anchorBreaker)

	httpPort := getEnv("HTTP_PORT", "8080")
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(backend, pool, anchorBackend))
	srv := &http.Server{Addr: ":" + httpPort, Handler: mux}

	go func() {
		slog.Info("health endpoint listening", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server error: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining in-flight work")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("health server shutdown error: %v", err)
	}
	pool.Stop()
	slog.Info("vexd stopped")
}

// dbBackend is satisfied by both concrete storage backends: the full
// storage.Backend KV contract plus the DB() escape hatch the durable queue
// needs for its atomic dequeue.
type dbBackend interface {
	storage.Backend
	DB() *stdsql.DB
}

func openStorage(ctx context.Context, cfg *config.StorageConfig) (dbBackend, queue.Dialect, error) {
	switch cfg.Driver {
	case "postgres":
		b, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.DSN,
			Host:            cfg.Host,
			Port:            cfg.Port,
			User:            cfg.User,
			Password:        cfg.Password,
			Database:        cfg.Database,
			SSLMode:         cfg.SSLMode,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		return b, queue.DialectPostgres, nil
	case "sqlite":
		b, err := sqlite.New(ctx, sqlite.Config{
			Path:          cfg.SQLitePath,
			BusyTimeout:   cfg.BusyTimeout,
			EncryptionKey: cfg.EncryptionKey,
		})
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		return b, queue.DialectSQLite, nil
	default:
		return nil, "", fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openAnchor(cfg *config.AnchorConfig) (anchor.Backend, error) {
	switch cfg.Backend {
	case "file":
		return anchor.NewFileBackend(filepath.Base(cfg.FilePath), filepath.Dir(cfg.FilePath))
	case "git":
		return anchor.NewGitBackend(cfg.GitRepoPath, cfg.GitBranch), nil
	case "ethereum":
		return anchor.NewEthereumBackend(cfg.EthereumRPCURL, os.Getenv("ETHEREUM_FROM_ADDRESS")), nil
	case "celestia":
		return anchor.NewCelestiaBackend(cfg.CelestiaRPCURL, os.Getenv("CELESTIA_AUTH_TOKEN"), cfg.CelestiaNamespace), nil
	case "opentimestamps":
		return anchor.NewOpenTimestampsBackend(), nil
	default:
		return nil, fmt.Errorf("unknown anchor backend %q", cfg.Backend)
	}
}

// openLLMProvider wires a gRPC thinking-service provider when
// VEX_LLM_GRPC_ADDR is set, otherwise falls back to a deterministic mock so
// the runtime is exercisable without a live provider.
func openLLMProvider() llm.Provider {
	addr := os.Getenv("VEX_LLM_GRPC_ADDR")
	if addr == "" {
		slog.Warn("VEX_LLM_GRPC_ADDR not set, using mock LLM provider")
		return llm.NewMockProvider()
	}
	model := getEnv("VEX_LLM_MODEL", "default")
	provider, err := grpcprovider.New(addr, model)
	if err != nil {
		log.Fatalf("Failed to dial LLM provider at %s: %v", addr, err)
	}
	slog.Info("llm provider ready", "name", provider.Name(), "addr", addr)
	return provider
}

// runAnchorLoop periodically commits the audit chain's current Merkle root
// for the configured anchor tenant to the external anchor backend, guarded
// by a circuit breaker so a failing backend does not spin-retry forever.
func runAnchorLoop(ctx context.Context, chain *audit.Chain, backend anchor.Backend, cb *breaker.Breaker) {
	tenant := getEnv("VEX_ANCHOR_TENANT", "default")
	ticker := time.NewTicker(anchorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := cb.Call(func() error { return anchorOnce(ctx, chain, backend, tenant) })
			if err != nil {
				slog.Error("anchor submission failed", "backend", backend.Name(), "tenant", tenant, "error", err)
			}
		}
	}
}

func anchorOnce(ctx context.Context, chain *audit.Chain, backend anchor.Backend, tenant string) error {
	tree, err := chain.BuildMerkleTree(ctx, tenant)
	if err != nil {
		return fmt.Errorf("build merkle tree: %w", err)
	}
	if tree.Len() == 0 {
		return nil
	}

	receipt, err := backend.Anchor(ctx, tree.Root(), anchor.Metadata{
		TenantID:   tenant,
		EventCount: uint64(tree.Len()),
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("anchor root: %w", err)
	}
	slog.Info("anchored merkle root", "tenant", tenant, "backend", receipt.Backend, "anchor_id", receipt.AnchorID)
	return nil
}
