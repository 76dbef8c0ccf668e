package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	backend "github.com/redis/go-redis/v9"

	"github.com/caseflow/playbook"
	"github.com/caseflow/playbook/internal/config"
	"github.com/caseflow/playbook/internal/logging"
	"github.com/caseflow/playbook/pkg/adapters/cache"
	"github.com/caseflow/playbook/pkg/adapters/file"
	"github.com/caseflow/playbook/pkg/adapters/memory"
	redisadapter "github.com/caseflow/playbook/pkg/adapters/redis"
	"github.com/caseflow/playbook/pkg/adapters/sqlite"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/persistence/middleware"
	"github.com/caseflow/playbook/pkg/ports"
	"github.com/caseflow/playbook/pkg/schema"
)

// Runtime bundles the wired components commands work with. Close releases
// backend resources (database handles, redis clients) in reverse order.
type Runtime struct {
	Engine   *playbook.Engine
	Store    ports.SessionStore
	Provider ports.GraphProvider
	Config   *config.Config
	Logger   *slog.Logger

	closers []func() error
}

// Close releases backend resources held by the runtime.
func (r *Runtime) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildRuntime wires the session store, graph provider, persistence
// middleware, distributed locking, and recommendation synthesis from
// configuration. A nil logger falls back to the configured one. Extra
// lifecycle hooks (metrics, event streams) are merged into the engine in
// the order given.
func BuildRuntime(cfg *config.Config, logger *slog.Logger, extraHooks ...domain.LifecycleHooks) (*Runtime, error) {
	if logger == nil {
		logger = logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	}

	rt := &Runtime{Config: cfg, Logger: logger}

	store, locker, err := buildStore(cfg, rt)
	if err != nil {
		return nil, err
	}
	store, err = applyMiddleware(cfg, store)
	if err != nil {
		return nil, err
	}
	rt.Store = store

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	rt.Provider = provider

	catalog, err := buildCatalog(cfg)
	if err != nil {
		return nil, err
	}

	hooks := domain.LifecycleHooks{}
	for _, h := range extraHooks {
		hooks = hooks.Merge(h)
	}

	opts := []playbook.Option{
		playbook.WithLogger(logger),
		playbook.WithLifecycleHooks(hooks),
		playbook.WithRiskPolicy(playbook.RiskPolicy{
			LowFloor:      cfg.Risk.LowFloor,
			MediumFloor:   cfg.Risk.MediumFloor,
			FactorCeiling: cfg.Risk.FactorCeiling,
		}),
		playbook.WithActionCatalog(catalog),
	}
	if locker != nil {
		opts = append(opts, playbook.WithLocker(locker))
	}

	engine, err := playbook.New(store, provider, opts...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	rt.Engine = engine
	return rt, nil
}

// buildStore selects the session store backend. Redis also yields a
// distributed locker sharing the same client.
func buildStore(cfg *config.Config, rt *Runtime) (ports.SessionStore, ports.DistributedLocker, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil, nil

	case config.BackendFile:
		store, err := file.NewStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("file store at %s: %w", cfg.Store.Path, err)
		}
		return store, nil, nil

	case config.BackendSQLite:
		store, err := sqlite.NewStore(cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store at %s: %w", cfg.Store.DSN, err)
		}
		rt.closers = append(rt.closers, store.Close)
		return store, nil, nil

	case config.BackendRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		rt.closers = append(rt.closers, client.Close)
		store := redisadapter.NewFromClient(client,
			redisadapter.WithPrefix(cfg.Store.Redis.Prefix),
			redisadapter.WithTTL(cfg.Store.Redis.TTL),
		)
		locker := redisadapter.NewLocker(client, cfg.Store.Redis.Prefix)
		return store, locker, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// applyMiddleware layers encryption and PII scrubbing around the store.
// Scrubbing runs before encryption on writes, so stored ciphertext never
// carries raw identifiers. Key length and pattern syntax are already
// checked by config.Validate.
func applyMiddleware(cfg *config.Config, store ports.SessionStore) (ports.SessionStore, error) {
	var chain []middleware.Middleware

	if len(cfg.Security.PIIPatterns) > 0 {
		chain = append(chain, middleware.NewPIIMiddleware(cfg.Security.PIIPatterns))
	}

	if cfg.Security.EncryptionKey != "" {
		fallbacks := make([][]byte, 0, len(cfg.Security.FallbackKeys))
		for _, key := range cfg.Security.FallbackKeys {
			fallbacks = append(fallbacks, []byte(key))
		}
		chain = append(chain, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    []byte(cfg.Security.EncryptionKey),
			FallbackKeys: fallbacks,
		}))
	}

	if len(chain) == 0 {
		return store, nil
	}
	return middleware.Chain(store, chain...), nil
}

// buildProvider serves graphs from the playbook directory, wrapped in an
// LRU cache when configured.
func buildProvider(cfg *config.Config) (ports.GraphProvider, error) {
	var provider ports.GraphProvider = file.NewProvider(cfg.Playbooks.Dir)
	if cfg.Playbooks.CacheSize > 0 {
		cached, err := cache.NewProvider(provider, cfg.Playbooks.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("graph cache: %w", err)
		}
		provider = cached
	}
	return provider, nil
}

// buildCatalog merges terminal guidance from every playbook document in the
// directory, then overlays the standalone catalog file when configured, so
// shared guidance wins over per-playbook entries.
func buildCatalog(cfg *config.Config) (playbook.ActionCatalog, error) {
	catalog := playbook.ActionCatalog{}

	entries, err := os.ReadDir(cfg.Playbooks.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return catalog, nil
		}
		return catalog, fmt.Errorf("read playbook dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		doc, err := schema.ParseFile(filepath.Join(cfg.Playbooks.Dir, entry.Name()))
		if err != nil {
			return catalog, err
		}
		if doc.Catalog != nil {
			catalog = catalog.Merge(playbook.CatalogFromDocument(doc.Catalog))
		}
	}

	if path := strings.TrimSpace(cfg.Playbooks.Catalog); path != "" {
		doc, err := schema.ParseCatalogFile(path)
		if err != nil {
			return catalog, err
		}
		catalog = catalog.Merge(playbook.CatalogFromDocument(doc))
	}
	return catalog, nil
}
