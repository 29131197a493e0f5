package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/itsneelabh/sushichat/ai"
	"github.com/itsneelabh/sushichat/catalog"
	"github.com/itsneelabh/sushichat/chat"
	"github.com/itsneelabh/sushichat/core"
	"github.com/itsneelabh/sushichat/kitchen"
	"github.com/itsneelabh/sushichat/order"
	"github.com/itsneelabh/sushichat/storage"
	"github.com/itsneelabh/sushichat/telemetry"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg       *core.Config
	logger    *core.ProductionLogger
	telemetry core.Telemetry
	seed      *catalog.Seed
	db        *storage.DB
	redis     *core.RedisClient
	router    *chat.Router
	service   *chat.Service

	closers []func(context.Context) error
}

type buildOptions struct {
	// stderrLogs keeps stdout free for protocols such as MCP stdio.
	stderrLogs bool
	// withModel builds the chat service and its language model client.
	withModel bool
}

func loadConfig(v *viper.Viper) (*core.Config, error) {
	return core.Load(v)
}

// loadConfigWithoutModel is used by commands that never call the language
// model, so a missing API key does not fail validation.
func loadConfigWithoutModel(v *viper.Viper) (*core.Config, error) {
	return core.Load(v, core.WithMockAI(true))
}

func newLogger(cfg *core.Config, stderr bool) (*core.ProductionLogger, error) {
	lc := cfg.Logging
	lc.Service = cfg.Name
	if stderr && (lc.Output == "" || lc.Output == "stdout") {
		lc.Output = "stderr"
	}
	return core.NewLogger(lc)
}

func buildApp(ctx context.Context, cfg *core.Config, opts buildOptions) (a *app, err error) {
	logger, err := newLogger(cfg, opts.stderrLogs)
	if err != nil {
		return nil, err
	}
	a = &app{cfg: cfg, logger: logger, telemetry: &core.NoOpTelemetry{}}
	a.closers = append(a.closers, func(context.Context) error { return logger.Close() })
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	if cfg.Telemetry.Enabled {
		provider, err := telemetry.NewProvider(ctx, cfg.Name, version, cfg.Telemetry, logger)
		if err != nil {
			return a, err
		}
		a.telemetry = provider
		a.closers = append(a.closers, provider.Shutdown)
	}

	a.seed, err = catalog.Load(cfg.Catalog.SeedFile)
	if err != nil {
		return a, err
	}

	c, store, repo, err := a.openCatalog(ctx)
	if err != nil {
		return a, err
	}

	quotes, sessions, err := a.openMemory(ctx)
	if err != nil {
		return a, err
	}

	guards, err := order.NewGuards(a.seed.Rules)
	if err != nil {
		return a, err
	}

	notifier, err := kitchen.New(ctx, cfg.Kitchen, logger)
	if err != nil {
		return a, err
	}
	a.closers = append(a.closers, notifier.Close)

	dispatcher := order.NewDispatcher(c, repo,
		order.WithGuards(guards),
		order.WithQuoteStore(order.NewQuoteStore(quotes, cfg.Quotes.TTL)),
		order.WithPublisher(kitchen.NewPublisher(notifier)),
		order.WithLogger(logger),
		order.WithTelemetry(a.telemetry),
	)
	a.router = chat.NewRouter(dispatcher, store,
		chat.WithRouterLogger(logger),
		chat.WithRouterTelemetry(a.telemetry),
	)

	if opts.withModel {
		client, err := ai.NewClient(cfg.AI, c.Names(), logger, a.telemetry)
		if err != nil {
			return a, err
		}
		a.service = chat.NewService(client, a.router,
			chat.WithSessions(chat.NewSessionStore(sessions, cfg.Sessions.TTL, cfg.Sessions.MaxTurns)),
			chat.WithServiceLogger(logger),
			chat.WithServiceTelemetry(a.telemetry),
		)
	}

	logger.Info("Application wired", map[string]interface{}{
		"operation":       "startup",
		"ai_provider":     cfg.AI.Provider,
		"storage_driver":  cfg.Storage.Driver,
		"redis":           a.redis != nil,
		"kitchen_backend": cfg.Kitchen.Backend,
		"items":           len(c.All()),
	})
	return a, nil
}

// openCatalog returns the catalog, store info and order repository for the
// configured storage driver.
func (a *app) openCatalog(ctx context.Context) (*catalog.Catalog, catalog.StoreInfo, order.Repository, error) {
	if a.cfg.Storage.Driver != "sqlite" {
		c, err := a.seed.Catalog()
		if err != nil {
			return nil, catalog.StoreInfo{}, nil, err
		}
		return c, a.seed.Store, order.NewMemoryRepository(c.All()), nil
	}

	db, err := storage.Open(a.cfg.Storage, a.logger)
	if err != nil {
		return nil, catalog.StoreInfo{}, nil, err
	}
	a.db = db
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	if a.cfg.Storage.SeedOnStart {
		if err := db.SeedCatalog(ctx, a.seed, storage.SeedOptions{}); err != nil {
			return nil, catalog.StoreInfo{}, nil, err
		}
	}
	c, err := db.LoadCatalog(ctx)
	if err != nil {
		return nil, catalog.StoreInfo{}, nil, err
	}
	store, err := db.LoadStore(ctx)
	if err != nil {
		return nil, catalog.StoreInfo{}, nil, err
	}
	return c, store, storage.NewOrderRepository(db), nil
}

// openMemory returns the stores for quotes and chat sessions: Redis when a
// URL is configured, otherwise process memory.
func (a *app) openMemory(ctx context.Context) (quotes, sessions core.Memory, err error) {
	if a.cfg.Redis.URL == "" {
		mem := core.NewMemoryStore()
		mem.SetLogger(core.ComponentLogger(a.logger, "memory"))
		mem.StartSweeper(ctx, time.Minute)
		return mem, mem, nil
	}

	rc, err := core.NewRedisClient(core.RedisClientOptions{
		RedisURL:  a.cfg.Redis.URL,
		DB:        a.cfg.Redis.DB,
		Namespace: a.cfg.Redis.Namespace,
		Logger:    core.ComponentLogger(a.logger, "redis"),
	})
	if err != nil {
		return nil, nil, err
	}
	a.redis = rc
	a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
	ns := a.cfg.Redis.Namespace
	return rc.WithNamespace(ns + ":quotes"), rc.WithNamespace(ns + ":sessions"), nil
}

func (a *app) healthChecks() []chat.HandlerOption {
	var checks []chat.HandlerOption
	if a.db != nil {
		checks = append(checks, chat.WithHealthCheck("database", func(ctx context.Context) (interface{}, error) {
			n, err := a.db.CountProducts(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]int64{"products": n}, nil
		}))
	}
	if a.redis != nil {
		checks = append(checks, chat.WithHealthCheck("redis", func(ctx context.Context) (interface{}, error) {
			return nil, a.redis.HealthCheck(ctx)
		}))
	}
	return checks
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
