package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkoivisto/bankdash/internal/cache"
	"github.com/mkoivisto/bankdash/internal/config"
	"github.com/mkoivisto/bankdash/internal/obp"
	"github.com/mkoivisto/bankdash/internal/session"
	bdsync "github.com/mkoivisto/bankdash/internal/sync"
)

// app bundles the wired object graph behind every subcommand: fetcher,
// session store, verifier, gateway client, cache, orchestrator, and the
// lifecycle controller on top.
type app struct {
	cfg        *config.Resolved
	logger     *slog.Logger
	store      *session.Store
	verifier   *obp.Verifier
	client     *obp.Client
	cache      cache.Store
	orch       *bdsync.Orchestrator
	controller *session.Controller

	closeCache func() error
}

// buildApp wires the full object graph from the resolved configuration.
// onProgress may be nil.
func buildApp(ctx context.Context, logger *slog.Logger, onProgress bdsync.ProgressFunc) (*app, error) {
	cfg := resolvedCfg

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		return nil, err
	}

	endpoints := endpointsFromConfig(cfg.Config.API)

	store := session.NewStore(cfg.DataDir, logger)
	persisted := session.NewFileCredential(cfg.DataDir, logger)
	verifier := obp.NewVerifier(fetcher, store, endpoints, persisted, logger)
	client := obp.NewClient(fetcher, store, verifier, endpoints, logger)

	resourceCache, closeCache := buildCache(ctx, cfg, logger)

	orch := bdsync.New(bdsync.Config{
		Gateway:    client,
		Cache:      resourceCache,
		State:      store,
		Logger:     logger,
		OnProgress: onProgress,
	})

	controller := session.NewController(session.ControllerConfig{
		Store:    store,
		Verifier: verifier,
		Client:   client,
		Cache:    resourceCache,
		Syncer:   orch,
		DataDir:  cfg.DataDir,
		Logger:   logger,
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		verifier:   verifier,
		client:     client,
		cache:      resourceCache,
		orch:       orch,
		controller: controller,
		closeCache: closeCache,
	}, nil
}

// Close releases resources held by the app (currently the cache database).
func (a *app) Close() {
	if err := a.closeCache(); err != nil {
		a.logger.Warn("closing cache failed", slog.String("error", err.Error()))
	}
}

// buildFetcher selects the transport per api.mode: "proxy" carries a cookie
// jar for http-only session cookies, "direct" is bearer-token only.
func buildFetcher(cfg *config.Resolved) (obp.Fetcher, error) {
	var (
		fetcher obp.Fetcher
		err     error
	)

	switch cfg.Config.API.Mode {
	case "direct":
		fetcher, err = obp.NewDirectFetcher(cfg.BaseURL, nil)
	default:
		fetcher, err = obp.NewProxyFetcher(cfg.BaseURL, cfg.Timeout)
	}

	if err != nil {
		return nil, fmt.Errorf("set api.base_url in %s or BANKDASH_API_URL: %w", cfg.ConfigPath, err)
	}

	return fetcher, nil
}

// buildCache opens the disk-backed cache when enabled, falling back to the
// in-memory cache when the database cannot be opened. A broken cache file
// should degrade freshness, not break the CLI.
func buildCache(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (cache.Store, func() error) {
	noop := func() error { return nil }

	if !cfg.Config.Cache.DiskEnabled || flagNoCacheDB {
		return cache.NewMemory(cfg.TTL), noop
	}

	db, err := cache.OpenDB(ctx, cfg.CachePath, cfg.TTL, logger)
	if err != nil {
		logger.Warn("opening cache database failed, using in-memory cache",
			slog.String("path", cfg.CachePath),
			slog.String("error", err.Error()),
		)

		return cache.NewMemory(cfg.TTL), noop
	}

	return db, db.Close
}

// endpointsFromConfig starts from the default route table and applies any
// per-path overrides from the config file.
func endpointsFromConfig(api config.APIConfig) obp.Endpoints {
	ep := obp.DefaultEndpoints()

	if api.BanksPath != "" {
		ep.Banks = api.BanksPath
	}

	if api.ProbePath != "" {
		ep.Probe = api.ProbePath
	}

	if api.RefreshPath != "" {
		ep.Refresh = api.RefreshPath
	}

	if api.LoginPath != "" {
		ep.Login = api.LoginPath
	}

	if api.LogoutPath != "" {
		ep.Logout = api.LogoutPath
	}

	return ep
}
