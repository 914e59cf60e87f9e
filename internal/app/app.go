// Package app wires configuration, the tool catalog, the registry client and
// the HTTP handlers together.
package app

import (
	"context"
	"fmt"

	"github.com/bobmcallan/vire-tools/internal/client"
	"github.com/bobmcallan/vire-tools/internal/common"
	"github.com/bobmcallan/vire-tools/internal/config"
	"github.com/bobmcallan/vire-tools/internal/handlers"
	"github.com/bobmcallan/vire-tools/internal/mcp"
	"github.com/bobmcallan/vire-tools/internal/tools"
	"github.com/bobmcallan/vire-tools/internal/toolsync"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Catalog    []tools.Tool
	Registry   *client.RegistryClient
	Reconciler *toolsync.Reconciler
	Scheduler  *toolsync.Scheduler

	// HTTP handlers
	BannerHandler         *handlers.BannerHandler
	HealthHandler         *handlers.HealthHandler
	VersionHandler        *handlers.VersionHandler
	RegistryHealthHandler *handlers.RegistryHealthHandler
	SyncHandler           *handlers.SyncHandler
	OpenAPIHandler        *handlers.OpenAPIHandler
	ToolHandlers          []*handlers.ToolHandler
	MCPHandler            *mcp.Handler

	cancelSync context.CancelFunc
}

// New initializes the application with all dependencies. Nothing here talks
// to the registry; call StartSync once the HTTP server is listening.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Catalog: tools.Catalog(cfg.ToolsBaseURL()),
	}

	if !cfg.Registry.HasCredential() {
		logger.Warn().
			Str("registry_url", cfg.Registry.URL).
			Msg("no registry key configured, every tool will fail to sync")
	}

	a.Registry = client.NewRegistryClient(cfg.Registry.URL, cfg.Registry.Key, logger,
		client.WithTimeout(cfg.Registry.CallTimeout()),
		client.WithRateLimit(cfg.Registry.RequestsPerSecond),
	)
	a.Reconciler = toolsync.NewReconciler(a.Registry, logger, toolsync.Options{
		CallTimeout: cfg.Registry.CallTimeout(),
		Concurrency: cfg.Sync.Concurrency,
		DryRun:      cfg.Sync.DryRun,
	})
	a.Scheduler = toolsync.NewScheduler(a.Reconciler, a.Descriptors, logger)

	if err := a.initHandlers(); err != nil {
		return nil, err
	}

	logger.Info().
		Int("tools", len(a.Catalog)).
		Str("registry_url", a.Registry.BaseURL()).
		Bool("sync_enabled", cfg.Sync.Enabled).
		Msg("application initialization complete")

	return a, nil
}

// Descriptors returns the descriptors of the hosted tools.
func (a *App) Descriptors() []tools.Descriptor {
	return tools.Descriptors(a.Catalog)
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() error {
	a.BannerHandler = handlers.NewBannerHandler()
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.RegistryHealthHandler = handlers.NewRegistryHealthHandler(a.Logger, a.Config.Registry.URL)
	a.OpenAPIHandler = handlers.NewOpenAPIHandler(a.Config.ToolsBaseURL(), a.Descriptors())

	if a.Config.Sync.Enabled {
		a.SyncHandler = handlers.NewSyncHandler(a.Logger, a.Scheduler.Last, a.Scheduler.RunOnce)
	} else {
		a.SyncHandler = handlers.NewSyncHandler(a.Logger, nil, nil)
	}

	for _, t := range a.Catalog {
		h, err := handlers.NewToolHandler(t, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to build tool route: %w", err)
		}
		a.ToolHandlers = append(a.ToolHandlers, h)
	}

	a.MCPHandler = mcp.NewHandler(a.Catalog, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
	return nil
}

// StartSync runs the first sync in the background and enables scheduled
// resyncs. Sync failures are logged and never stop the server.
func (a *App) StartSync(ctx context.Context) error {
	if !a.Config.Sync.Enabled {
		a.Logger.Info().Msg("tool sync disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancelSync = cancel

	go func() {
		summary, ok := a.Scheduler.RunOnce(ctx)
		if ok && summary.HasFailures() {
			a.Logger.Warn().
				Int("failed", summary.Failed).
				Msg("some tools failed to sync, see /api/sync")
		}
	}()

	return a.Scheduler.Start(ctx, a.Config.Sync.Schedule)
}

// Close stops scheduled syncs and cancels any run in progress.
func (a *App) Close() error {
	if a.cancelSync != nil {
		a.cancelSync()
	}
	a.Scheduler.Stop()
	return nil
}
