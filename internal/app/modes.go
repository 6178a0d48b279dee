package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantary/forecastbot/internal/analysis"
	"github.com/quantary/forecastbot/internal/server"
	"github.com/quantary/forecastbot/internal/server/handler"
	"github.com/quantary/forecastbot/internal/server/ws"
	"github.com/quantary/forecastbot/internal/worker"
)

// FullMode runs the refresh and resolution loops together with the
// HTTP API and websocket hub.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	holder := analysis.NewHolder()
	svc := a.newAnalysisService(deps, holder)

	a.startWorkers(ctx, g, deps, svc)
	a.startHTTPServer(ctx, g, deps, holder)

	return g.Wait()
}

// WorkerMode runs the refresh and resolution loops without the HTTP
// tier. Snapshots reach readers through the shared Redis cache.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)

	holder := analysis.NewHolder()
	svc := a.newAnalysisService(deps, holder)

	a.startWorkers(ctx, g, deps, svc)

	return g.Wait()
}

// APIMode serves the HTTP API and websocket hub only. The analysis
// handler reads snapshots from the shared cache; a worker instance is
// expected to keep them fresh.
func (a *App) APIMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting api mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startHTTPServer(ctx, g, deps, analysis.NewHolder())

	return g.Wait()
}

// OnceMode performs a single analysis refresh, writes the snapshot to
// stdout as JSON, and exits.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting once mode")

	holder := analysis.NewHolder()
	svc := a.newAnalysisService(deps, holder)

	snap, err := svc.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("app: refresh: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("app: encode snapshot: %w", err)
	}
	return nil
}

func (a *App) newAnalysisService(deps *Dependencies, holder *analysis.Holder) *analysis.Service {
	return analysis.NewService(analysis.Deps{
		Asset:     a.cfg.Asset.Symbol,
		History:   deps.History,
		Orch:      deps.Orchestrator,
		Holder:    holder,
		Cache:     deps.AnalysisCache,
		Prices:    deps.PriceCache,
		Bus:       deps.SignalBus,
		Sentiment: deps.Sentiment,
		Orderbook: deps.Orderbook,
	}, a.logger)
}

func (a *App) startWorkers(ctx context.Context, g *errgroup.Group, deps *Dependencies, svc *analysis.Service) {
	refresher := worker.NewRefresher(
		svc, deps.Tracker, a.cfg.Asset.Symbol,
		a.cfg.Analysis.RefreshInterval.Duration, a.logger,
	)
	g.Go(func() error {
		return refresher.Run(ctx)
	})

	if a.cfg.Tracker.Enabled {
		resolver := worker.NewResolver(
			deps.Tracker, deps.LockManager, deps.SignalBus,
			a.cfg.Tracker.SweepInterval.Duration, a.logger,
		)
		g.Go(func() error {
			return resolver.Run(ctx)
		})
	}

	if deps.Archiver != nil {
		retention := time.Duration(a.cfg.Tracker.ArchiveRetentionDays) * 24 * time.Hour
		sweep := worker.NewArchiveSweep(
			deps.Archiver, retention,
			a.cfg.Tracker.ArchiveInterval.Duration, a.logger,
		)
		g.Go(func() error {
			return sweep.Run(ctx)
		})
	}
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, holder *analysis.Holder) {
	if !a.cfg.Server.Enabled {
		return
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(holder),
		Analysis:    handler.NewAnalysisHandler(a.cfg.Asset.Symbol, holder, deps.AnalysisCache, a.logger),
		Predictions: handler.NewPredictionHandler(a.cfg.Asset.Symbol, deps.Tracker, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
