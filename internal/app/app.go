package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"solsniper/internal/config"
	"solsniper/internal/detector"
	"solsniper/internal/logger"
	"solsniper/internal/position"
	"solsniper/internal/pricefeed"
	"solsniper/internal/risk"
	"solsniper/internal/store"
	"solsniper/internal/store/audit"
	livehttp "solsniper/internal/transport/http/live"
)

// App owns the assembled components and their lifecycle.
type App struct {
	cfg      *config.Config
	feed     *pricefeed.Manager
	detector *detector.Detector
	manager  *position.Manager
	store    *store.Store
	audit    *audit.Log
	denylist *risk.Denylist
	httpSrv  *livehttp.Server
}

// NewApp builds the application from configuration without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts the feed, the detector and the HTTP surface, then blocks
// until the context is cancelled or a component fails. Shutdown drains
// open positions before closing the stores.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.feed.Start(ctx); err != nil {
		return fmt.Errorf("price feed: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.httpSrv.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		err := a.detector.Run(ctx)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("detector: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		a.shutdown()
		return nil
	})

	return group.Wait()
}

// Abort force-cancels in-flight exit attempts so a shutdown stuck on
// slow sells can terminate. Cancelled positions stay OPEN in the store.
func (a *App) Abort() {
	if a == nil || a.manager == nil {
		return
	}
	logger.Warnf("[APP] aborting in-flight exits")
	a.manager.Abort()
}

func (a *App) shutdown() {
	logger.Infof("[APP] shutting down")
	a.manager.CloseAll()
	a.manager.Stop()
	a.feed.Stop()
	if err := a.httpSrv.Shutdown(context.Background()); err != nil {
		logger.Warnf("[APP] http shutdown: %v", err)
	}
	if a.denylist != nil {
		a.denylist.Close()
	}
	if err := a.store.Close(); err != nil {
		logger.Warnf("[APP] store close: %v", err)
	}
	if err := a.audit.Close(); err != nil {
		logger.Warnf("[APP] audit close: %v", err)
	}
}
