package commands

import (
	"context"
	"fmt"

	"github.com/wonny/stratfolio/internal/margin"
	"github.com/wonny/stratfolio/internal/orchestrator"
	"github.com/wonny/stratfolio/pkg/config"
	"github.com/wonny/stratfolio/pkg/database"
	"github.com/wonny/stratfolio/pkg/httputil"
	"github.com/wonny/stratfolio/pkg/logger"
	"github.com/wonny/stratfolio/pkg/redis"
)

// app bundles the wired engine for one command invocation
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	provider *margin.CachedProvider // nil when offline
	orch     *orchestrator.Orchestrator
	closers  []func()
}

// Close releases store connections
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires config, logger, margin provider chain and orchestrator
// quiet=true 인 분석 커맨드는 로그를 stderr console 로 warn 이상만 출력
func newApp(ctx context.Context, quiet bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if quiet {
		cfg.LogFormat = "console"
		if !verbose {
			cfg.LogLevel = "warn"
		}
	}
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}

	var rates margin.RateProvider = margin.StaticProvider{}
	if !offline {
		provider, err := a.newRateProvider(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.provider = provider
		rates = provider
	}

	a.orch = orchestrator.NewFromConfig(cfg, rates, log)
	return a, nil
}

// newRateProvider builds scraping source + snapshot store
// Store 연결 실패는 치명적이지 않음 → MemoryStore
func (a *app) newRateProvider(ctx context.Context) (*margin.CachedProvider, error) {
	layout, err := margin.LayoutFor(a.cfg.Margin.Source)
	if err != nil {
		return nil, err
	}

	client := httputil.NewWithTimeout(a.cfg, a.log, a.cfg.Margin.FetchTimeout)
	if a.cfg.Margin.RequestsPerSec > 0 {
		client = client.WithRateLimit(a.cfg.Margin.RequestsPerSec, 1)
	}
	mlog := a.log.WithComponent("margin")
	source := margin.NewScrapingSource(client, layout, a.cfg.Margin.SourceURL, mlog)

	return margin.NewCachedProvider(source, a.newStore(ctx), a.cfg.Margin.CacheTTL, mlog), nil
}

func (a *app) newStore(ctx context.Context) margin.RateStore {
	if a.cfg.Database.Enabled() {
		db, err := database.New(ctx, a.cfg)
		if err == nil {
			_, err = db.Migrate(ctx)
			if err == nil {
				a.closers = append(a.closers, db.Close)
				a.log.Debug("Margin snapshots stored in Postgres")
				return margin.NewPostgresStore(db.Pool)
			}
			db.Close()
		}
		a.log.WithError(err).Warn("Postgres snapshot store unavailable, using memory")
	}

	if a.cfg.Redis.Enabled {
		client, err := redis.New(ctx, a.cfg)
		if err == nil {
			a.closers = append(a.closers, func() { client.Close() })
			a.log.Debug("Margin snapshots stored in Redis")
			return margin.NewRedisStore(client)
		}
		a.log.WithError(err).Warn("Redis snapshot store unavailable, using memory")
	}

	return margin.NewMemoryStore()
}

// requireProvider fails for commands that need the scraping source
func (a *app) requireProvider() (*margin.CachedProvider, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("margin source disabled by --offline")
	}
	return a.provider, nil
}
