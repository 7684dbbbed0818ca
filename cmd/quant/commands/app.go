package commands

import (
	"context"
	"fmt"

	"github.com/wonny/vnquant/internal/contracts"
	"github.com/wonny/vnquant/internal/external/cafef"
	"github.com/wonny/vnquant/internal/external/demo"
	"github.com/wonny/vnquant/internal/external/fallback"
	"github.com/wonny/vnquant/internal/external/vci"
	"github.com/wonny/vnquant/internal/external/yahoo"
	"github.com/wonny/vnquant/internal/s0_data"
	"github.com/wonny/vnquant/internal/s0_data/collector"
	"github.com/wonny/vnquant/internal/s0_data/quality"
	"github.com/wonny/vnquant/internal/s1_universe"
	"github.com/wonny/vnquant/internal/selection"
	"github.com/wonny/vnquant/internal/strategyconfig"
	"github.com/wonny/vnquant/pkg/config"
	"github.com/wonny/vnquant/pkg/database"
	"github.com/wonny/vnquant/pkg/httputil"
	"github.com/wonny/vnquant/pkg/logger"
	"github.com/wonny/vnquant/pkg/redis"
)

// app holds the wired dependencies shared by every command
type app struct {
	cfg      *config.Config
	strategy *strategyconfig.Config
	log      *logger.Logger

	pg     *database.DB // DATABASE_URL 미설정 시 nil
	sqlite *database.SQLite
	redis  *redis.Client
	cache  *redis.Cache

	series contracts.SeriesFetcher
	ratios contracts.RatiosFetcher
	lister contracts.SymbolLister

	data      *s0_data.DataCache
	universe  *s1_universe.Builder
	collector *collector.Collector
	gate      *quality.QualityGate
	scanner   *selection.Scanner

	// PostgreSQL 전용 (nil 가능)
	universeRepo *s1_universe.Repository
	reportRepo   *selection.Repository
}

// newApp loads configuration and wires providers, cache and scanner
// ⭐ SSOT: 의존성 조립은 여기서만
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if strategyFile != "" {
		cfg.StrategyPath = strategyFile
	}

	a := &app{cfg: cfg, log: logger.New(cfg)}

	a.strategy, err = strategyconfig.LoadOrDefault(cfg.StrategyPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	if cfg.StrategyPath == "" {
		// 전략 파일이 없으면 환경변수가 스캔 설정을 결정
		a.strategy.Scan.Workers = cfg.Scan.Workers
		a.strategy.Scan.RatePerSec = cfg.Scan.RatePerSec
		a.strategy.Scan.MinBars = cfg.Scan.MinBars
		a.strategy.Universe.MaxSymbols = cfg.Scan.MaxSymbols
	}
	for _, w := range strategyconfig.Warn(a.strategy) {
		a.log.WithFields(map[string]interface{}{
			"code":    w.Code,
			"message": w.Message,
		}).Warn("Strategy warning")
	}

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.wireProviders()
	if err := a.wireCache(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.wireDomain()

	return a, nil
}

func (a *app) connect(ctx context.Context) error {
	rc, err := redis.New(ctx, a.cfg)
	if err != nil {
		// Redis는 선택 사항
		a.log.WithError(err).Warn("Redis unavailable, caching disabled")
		rc = redis.Disabled()
	}
	a.redis = rc
	a.cache = redis.NewCache(rc, "vnquant")

	if a.cfg.Database.URL != "" {
		db, err := database.New(ctx, a.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.pg = db
	}
	return nil
}

func (a *app) wireProviders() {
	p := a.cfg.Providers
	limiter := redis.NewRateLimiter(a.redis, "vnquant")
	demoSource := demo.NewSource()

	if demoOnly {
		a.series, a.ratios, a.lister = demoSource, demoSource, demoSource
		return
	}

	vciClient := vci.NewClient(
		httputil.New(a.cfg, a.log).WithRateLimiter(limiter, redis.VCIRateLimit),
		p.VCIBaseURL, a.log)
	yahooClient := yahoo.NewClient(
		httputil.New(a.cfg, a.log).WithRateLimiter(limiter, redis.YahooRateLimit),
		p.YahooBaseURL, a.log)
	cafefClient := cafef.NewClient(
		httputil.New(a.cfg, a.log).WithRateLimiter(limiter, redis.CafeFRateLimit),
		p.CafeFBaseURL, a.log)

	series := []fallback.Named[contracts.SeriesFetcher]{
		{Name: "vci", Source: vciClient},
		{Name: "yahoo", Source: yahooClient},
	}
	ratios := []fallback.Named[contracts.RatiosFetcher]{
		{Name: "cafef", Source: cafefClient},
	}
	listers := []fallback.Named[contracts.SymbolLister]{
		{Name: "cafef", Source: cafefClient},
	}
	if p.DemoFallback {
		series = append(series, fallback.Named[contracts.SeriesFetcher]{Name: "demo", Source: demoSource})
		ratios = append(ratios, fallback.Named[contracts.RatiosFetcher]{Name: "demo", Source: demoSource})
		listers = append(listers, fallback.Named[contracts.SymbolLister]{Name: "demo", Source: demoSource})
	}

	a.series = fallback.NewSeriesChain(a.log, series...)
	a.ratios = fallback.NewRatiosChain(a.log, ratios...)
	a.lister = fallback.NewListerChain(a.log, listers...)
}

func (a *app) wireCache(ctx context.Context) error {
	var repo contracts.SeriesRepository
	switch a.cfg.Cache.Backend {
	case "postgres":
		repo = s0_data.NewPriceRepository(a.pg.Pool)
	default:
		db, err := database.OpenSQLite(a.cfg.Cache.SQLitePath)
		if err != nil {
			return err
		}
		a.sqlite = db
		repo = s0_data.NewSQLiteRepository(db)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("cache schema: %w", err)
	}

	a.data = s0_data.NewDataCache(repo, a.series, s0_data.CacheConfig{
		InitialDays:   a.cfg.Cache.InitialDays,
		RetentionDays: a.cfg.Cache.RetentionDays,
	}, a.log)

	if a.pg != nil {
		a.universeRepo = s1_universe.NewRepository(a.pg.Pool)
		a.reportRepo = selection.NewRepository(a.pg.Pool)
		if err := a.universeRepo.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := a.reportRepo.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) wireDomain() {
	u := a.strategy.Universe
	a.universe = s1_universe.NewBuilder(a.lister, s1_universe.Config{
		Exchanges:       u.Exchanges,
		Exclude:         u.Exclude,
		MaxSymbols:      u.MaxSymbols,
		CommonStockOnly: u.CommonStockOnly,
	}, a.log)

	a.collector = collector.NewCollector(a.data, a.log)
	a.gate = quality.NewQualityGate(a.data, quality.DefaultConfig())

	s := a.strategy.Scan
	a.scanner = selection.NewScanner(
		a.data,
		s0_data.NewRatiosCache(a.ratios, a.cache, a.log),
		a.universe,
		selection.Config{Workers: s.Workers, RatePerSec: s.RatePerSec, MinBars: s.MinBars},
		a.log,
	).WithEvaluationCache(a.cache)
}

// Close releases connections
func (a *app) Close() {
	if a.sqlite != nil {
		a.sqlite.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
