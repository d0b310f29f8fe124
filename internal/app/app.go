// Package app wires configuration into long-lived services: the article
// repository, the crawl pipeline, the page archive and crawl notifications.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/archive"
	"github.com/JakeFAU/article-crawler/internal/config"
	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/dispatcher"
	"github.com/JakeFAU/article-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/article-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/article-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/article-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/article-crawler/internal/storage/postgres"
	"github.com/JakeFAU/article-crawler/internal/storage/sqlite"
	"github.com/JakeFAU/article-crawler/internal/store"
	"github.com/JakeFAU/article-crawler/internal/telemetry"
	"github.com/JakeFAU/article-crawler/internal/worker"
)

// ErrBackfillUnsupported is returned when the configured store cannot read legacy tables.
var ErrBackfillUnsupported = errors.New("backfill requires the sqlite driver")

const telemetryFlushTimeout = 5 * time.Second

var tracer = otel.Tracer("github.com/JakeFAU/article-crawler/internal/app")

// initTelemetry is swapped in tests.
var initTelemetry = telemetry.Init

// Deps are the collaborators an App runs on. Nil optional fields disable
// the matching feature.
type Deps struct {
	Repo      store.Repository
	Fetcher   crawler.Fetcher
	Limiter   crawler.Limiter
	Archive   crawler.BlobStore
	Publisher crawler.Publisher
	Clock     crawler.Clock
	IDs       crawler.IDGenerator
	// Closers run in reverse order on Close, after the repository.
	Closers []func() error
}

// App holds the shared services for one process.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	deps   Deps
}

// Report describes one finished crawl run.
type Report struct {
	crawler.Result
	crawler.BatchResult
	MessageID string `json:"message_id,omitempty"`
}

// New opens every configured backend. It fails fast when any of them
// cannot be reached; backends opened before the failure are closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := Deps{
		Fetcher: collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.Crawler.UserAgent,
			RespectRobots: cfg.Crawler.RespectRobots,
			Timeout:       cfg.Crawler.Timeout,
		}),
		Limiter: ratelimit.New(ratelimit.Config{Delay: cfg.Crawler.Delay}),
	}
	a := &App{cfg: cfg, logger: logger, deps: deps}

	shutdown, err := initTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.deps.Closers = append(a.deps.Closers, func() error {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		return shutdown(flushCtx)
	})

	repo, err := OpenRepository(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.deps.Repo = repo

	blobs, closeArchive, err := archive.Open(ctx, cfg.Archive, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open archive: %w", err)
	}
	a.deps.Archive = blobs
	a.deps.Closers = append(a.deps.Closers, closeArchive)

	if cfg.PubSub.Topic != "" {
		pub, err := pubsub.Open(ctx, cfg.PubSub, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open pubsub: %w", err)
		}
		a.deps.Publisher = pub
		a.deps.Closers = append(a.deps.Closers, pub.Close)
	}
	logger.Info("application services initialized",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("archive", cfg.Archive.Backend),
		zap.Bool("notifications", a.deps.Publisher != nil),
	)
	return a, nil
}

// NewWithDeps builds an App over caller-supplied collaborators.
func NewWithDeps(cfg config.Config, logger *zap.Logger, deps Deps) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, logger: logger, deps: deps}
}

// OpenRepository opens the configured article database.
func OpenRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Repository, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.Storage.SQLite, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		pg := cfg.Storage.Postgres
		s, err := postgres.NewArticleStore(ctx, postgres.ArticleStoreConfig{
			DSN:             pg.DSN,
			MaxConns:        pg.MaxConns,
			MinConns:        pg.MinConns,
			MaxConnLifetime: pg.MaxConnLifetime,
		}, logger)
		if err != nil {
			return nil, err
		}
		if pg.Migrate {
			if err := s.Migrate(ctx); err != nil {
				_ = s.Close()
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Repository exposes the article database.
func (a *App) Repository() store.Repository {
	return a.deps.Repo
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Crawl runs one crawl from the configured seed, persists the accepted
// records in one transaction, and publishes a CrawlCompleted notification.
// A failed notification is logged and does not fail the run.
func (a *App) Crawl(ctx context.Context) (report Report, err error) {
	if a.deps.Repo == nil || a.deps.Fetcher == nil {
		return Report{}, fmt.Errorf("app is missing its repository or fetcher")
	}
	ctx, span := tracer.Start(ctx, "crawl", trace.WithAttributes(attribute.String("crawl.seed", a.cfg.Crawler.Seed)))
	defer func() {
		span.SetAttributes(
			attribute.String("crawl.run_id", report.RunID),
			attribute.Int("crawl.pages_visited", report.PagesVisited),
			attribute.Int("crawl.saved", report.Saved),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	res, err := a.dispatcher().Run(ctx, a.cfg.Crawler.Seed)
	if err != nil {
		return Report{}, fmt.Errorf("crawl: %w", err)
	}
	report = Report{Result: res}

	// The batch is persisted even when ctx was cancelled mid-crawl.
	persistCtx := context.WithoutCancel(ctx)
	saved, err := a.deps.Repo.UpsertBatch(persistCtx, res.Records)
	if err != nil {
		return report, fmt.Errorf("persist batch: %w", err)
	}
	report.BatchResult = saved
	a.logger.Info("batch persisted",
		zap.String("run_id", res.RunID),
		zap.Int("saved", saved.Saved),
		zap.Int("failed", saved.Failed),
	)

	if a.deps.Publisher != nil {
		evt := crawler.CrawlCompleted{
			RunID:        res.RunID,
			Seed:         res.Seed,
			StartedAt:    res.StartedAt,
			FinishedAt:   res.FinishedAt,
			PagesVisited: res.PagesVisited,
			Articles:     len(res.Records),
			Saved:        saved.Saved,
			Failed:       saved.Failed,
		}
		id, err := a.deps.Publisher.Publish(persistCtx, evt)
		if err != nil {
			a.logger.Warn("publish crawl notification failed", zap.String("run_id", res.RunID), zap.Error(err))
		} else {
			report.MessageID = id
		}
	}
	return report, nil
}

func (a *App) dispatcher() *dispatcher.Dispatcher {
	crawlCfg := a.cfg.Crawler
	minDepth := crawlCfg.MinDepth
	if minDepth <= 0 {
		minDepth = crawler.DefaultMinDepth
	}
	classifier := crawler.NewClassifier(minDepth, crawlCfg.ExcludedTokens...)
	parser := extract.New(a.cfg.Extract, a.logger)
	workerCfg := worker.Config{
		Headers:       collyfetcher.DefaultHeaders(),
		ArchivePrefix: a.cfg.Archive.Prefix,
	}
	n := crawlCfg.Concurrency
	if n <= 0 {
		n = 1
	}
	pool := make([]*worker.Worker, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, worker.New(i, a.deps.Fetcher, a.deps.Limiter, parser, classifier, a.deps.Archive, workerCfg, a.logger))
	}
	return dispatcher.New(pool, crawlCfg.MaxPages, a.deps.Clock, a.deps.IDs, a.logger)
}

type backfiller interface {
	Backfill(ctx context.Context, table string) (crawler.BatchResult, error)
}

// Backfill imports a legacy flat article table into the normalized schema.
func (a *App) Backfill(ctx context.Context, table string) (crawler.BatchResult, error) {
	b, ok := a.deps.Repo.(backfiller)
	if !ok {
		return crawler.BatchResult{}, ErrBackfillUnsupported
	}
	return b.Backfill(ctx, table)
}

// Close shuts down every service. It returns the joined close errors.
func (a *App) Close() error {
	var errs []error
	if a.deps.Repo != nil {
		if err := a.deps.Repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close repository: %w", err))
		}
	}
	for i := len(a.deps.Closers) - 1; i >= 0; i-- {
		if err := a.deps.Closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		a.logger.Warn("shutdown finished with errors", zap.Error(errors.Join(errs...)))
	}
	return errors.Join(errs...)
}
