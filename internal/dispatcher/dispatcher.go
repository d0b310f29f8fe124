// Package dispatcher runs one crawl: it seeds a frontier and fans its URLs
// out to a fixed pool of workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/worker"
)

// ErrNoWorkers is returned when a dispatcher has an empty pool.
var ErrNoWorkers = errors.New("dispatcher has no workers")

// Dispatcher fans frontier URLs out to a pool of workers.
type Dispatcher struct {
	workers  []*worker.Worker
	maxPages int
	clock    crawler.Clock
	ids      crawler.IDGenerator
	logger   *zap.Logger
}

// New creates a Dispatcher. The pool size bounds the number of fetches in flight.
func New(workers []*worker.Worker, maxPages int, clock crawler.Clock, ids crawler.IDGenerator, logger *zap.Logger) *Dispatcher {
	if clock == nil {
		clock = crawler.SystemClock{}
	}
	if ids == nil {
		ids = crawler.UUIDGenerator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		workers:  workers,
		maxPages: maxPages,
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// Run crawls from seed until the frontier drains or the page budget is
// spent, then returns the accepted records. Fetch and parse failures never
// fail the run; only an invalid seed or an empty pool does.
func (d *Dispatcher) Run(ctx context.Context, seed string) (crawler.Result, error) {
	if len(d.workers) == 0 {
		return crawler.Result{}, ErrNoWorkers
	}
	normalizedSeed, err := crawler.NormalizeURL(seed)
	if err != nil {
		return crawler.Result{}, fmt.Errorf("seed url: %w", err)
	}
	runID, err := d.ids.NewID()
	if err != nil {
		return crawler.Result{}, fmt.Errorf("run id: %w", err)
	}

	started := d.clock.Now()
	batch := crawler.NewBatch(runID, normalizedSeed, started)
	frontier := crawler.NewFrontier(d.maxPages)
	frontier.Enqueue(normalizedSeed)

	d.logger.Info("crawl started",
		zap.String("run_id", runID),
		zap.String("seed", normalizedSeed),
		zap.Int("max_pages", d.maxPages),
		zap.Int("workers", len(d.workers)),
	)

	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx, frontier, batch)
		}(w)
	}
	wg.Wait()

	failed, rejected := batch.Counts()
	result := crawler.Result{
		RunID:        runID,
		Seed:         normalizedSeed,
		StartedAt:    started,
		FinishedAt:   d.clock.Now(),
		PagesVisited: frontier.Count(),
		PagesFailed:  failed,
		Rejected:     rejected,
		Records:      batch.Records(),
	}
	if ctx.Err() != nil {
		d.logger.Warn("crawl interrupted", zap.String("run_id", runID), zap.Error(ctx.Err()))
	}
	d.logger.Info("crawl finished",
		zap.String("run_id", runID),
		zap.Int("pages_visited", result.PagesVisited),
		zap.Int("pages_failed", result.PagesFailed),
		zap.Int("articles", len(result.Records)),
		zap.Int("rejected", result.Rejected),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}
