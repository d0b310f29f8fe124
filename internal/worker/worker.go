// Package worker implements the per-page crawl pipeline: wait, fetch,
// classify, parse, enqueue discovered links, and collect accepted articles.
package worker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	// Headers are sent with every request.
	Headers http.Header
	// ArchivePrefix is prepended to archived object paths.
	ArchivePrefix string
	// ContentType is recorded on archived objects.
	ContentType string
}

// Worker pulls URLs from a Frontier until it reports completion.
type Worker struct {
	id         int
	fetcher    crawler.Fetcher
	limiter    crawler.Limiter
	parser     crawler.PageParser
	classifier *crawler.Classifier
	archive    crawler.BlobStore
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker. limiter and archive may be nil.
func New(
	id int,
	fetcher crawler.Fetcher,
	limiter crawler.Limiter,
	parser crawler.PageParser,
	classifier *crawler.Classifier,
	archive crawler.BlobStore,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = crawler.NewClassifier(crawler.DefaultMinDepth)
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	return &Worker{
		id:         id,
		fetcher:    fetcher,
		limiter:    limiter,
		parser:     parser,
		classifier: classifier,
		archive:    archive,
		cfg:        cfg,
		logger:     logger.With(zap.Int("worker", id)),
	}
}

// Run blocks, processing frontier URLs until the frontier is drained, the
// budget is spent, or ctx ends.
func (w *Worker) Run(ctx context.Context, frontier *crawler.Frontier, batch *crawler.Batch) {
	for {
		url, ok := frontier.Next(ctx)
		if !ok {
			return
		}
		w.process(ctx, url, frontier, batch)
		frontier.Done()
	}
}

func (w *Worker) process(ctx context.Context, url string, frontier *crawler.Frontier, batch *crawler.Batch) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx, url); err != nil {
			w.logger.Debug("rate limit wait aborted", zap.String("url", url), zap.Error(err))
			batch.MarkFailed()
			return
		}
	}

	resp, err := w.fetch(ctx, url)
	if err != nil {
		w.logger.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		batch.MarkFailed()
		return
	}

	isArticle := w.classifier.IsArticle(url)
	page, err := w.parser.Parse(url, resp.Body, isArticle)
	if err != nil {
		w.logger.Warn("parse failed", zap.String("url", url), zap.Error(err))
		return
	}

	discovered := 0
	for _, link := range page.Links {
		if !crawler.SameSite(link, batch.Seed) {
			continue
		}
		if frontier.Enqueue(link) {
			discovered++
		}
	}
	w.logger.Debug("page processed",
		zap.String("url", url),
		zap.Bool("article", isArticle),
		zap.Int("links", len(page.Links)),
		zap.Int("enqueued", discovered),
	)

	if page.Article == nil {
		return
	}
	rec := *page.Article
	rec.URL = url
	if !rec.Acceptable() {
		metrics.ObserveArticle("rejected")
		batch.MarkRejected()
		w.logger.Info("article rejected by quality gate",
			zap.String("url", url),
			zap.Bool("has_title", rec.Title != ""),
			zap.Bool("has_post_date", rec.PostDate != ""),
		)
		return
	}
	metrics.ObserveArticle("accepted")
	w.archiveBody(ctx, url, batch.RunID, resp.Body)
	batch.Add(rec)
	w.logger.Info("article extracted", zap.String("url", url), zap.String("title", rec.Title))
}

func (w *Worker) fetch(ctx context.Context, url string) (crawler.FetchResponse, error) {
	metrics.IncFetchesInFlight()
	defer metrics.DecFetchesInFlight()

	start := time.Now()
	resp, err := w.fetcher.Fetch(ctx, crawler.FetchRequest{URL: url, Headers: w.cfg.Headers})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveFetch(url, outcome, time.Since(start))
	return resp, err
}

func (w *Worker) archiveBody(ctx context.Context, url, runID string, body []byte) {
	if w.archive == nil || len(body) == 0 {
		return
	}
	sum := sha256.Sum256([]byte(url))
	objectPath := path.Join(w.cfg.ArchivePrefix, runID, hex.EncodeToString(sum[:])+".html")
	uri, err := w.archive.PutObject(ctx, objectPath, w.cfg.ContentType, bytes.NewReader(body))
	if err != nil {
		w.logger.Warn("archive page failed", zap.String("url", url), zap.Error(err))
		return
	}
	w.logger.Debug("page archived", zap.String("url", url), zap.String("uri", uri))
}
