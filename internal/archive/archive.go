// Package archive selects the raw-page archive backend.
package archive

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/archive/gcs"
	"github.com/JakeFAU/article-crawler/internal/archive/local"
	"github.com/JakeFAU/article-crawler/internal/crawler"
)

// Backend names.
const (
	BackendNone  = "none"
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

// Config selects and configures the archive backend.
type Config struct {
	// Backend is one of none, local, or gcs. Empty means none.
	Backend string `mapstructure:"backend"`
	// Prefix is prepended to every object key.
	Prefix string       `mapstructure:"prefix"`
	Local  local.Config `mapstructure:"local"`
	GCS    gcs.Config   `mapstructure:"gcs"`
}

// Open builds the configured backend. A nil store means archiving is
// disabled. The returned close func is always non-nil.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (crawler.BlobStore, func() error, error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, noop, nil
	case BackendLocal:
		s, err := local.New(cfg.Local)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("raw page archive enabled", zap.String("backend", BackendLocal), zap.String("dir", cfg.Local.Dir))
		return s, noop, nil
	case BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("create storage client: %w", err)
		}
		s, err := gcs.New(client, cfg.GCS)
		if err == nil {
			err = s.CheckBucket(ctx)
		}
		if err != nil {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("close storage client", zap.Error(closeErr))
			}
			return nil, noop, err
		}
		logger.Info("raw page archive enabled", zap.String("backend", BackendGCS), zap.String("bucket", cfg.GCS.Bucket))
		return s, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
