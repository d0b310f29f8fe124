package crawler

import (
	"context"
	"io"
	"time"
)

// ArticleStore persists a crawl batch.
type ArticleStore interface {
	UpsertBatch(ctx context.Context, records []ArticleRecord) (BatchResult, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Limiter delays requests to keep load on the target site bounded.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// PageParser turns fetched HTML into discovered links and, for article
// pages, an extracted record.
type PageParser interface {
	Parse(pageURL string, body []byte, article bool) (Page, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces crawl run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
