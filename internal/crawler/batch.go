package crawler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Batch accumulates accepted records of one crawl run. Workers append to it
// concurrently.
type Batch struct {
	RunID     string
	Seed      string
	CrawledAt time.Time

	mu       sync.Mutex
	records  []ArticleRecord
	failed   int
	rejected int
}

// NewBatch creates an empty batch stamped with crawledAt.
func NewBatch(runID, seed string, crawledAt time.Time) *Batch {
	return &Batch{RunID: runID, Seed: seed, CrawledAt: crawledAt}
}

// Add stores an accepted record, stamping it with the run timestamp.
func (b *Batch) Add(rec ArticleRecord) {
	rec.CrawledAt = b.CrawledAt
	b.mu.Lock()
	b.records = append(b.records, rec)
	b.mu.Unlock()
}

// MarkFailed counts a failed fetch.
func (b *Batch) MarkFailed() {
	b.mu.Lock()
	b.failed++
	b.mu.Unlock()
}

// MarkRejected counts an article that failed the quality gate.
func (b *Batch) MarkRejected() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}

// Records returns the accepted records ordered by URL.
func (b *Batch) Records() []ArticleRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ArticleRecord, len(b.records))
	copy(out, b.records)
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// Counts returns the failed and rejected counters.
func (b *Batch) Counts() (failed, rejected int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed, b.rejected
}

// SystemClock implements Clock using time.Now in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator creates UUID v7 run IDs.
type UUIDGenerator struct{}

// NewID returns a UUID7 string.
func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}
