package crawler

import (
	"context"
	"sync"
)

// Frontier owns the visited set, the pending queue and the page budget of a
// crawl run. A URL is marked visited and counted when it is handed out by
// Next, before any network call, so concurrent workers never fetch the same
// normalized URL twice.
type Frontier struct {
	mu       sync.Mutex
	visited  map[string]struct{}
	queued   map[string]struct{}
	pending  []string
	maxPages int
	count    int
	inFlight int
	wake     chan struct{}
}

// NewFrontier creates a frontier that hands out at most maxPages URLs.
// A maxPages of 0 or less means no budget.
func NewFrontier(maxPages int) *Frontier {
	return &Frontier{
		visited:  make(map[string]struct{}),
		queued:   make(map[string]struct{}),
		maxPages: maxPages,
		wake:     make(chan struct{}),
	}
}

// Enqueue adds rawURL to the pending queue. It returns false when the URL is
// malformed, already visited or pending, or when the budget is exhausted.
func (f *Frontier) Enqueue(rawURL string) bool {
	key, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exhaustedLocked() {
		return false
	}
	if _, ok := f.visited[key]; ok {
		return false
	}
	if _, ok := f.queued[key]; ok {
		return false
	}
	f.queued[key] = struct{}{}
	f.pending = append(f.pending, key)
	f.broadcastLocked()
	return true
}

// Next blocks until a URL is available and claims it for the caller, who
// must call Done when finished with it. It returns false once the budget is
// exhausted, the queue has drained with nothing in flight, or ctx ends. A
// cancelled ctx never claims a URL, even when one is pending.
func (f *Frontier) Next(ctx context.Context) (string, bool) {
	for {
		if ctx.Err() != nil {
			return "", false
		}
		f.mu.Lock()
		if f.exhaustedLocked() {
			f.mu.Unlock()
			return "", false
		}
		if len(f.pending) > 0 {
			next := f.pending[0]
			f.pending[0] = ""
			f.pending = f.pending[1:]
			delete(f.queued, next)
			f.visited[next] = struct{}{}
			f.count++
			f.inFlight++
			if f.exhaustedLocked() {
				f.broadcastLocked()
			}
			f.mu.Unlock()
			return next, true
		}
		if f.inFlight == 0 {
			f.broadcastLocked()
			f.mu.Unlock()
			return "", false
		}
		wake := f.wake
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-wake:
		}
	}
}

// Done releases a URL claimed by Next.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight > 0 {
		f.inFlight--
	}
	f.broadcastLocked()
}

// Visited reports whether the normalized form of rawURL has been handed out.
func (f *Frontier) Visited(rawURL string) bool {
	key, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[key]
	return ok
}

// Count returns how many URLs have been handed out.
func (f *Frontier) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Pending returns the number of queued URLs.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *Frontier) exhaustedLocked() bool {
	return f.maxPages > 0 && f.count >= f.maxPages
}

func (f *Frontier) broadcastLocked() {
	close(f.wake)
	f.wake = make(chan struct{})
}
