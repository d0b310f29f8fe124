package crawler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrontierDeduplicatesNormalizedForms(t *testing.T) {
	t.Parallel()

	f := NewFrontier(10)
	require.True(t, f.Enqueue("https://site.example/a/1"))
	require.False(t, f.Enqueue("https://site.example/a/1/"))
	require.False(t, f.Enqueue("https://SITE.example/a/1?utm=x"))
	require.Equal(t, 1, f.Pending())

	next, ok := f.Next(context.Background())
	require.True(t, ok)
	require.Equal(t, "https://site.example/a/1", next)
	require.True(t, f.Visited("https://site.example/a/1#top"))

	require.False(t, f.Enqueue("https://site.example/a/1"), "visited URLs are never re-queued")
	f.Done()
}

func TestFrontierDropsMalformed(t *testing.T) {
	t.Parallel()

	f := NewFrontier(10)
	require.False(t, f.Enqueue("/relative"))
	require.False(t, f.Enqueue("http://%zz"))
	require.Zero(t, f.Pending())
}

func TestFrontierBudget(t *testing.T) {
	t.Parallel()

	f := NewFrontier(2)
	require.True(t, f.Enqueue("https://site.example/1"))
	require.True(t, f.Enqueue("https://site.example/2"))
	require.True(t, f.Enqueue("https://site.example/3"))

	ctx := context.Background()
	_, ok := f.Next(ctx)
	require.True(t, ok)
	_, ok = f.Next(ctx)
	require.True(t, ok)
	_, ok = f.Next(ctx)
	require.False(t, ok, "budget of two pages is spent")
	require.False(t, f.Enqueue("https://site.example/4"))
	require.Equal(t, 2, f.Count())
}

func TestFrontierWaitsForInFlightWork(t *testing.T) {
	t.Parallel()

	f := NewFrontier(0)
	require.True(t, f.Enqueue("https://site.example/root"))
	ctx := context.Background()

	first, ok := f.Next(ctx)
	require.True(t, ok)
	require.Equal(t, "https://site.example/root", first)

	got := make(chan string, 1)
	go func() {
		next, ok := f.Next(ctx)
		if ok {
			got <- next
		}
		close(got)
	}()

	time.Sleep(20 * time.Millisecond)
	require.True(t, f.Enqueue("https://site.example/child"))
	f.Done()

	select {
	case next := <-got:
		require.Equal(t, "https://site.example/child", next)
	case <-time.After(time.Second):
		t.Fatal("waiting worker was not woken by enqueue")
	}
	f.Done()

	_, ok = f.Next(ctx)
	require.False(t, ok, "drained frontier reports completion")
}

func TestFrontierNextHonorsContext(t *testing.T) {
	t.Parallel()

	f := NewFrontier(0)
	require.True(t, f.Enqueue("https://site.example/root"))
	_, ok := f.Next(context.Background())
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok = f.Next(ctx)
	require.False(t, ok)
}

func TestFrontierCancelledContextClaimsNothing(t *testing.T) {
	t.Parallel()

	f := NewFrontier(0)
	require.True(t, f.Enqueue("https://site.example/root"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := f.Next(ctx)
	require.False(t, ok)

	// The pending URL is still there for a live caller.
	next, ok := f.Next(context.Background())
	require.True(t, ok)
	require.Equal(t, "https://site.example/root", next)
}

func TestFrontierConcurrentClaimsAreUnique(t *testing.T) {
	t.Parallel()

	f := NewFrontier(0)
	for i := 0; i < 50; i++ {
		f.Enqueue("https://site.example/p/" + string(rune('a'+i%26)) + string(rune('a'+i/26)))
	}

	var (
		mu   sync.Mutex
		seen = map[string]int{}
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				next, ok := f.Next(context.Background())
				if !ok {
					return
				}
				mu.Lock()
				seen[next]++
				mu.Unlock()
				f.Enqueue(next)
				f.Done()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, 50)
	for u, n := range seen {
		require.Equal(t, 1, n, u)
	}
}
