package gcs_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/article-crawler/internal/archive/gcs"
)

func newTestStore(t *testing.T, handler http.Handler) *gcs.Store {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	s, err := gcs.New(client, gcs.Config{Bucket: "pages"})
	require.NoError(t, err)
	return s
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		name string
		body string
	)
	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		name = r.URL.Query().Get("name")
		body = string(data)
		mu.Unlock()
		fmt.Fprintln(w, `{"name":"raw/run-1/abc.html","bucket":"pages"}`)
	}))

	uri, err := s.PutObject(context.Background(), "raw/run-1/abc.html", "text/html", strings.NewReader("<p>page</p>"))
	require.NoError(t, err)
	require.Equal(t, "gs://pages/raw/run-1/abc.html", uri)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "raw/run-1/abc.html", name)
	require.Contains(t, body, "<p>page</p>")
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := s.PutObject(context.Background(), "raw/x.html", "text/html", strings.NewReader("x"))
	require.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := gcs.New(nil, gcs.Config{Bucket: "pages"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	_, err = gcs.New(client, gcs.Config{})
	require.Error(t, err)

	_, err = gcs.New(client, gcs.Config{Bucket: "pages"})
	require.NoError(t, err)
}
