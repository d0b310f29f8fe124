package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/graph"
	"github.com/JakeFAU/article-crawler/internal/metrics"
	"github.com/JakeFAU/article-crawler/internal/store"
)

// DefaultRequestTimeout bounds each request when none is configured.
const DefaultRequestTimeout = 15 * time.Second

// MaxPage is the highest page /v1/articles serves. Its offset fits in an int32.
const MaxPage = math.MaxInt32 / store.DefaultPageSize

// Server wires HTTP handlers to the article reader.
type Server struct {
	router chi.Router
	repo   store.ArticleReader
	logger *zap.Logger
}

// ArticlePage is one page of the record browser.
type ArticlePage struct {
	Articles   []crawler.ArticleRecord `json:"articles"`
	Page       int                     `json:"page"`
	PerPage    int                     `json:"per_page"`
	Total      int                     `json:"total"`
	TotalPages int                     `json:"total_pages"`
}

// NewServer constructs a Server with middleware and routes.
func NewServer(repo store.ArticleReader, requestTimeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	s := &Server{repo: repo, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/graph", s.articleGraph)
		r.Get("/articles", s.listArticles)
		r.Get("/articles/{id}", s.getArticle)
		r.Get("/categories", s.listCategories)
		r.Get("/categories/graph", s.categoryGraph)
		r.Get("/stats", s.stats)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) articleGraph(w http.ResponseWriter, r *http.Request) {
	records, err := s.repo.ListArticles(r.Context(), store.ArticleQuery{})
	if err != nil {
		s.internalError(w, "list articles", err)
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, graph.Build(records, graph.Options{Category: category}))
}

func (s *Server) categoryGraph(w http.ResponseWriter, r *http.Request) {
	categories, err := s.repo.ListCategories(r.Context())
	if err != nil {
		s.internalError(w, "list categories", err)
		return
	}
	counts, err := s.repo.CategoryArticleCounts(r.Context())
	if err != nil {
		s.internalError(w, "count categories", err)
		return
	}
	writeJSON(w, http.StatusOK, graph.CategoryNetwork(categories, counts))
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	page := 1
	if raw := params.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxPage {
			writeError(w, http.StatusBadRequest, "page must be an integer between 1 and "+strconv.Itoa(MaxPage))
			return
		}
		page = n
	}
	hasBook := false
	if raw := params.Get("has_book"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "has_book must be a boolean")
			return
		}
		hasBook = b
	}
	q := store.ArticleQuery{
		Keyword:  params.Get("q"),
		Category: params.Get("category"),
		HasBook:  hasBook,
		Limit:    store.DefaultPageSize,
		Offset:   (page - 1) * store.DefaultPageSize,
	}
	total, err := s.repo.CountArticles(r.Context(), q)
	if err != nil {
		s.internalError(w, "count articles", err)
		return
	}
	articles, err := s.repo.ListArticles(r.Context(), q)
	if err != nil {
		s.internalError(w, "list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, ArticlePage{
		Articles:   articles,
		Page:       page,
		PerPage:    store.DefaultPageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(store.DefaultPageSize))),
	})
}

func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}
	rec, err := s.repo.GetArticle(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	if err != nil {
		s.internalError(w, "get article", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.repo.ListCategories(r.Context())
	if err != nil {
		s.internalError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.repo.Stats(r.Context())
	if err != nil {
		s.internalError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
