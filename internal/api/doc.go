// Package api hosts the HTTP server, middleware, and read-only handlers over
// the article database. Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/graph for the article link graph, optionally filtered by category.
//   - GET /v1/articles and /v1/articles/{id} for the record browser.
//   - GET /v1/categories, /v1/categories/graph and /v1/stats.
package api
