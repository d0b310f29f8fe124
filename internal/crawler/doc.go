// Package crawler implements the single-site crawl: URL normalization, the
// article classifier, the deduplicating frontier, and the bounded worker pool
// that feeds fetched pages to the extractor.
package crawler
