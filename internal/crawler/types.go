// Package crawler defines core types shared across subsystems.
package crawler

import (
	"net/http"
	"strings"
	"time"
)

// Heading is a sub-heading found inside an article body.
type Heading struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Link is an anchor discovered in an article body.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// WordCount is one entry of the ranked frequent-word list.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// ArticleRecord is the structured form of one article page. URL is the
// normalized identity key used for dedup and storage.
type ArticleRecord struct {
	ID            int64       `json:"id,omitempty" yaml:"id,omitempty"`
	URL           string      `json:"url" yaml:"url"`
	Title         string      `json:"title" yaml:"title"`
	PostDate      string      `json:"post_date" yaml:"post_date"`
	UpdatedDate   string      `json:"updated_date,omitempty" yaml:"updated_date,omitempty"`
	CategoryPath  []string    `json:"category_path" yaml:"category_path"`
	Tags          []string    `json:"tags" yaml:"tags"`
	ContentIntro  string      `json:"content_intro" yaml:"content_intro"`
	Headings      []Heading   `json:"headings" yaml:"headings"`
	BookTitle     string      `json:"book_title,omitempty" yaml:"book_title,omitempty"`
	BookAuthor    string      `json:"book_author,omitempty" yaml:"book_author,omitempty"`
	BookISBN      string      `json:"book_isbn,omitempty" yaml:"book_isbn,omitempty"`
	BookASIN      string      `json:"book_asin,omitempty" yaml:"book_asin,omitempty"`
	WordCount     int         `json:"word_count" yaml:"word_count"`
	InternalLinks []Link      `json:"internal_links" yaml:"internal_links"`
	ExternalLinks []Link      `json:"external_links" yaml:"external_links"`
	FrequentWords []WordCount `json:"frequent_words" yaml:"frequent_words"`
	BrokenLinks   []string    `json:"broken_links" yaml:"broken_links"`
	CrawledAt     time.Time   `json:"crawled_at" yaml:"crawled_at"`
}

// Acceptable reports whether the record passes the quality gate: both the
// title and the publish date must be present.
func (r ArticleRecord) Acceptable() bool {
	return strings.TrimSpace(r.Title) != "" && strings.TrimSpace(r.PostDate) != ""
}

// Category returns the leaf label of the category path, or "" when the path is empty.
func (r ArticleRecord) Category() string {
	if len(r.CategoryPath) == 0 {
		return ""
	}
	return r.CategoryPath[len(r.CategoryPath)-1]
}

// HasBook reports whether any book metadata was extracted.
func (r ArticleRecord) HasBook() bool {
	return r.BookTitle != "" || r.BookISBN != "" || r.BookASIN != ""
}

// Category is a node of the normalized category tree.
type Category struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	ParentID  *int64    `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Slug      string    `json:"slug" yaml:"slug"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Page is the outcome of parsing one fetched document.
type Page struct {
	// Links holds every resolvable absolute http(s) anchor on the page.
	Links []string
	// Article is set when the page was parsed as an article. It may still
	// fail the quality gate.
	Article *ArticleRecord
}

// BatchResult summarizes one persisted crawl batch.
type BatchResult struct {
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
}

// Result summarizes one crawl run.
type Result struct {
	RunID        string          `json:"run_id"`
	Seed         string          `json:"seed"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	PagesVisited int             `json:"pages_visited"`
	PagesFailed  int             `json:"pages_failed"`
	Rejected     int             `json:"rejected"`
	Records      []ArticleRecord `json:"-"`
}

// CrawlCompleted is published once a crawl batch has been persisted.
type CrawlCompleted struct {
	RunID        string    `json:"run_id"`
	Seed         string    `json:"seed"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	PagesVisited int       `json:"pages_visited"`
	Articles     int       `json:"articles"`
	Saved        int       `json:"saved"`
	Failed       int       `json:"failed"`
}
