package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

// DefaultTopWords is the length of the ranked frequent-word list.
const DefaultTopWords = 20

// Config tunes extraction.
type Config struct {
	// IntroMaxRunes cuts the content intro to this many runes plus "...".
	// Zero keeps the whole paragraph.
	IntroMaxRunes int `mapstructure:"intro_max_runes"`
	// TopWords is the number of frequent words kept.
	TopWords int `mapstructure:"top_words"`
	// ExtraStopWords are appended to the built-in stop-word list.
	ExtraStopWords []string `mapstructure:"extra_stop_words"`
	// DisableStopWords turns stop-word filtering off.
	DisableStopWords bool `mapstructure:"disable_stop_words"`
}

// Extractor implements crawler.PageParser.
type Extractor struct {
	cfg       Config
	stopWords map[string]struct{}
	logger    *zap.Logger
}

// New builds an Extractor.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.TopWords <= 0 {
		cfg.TopWords = DefaultTopWords
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var stop map[string]struct{}
	if !cfg.DisableStopWords {
		stop = StopWords(cfg.ExtraStopWords...)
	}
	return &Extractor{cfg: cfg, stopWords: stop, logger: logger}
}

// page carries the parsed document through the field strategies.
type page struct {
	doc  *goquery.Document
	base *url.URL
	raw  []byte

	readabilityDone bool
	readable        *readability.Article
}

// Parse implements crawler.PageParser. Links are collected from every page;
// the article record only when article is true.
func (e *Extractor) Parse(pageURL string, body []byte, article bool) (crawler.Page, error) {
	p, err := newPage(pageURL, body)
	if err != nil {
		return crawler.Page{}, err
	}
	out := crawler.Page{Links: discoverLinks(p.doc.Selection, p.base)}
	if article {
		rec := e.extract(p)
		out.Article = &rec
	}
	return out, nil
}

// Extract parses html fetched from pageURL into an article record. It fails
// only when the URL or the document cannot be parsed at all; missing fields
// are left empty.
func (e *Extractor) Extract(html, pageURL string) (*crawler.ArticleRecord, error) {
	p, err := newPage(pageURL, []byte(html))
	if err != nil {
		return nil, err
	}
	rec := e.extract(p)
	return &rec, nil
}

func newPage(pageURL string, body []byte) (*page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &page{doc: doc, base: base, raw: body}, nil
}

func (e *Extractor) extract(p *page) crawler.ArticleRecord {
	rec := crawler.ArticleRecord{URL: p.base.String()}
	if key, err := crawler.NormalizeURL(p.base.String()); err == nil {
		rec.URL = key
	}

	var content *goquery.Selection
	e.run("container", p, func() { content = e.contentContainer(p) })
	if content == nil {
		content = p.doc.Find("body").First()
	}

	e.run("title", p, func() { rec.Title = firstText(p.doc.Selection, titleSelectors) })
	e.run("post_date", p, func() { rec.PostDate = e.publishDate(p) })
	e.run("updated_date", p, func() { rec.UpdatedDate = modifiedDate(p) })
	e.run("category_path", p, func() { rec.CategoryPath = categoryPath(p.doc.Selection, p.base) })
	e.run("tags", p, func() { rec.Tags = tags(p.doc.Selection, p.base) })
	e.run("content_intro", p, func() { rec.ContentIntro = intro(content, e.cfg.IntroMaxRunes) })
	e.run("headings", p, func() { rec.Headings = headings(content) })
	e.run("book", p, func() {
		b := bookInfo(content)
		rec.BookTitle, rec.BookAuthor, rec.BookISBN, rec.BookASIN = b.Title, b.Author, b.ISBN, b.ASIN
	})
	e.run("word_count", p, func() { rec.WordCount = wordCount(content) })
	e.run("links", p, func() {
		rec.InternalLinks, rec.ExternalLinks, rec.BrokenLinks = contentLinks(content, p.base)
	})
	e.run("frequent_words", p, func() {
		rec.FrequentWords = FrequentWords(strings.Join(textNodes(content), "\n"), e.cfg.TopWords, e.stopWords)
	})
	return rec
}

// run isolates one field strategy so that a failure leaves only that field empty.
func (e *Extractor) run(field string, p *page, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("field extraction failed",
				zap.String("field", field),
				zap.String("url", p.base.String()),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}

// readableArticle runs the readability parser once per page.
func (p *page) readableArticle() *readability.Article {
	if p.readabilityDone {
		return p.readable
	}
	p.readabilityDone = true
	article, err := readability.FromReader(bytes.NewReader(p.raw), p.base)
	if err != nil {
		return nil
	}
	p.readable = &article
	return p.readable
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		var found string
		root.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = collapse(s.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}
