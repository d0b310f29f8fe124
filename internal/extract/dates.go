package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

var (
	publishedMeta = []string{
		`meta[property="article:published_time"]`,
		`meta[itemprop="datePublished"]`,
		`meta[name="date"]`,
	}
	publishedRendered = []string{
		"time.entry-date",
		"time.published",
		".entry-date",
		".post-date",
		".published",
		"time[datetime]",
	}
	modifiedMeta = []string{
		`meta[property="article:modified_time"]`,
		`meta[itemprop="dateModified"]`,
	}
	modifiedRendered = []string{
		"time.updated",
		".updated",
		".date-modified",
	}
)

// publishDate prefers structured metadata, then a rendered date element,
// then the readability guess.
func (e *Extractor) publishDate(p *page) string {
	if d := metaContent(p.doc.Selection, publishedMeta); d != "" {
		return crawler.NormalizeDay(d)
	}
	if d := jsonLDString(p.doc.Selection, "datePublished"); d != "" {
		return crawler.NormalizeDay(d)
	}
	if d := renderedDate(p.doc.Selection, publishedRendered); d != "" {
		return crawler.NormalizeDay(d)
	}
	if article := p.readableArticle(); article != nil && article.PublishedTime != nil {
		return article.PublishedTime.Format("2006-01-02")
	}
	return ""
}

func modifiedDate(p *page) string {
	if d := metaContent(p.doc.Selection, modifiedMeta); d != "" {
		return crawler.NormalizeDay(d)
	}
	if d := jsonLDString(p.doc.Selection, "dateModified"); d != "" {
		return crawler.NormalizeDay(d)
	}
	return crawler.NormalizeDay(renderedDate(p.doc.Selection, modifiedRendered))
}

func metaContent(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if v := strings.TrimSpace(root.Find(sel).First().AttrOr("content", "")); v != "" {
			return v
		}
	}
	return ""
}

// renderedDate reads the datetime attribute of the first matching element,
// falling back to its text.
func renderedDate(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		s := root.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if v := strings.TrimSpace(s.AttrOr("datetime", "")); v != "" {
			return v
		}
		if v := collapse(s.Text()); v != "" {
			return v
		}
	}
	return ""
}

// jsonLDString returns the first string value stored under key in any
// JSON-LD block of the page, searching nested objects and @graph arrays.
func jsonLDString(root *goquery.Selection, key string) string {
	var found string
	root.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		found = findString(data, key)
		return found == ""
	})
	return found
}

func findString(v any, key string) string {
	switch t := v.(type) {
	case map[string]any:
		if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		for _, child := range t {
			if s := findString(child, key); s != "" {
				return s
			}
		}
	case []any:
		for _, child := range t {
			if s := findString(child, key); s != "" {
				return s
			}
		}
	}
	return ""
}
