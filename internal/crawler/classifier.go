package crawler

import (
	"net/url"
	"strings"
	"unicode"
)

// DefaultExcludedTokens are path segments that never appear in article URLs.
var DefaultExcludedTokens = []string{
	"privacy-policy", "profile", "contact", "page", "author", "category",
	"tag", "date", "feed", "wp-content", "wp-admin", "wp-includes",
	"comments", "trackback", "login", "register", "admin", "search", "archive",
}

// DefaultMinDepth is the minimum number of path segments of an article URL.
const DefaultMinDepth = 2

// Classifier decides from the URL alone whether a page is an article.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	excluded map[string]struct{}
	minDepth int
}

// NewClassifier builds a classifier. A minDepth below 1 falls back to
// DefaultMinDepth; extra tokens are added to DefaultExcludedTokens.
func NewClassifier(minDepth int, extraTokens ...string) *Classifier {
	if minDepth < 1 {
		minDepth = DefaultMinDepth
	}
	excluded := make(map[string]struct{}, len(DefaultExcludedTokens)+len(extraTokens))
	for _, tok := range append(append([]string{}, DefaultExcludedTokens...), extraTokens...) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" {
			excluded[tok] = struct{}{}
		}
	}
	return &Classifier{excluded: excluded, minDepth: minDepth}
}

var defaultClassifier = NewClassifier(DefaultMinDepth)

// IsArticle applies the default classifier.
func IsArticle(rawURL string) bool {
	return defaultClassifier.IsArticle(rawURL)
}

// IsArticle reports whether rawURL looks like an article page: no excluded
// path token, at least minDepth segments, and a digit in the last segment.
func (c *Classifier) IsArticle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	segments := pathSegments(u)
	if len(segments) < c.minDepth {
		return false
	}
	for _, seg := range segments {
		if _, bad := c.excluded[strings.ToLower(seg)]; bad {
			return false
		}
	}
	return strings.IndexFunc(segments[len(segments)-1], unicode.IsDigit) >= 0
}
