package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var categoryFamilies = []string{
	".post-categories a",
	".cat-links a",
	".entry-category a",
	".article-category a",
	".category a",
	".breadcrumb a",
}

var tagFamilies = []string{
	".tags-links a",
	".tag-links a",
	".entry-tags a",
	".post-tags a",
	".article-tags a",
	".tags a",
	`[rel~="tag"]`,
	".meta-tags a",
	".tag",
}

var placeholderCategories = map[string]struct{}{
	"home":  {},
	"top":   {},
	"index": {},
	"トップ":   {},
	"ホーム":   {},
	"一覧":    {},
}

// categoryPath returns the labels of the first selector family that yields
// any, or labels derived from the URL path when none does.
func categoryPath(root *goquery.Selection, base *url.URL) []string {
	for _, sel := range categoryFamilies {
		var labels []string
		seen := map[string]struct{}{}
		root.Find(sel).Each(func(_ int, s *goquery.Selection) {
			labels = appendCategory(labels, seen, collapse(s.Text()))
		})
		if len(labels) > 0 {
			return labels
		}
	}
	return pathCategories(base)
}

// pathCategories derives labels from every path segment but the last.
func pathCategories(base *url.URL) []string {
	if base == nil {
		return nil
	}
	segments := splitPath(base.EscapedPath())
	if len(segments) < 2 {
		return nil
	}
	var labels []string
	seen := map[string]struct{}{}
	for _, seg := range segments[:len(segments)-1] {
		label := unescapeSegment(seg)
		label = strings.TrimSpace(strings.ReplaceAll(label, "-", " "))
		labels = appendCategory(labels, seen, label)
	}
	return labels
}

func appendCategory(labels []string, seen map[string]struct{}, label string) []string {
	if label == "" {
		return labels
	}
	if _, skip := placeholderCategories[strings.ToLower(label)]; skip {
		return labels
	}
	if _, dup := seen[label]; dup {
		return labels
	}
	seen[label] = struct{}{}
	return append(labels, label)
}

// tags unions every tag family with the segment following "/tag/" in any
// anchor href. Deduplication is case-sensitive and keeps first-seen order.
func tags(root *goquery.Selection, base *url.URL) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(tag string) {
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	for _, sel := range tagFamilies {
		root.Find(sel).Each(func(_ int, s *goquery.Selection) {
			add(collapse(s.Text()))
		})
	}
	root.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		add(tagFromHref(s.AttrOr("href", ""), base))
	})
	return out
}

func tagFromHref(href string, base *url.URL) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	segments := splitPath(ref.EscapedPath())
	for i := 0; i < len(segments)-1; i++ {
		if strings.EqualFold(segments[i], "tag") {
			return strings.TrimSpace(unescapeSegment(segments[i+1]))
		}
	}
	return ""
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func unescapeSegment(seg string) string {
	if v, err := url.PathUnescape(seg); err == nil {
		return v
	}
	return seg
}
