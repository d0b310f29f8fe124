package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

// contentLinks sorts every anchor of the content into internal, external and
// broken links. Internal URLs are normalized so that they match record keys.
func contentLinks(content *goquery.Selection, base *url.URL) (internal, external []crawler.Link, broken []string) {
	content.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if skipHref(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			broken = append(broken, href)
			return
		}
		abs := base.ResolveReference(ref)
		text := anchorText(s)

		if isHTTP(abs) && crawler.SameSite(abs.String(), base.String()) {
			key, err := crawler.NormalizeURL(abs.String())
			if err != nil {
				broken = append(broken, href)
				return
			}
			if text == "" {
				text = key
			}
			internal = append(internal, crawler.Link{URL: key, Text: text})
			return
		}
		if text == "" {
			text = abs.String()
		}
		external = append(external, crawler.Link{URL: abs.String(), Text: text})
	})
	return internal, external, broken
}

// discoverLinks returns every distinct absolute http(s) URL linked from the page.
func discoverLinks(root *goquery.Selection, base *url.URL) []string {
	var out []string
	seen := map[string]struct{}{}
	root.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if skipHref(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if !isHTTP(abs) {
			return
		}
		abs.Fragment = ""
		u := abs.String()
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	})
	return out
}

func skipHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(href), "javascript:")
}

func isHTTP(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func anchorText(s *goquery.Selection) string {
	if text := collapse(s.Text()); text != "" {
		return text
	}
	return collapse(s.Find("img[alt]").First().AttrOr("alt", ""))
}
