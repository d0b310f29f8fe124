package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Book is embedded book metadata found in an article.
type Book struct {
	Title  string
	Author string
	ISBN   string
	ASIN   string
}

// authorSeparators split "title 著 author" style captions. Longer forms come
// first so that "著者：" wins over "著".
var authorSeparators = []string{"著者：", "著：", "著者:", "著:", " 著 ", "著", "Author:", "author:"}

var (
	isbnLabeled = regexp.MustCompile(`ISBN(?:-?1[03])?\s*[:：]?\s*(978[-\s]?(?:\d[-\s]?){9}\d|(?:\d[-\s]?){9}[\dX])`)
	isbn13      = regexp.MustCompile(`\b978-?(?:\d-?){9}\d\b`)
	isbn10      = regexp.MustCompile(`\b\d{9}[\dX]\b`)
	asinLabeled = regexp.MustCompile(`ASIN\s*[:：]?\s*([A-Z0-9]{10})`)
	asinURL     = regexp.MustCompile(`amazon\.[a-z.]+/(?:[^/\s]+/)?(?:dp|gp/product)/([A-Z0-9]{10})`)
)

func bookInfo(content *goquery.Selection) Book {
	var b Book
	b.Title, b.Author = bookTitleAuthor(content)
	text := strings.Join(textNodes(content), "\n")
	b.ISBN = findISBN(text)

	var hrefs []string
	content.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		hrefs = append(hrefs, s.AttrOr("href", ""))
	})
	b.ASIN = findASIN(text, hrefs)
	return b
}

func bookTitleAuthor(content *goquery.Selection) (string, string) {
	var title, author string
	content.Find("strong, b, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title, author = splitAuthor(collapse(s.Text()))
		return title == ""
	})
	return title, author
}

func splitAuthor(text string) (string, string) {
	for _, sep := range authorSeparators {
		idx := strings.Index(text, sep)
		if idx <= 0 {
			continue
		}
		title := strings.Trim(strings.TrimSpace(text[:idx]), "『』「」")
		author := strings.TrimSpace(text[idx+len(sep):])
		if title != "" && author != "" {
			return title, author
		}
	}
	return "", ""
}

// findISBN prefers a labeled number, then a bare 978-prefixed ISBN-13, then
// a bare ISBN-10. Hyphens and spaces are stripped.
func findISBN(text string) string {
	if m := isbnLabeled.FindStringSubmatch(text); m != nil {
		if isbn := cleanISBN(m[1]); isbn != "" {
			return isbn
		}
	}
	if m := isbn13.FindString(text); m != "" {
		return cleanISBN(m)
	}
	if m := isbn10.FindString(text); m != "" {
		return cleanISBN(m)
	}
	return ""
}

func cleanISBN(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, raw)
	if len(cleaned) != 10 && len(cleaned) != 13 {
		return ""
	}
	return cleaned
}

func findASIN(text string, hrefs []string) string {
	if m := asinLabeled.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := asinURL.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	for _, href := range hrefs {
		if m := asinURL.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	return ""
}
