package store

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slug reduces a category name to a URL-safe token. Letters and digits of
// any script survive NFKC folding and lowercasing; every other run of
// characters collapses to a single hyphen.
func Slug(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(norm.NFKC.String(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// ChildSlug is the base slug of a category named name under a parent with
// slug parentSlug: the parent's slug, a hyphen, and the name's own slug.
// Base slugs of different paths may coincide; UniqueSlug resolves that.
func ChildSlug(parentSlug, name string) string {
	s := Slug(name)
	if parentSlug == "" {
		return s
	}
	return parentSlug + "-" + s
}

// UniqueSlug returns base, or base with the first "-N" suffix (N from 1)
// that taken reports free. Categories are identified by name and parent, so
// two paths whose slugs coincide still get distinct rows.
func UniqueSlug(base string, taken func(slug string) (bool, error)) (string, error) {
	slug := base
	for n := 1; ; n++ {
		used, err := taken(slug)
		if err != nil {
			return "", err
		}
		if !used {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}

// CleanPath trims labels and drops those that cannot form a category.
func CleanPath(path []string) []string {
	out := make([]string, 0, len(path))
	for _, name := range path {
		name = strings.TrimSpace(name)
		if name == "" || Slug(name) == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// ParseLegacyCategory splits the flat "Parent > Child" form, root first.
func ParseLegacyCategory(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return CleanPath(strings.Split(raw, ">"))
}
