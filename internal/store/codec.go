package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

// EncodeJSON serializes a composite field for a text column. Nil slices are
// stored as "[]".
func EncodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode composite field: %w", err)
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

// decodeStrict unmarshals raw into v, rejecting unknown object keys and
// trailing data.
func decodeStrict(raw string, v any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}

func looksJSON(raw string, open byte) bool {
	raw = strings.TrimSpace(raw)
	return raw != "" && raw[0] == open
}

// DecodeStrings reads a JSON string array, falling back to comma-separated text.
func DecodeStrings(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if looksJSON(raw, '[') {
		var out []string
		if err := decodeStrict(raw, &out); err != nil {
			return nil, fmt.Errorf("decode string list: %w", err)
		}
		return out, nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// DecodeLinks reads a JSON array of {url, text} objects. A legacy "title"
// key is accepted and ignored; entries without a URL are dropped.
func DecodeLinks(raw string) ([]crawler.Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !looksJSON(raw, '[') {
		return nil, fmt.Errorf("decode links: not a JSON array")
	}
	var stored []struct {
		URL   string `json:"url"`
		Text  string `json:"text"`
		Title string `json:"title"`
	}
	if err := decodeStrict(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	out := make([]crawler.Link, 0, len(stored))
	for _, l := range stored {
		if strings.TrimSpace(l.URL) == "" {
			continue
		}
		out = append(out, crawler.Link{URL: l.URL, Text: l.Text})
	}
	return out, nil
}

// DecodeHeadings reads a JSON heading array, falling back to "h2: text" lines.
func DecodeHeadings(raw string) ([]crawler.Heading, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if looksJSON(raw, '[') {
		var out []crawler.Heading
		if err := decodeStrict(raw, &out); err != nil {
			return nil, fmt.Errorf("decode headings: %w", err)
		}
		return out, nil
	}
	var out []crawler.Heading
	for _, line := range strings.Split(raw, "\n") {
		level, text, ok := strings.Cut(strings.TrimSpace(line), ":")
		level = strings.ToLower(strings.TrimSpace(level))
		if !ok || len(level) != 2 || level[0] != 'h' {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, crawler.Heading{Level: level, Text: text})
		}
	}
	return out, nil
}

// DecodeFrequentWords reads the ranked word list. Legacy forms are a JSON
// object of word to count (re-ranked by count, then word) and a
// comma-separated word list (counts unknown, stored as 0).
func DecodeFrequentWords(raw string) ([]crawler.WordCount, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return nil, nil
	case looksJSON(raw, '['):
		var out []crawler.WordCount
		if err := decodeStrict(raw, &out); err != nil {
			return nil, fmt.Errorf("decode frequent words: %w", err)
		}
		return out, nil
	case looksJSON(raw, '{'):
		var counts map[string]int
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		if err := dec.Decode(&counts); err != nil {
			return nil, fmt.Errorf("decode frequent words: %w", err)
		}
		out := make([]crawler.WordCount, 0, len(counts))
		for w, c := range counts {
			out = append(out, crawler.WordCount{Word: w, Count: c})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Count != out[j].Count {
				return out[i].Count > out[j].Count
			}
			return out[i].Word < out[j].Word
		})
		return out, nil
	default:
		var out []crawler.WordCount
		for _, part := range strings.Split(raw, ",") {
			word, count, _ := strings.Cut(strings.TrimSpace(part), ":")
			word = strings.TrimSpace(word)
			if word == "" {
				continue
			}
			n, _ := strconv.Atoi(strings.TrimSpace(count))
			out = append(out, crawler.WordCount{Word: word, Count: n})
		}
		return out, nil
	}
}
