package extract

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

// FrequentWords ranks the tokens of text by descending count, breaking ties
// by first occurrence, and returns at most k entries (all when k <= 0).
// Punctuation and symbols are treated as whitespace, tokens shorter than two
// runes are dropped, and so is any token whose lowercase form is in stop.
// A nil stop set disables stop-word filtering.
func FrequentWords(text string, k int, stop map[string]struct{}) []crawler.WordCount {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, text)

	counts := make(map[string]int)
	var order []string
	for _, tok := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		if stop != nil {
			if _, skip := stop[strings.ToLower(tok)]; skip {
				continue
			}
		}
		if _, seen := counts[tok]; !seen {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if k > 0 && len(order) > k {
		order = order[:k]
	}

	out := make([]crawler.WordCount, 0, len(order))
	for _, w := range order {
		out = append(out, crawler.WordCount{Word: w, Count: counts[w]})
	}
	return out
}

// StopWords returns the built-in stop-word set plus extra, lowercased.
func StopWords(extra ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(defaultStopWords)+len(extra))
	for _, w := range defaultStopWords {
		set[w] = struct{}{}
	}
	for _, w := range extra {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

var defaultStopWords = []string{
	// Japanese demonstratives and function words.
	"これ", "それ", "あれ", "この", "その", "あの", "ここ", "そこ", "です", "ます",
	"した", "して", "する", "ある", "いる", "なる", "こと", "もの", "ため", "よう",
	"から", "まで", "など", "また", "および",
	// English.
	"the", "and", "for", "are", "but", "not", "you", "all", "any", "can",
	"her", "was", "one", "our", "out", "his", "has", "had", "him", "how",
	"its", "who", "did", "get", "may", "use", "she", "too", "of", "to",
	"in", "is", "it", "on", "at", "as", "be", "by", "or", "an", "if", "no",
	"so", "we", "do", "up", "my", "me", "he", "us", "am",
	"this", "that", "with", "from", "have", "they", "will", "what", "when",
	"your", "which", "their", "there", "were", "been", "would", "could",
	"should", "about", "into", "than", "then", "them", "these", "those",
	"also", "just", "only", "over", "such", "some", "more", "most", "very",
	// Site chrome.
	"click", "menu", "home", "share", "tweet",
}
