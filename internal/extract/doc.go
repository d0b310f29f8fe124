// Package extract turns fetched article HTML into crawler.ArticleRecord
// values.
//
// Every field is produced by its own strategy over a goquery document. A
// strategy that finds nothing (or fails) leaves its field empty and never
// stops the others. Selector cascades are ordered: category families take
// the first non-empty match, tag families are unioned.
package extract
