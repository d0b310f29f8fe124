// Package store declares the read and write contracts of the article
// database, the stored encoding of composite fields, and category slugs.
package store
