package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "Book Reviews", want: "book-reviews"},
		{in: "  C++ & Go!  ", want: "c-go"},
		{in: "ミステリー", want: "ミステリー"},
		{in: "ＡＢＣ　１２３", want: "abc-123"},
		{in: "---", want: ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Slug(tc.in), tc.in)
	}
}

func TestChildSlugChainsParent(t *testing.T) {
	t.Parallel()

	require.Equal(t, "books", ChildSlug("", "Books"))
	require.Equal(t, "books-mystery", ChildSlug("books", "Mystery"))
	require.Equal(t, "film-mystery", ChildSlug("film", "Mystery"))
}

func TestUniqueSlugAppendsCounter(t *testing.T) {
	t.Parallel()

	used := map[string]bool{"go-lang": true, "go-lang-1": true}
	slug, err := UniqueSlug("go-lang", func(s string) (bool, error) { return used[s], nil })
	require.NoError(t, err)
	require.Equal(t, "go-lang-2", slug)

	slug, err = UniqueSlug("books", func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	require.Equal(t, "books", slug)

	_, err = UniqueSlug("books", func(string) (bool, error) { return false, errors.New("db down") })
	require.Error(t, err)
}

func TestParseLegacyCategory(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"Books", "Mystery"}, ParseLegacyCategory("Books > Mystery"))
	require.Equal(t, []string{"Books"}, ParseLegacyCategory(" Books > "))
	require.Nil(t, ParseLegacyCategory(""))
}
