package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindISBN(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want string
	}{
		{"labeled 13 with hyphens", "ISBN-13: 978-4-06-293445-5", "9784062934455"},
		{"labeled full-width colon", "ISBN：4101010013 文庫", "4101010013"},
		{"labeled 10 with X", "ISBN 400310101X", "400310101X"},
		{"bare 13", "定価 700円 9784101010014 新潮文庫", "9784101010014"},
		{"bare 10", "code 406293445X here", "406293445X"},
		{"none", "no book here 12345", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, findISBN(tc.text))
		})
	}
}

func TestFindASIN(t *testing.T) {
	t.Parallel()

	require.Equal(t, "B012345678", findASIN("ASIN：B012345678", nil))
	require.Equal(t, "4101010013", findASIN("", []string{"https://www.amazon.co.jp/some-title/dp/4101010013/ref=x"}))
	require.Equal(t, "B0ABCDEFGH", findASIN("", []string{"https://amazon.com/gp/product/B0ABCDEFGH"}))
	require.Empty(t, findASIN("asin lowercase b012345678", []string{"https://example.com/dp/B012345678"}))
}

func TestSplitAuthor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, title, author string
	}{
		{"『銀河鉄道の夜』 著者：宮沢賢治", "銀河鉄道の夜", "宮沢賢治"},
		{"坊っちゃん 著 夏目漱石", "坊っちゃん", "夏目漱石"},
		{"Dune Author: Frank Herbert", "Dune", "Frank Herbert"},
		{"著者紹介", "", ""},
		{"Overview", "", ""},
	}
	for _, tc := range cases {
		title, author := splitAuthor(tc.in)
		require.Equal(t, tc.title, title, tc.in)
		require.Equal(t, tc.author, author, tc.in)
	}
}
