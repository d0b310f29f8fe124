package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDay(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"2023-05-01T10:00:00+09:00", "2023-05-01"},
		{"2023-05-01", "2023-05-01"},
		{" 2023年5月1日 ", "2023-05-01"},
		{"2023/5/1", "2023-05-01"},
		{"2023.12.24", "2023-12-24"},
		{"2023-12-31T23:30:00-05:00", "2023-12-31"},
		{"", ""},
		{"sometime last spring", "sometime last spring"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizeDay(tc.in), tc.in)
	}
}
