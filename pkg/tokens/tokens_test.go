package tokens

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 4000), 1000},
		{strings.Repeat("x", 4001), 1001},
		// Code points, not bytes.
		{"日本語です", 2},
		{"🙂🙂🙂🙂", 1},
	}

	for _, tt := range tests {
		if got := Estimate(tt.in); got != tt.want {
			t.Errorf("Estimate(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEstimate_MatchesCeilFormula(t *testing.T) {
	for n := 0; n < 200; n++ {
		s := strings.Repeat("é", n)
		want := (n + 3) / 4
		if got := Estimate(s); got != want {
			t.Fatalf("Estimate(len=%d) = %d, want %d", n, got, want)
		}
	}
}

func TestTruncate_Fits(t *testing.T) {
	s := strings.Repeat("a", 3200)
	assert.Equal(t, s, Truncate(s, 800, DefaultRatio))
	assert.Equal(t, "", Truncate("", 800, DefaultRatio))
}

func TestTruncate_Overflow(t *testing.T) {
	for _, n := range []int{3201, 4000, 10000, 123457} {
		s := strings.Repeat("b", n)
		out := Truncate(s, 800, DefaultRatio)

		require.True(t, strings.HasSuffix(out, Ellipsis), "n=%d", n)
		assert.LessOrEqual(t, Estimate(out), 800, "n=%d", n)
	}
}

func TestTruncate_ProportionalCut(t *testing.T) {
	// 8000 chars = 2000 tokens; 1000/2000 * 0.9 keeps 3600 chars.
	s := strings.Repeat("c", 8000)
	out := Truncate(s, 1000, 0.9)

	assert.Equal(t, 3600+len(Ellipsis), utf8.RuneCountInString(out))
}

func TestTruncate_Multibyte(t *testing.T) {
	s := strings.Repeat("語", 100)
	out := Truncate(s, 10, 0.9)

	require.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, Ellipsis))
	assert.Equal(t, 36+len(Ellipsis), utf8.RuneCountInString(out))
}

func TestTruncate_InvalidRatioUsesDefault(t *testing.T) {
	s := strings.Repeat("d", 8000)
	assert.Equal(t, Truncate(s, 1000, DefaultRatio), Truncate(s, 1000, 0))
	assert.Equal(t, Truncate(s, 1000, DefaultRatio), Truncate(s, 1000, 3))
}

func TestTruncate_ZeroBudget(t *testing.T) {
	assert.Equal(t, Ellipsis, Truncate("hello", 0, DefaultRatio))
}

func TestHead(t *testing.T) {
	assert.Equal(t, "", Head("abc", 0))
	assert.Equal(t, "abc", Head("abc", 10))
	assert.Equal(t, "ab", Head("abc", 2))
	assert.Equal(t, "日本", Head("日本語", 2))
}

func TestBudget(t *testing.T) {
	b := DefaultBudget()
	assert.Equal(t, Budget{System: 1500, User: 800, Memory: 1200, Tools: 800}, b)
	assert.Equal(t, 4300, b.Total())
	assert.NoError(t, b.Validate())

	b.Memory = 0
	assert.Error(t, b.Validate())
}
