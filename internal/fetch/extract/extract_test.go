package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContent_StripsNonContentElements(t *testing.T) {
	t.Parallel()

	html := `<html>
<head><title> Acme Pricing </title><style>body{color:red}</style></head>
<body>
<nav>Home | About</nav>
<header>Acme Corp</header>
<script>console.log("tracking")</script>
<p>Pro plan costs $49 per month.</p>
<noscript>enable js</noscript>
<footer>Copyright 2025</footer>
</body>
</html>`

	result, err := Content([]byte(html))
	require.NoError(t, err)

	require.Equal(t, "Acme Pricing", result.Title)
	require.Equal(t, "Pro plan costs $49 per month.", result.Text)
	require.NotContains(t, result.Text, "tracking")
	require.NotContains(t, result.Text, "Home | About")
	require.NotContains(t, result.Text, "Copyright")
}

func TestContent_NoBodyFallsBackToDocument(t *testing.T) {
	t.Parallel()

	result, err := Content([]byte("plain fragment text"))
	require.NoError(t, err)
	require.Contains(t, result.Text, "plain fragment text")
}

func TestNormalize_IsDeterministic(t *testing.T) {
	t.Parallel()

	a := Normalize("  hello\n\n  world\t ")
	b := Normalize("hello world")
	require.Equal(t, "hello world", a)
	require.Equal(t, a, b)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", Truncate("abc", 10))
	require.Equal(t, "abc", Truncate("abcdef", 3))
	require.Equal(t, "abcdef", Truncate("abcdef", 0))

	// rune-safe truncation
	require.Equal(t, "héll", Truncate("héllo", 4))
	require.Len(t, []rune(Truncate(strings.Repeat("ü", 100), 10)), 10)
}
