package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsDeterministic(t *testing.T) {
	t.Parallel()

	h := Hasher{}
	a, err := h.Hash([]byte("same content"))
	require.NoError(t, err)
	b, err := h.Hash([]byte("same content"))
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	c, err := h.Hash([]byte("different content"))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestHashKnownVector(t *testing.T) {
	t.Parallel()

	h := Hasher{}
	got, err := h.Hash([]byte(""))
	require.NoError(t, err)
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", got)
}
