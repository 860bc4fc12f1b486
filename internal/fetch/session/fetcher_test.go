package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sha256hash "sitewatch/internal/hash/sha256"
	"sitewatch/internal/monitor"
)

type fakeSession struct {
	title    string
	html     string
	err      error
	released bool
}

func (s *fakeSession) Capture(context.Context, string) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	return s.title, s.html, nil
}

func (s *fakeSession) Release() { s.released = true }

type fakePool struct {
	mu        sync.Mutex
	sessions  []*fakeSession
	acquireN  int
	refreshes int
}

func (p *fakePool) Acquire(context.Context) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireN >= len(p.sessions) {
		return nil, monitor.ErrResourceUnavailable
	}
	s := p.sessions[p.acquireN]
	p.acquireN++
	return s, nil
}

func (p *fakePool) ForceRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
}

func TestFetch_ExtractsAndHashesRenderedDocument(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{
		title: "Jane Doe",
		html:  `<html><head><title>Jane Doe</title></head><body><script>x</script><p>Staff Engineer at Acme</p></body></html>`,
	}
	pool := &fakePool{sessions: []*fakeSession{sess}}
	f := New(Config{Retries: 2}, pool, sha256hash.Hasher{}, zap.NewNop())

	result, err := f.Fetch(context.Background(), monitor.Target{
		ID:   "t1",
		URL:  "https://example.com/in/jane",
		Type: monitor.TypeSocialProfile,
	})
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", result.Title)
	require.Equal(t, "Staff Engineer at Acme", result.Content)
	require.NotEmpty(t, result.ContentHash)
	require.NotEmpty(t, result.RawBody)
	require.True(t, sess.released)
	require.Zero(t, pool.refreshes)
}

func TestFetch_RetriesWithSessionRefresh(t *testing.T) {
	t.Parallel()

	broken := &fakeSession{err: errors.New("tab crashed")}
	healthy := &fakeSession{html: "<html><body>recovered content</body></html>"}
	pool := &fakePool{sessions: []*fakeSession{broken, healthy}}
	f := New(Config{Retries: 2}, pool, sha256hash.Hasher{}, zap.NewNop())

	result, err := f.Fetch(context.Background(), monitor.Target{
		ID:   "t1",
		URL:  "https://example.com/in/jane",
		Type: monitor.TypeSocialProfile,
	})
	require.NoError(t, err)
	require.Equal(t, "recovered content", result.Content)
	require.Equal(t, 1, pool.refreshes)
	require.True(t, broken.released)
	require.True(t, healthy.released)
}

func TestFetch_ExhaustedRetriesReturnLastError(t *testing.T) {
	t.Parallel()

	sessions := []*fakeSession{
		{err: errors.New("boom 1")},
		{err: errors.New("boom 2")},
		{err: errors.New("boom 3")},
	}
	pool := &fakePool{sessions: sessions}
	f := New(Config{Retries: 2}, pool, sha256hash.Hasher{}, zap.NewNop())

	_, err := f.Fetch(context.Background(), monitor.Target{URL: "https://example.com"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom 3")
	require.Equal(t, 2, pool.refreshes)
}

func TestFetch_PoolExhaustionSurfaces(t *testing.T) {
	t.Parallel()

	pool := &fakePool{}
	f := New(Config{Retries: 1}, pool, sha256hash.Hasher{}, zap.NewNop())

	_, err := f.Fetch(context.Background(), monitor.Target{URL: "https://example.com"})
	require.ErrorIs(t, err, monitor.ErrResourceUnavailable)
}

func TestFetch_FallbackTitles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  monitor.TargetType
		url  string
		want string
	}{
		{"profile", monitor.TypeSocialProfile, "https://example.com/in/jane/", "Profile: jane"},
		{"organization", monitor.TypeSocialOrg, "https://example.com/company/acme", "Organization: acme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sess := &fakeSession{html: "<html><body>no title here</body></html>"}
			pool := &fakePool{sessions: []*fakeSession{sess}}
			f := New(Config{}, pool, sha256hash.Hasher{}, zap.NewNop())

			result, err := f.Fetch(context.Background(), monitor.Target{URL: tt.url, Type: tt.typ})
			require.NoError(t, err)
			require.Equal(t, tt.want, result.Title)
		})
	}
}

func TestFetch_ContentCapTruncatesBeforeHashing(t *testing.T) {
	t.Parallel()

	long := "<html><body>aaaaaaaaaaaaaaaaaaaa</body></html>"
	sess := &fakeSession{html: long}
	pool := &fakePool{sessions: []*fakeSession{sess}}
	f := New(Config{ContentCap: 5}, pool, sha256hash.Hasher{}, zap.NewNop())

	result, err := f.Fetch(context.Background(), monitor.Target{URL: "https://example.com"})
	require.NoError(t, err)
	require.Len(t, result.Content, 5)

	want, err := sha256hash.Hasher{}.Hash([]byte(result.Content))
	require.NoError(t, err)
	require.Equal(t, want, result.ContentHash)
}
