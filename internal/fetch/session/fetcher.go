// Package session implements the browser-backed fetch path for targets that
// require an authenticated session to render.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/browser"
	"sitewatch/internal/fetch/extract"
	"sitewatch/internal/monitor"
)

// Pool hands out exclusive access to the shared browser session.
type Pool interface {
	Acquire(ctx context.Context) (Session, error)
	ForceRefresh()
}

// Session is one exclusive hold on the browser, released after the fetch.
type Session interface {
	Capture(ctx context.Context, url string) (title string, html string, err error)
	Release()
}

// WrapPool adapts the concrete browser pool to the Pool interface.
func WrapPool(p *browser.Pool) Pool {
	return poolAdapter{p}
}

type poolAdapter struct {
	pool *browser.Pool
}

func (a poolAdapter) Acquire(ctx context.Context) (Session, error) {
	sess, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (a poolAdapter) ForceRefresh() {
	a.pool.ForceRefresh()
}

// Config controls session fetch behavior.
type Config struct {
	// Retries is the number of additional attempts after the first failure.
	// The session is force-refreshed between attempts so a retry never reuses
	// a possibly broken session.
	Retries    int
	ContentCap int
}

// Fetcher renders session-backed targets through the shared browser pool.
type Fetcher struct {
	cfg    Config
	pool   Pool
	hasher monitor.Hasher
	logger *zap.Logger
}

// New builds a Fetcher on top of the shared pool.
func New(cfg Config, pool Pool, hasher monitor.Hasher, logger *zap.Logger) *Fetcher {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.ContentCap <= 0 {
		cfg.ContentCap = 10000
	}
	return &Fetcher{
		cfg:    cfg,
		pool:   pool,
		hasher: hasher,
		logger: logger,
	}
}

// Fetch acquires the shared session, renders the target, and normalizes the
// document the same way the plain HTTP path does. Failed attempts invalidate
// the session before retrying.
func (f *Fetcher) Fetch(ctx context.Context, target monitor.Target) (monitor.FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.Retries; attempt++ {
		if attempt > 0 {
			f.logger.Warn("session fetch retry",
				zap.String("target_id", target.ID),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			f.pool.ForceRefresh()
		}

		result, err := f.fetchOnce(ctx, target)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}
	return monitor.FetchResult{}, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, target monitor.Target) (monitor.FetchResult, error) {
	start := time.Now()

	sess, err := f.pool.Acquire(ctx)
	if err != nil {
		return monitor.FetchResult{}, fmt.Errorf("acquire session: %w", err)
	}
	defer sess.Release()

	title, html, err := sess.Capture(ctx, target.URL)
	if err != nil {
		return monitor.FetchResult{}, err
	}

	extracted, err := extract.Content([]byte(html))
	if err != nil {
		return monitor.FetchResult{}, fmt.Errorf("extract content: %w", err)
	}
	if title == "" {
		title = extracted.Title
	}
	if title == "" {
		title = fallbackTitle(target)
	}

	content := extract.Truncate(extracted.Text, f.cfg.ContentCap)
	hash, err := f.hasher.Hash([]byte(content))
	if err != nil {
		return monitor.FetchResult{}, fmt.Errorf("hash content: %w", err)
	}

	return monitor.FetchResult{
		Title:       title,
		Content:     content,
		ContentHash: hash,
		RawBody:     []byte(html),
		Duration:    time.Since(start),
	}, nil
}

// fallbackTitle labels pages that render without a usable title.
func fallbackTitle(target monitor.Target) string {
	name := strings.TrimRight(target.URL, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 && idx < len(name)-1 {
		name = name[idx+1:]
	}
	switch target.Type {
	case monitor.TypeSocialProfile:
		return "Profile: " + name
	case monitor.TypeSocialOrg:
		return "Organization: " + name
	default:
		return name
	}
}
