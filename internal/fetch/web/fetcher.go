// Package web implements the generic HTTP fetch path using gocolly.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"sitewatch/internal/fetch/extract"
	"sitewatch/internal/monitor"
)

// Config controls collector behavior.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	ContentCap int
}

// Fetcher fetches generic web targets over plain HTTP and normalizes the
// response into {title, content, content_hash}.
type Fetcher struct {
	cfg           Config
	hasher        monitor.Hasher
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config, hasher monitor.Hasher) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ContentCap <= 0 {
		cfg.ContentCap = 10000
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		hasher:        hasher,
		baseCollector: c,
	}
}

// Fetch executes a single bounded-timeout HTTP GET and extracts visible text.
func (f *Fetcher) Fetch(ctx context.Context, target monitor.Target) (monitor.FetchResult, error) {
	var (
		body       []byte
		statusCode int
		fetchErr   error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})
	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, target.URL, &fetchErr); err != nil {
		return monitor.FetchResult{}, err
	}
	if statusCode >= http.StatusBadRequest {
		return monitor.FetchResult{}, fmt.Errorf("http status %d", statusCode)
	}

	extracted, err := extract.Content(body)
	if err != nil {
		return monitor.FetchResult{}, fmt.Errorf("extract content: %w", err)
	}

	content := extract.Truncate(extracted.Text, f.cfg.ContentCap)
	hash, err := f.hasher.Hash([]byte(content))
	if err != nil {
		return monitor.FetchResult{}, fmt.Errorf("hash content: %w", err)
	}

	return monitor.FetchResult{
		Title:       extracted.Title,
		Content:     content,
		ContentHash: hash,
		RawBody:     body,
		Duration:    time.Since(start),
	}, nil
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("response failed: %w", *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
