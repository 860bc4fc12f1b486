// Package browser owns the single shared authenticated browser session used
// for session-backed fetches.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"sitewatch/internal/metrics"
	"sitewatch/internal/monitor"
)

// Config controls session lifecycle behavior.
type Config struct {
	// RemoteURL is the devtools websocket endpoint of the remote browser
	// provider. When empty a local headless browser is launched instead.
	RemoteURL     string
	LoginURL      string
	Username      string
	Password      string
	NavTimeout    time.Duration
	AuthTimeout   time.Duration
	CreateRetries int
	CreateBackoff time.Duration
}

// Pool guards one long-lived browser session behind a single mutex. The lock
// is held for the entire fetch, not just acquisition: the underlying remote
// session cannot safely service concurrent navigations.
type Pool struct {
	cfg    Config
	clock  monitor.Clock
	logger *zap.Logger

	// sem is a 1-slot semaphore instead of sync.Mutex so acquisition can be
	// abandoned when the caller's context ends.
	sem chan struct{}

	sess          *session
	authenticated bool
	lastUsed      time.Time
}

type session struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// Session is a handle on the shared browser, valid until Release.
type Session struct {
	pool *Pool
}

// New constructs a Pool. The session itself is created lazily on first
// Acquire.
func New(cfg Config, clock monitor.Clock, logger *zap.Logger) *Pool {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 25 * time.Second
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 300 * time.Second
	}
	if cfg.CreateRetries <= 0 {
		cfg.CreateRetries = 3
	}
	if cfg.CreateBackoff <= 0 {
		cfg.CreateBackoff = 2 * time.Second
	}
	sem := make(chan struct{}, 1)
	sem <- struct{}{}
	return &Pool{
		cfg:    cfg,
		clock:  clock,
		logger: logger,
		sem:    sem,
	}
}

// Acquire locks the shared session, probing liveness, recreating the session
// when stale, and re-authenticating when it has sat idle past the auth
// timeout. The returned Session keeps the pool locked until Release.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	if err := p.lock(ctx); err != nil {
		return nil, err
	}

	if err := p.ensureSessionLocked(ctx); err != nil {
		p.unlock()
		return nil, err
	}
	if err := p.ensureAuthLocked(); err != nil {
		p.teardownLocked()
		p.unlock()
		return nil, fmt.Errorf("authenticate session: %w", err)
	}

	p.lastUsed = p.clock.Now()
	return &Session{pool: p}, nil
}

// Release unlocks the pool. The session persists across calls.
func (s *Session) Release() {
	s.pool.lastUsed = s.pool.clock.Now()
	s.pool.unlock()
}

// Capture navigates the shared session to the URL and returns the rendered
// document plus its title.
func (s *Session) Capture(ctx context.Context, url string) (title string, html string, err error) {
	navCtx, cancel := context.WithTimeout(s.pool.sess.tabCtx, s.pool.cfg.NavTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(navCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(500*time.Millisecond),
			chromedp.Title(&title),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
	}()

	select {
	case <-ctx.Done():
		cancel()
		<-done
		return "", "", fmt.Errorf("capture canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return "", "", fmt.Errorf("navigate %s: %w", url, err)
		}
		return title, html, nil
	}
}

// ForceRefresh discards the current session so the next Acquire recreates it.
// Used after repeated fetch failures so a retry never reuses a possibly
// broken session.
func (p *Pool) ForceRefresh() {
	if err := p.lock(context.Background()); err != nil {
		return
	}
	defer p.unlock()
	p.teardownLocked()
}

// Teardown destroys the underlying browser resource. Idempotent; called on
// process shutdown.
func (p *Pool) Teardown() {
	if err := p.lock(context.Background()); err != nil {
		return
	}
	defer p.unlock()
	p.teardownLocked()
}

func (p *Pool) lock(ctx context.Context) error {
	select {
	case <-p.sem:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session wait canceled: %w", ctx.Err())
	}
}

func (p *Pool) unlock() {
	p.sem <- struct{}{}
}

func (p *Pool) ensureSessionLocked(ctx context.Context) error {
	if p.sess != nil {
		if err := p.probeLocked(); err == nil {
			return nil
		}
		p.logger.Warn("browser session stale, recreating")
		p.teardownLocked()
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.CreateRetries; attempt++ {
		if err := p.createLocked(); err != nil {
			lastErr = err
			p.logger.Warn("browser session create failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			p.teardownLocked()
			if attempt < p.cfg.CreateRetries {
				select {
				case <-time.After(p.cfg.CreateBackoff):
				case <-ctx.Done():
					return fmt.Errorf("session create canceled: %w", ctx.Err())
				}
			}
			continue
		}
		metrics.ObserveSessionRecreation()
		return nil
	}
	return fmt.Errorf("%w: %v", monitor.ErrResourceUnavailable, lastErr)
}

// probeLocked reads a trivial session property; any failure means the
// session is stale.
func (p *Pool) probeLocked() error {
	probeCtx, cancel := context.WithTimeout(p.sess.tabCtx, 5*time.Second)
	defer cancel()

	var state string
	if err := chromedp.Run(probeCtx, chromedp.Evaluate("document.readyState", &state)); err != nil {
		return fmt.Errorf("probe session: %w", err)
	}
	return nil
}

func (p *Pool) createLocked() error {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if p.cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), p.cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", "new"),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("hide-scrollbars", true),
			chromedp.Flag("enable-automation", false),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	p.sess = &session{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}
	p.authenticated = false

	// The first Run materializes the browser; failure here means the session
	// was never usable.
	startCtx, cancel := context.WithTimeout(tabCtx, p.cfg.NavTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx,
		network.Enable(),
		chromedp.Navigate("about:blank"),
	); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// ensureAuthLocked re-runs authentication when the session was never
// authenticated or has been idle past the auth timeout.
func (p *Pool) ensureAuthLocked() error {
	if p.authenticated && p.clock.Now().Sub(p.lastUsed) <= p.cfg.AuthTimeout {
		return nil
	}
	if p.cfg.LoginURL == "" {
		p.authenticated = true
		return nil
	}

	authCtx, cancel := context.WithTimeout(p.sess.tabCtx, p.cfg.NavTimeout)
	defer cancel()

	err := chromedp.Run(authCtx,
		chromedp.Navigate(p.cfg.LoginURL),
		chromedp.WaitVisible(`#username`, chromedp.ByID),
		chromedp.SendKeys(`#username`, p.cfg.Username, chromedp.ByID),
		chromedp.SendKeys(`#password`, p.cfg.Password, chromedp.ByID),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		p.authenticated = false
		return fmt.Errorf("login flow: %w", err)
	}

	p.authenticated = true
	metrics.ObserveSessionAuthentication()
	p.logger.Info("browser session authenticated")
	return nil
}

// teardownLocked destroys any half- or fully-created session resources.
func (p *Pool) teardownLocked() {
	if p.sess == nil {
		return
	}
	p.sess.tabCancel()
	p.sess.allocCancel()
	p.sess = nil
	p.authenticated = false
}
