// Package fetch routes targets to the fetch path matching their type.
package fetch

import (
	"context"
	"fmt"

	"sitewatch/internal/monitor"
)

// Router dispatches fetches by target type. Session-backed types go through
// the shared browser session; everything else takes the plain HTTP path.
type Router struct {
	web     monitor.Fetcher
	session monitor.Fetcher
}

// NewRouter builds a Router. session may be nil when the browser subsystem is
// disabled; session-backed targets then fail fast.
func NewRouter(web, session monitor.Fetcher) *Router {
	return &Router{web: web, session: session}
}

// Fetch dispatches to the appropriate path and wraps any failure in a
// FetchError so callers can distinguish fetch failures from pipeline bugs.
func (r *Router) Fetch(ctx context.Context, target monitor.Target) (monitor.FetchResult, error) {
	if !target.Type.Valid() {
		return monitor.FetchResult{}, monitor.NewFetchError(target.URL, fmt.Errorf("unknown target type %q", target.Type))
	}

	var f monitor.Fetcher
	if target.Type.SessionBacked() {
		if r.session == nil {
			return monitor.FetchResult{}, monitor.NewFetchError(target.URL, fmt.Errorf("session fetching disabled for type %q", target.Type))
		}
		f = r.session
	} else {
		f = r.web
	}

	result, err := f.Fetch(ctx, target)
	if err != nil {
		return monitor.FetchResult{}, monitor.NewFetchError(target.URL, err)
	}
	return result, nil
}
