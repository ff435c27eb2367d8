// Package ratelimit bounds outbound requests: a global in-flight ceiling,
// a per-domain in-flight ceiling, and a per-domain inter-request delay.
// Two different domains may be probed simultaneously even while each one
// individually is rate-limited.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds limiter settings.
type Config struct {
	Global      int           // max in-flight requests overall
	PerDomain   int           // max in-flight requests per domain
	DomainDelay time.Duration // minimum spacing between requests to one domain
}

// Limiter coordinates the three bounds. The zero value is not usable; use New.
type Limiter struct {
	mu      sync.Mutex
	global  chan struct{}
	domains map[string]*domainState
	cfg     Config
}

type domainState struct {
	inflight chan struct{}
	pacer    *rate.Limiter
}

// New creates a limiter. Non-positive bounds fall back to 1 (and an
// unbounded pacer for a zero delay).
func New(cfg Config) *Limiter {
	if cfg.Global < 1 {
		cfg.Global = 1
	}
	if cfg.PerDomain < 1 {
		cfg.PerDomain = 1
	}
	return &Limiter{
		global:  make(chan struct{}, cfg.Global),
		domains: make(map[string]*domainState),
		cfg:     cfg,
	}
}

// Acquire blocks until the request may proceed, then returns a release
// function. The caller must invoke release exactly once.
func (l *Limiter) Acquire(ctx context.Context, rawURL string) (func(), error) {
	domain := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}
	ds := l.domain(domain)

	select {
	case l.global <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire global slot: %w", ctx.Err())
	}

	select {
	case ds.inflight <- struct{}{}:
	case <-ctx.Done():
		<-l.global
		return nil, fmt.Errorf("acquire domain slot for %s: %w", domain, ctx.Err())
	}

	if err := ds.pacer.Wait(ctx); err != nil {
		<-ds.inflight
		<-l.global
		return nil, fmt.Errorf("domain pacing for %s: %w", domain, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ds.inflight
			<-l.global
		})
	}, nil
}

func (l *Limiter) domain(name string) *domainState {
	l.mu.Lock()
	defer l.mu.Unlock()
	ds, ok := l.domains[name]
	if !ok {
		limit := rate.Inf
		if l.cfg.DomainDelay > 0 {
			limit = rate.Every(l.cfg.DomainDelay)
		}
		ds = &domainState{
			inflight: make(chan struct{}, l.cfg.PerDomain),
			pacer:    rate.NewLimiter(limit, 1),
		}
		l.domains[name] = ds
	}
	return ds
}
