package auth

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"gigachat/pkg/core"
)

// Refresher mints a new credential.
type Refresher interface {
	Refresh(ctx context.Context) (core.Credential, error)
}

// TokenCache hands out the current credential and refreshes it when expired.
//
// A single lock is held across the expiry check, the exchange and the write
// back, so callers that arrive while a refresh is running wait for it and
// reuse its result instead of starting their own. That includes a failure:
// callers queued behind a failed exchange get its error, and only a call made
// after it retries.
type TokenCache struct {
	refresher Refresher
	now       func() time.Time
	observer  func(error)
	logger    *slog.Logger

	// lock is a one-slot semaphore so waiting can honour ctx.
	lock chan struct{}
	cred core.Credential

	// attempts counts finished exchanges; lastErr is the error of the most
	// recent one. Both are written under lock.
	attempts atomic.Uint64
	lastErr  error
}

// CacheOption configures a TokenCache.
type CacheOption func(*TokenCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *TokenCache) { c.now = now }
}

// WithObserver is called after every exchange with its error (nil on success).
func WithObserver(observer func(error)) CacheOption {
	return func(c *TokenCache) { c.observer = observer }
}

// WithCacheLogger sets the logger used for debug output.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *TokenCache) { c.logger = logger }
}

// NewTokenCache creates an empty cache; the first Token call performs an exchange.
func NewTokenCache(refresher Refresher, opts ...CacheOption) *TokenCache {
	c := &TokenCache{
		refresher: refresher,
		now:       time.Now,
		logger:    slog.Default(),
		lock:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the Authorization header value of a valid credential.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	cred, err := c.Current(ctx)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// Current returns a valid credential, refreshing it if needed.
// A failed refresh leaves the previous credential in place.
func (c *TokenCache) Current(ctx context.Context) (core.Credential, error) {
	seen := c.attempts.Load()
	select {
	case c.lock <- struct{}{}:
	case <-ctx.Done():
		return core.Credential{}, core.NewTransportError("waiting for credential", ctx.Err())
	}
	defer func() { <-c.lock }()

	if c.cred.Valid(c.now()) {
		return c.cred, nil
	}
	if c.attempts.Load() != seen && c.lastErr != nil {
		return core.Credential{}, c.lastErr
	}
	return c.refreshLocked(ctx)
}

// Prime performs an exchange unless a valid credential is already cached.
func (c *TokenCache) Prime(ctx context.Context) error {
	_, err := c.Current(ctx)
	return err
}

// Invalidate drops the cached credential so the next call refreshes.
func (c *TokenCache) Invalidate() {
	c.lock <- struct{}{}
	c.cred = core.Credential{}
	<-c.lock
}

// ExpiresAt returns the expiry of the cached credential, or the zero time.
func (c *TokenCache) ExpiresAt() time.Time {
	c.lock <- struct{}{}
	defer func() { <-c.lock }()
	return c.cred.ExpiresAt
}

func (c *TokenCache) refreshLocked(ctx context.Context) (core.Credential, error) {
	cred, err := c.refresher.Refresh(ctx)
	if c.observer != nil {
		c.observer(err)
	}

	c.lastErr = err
	// A cancelled caller's context is its own; waiters exchange again.
	if err != nil && ctx.Err() != nil {
		c.lastErr = nil
	}
	c.attempts.Add(1)

	if err != nil {
		c.logger.Debug("credential refresh failed", "error", err)
		return core.Credential{}, err
	}
	c.cred = cred
	c.logger.Debug("credential refreshed", "expires_at", cred.ExpiresAt)
	return cred, nil
}
