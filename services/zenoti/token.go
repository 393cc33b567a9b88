package zenoti

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshMargin is how long before expiry a token is replaced.
const DefaultRefreshMargin = time.Minute

// Token is an access token lease.
type Token struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// validAt reports whether t can still be used at now with margin to spare.
func (t Token) validAt(now time.Time, margin time.Duration) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt.Add(-margin))
}

// TokenCache shares a lease between processes.
type TokenCache interface {
	Get(ctx context.Context) (Token, bool, error)
	Set(ctx context.Context, t Token) error
	Clear(ctx context.Context) error
}

// TokenFetcher obtains a fresh lease from the platform.
type TokenFetcher func(ctx context.Context) (Token, error)

// TokenProvider hands out a valid access token, fetching a new one lazily
// when the current lease has less than Margin left.
type TokenProvider struct {
	fetch  TokenFetcher
	cache  TokenCache
	margin time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu    sync.Mutex
	token Token
}

// NewTokenProvider creates a provider. cache may be nil.
func NewTokenProvider(fetch TokenFetcher, cache TokenCache, logger *zap.Logger) *TokenProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenProvider{
		fetch:  fetch,
		cache:  cache,
		margin: DefaultRefreshMargin,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the time source.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	p.now = now
	return p
}

// WithMargin replaces the refresh margin.
func (p *TokenProvider) WithMargin(margin time.Duration) *TokenProvider {
	p.margin = margin
	return p
}

// Token returns a usable access token.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.token.validAt(now, p.margin) {
		return p.token.AccessToken, nil
	}

	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx)
		if err != nil {
			p.logger.Warn("token cache read failed", zap.Error(err))
		} else if ok && cached.validAt(now, p.margin) {
			p.token = cached
			return cached.AccessToken, nil
		}
	}

	fresh, err := p.fetch(ctx)
	if err != nil {
		return "", err
	}
	p.token = fresh
	p.logger.Debug("access token refreshed", zap.Time("expiresAt", fresh.ExpiresAt))

	if p.cache != nil {
		if err := p.cache.Set(ctx, fresh); err != nil {
			p.logger.Warn("token cache write failed", zap.Error(err))
		}
	}
	return fresh.AccessToken, nil
}

// Reset drops the held lease and the shared one; the next call fetches anew.
func (p *TokenProvider) Reset(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = Token{}
	if p.cache != nil {
		if err := p.cache.Clear(ctx); err != nil {
			p.logger.Warn("token cache clear failed", zap.Error(err))
		}
	}
}
