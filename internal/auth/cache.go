package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const sharedValidateTimeout = 15 * time.Second

// ValidateFunc asks the backend whether a token is accepted.
type ValidateFunc func(ctx context.Context, token string) error

// ValidationCache remembers positive token validations in Redis so every
// request does not hit validate-token, and collapses concurrent validations
// of one token into a single backend call.
type ValidationCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	now    func() time.Time
}

// NewValidationCache builds a cache keeping positive results for ttl.
func NewValidationCache(client *redis.Client, ttl time.Duration) *ValidationCache {
	return &ValidationCache{client: client, ttl: ttl, now: time.Now}
}

// Validate returns nil when token is accepted. Cached entries never outlive
// expiresAt. Rejections are not cached.
func (c *ValidationCache) Validate(ctx context.Context, token string, expiresAt time.Time, validate ValidateFunc) error {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return validate(ctx, token)
	}
	key := cacheKey(token)
	if n, err := c.client.Exists(ctx, key).Result(); err == nil && n > 0 {
		return nil
	}
	// The shared call outlives any single waiter; each waiter gives up on its
	// own context only.
	ch := c.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedValidateTimeout)
		defer cancel()
		if err := validate(ctx, token); err != nil {
			return nil, err
		}
		ttl := c.ttl
		if !expiresAt.IsZero() {
			if remaining := expiresAt.Sub(c.now()); remaining < ttl {
				ttl = remaining
			}
		}
		if ttl > 0 {
			// A failed write only costs a later revalidation.
			_ = c.client.Set(ctx, key, "1", ttl).Err()
		}
		return nil, nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Forget drops the cached validation of token.
func (c *ValidationCache) Forget(ctx context.Context, token string) {
	if c == nil || c.client == nil || token == "" {
		return
	}
	_ = c.client.Del(ctx, cacheKey(token)).Err()
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "valhalla:token:" + hex.EncodeToString(sum[:])
}
