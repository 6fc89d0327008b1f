package redis

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// PrefixConsent namespaces consent keys.
const PrefixConsent = "consent:"

// TTLConsent is the default lifetime of a cached decision.
const TTLConsent = 5 * time.Minute

// ConsentSource is the authoritative consent lookup behind the cache.
type ConsentSource interface {
	HasConsent(ctx context.Context, subjectID int64, purpose string) (bool, error)
}

// ConsentCacheConfig configures a ConsentCache.
type ConsentCacheConfig struct {
	TTL time.Duration
	// KeySecret keys the BLAKE2b digest used for cache keys, at most 64 bytes.
	KeySecret []byte
	Logger    *slog.Logger
}

// ConsentCache is a read-through cache in front of a ConsentSource. Keys are
// keyed digests of (subject, purpose), so user IDs never appear in Redis.
// Redis failures fall back to the source; source failures are not cached.
type ConsentCache struct {
	client redis.Cmdable
	source ConsentSource
	ttl    time.Duration
	secret []byte
	logger *slog.Logger
}

// NewConsentCache wraps source.
func NewConsentCache(client redis.Cmdable, source ConsentSource, cfg ConsentCacheConfig) (*ConsentCache, error) {
	if len(cfg.KeySecret) > blake2b.Size {
		return nil, fmt.Errorf("consent cache: key secret longer than %d bytes", blake2b.Size)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = TTLConsent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ConsentCache{
		client: client,
		source: source,
		ttl:    cfg.TTL,
		secret: cfg.KeySecret,
		logger: cfg.Logger,
	}, nil
}

// HasConsent implements messaging.ConsentChecker.
func (c *ConsentCache) HasConsent(ctx context.Context, subjectID int64, purpose string) (bool, error) {
	key := c.Key(subjectID, purpose)

	granted, err := c.lookup(ctx, key)
	switch {
	case err == nil:
		return granted, nil
	case !errors.Is(err, ErrCacheMiss):
		c.logger.WarnContext(ctx, "consent cache read failed, using source",
			"purpose", purpose,
			"error", err,
		)
	}

	granted, err = c.source.HasConsent(ctx, subjectID, purpose)
	if err != nil {
		return false, err
	}

	if err := c.client.Set(ctx, key, strconv.FormatBool(granted), c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "consent cache write failed",
			"purpose", purpose,
			"error", err,
		)
	}
	return granted, nil
}

func (c *ConsentCache) lookup(ctx context.Context, key string) (bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, ErrCacheMiss
		}
		return false, err
	}
	granted, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("consent cache: corrupt value %q: %w", val, err)
	}
	return granted, nil
}

// Invalidate drops the cached decision, to be called after grant or revoke.
func (c *ConsentCache) Invalidate(ctx context.Context, subjectID int64, purpose string) error {
	return c.client.Del(ctx, c.Key(subjectID, purpose)).Err()
}

// Key returns the Redis key for (subjectID, purpose).
func (c *ConsentCache) Key(subjectID int64, purpose string) string {
	h, err := blake2b.New(16, c.secret)
	if err != nil {
		// secret length is checked in NewConsentCache
		panic(err)
	}
	h.Write([]byte(strconv.FormatInt(subjectID, 10)))
	h.Write([]byte{0})
	h.Write([]byte(purpose))
	return PrefixConsent + hex.EncodeToString(h.Sum(nil))
}
