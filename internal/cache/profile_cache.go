// Package cache holds Redis-backed read-through caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/matching"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"github.com/quocanhngo/publicchat/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const profileKeyPrefix = "publicchat:profile:"

// ProfileSource builds a user's interest profile
type ProfileSource interface {
	Profile(ctx context.Context, userID uuid.UUID) (matching.InterestProfile, error)
}

// ProfileCache caches interest profiles in Redis in front of a ProfileSource.
// Redis failures fall through to the source; they never fail the caller.
type ProfileCache struct {
	source ProfileSource
	rdb    redis.Cmdable
	ttl    time.Duration
	log    *logger.Logger
}

func NewProfileCache(source ProfileSource, rdb redis.Cmdable, ttl time.Duration, log *logger.Logger) *ProfileCache {
	return &ProfileCache{
		source: source,
		rdb:    rdb,
		ttl:    ttl,
		log:    log.Named("profile_cache"),
	}
}

// Profile returns the cached profile or builds and caches a fresh one
func (c *ProfileCache) Profile(ctx context.Context, userID uuid.UUID) (matching.InterestProfile, error) {
	key := profileKeyPrefix + userID.String()

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var profile matching.InterestProfile
		if jsonErr := json.Unmarshal(data, &profile); jsonErr == nil {
			metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
			return profile, nil
		}
		c.log.Warn("discarding unreadable cached profile", zap.String("user_id", userID.String()))
	case errors.Is(err, redis.Nil):
		metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.ProfileCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("profile cache read failed", zap.String("user_id", userID.String()), zap.Error(err))
	}

	profile, err := c.source.Profile(ctx, userID)
	if err != nil {
		return matching.InterestProfile{}, err
	}

	if payload, err := json.Marshal(profile); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.Warn("profile cache write failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	return profile, nil
}

// Invalidate drops a cached profile so the next read rebuilds it
func (c *ProfileCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.rdb.Del(ctx, profileKeyPrefix+userID.String()).Err()
}
