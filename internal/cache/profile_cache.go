package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/identity-service/internal/models"
)

// Cache errors
var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// ProfileCache holds the last-known resolved profile per principal. It is a
// latency optimization, never a source of truth: the document store wins
// whenever both are consulted, except for the session manager's explicit
// cache short-circuit on resolution.
type ProfileCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewProfileCache creates a profile snapshot cache. A nil client degrades
// gracefully: loads report absence, saves and clears are no-ops.
func NewProfileCache(client *redis.Client) *ProfileCache {
	return &ProfileCache{
		client: client,
		prefix: "session:profile:",
		ttl:    0, // snapshots persist until logout or rejection clears them
	}
}

func (c *ProfileCache) key(principalID string) string {
	return fmt.Sprintf("%s%s", c.prefix, principalID)
}

// Load retrieves the cached snapshot for a principal. ErrCacheNotFound means
// no snapshot exists; ErrCacheNotAvailable means no cache is configured.
func (c *ProfileCache) Load(ctx context.Context, principalID string) (*models.Profile, error) {
	if c.client == nil {
		return nil, ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.key(principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	var profile models.Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("cache unmarshal error: %w", err)
	}

	return &profile, nil
}

// Save writes a snapshot keyed by the profile id.
func (c *ProfileCache) Save(ctx context.Context, profile *models.Profile) error {
	if c.client == nil {
		return nil // Graceful degradation when cache not available
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	return c.client.Set(ctx, c.key(profile.ID), data, c.ttl).Err()
}

// Clear removes the snapshot for a principal.
func (c *ProfileCache) Clear(ctx context.Context, principalID string) error {
	if c.client == nil {
		return nil
	}

	return c.client.Del(ctx, c.key(principalID)).Err()
}

// HealthCheck verifies cache connectivity.
func (c *ProfileCache) HealthCheck(ctx context.Context) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	if _, err := c.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}
