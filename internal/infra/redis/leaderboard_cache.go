package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"phishguard-engine/internal/app"
	"phishguard-engine/internal/domain"
)

// LeaderboardCache caches top-N leaderboard pages in Redis as JSON so hot
// leaderboard reads skip the document store entirely. Entries expire after a
// short TTL (with up to 10% jitter to spread expirations); staleness inside
// the TTL window is acceptable because the projection itself is only
// eventually consistent.
type LeaderboardCache struct {
	client *redis.Client
	source app.LeaderboardReader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, source app.LeaderboardReader, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) TopLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	key := c.key(limit)

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var entries []domain.LeaderboardEntry
		if jsonErr := json.Unmarshal([]byte(raw), &entries); jsonErr == nil {
			return entries, nil
		}
		// Unreadable payload: fall through and refill.
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		raw, err := c.client.Get(ctx, key).Result()
		if err == nil {
			var entries []domain.LeaderboardEntry
			if jsonErr := json.Unmarshal([]byte(raw), &entries); jsonErr == nil {
				return entries, nil
			}
		}

		entries, err := c.source.TopLeaderboard(ctx, limit)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(entries)
		if err == nil {
			// Best-effort cache fill; a failed SET just means the next read
			// hits the source again.
			_ = c.client.Set(ctx, key, payload, c.ttlWithJitter()).Err()
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

// InvalidateLeaderboard drops every cached leaderboard page so the next
// read refetches the freshly projected ranking. A failure here only means
// readers wait out the TTL instead.
func (c *LeaderboardCache) InvalidateLeaderboard(ctx context.Context) error {
	keys, err := c.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("scan leaderboard keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("drop leaderboard keys: %w", err)
	}
	return nil
}

const keyPrefix = "leaderboard:top:"

func (c *LeaderboardCache) key(limit int) string {
	return fmt.Sprintf("%s%d", keyPrefix, limit)
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
