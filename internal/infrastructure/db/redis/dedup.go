package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adrecipro/adquiz/internal/core/ports"
)

const defaultDedupTTL = 24 * time.Hour

// ImpressionDedup remembers which cards a viewer was already shown.
// Key format: impression:<user_id>:<ad_id>
type ImpressionDedup struct {
	client redis.UniversalClient
}

var _ ports.ImpressionDedup = (*ImpressionDedup)(nil)

// NewImpressionDedup creates an ImpressionDedup wrapping the given Redis client.
func NewImpressionDedup(client redis.UniversalClient) *ImpressionDedup {
	return &ImpressionDedup{client: client}
}

// FirstSeen sets the key only if absent, so concurrent servings of the same
// card count once.
func (d *ImpressionDedup) FirstSeen(ctx context.Context, userID, adID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	ok, err := d.client.SetNX(ctx, impressionKey(userID, adID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("impression dedup: %w", err)
	}
	return ok, nil
}

func impressionKey(userID, adID string) string {
	return fmt.Sprintf("impression:%s:%s", userID, adID)
}
