package memory

import (
	"context"
	"sync"
	"time"

	"github.com/adrecipro/adquiz/internal/core/ports"
)

// ImpressionDedup is the in-process counterpart of the Redis SETNX dedup.
type ImpressionDedup struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

var _ ports.ImpressionDedup = (*ImpressionDedup)(nil)

func NewImpressionDedup() *ImpressionDedup {
	return &ImpressionDedup{seen: make(map[string]time.Time), now: time.Now}
}

func (d *ImpressionDedup) FirstSeen(_ context.Context, userID, adID string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	key := userID + ":" + adID
	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.seen[key] = now.Add(ttl)
	return true, nil
}
