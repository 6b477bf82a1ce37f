package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/core/ports"
)

func TestKeys(t *testing.T) {
	if got := impressionKey("u1", "ad1"); got != "impression:u1:ad1" {
		t.Errorf("impressionKey = %q", got)
	}
	if got := balanceChannel("u1"); got != "balance:u1" {
		t.Errorf("balanceChannel = %q", got)
	}
}

// unreachableClient points at a port nothing listens on.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	c := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatal("expected ping error")
	}
}

func TestImpressionDedup_SurfacesErrors(t *testing.T) {
	d := NewImpressionDedup(unreachableClient(t))
	if _, err := d.FirstSeen(context.Background(), "u1", "ad1", time.Minute); err == nil {
		t.Fatal("expected error from unreachable redis")
	}
}

func TestBalanceNotifier_SurfacesErrors(t *testing.T) {
	n := NewBalanceNotifier(unreachableClient(t), zerolog.Nop())
	if err := n.Publish(context.Background(), ports.BalanceEvent{UserID: "u1"}); err == nil {
		t.Fatal("expected publish error")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, _, err := n.Subscribe(ctx, "u1"); err == nil {
		t.Fatal("expected subscribe error")
	}
}
