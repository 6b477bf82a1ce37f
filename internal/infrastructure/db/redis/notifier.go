package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/core/ports"
)

const subscriberBuffer = 16

// BalanceNotifier fans balance changes out across API instances over Redis
// pub/sub, one channel per user.
type BalanceNotifier struct {
	client redis.UniversalClient
	log    zerolog.Logger
}

var _ ports.BalanceNotifier = (*BalanceNotifier)(nil)

func NewBalanceNotifier(client redis.UniversalClient, log zerolog.Logger) *BalanceNotifier {
	return &BalanceNotifier{client: client, log: log}
}

func balanceChannel(userID string) string {
	return "balance:" + userID
}

func (n *BalanceNotifier) Publish(ctx context.Context, ev ports.BalanceEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode balance event: %w", err)
	}
	if err := n.client.Publish(ctx, balanceChannel(ev.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish balance event: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning, so no
// event published after Subscribe returns is missed.
func (n *BalanceNotifier) Subscribe(ctx context.Context, userID string) (<-chan ports.BalanceEvent, func(), error) {
	sub := n.client.Subscribe(ctx, balanceChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe balance: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan ports.BalanceEvent, subscriberBuffer)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev ports.BalanceEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					n.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed balance event")
					continue
				}
				select {
				case out <- ev:
				default:
					n.log.Warn().Str("user_id", userID).Msg("balance subscriber is slow, dropping event")
				}
			}
		}
	}()
	return out, cancel, nil
}
