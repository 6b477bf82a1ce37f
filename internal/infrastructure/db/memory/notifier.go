package memory

import (
	"context"
	"sync"

	"github.com/adrecipro/adquiz/internal/core/ports"
)

const subscriberBuffer = 16

// Notifier fans balance events out to in-process subscribers. Slow
// subscribers drop events rather than block the publisher.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]map[chan ports.BalanceEvent]struct{}
}

var _ ports.BalanceNotifier = (*Notifier)(nil)

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[chan ports.BalanceEvent]struct{})}
}

func (n *Notifier) Publish(_ context.Context, ev ports.BalanceEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (n *Notifier) Subscribe(ctx context.Context, userID string) (<-chan ports.BalanceEvent, func(), error) {
	ch := make(chan ports.BalanceEvent, subscriberBuffer)

	n.mu.Lock()
	if n.subs[userID] == nil {
		n.subs[userID] = make(map[chan ports.BalanceEvent]struct{})
	}
	n.subs[userID][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[userID], ch)
			if len(n.subs[userID]) == 0 {
				delete(n.subs, userID)
			}
			n.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}
