package ports

import (
	"context"
	"time"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

// ObjectStorage stores a blob and returns a durable, retrievable URL.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// QuizGenerator turns free text into a quiz draft. Its output is untrusted and
// must be validated by the caller.
type QuizGenerator interface {
	Generate(ctx context.Context, text string) (*domain.QuizDraft, error)
}

// BalanceEvent is pushed whenever a user's balance changes.
type BalanceEvent struct {
	UserID  string    `json:"user_id"`
	Credits int64     `json:"credits"`
	Delta   int64     `json:"delta"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// Balance change reasons.
const (
	ReasonPublication   = "publication"
	ReasonRefund        = "refund"
	ReasonCorrectAnswer = "correct_answer"
)

// BalanceNotifier publishes balance changes so clients need not poll.
type BalanceNotifier interface {
	Publish(ctx context.Context, ev BalanceEvent) error
	// Subscribe streams events for userID until ctx is done or cancel is called.
	Subscribe(ctx context.Context, userID string) (<-chan BalanceEvent, func(), error)
}

// ImpressionDedup suppresses repeated impressions of the same card for the same viewer.
type ImpressionDedup interface {
	// FirstSeen marks (userID, adID) and reports whether it was unmarked before.
	FirstSeen(ctx context.Context, userID, adID string, ttl time.Duration) (bool, error)
}

// CounterKind names a counter that may be bumped asynchronously.
type CounterKind string

const (
	CounterImpression CounterKind = "impression"
	CounterClick      CounterKind = "click"
)

// CounterEvent is a single asynchronous counter increment.
type CounterEvent struct {
	AdID string
	Kind CounterKind
}

// CounterSink accepts counter events for asynchronous application.
type CounterSink interface {
	Enqueue(ev CounterEvent)
}
