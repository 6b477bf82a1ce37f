package ports

import (
	"context"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

// CreateAdInput carries everything needed to persist a new advertisement.
type CreateAdInput struct {
	OwnerID     string
	AuthorName  string
	AuthorIcon  string
	Description string
	ImageURL    string
	LinkURL     string
	Quiz        domain.Quiz
	Language    string
	Plan        domain.Plan
}

// AdStats is the owner dashboard view of one advertisement.
type AdStats struct {
	Ad          *domain.Advertisement
	State       domain.AdState
	SuccessRate int
}

// AdService manages advertisement lifecycle and counters.
type AdService interface {
	Create(ctx context.Context, in CreateAdInput) (*domain.Advertisement, error)
	Get(ctx context.Context, adID string) (*domain.Advertisement, error)
	ListOwned(ctx context.Context, ownerID string) ([]AdStats, error)

	IncrementImpression(ctx context.Context, adID string) error
	IncrementClick(ctx context.Context, adID string) error
	// RecordAttempt counts userID's attempt on adID at most once.
	RecordAttempt(ctx context.Context, userID, adID string, wasCorrect bool) error
	ApplyCounterEvent(ctx context.Context, ev CounterEvent) error

	SetActive(ctx context.Context, adID, ownerID string, active bool) error
	Delete(ctx context.Context, adID, ownerID string) error
	CountUpTo(ctx context.Context, limit int64) (int64, error)
}
