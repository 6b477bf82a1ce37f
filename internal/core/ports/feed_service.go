package ports

import (
	"context"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

// FeedService picks the next card for a user.
type FeedService interface {
	// NextCard returns one unresolved, unexpired, active ad in language, or
	// domain.ErrNoCardAvailable. Repeated calls are not guaranteed to agree.
	NextCard(ctx context.Context, userID, language string) (*domain.Advertisement, error)
}
