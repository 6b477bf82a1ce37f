package ports

import (
	"context"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

// ResolutionResult reports what an answer or skip did.
type ResolutionResult struct {
	AdID    string
	Outcome domain.Outcome
	// AlreadyResolved is true when an earlier call resolved the pair; no
	// credit or counter was touched by this call.
	AlreadyResolved bool
	CreditsAwarded  int64
	CorrectIndex    int
}

// ResolutionService records answers and skips.
type ResolutionService interface {
	Answer(ctx context.Context, userID, adID string, selected int) (*ResolutionResult, error)
	Skip(ctx context.Context, userID, adID string) (*ResolutionResult, error)
}
