package ports

import (
	"context"
	"time"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

// CandidateQuery carries the predicates pushed into the store for a feed lookup.
type CandidateQuery struct {
	Language string    // required: equality on language
	Now      time.Time // expires_at > Now
	// ViewerID, when set, lets stores that can anti-join the resolution index
	// drop ads the viewer already resolved. Callers still filter client-side.
	ViewerID string
	// ExcludeOwnerID drops ads owned by this user when non-empty.
	ExcludeOwnerID string
	Limit          int // max rows; <= 0 means store default
}

// AdRepository persists advertisements. Counters are only changed through
// IncrementCounters, which applies all deltas in one atomic update.
type AdRepository interface {
	Create(ctx context.Context, ad *domain.Advertisement) error
	FindByID(ctx context.Context, adID string) (*domain.Advertisement, error)
	IncrementCounters(ctx context.Context, adID string, delta domain.CounterDelta) error
	// IncrementCountersOnce is IncrementCounters guarded by opKey, with the
	// same contract as UserRepository.IncrementCreditsOnce.
	IncrementCountersOnce(ctx context.Context, adID string, delta domain.CounterDelta, opKey string) (bool, error)

	// SetActive and Delete match on both id and owner. They return
	// domain.ErrAdNotFound when the id is unknown and domain.ErrNotOwner when
	// the record belongs to someone else.
	SetActive(ctx context.Context, adID, ownerID string, active bool) error
	Delete(ctx context.Context, adID, ownerID string) error

	FindCandidates(ctx context.Context, q CandidateQuery) ([]*domain.Advertisement, error)
	// ListByOwner returns the owner's ads, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Advertisement, error)
	// CountUpTo counts ads platform-wide, stopping at limit.
	CountUpTo(ctx context.Context, limit int64) (int64, error)
}
