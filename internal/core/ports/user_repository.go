package ports

import (
	"context"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

// ProfileUpdate carries the profile fields a user may change. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// UserRepository persists ledger accounts and the per-user resolution index.
//
// Every balance mutation is relative and evaluated by the store; callers never
// write an absolute balance.
type UserRepository interface {
	// Bootstrap inserts u unless a record with the same ID exists. It never
	// overwrites an existing record and reports whether an insert happened.
	Bootstrap(ctx context.Context, u *domain.User) (*domain.User, bool, error)
	FindByID(ctx context.Context, userID string) (*domain.User, error)

	// DecrementCreditsIfSufficient subtracts amount only if the balance is at
	// least amount at execution time, and returns the new balance.
	// Returns domain.ErrInsufficientCredits or domain.ErrUserNotFound otherwise.
	DecrementCreditsIfSufficient(ctx context.Context, userID string, amount int64) (int64, error)
	// IncrementCredits adds amount and returns the new balance.
	IncrementCredits(ctx context.Context, userID string, amount int64) (int64, error)
	// IncrementCreditsOnce adds amount unless opKey is among the account's
	// recently applied operations, and reports whether this call applied it.
	// The key check and the increment are one store operation, so retrying a
	// call whose outcome is unknown cannot apply it twice.
	IncrementCreditsOnce(ctx context.Context, userID string, amount int64, opKey string) (int64, bool, error)

	// AddResolution records r and reports whether it was newly added.
	AddResolution(ctx context.Context, r domain.Resolution) (bool, error)
	// ResolvedAmong returns the subset of adIDs the user has already resolved.
	ResolvedAmong(ctx context.Context, userID string, adIDs []string) (map[string]bool, error)

	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*domain.User, error)
	SetPlan(ctx context.Context, userID string, plan domain.Plan) error
}
