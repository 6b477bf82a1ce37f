package ports

import (
	"context"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

// LedgerService owns user balances and the resolved-ad index.
type LedgerService interface {
	EnsureUser(ctx context.Context, id domain.Identity) (*domain.User, bool, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// ReserveForPublication debits cost in one conditional store operation
	// unless exempt is true.
	ReserveForPublication(ctx context.Context, userID string, cost int64, exempt bool) error
	// Refund is the compensating credit for a reservation whose publish failed.
	Refund(ctx context.Context, userID string, amount int64) error
	// CreditForCorrectAnswer rewards the resolution of (userID, adID). It is
	// keyed on the pair, so repeating the call for the same pair is a no-op.
	// Call it only after MarkResolved reported a new resolution.
	CreditForCorrectAnswer(ctx context.Context, userID, adID string) error
	MarkResolved(ctx context.Context, userID, adID string, outcome domain.Outcome) (bool, error)
	ResolvedAmong(ctx context.Context, userID string, adIDs []string) (map[string]bool, error)

	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*domain.User, error)
	SetPlan(ctx context.Context, userID string, plan domain.Plan) error
	SubscribeBalance(ctx context.Context, userID string) (<-chan BalanceEvent, func(), error)
}
