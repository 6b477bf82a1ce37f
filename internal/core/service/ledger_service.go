package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

const maxDisplayNameLen = 50

var errNotifierDisabled = errors.New("balance notifications are not configured")

// LedgerService implements ports.LedgerService on top of a UserRepository.
// Every balance change is a relative store operation; nothing here reads a
// balance and writes it back.
type LedgerService struct {
	users    ports.UserRepository
	notifier ports.BalanceNotifier
	retry    RetryPolicy
	now      func() time.Time
	log      zerolog.Logger
}

// NewLedgerService wires the ledger. notifier may be nil.
func NewLedgerService(users ports.UserRepository, notifier ports.BalanceNotifier, log zerolog.Logger) *LedgerService {
	return &LedgerService{
		users:    users,
		notifier: notifier,
		retry:    DefaultRetryPolicy,
		now:      time.Now,
		log:      log,
	}
}

// EnsureUser bootstraps the ledger account of a first-seen identity. Existing
// accounts are returned unchanged.
func (s *LedgerService) EnsureUser(ctx context.Context, id domain.Identity) (*domain.User, bool, error) {
	if id.UserID == "" {
		return nil, false, fmt.Errorf("ensure user: %w", domain.ErrUserNotFound)
	}
	u, created, err := s.users.Bootstrap(ctx, domain.NewUser(id, s.now()))
	if err != nil {
		return nil, false, fmt.Errorf("ensure user: %w", err)
	}
	if created {
		s.log.Info().Str("user_id", u.ID).Int64("credits", u.Credits).Msg("user bootstrapped")
	}
	return u, created, nil
}

func (s *LedgerService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// ReserveForPublication debits cost unless exempt. The balance check happens
// inside the store's conditional decrement.
func (s *LedgerService) ReserveForPublication(ctx context.Context, userID string, cost int64, exempt bool) error {
	if exempt || cost <= 0 {
		s.log.Debug().Str("user_id", userID).Bool("exempt", exempt).Msg("publication reserved without charge")
		return nil
	}
	balance, err := retryConflicts(ctx, s.retry, s.log, "reserve", func() (int64, error) {
		return s.users.DecrementCreditsIfSufficient(ctx, userID, cost)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Int64("cost", cost).Int64("balance", balance).Msg("credits reserved")
	s.publish(ctx, userID, balance, -cost, ports.ReasonPublication)
	return nil
}

// Refund returns amount to the user after a failed publication.
func (s *LedgerService) Refund(ctx context.Context, userID string, amount int64) error {
	return s.credit(ctx, userID, amount, ports.ReasonRefund)
}

// CreditForCorrectAnswer adds the correct-answer reward for adID. The credit
// is keyed on the resolution, so a retried call never pays twice.
func (s *LedgerService) CreditForCorrectAnswer(ctx context.Context, userID, adID string) error {
	key := domain.RewardOpKey(userID, adID)
	type outcome struct {
		balance int64
		applied bool
	}
	out, err := retryConflicts(ctx, s.retry, s.log, ports.ReasonCorrectAnswer, func() (outcome, error) {
		b, applied, err := s.users.IncrementCreditsOnce(ctx, userID, domain.CorrectAnswerReward, key)
		return outcome{balance: b, applied: applied}, err
	})
	if err != nil {
		return err
	}
	if !out.applied {
		s.log.Debug().Str("user_id", userID).Str("ad_id", adID).Msg("reward already applied")
		return nil
	}
	s.log.Info().Str("user_id", userID).Str("ad_id", adID).Int64("balance", out.balance).Msg("reward credited")
	s.publish(ctx, userID, out.balance, domain.CorrectAnswerReward, ports.ReasonCorrectAnswer)
	return nil
}

func (s *LedgerService) credit(ctx context.Context, userID string, amount int64, reason string) error {
	if amount <= 0 {
		return nil
	}
	balance, err := retryConflicts(ctx, s.retry, s.log, reason, func() (int64, error) {
		return s.users.IncrementCredits(ctx, userID, amount)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Int64("amount", amount).Str("reason", reason).Int64("balance", balance).Msg("credits added")
	s.publish(ctx, userID, balance, amount, reason)
	return nil
}

// MarkResolved records the resolution of (userID, adID) and reports whether
// this call was the one that added it.
func (s *LedgerService) MarkResolved(ctx context.Context, userID, adID string, outcome domain.Outcome) (bool, error) {
	r := domain.Resolution{
		UserID:     userID,
		AdID:       adID,
		Outcome:    outcome,
		ResolvedAt: s.now().UTC(),
	}
	return retryConflicts(ctx, s.retry, s.log, "mark resolved", func() (bool, error) {
		return s.users.AddResolution(ctx, r)
	})
}

func (s *LedgerService) ResolvedAmong(ctx context.Context, userID string, adIDs []string) (map[string]bool, error) {
	if len(adIDs) == 0 {
		return map[string]bool{}, nil
	}
	return s.users.ResolvedAmong(ctx, userID, adIDs)
}

// UpdateProfile changes display name and photo. Credits and plan are never
// touched here.
func (s *LedgerService) UpdateProfile(ctx context.Context, userID string, upd ports.ProfileUpdate) (*domain.User, error) {
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" || utf8.RuneCountInString(name) > maxDisplayNameLen {
			return nil, fmt.Errorf("%w: display name must be 1-%d characters", domain.ErrInvalidProfile, maxDisplayNameLen)
		}
		upd.DisplayName = &name
	}
	if upd.PhotoURL != nil {
		photo := strings.TrimSpace(*upd.PhotoURL)
		if err := domain.ValidateLink(photo); err != nil {
			return nil, fmt.Errorf("%w: photo url", domain.ErrInvalidProfile)
		}
		upd.PhotoURL = &photo
	}
	return s.users.UpdateProfile(ctx, userID, upd)
}

// SetPlan is the entry point of the billing collaborator.
func (s *LedgerService) SetPlan(ctx context.Context, userID string, plan domain.Plan) error {
	if !plan.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPlan, plan)
	}
	if err := s.users.SetPlan(ctx, userID, plan); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Str("plan", string(plan)).Msg("plan changed")
	return nil
}

func (s *LedgerService) SubscribeBalance(ctx context.Context, userID string) (<-chan ports.BalanceEvent, func(), error) {
	if s.notifier == nil {
		return nil, nil, errNotifierDisabled
	}
	return s.notifier.Subscribe(ctx, userID)
}

func (s *LedgerService) publish(ctx context.Context, userID string, balance, delta int64, reason string) {
	if s.notifier == nil {
		return
	}
	ev := ports.BalanceEvent{
		UserID:  userID,
		Credits: balance,
		Delta:   delta,
		Reason:  reason,
		At:      s.now().UTC(),
	}
	if err := s.notifier.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("reason", reason).Msg("balance notification failed")
	}
}
