package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

// AdService manages the advertisement lifecycle. Counter changes go through
// AdRepository.IncrementCounters and are never computed from a prior read.
type AdService struct {
	repo  ports.AdRepository
	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

func NewAdService(repo ports.AdRepository, log zerolog.Logger) *AdService {
	return &AdService{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
		log:   log,
	}
}

// Create validates and persists a new advertisement. It starts active with
// zeroed counters and expires after the plan horizon.
func (s *AdService) Create(ctx context.Context, in ports.CreateAdInput) (*domain.Advertisement, error) {
	plan := in.Plan
	if !plan.Valid() {
		plan = domain.PlanFree
	}
	description := strings.TrimSpace(in.Description)
	if err := domain.ValidateContent(description, plan); err != nil {
		return nil, fmt.Errorf("create ad: %w", err)
	}
	quiz := in.Quiz.Normalized()
	if err := domain.ValidateQuiz(quiz); err != nil {
		return nil, fmt.Errorf("create ad: %w", err)
	}
	lang := domain.NormalizeLanguage(in.Language)
	if err := domain.ValidateLanguage(lang); err != nil {
		return nil, fmt.Errorf("create ad: %w", err)
	}
	link := strings.TrimSpace(in.LinkURL)
	if err := domain.ValidateLink(link); err != nil {
		return nil, fmt.Errorf("create ad: %w", err)
	}

	now := s.now().UTC()
	ad := &domain.Advertisement{
		ID:          s.newID(),
		OwnerID:     in.OwnerID,
		AuthorName:  in.AuthorName,
		AuthorIcon:  in.AuthorIcon,
		Description: description,
		ImageURL:    in.ImageURL,
		LinkURL:     link,
		Quiz:        quiz,
		Language:    lang,
		Plan:        plan,
		CreatedAt:   now,
		ExpiresAt:   now.Add(plan.Horizon()),
		Active:      domain.BoolPtr(true),
	}
	if err := s.repo.Create(ctx, ad); err != nil {
		s.log.Error().Err(err).Str("owner_id", in.OwnerID).Msg("failed to create ad")
		return nil, fmt.Errorf("create ad: %w", err)
	}

	s.log.Info().
		Str("ad_id", ad.ID).
		Str("owner_id", ad.OwnerID).
		Str("plan", string(plan)).
		Time("expires_at", ad.ExpiresAt).
		Msg("ad created")
	return ad, nil
}

func (s *AdService) Get(ctx context.Context, adID string) (*domain.Advertisement, error) {
	return s.repo.FindByID(ctx, adID)
}

// ListOwned returns the owner's ads, newest first, with derived state.
func (s *AdService) ListOwned(ctx context.Context, ownerID string) ([]ports.AdStats, error) {
	ads, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owned ads: %w", err)
	}
	now := s.now()
	out := make([]ports.AdStats, 0, len(ads))
	for _, ad := range ads {
		out = append(out, ports.AdStats{
			Ad:          ad,
			State:       ad.State(now),
			SuccessRate: ad.Counters.SuccessRate(),
		})
	}
	return out, nil
}

func (s *AdService) IncrementImpression(ctx context.Context, adID string) error {
	return s.repo.IncrementCounters(ctx, adID, domain.CounterDelta{Impressions: 1})
}

func (s *AdService) IncrementClick(ctx context.Context, adID string) error {
	return s.repo.IncrementCounters(ctx, adID, domain.CounterDelta{Clicks: 1})
}

// RecordAttempt bumps attempts, and correct answers when wasCorrect, in one
// update keyed on (userID, adID).
func (s *AdService) RecordAttempt(ctx context.Context, userID, adID string, wasCorrect bool) error {
	applied, err := s.repo.IncrementCountersOnce(ctx, adID, domain.AttemptDelta(wasCorrect), domain.AttemptOpKey(userID, adID))
	if err != nil {
		return err
	}
	if !applied {
		s.log.Debug().Str("user_id", userID).Str("ad_id", adID).Msg("attempt already recorded")
	}
	return nil
}

// ApplyCounterEvent is the dispatcher entry point.
func (s *AdService) ApplyCounterEvent(ctx context.Context, ev ports.CounterEvent) error {
	switch ev.Kind {
	case ports.CounterImpression:
		return s.IncrementImpression(ctx, ev.AdID)
	case ports.CounterClick:
		return s.IncrementClick(ctx, ev.AdID)
	default:
		return fmt.Errorf("apply counter event: unknown counter %q", ev.Kind)
	}
}

func (s *AdService) SetActive(ctx context.Context, adID, ownerID string, active bool) error {
	if err := s.repo.SetActive(ctx, adID, ownerID, active); err != nil {
		return err
	}
	s.log.Info().Str("ad_id", adID).Bool("active", active).Msg("ad visibility changed")
	return nil
}

func (s *AdService) Delete(ctx context.Context, adID, ownerID string) error {
	if err := s.repo.Delete(ctx, adID, ownerID); err != nil {
		return err
	}
	s.log.Info().Str("ad_id", adID).Str("owner_id", ownerID).Msg("ad deleted")
	return nil
}

func (s *AdService) CountUpTo(ctx context.Context, limit int64) (int64, error) {
	return s.repo.CountUpTo(ctx, limit)
}
