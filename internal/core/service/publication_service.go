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

const maxDraftSourceLen = 1000

// PublicationService composes the ledger, the ad manager and the external
// collaborators into the publish flow. A reservation is always either followed
// by a persisted ad or refunded.
type PublicationService struct {
	ledger    ports.LedgerService
	ads       ports.AdService
	storage   ports.ObjectStorage
	generator ports.QuizGenerator
	now       func() time.Time
	log       zerolog.Logger
}

// NewPublicationService wires the publish flow. storage and generator may be
// nil; image uploads and drafting then fail with their collaborator errors.
func NewPublicationService(
	ledger ports.LedgerService,
	ads ports.AdService,
	storage ports.ObjectStorage,
	generator ports.QuizGenerator,
	log zerolog.Logger,
) *PublicationService {
	return &PublicationService{
		ledger:    ledger,
		ads:       ads,
		storage:   storage,
		generator: generator,
		now:       time.Now,
		log:       log,
	}
}

// Draft asks the quiz generator for a quiz about text. The result is
// untrusted and rejected unless it has the exact expected shape.
func (s *PublicationService) Draft(ctx context.Context, userID, text string) (*domain.QuizDraft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyContent
	}
	if utf8.RuneCountInString(text) > maxDraftSourceLen {
		return nil, domain.ErrContentTooLong
	}
	if s.generator == nil {
		return nil, fmt.Errorf("%w: generator not configured", domain.ErrQuizGenerator)
	}

	draft, err := s.generator.Generate(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuiz) || errors.Is(err, domain.ErrQuizGenerator) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrQuizGenerator, err)
	}
	out := &domain.QuizDraft{
		Quiz:     draft.Quiz.Normalized(),
		Language: domain.NormalizeLanguage(draft.Language),
	}
	if err := domain.ValidateDraft(*out); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("quiz generator returned a malformed draft")
		return nil, err
	}
	return out, nil
}

// Publish validates the ad, reserves credits (or applies the early-adopter
// exemption), uploads the optional image and persists the record. Any failure
// after the reservation refunds it.
func (s *PublicationService) Publish(ctx context.Context, in ports.PublishInput) (*ports.PublishResult, error) {
	user, err := s.ledger.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	// Validate before touching credits.
	description := strings.TrimSpace(in.Description)
	if err := domain.ValidateContent(description, user.Plan); err != nil {
		return nil, err
	}
	quiz := in.Quiz.Normalized()
	if err := domain.ValidateQuiz(quiz); err != nil {
		return nil, err
	}
	lang := domain.NormalizeLanguage(in.Language)
	if err := domain.ValidateLanguage(lang); err != nil {
		return nil, err
	}
	if err := domain.ValidateLink(strings.TrimSpace(in.LinkURL)); err != nil {
		return nil, err
	}

	// Read then act: concurrent publishes near the threshold may all be exempt.
	existing, err := s.ads.CountUpTo(ctx, domain.LuckyThreshold)
	if err != nil {
		return nil, fmt.Errorf("publish: count ads: %w", err)
	}
	exempt := existing < domain.LuckyThreshold

	if err := s.ledger.ReserveForPublication(ctx, user.ID, domain.PublicationCost, exempt); err != nil {
		return nil, err
	}
	var charged int64
	if !exempt {
		charged = domain.PublicationCost
	}

	var imageURL string
	if in.Image != nil && len(in.Image.Data) > 0 {
		imageURL, err = s.upload(ctx, user.ID, in.Image)
		if err != nil {
			s.rollback(ctx, user.ID, charged, "image upload")
			return nil, err
		}
	}

	ad, err := s.ads.Create(ctx, ports.CreateAdInput{
		OwnerID:     user.ID,
		AuthorName:  user.DisplayName,
		AuthorIcon:  user.AuthorIcon(),
		Description: description,
		ImageURL:    imageURL,
		LinkURL:     in.LinkURL,
		Quiz:        quiz,
		Language:    lang,
		Plan:        user.Plan,
	})
	if err != nil {
		s.rollback(ctx, user.ID, charged, "create ad")
		return nil, fmt.Errorf("publish: %w", err)
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("ad_id", ad.ID).
		Bool("exempt", exempt).
		Int64("charged", charged).
		Msg("ad published")
	return &ports.PublishResult{Ad: ad, Exempt: exempt, Charged: charged}, nil
}

func (s *PublicationService) upload(ctx context.Context, userID string, img *ports.ImageUpload) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("%w: storage not configured", domain.ErrStorageFailure)
	}
	key := fmt.Sprintf("ads/%d_%s%s", s.now().UnixNano(), userID, img.Ext)
	url, err := s.storage.Put(ctx, key, img.ContentType, img.Data)
	if err != nil {
		if errors.Is(err, domain.ErrStorageFailure) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	return url, nil
}

// rollback refunds a reservation. It runs on a context detached from the
// request so a cancelled client cannot leave credits debited.
func (s *PublicationService) rollback(ctx context.Context, userID string, amount int64, stage string) {
	if amount == 0 {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.ledger.Refund(rctx, userID, amount); err != nil {
		s.log.Error().Err(err).
			Str("user_id", userID).
			Int64("amount", amount).
			Str("stage", stage).
			Msg("publication rollback failed, balance needs reconciliation")
		return
	}
	s.log.Warn().Str("user_id", userID).Int64("amount", amount).Str("stage", stage).Msg("publication rolled back")
}
