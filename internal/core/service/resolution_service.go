package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

// ResolutionService records answers and skips. LedgerService.MarkResolved is
// the serialization point: only the call that newly resolves a (user, ad)
// pair applies the reward and the attempt counters. Both effects are keyed on
// the pair, so retrying them after an ambiguous failure cannot apply them twice.
type ResolutionService struct {
	ledger ports.LedgerService
	ads    ports.AdService
	retry  RetryPolicy
	log    zerolog.Logger
}

func NewResolutionService(ledger ports.LedgerService, ads ports.AdService, log zerolog.Logger) *ResolutionService {
	return &ResolutionService{ledger: ledger, ads: ads, retry: DefaultRetryPolicy, log: log}
}

// Answer resolves the ad with the selected option.
func (s *ResolutionService) Answer(ctx context.Context, userID, adID string, selected int) (*ports.ResolutionResult, error) {
	ad, err := s.ads.Get(ctx, adID)
	if err != nil {
		return nil, err
	}
	if selected < 0 || selected >= len(ad.Quiz.Options) {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidAnswer, selected)
	}

	correct := ad.Quiz.IsCorrect(selected)
	outcome := domain.OutcomeIncorrect
	if correct {
		outcome = domain.OutcomeCorrect
	}
	res := &ports.ResolutionResult{AdID: adID, Outcome: outcome, CorrectIndex: ad.Quiz.AnswerIndex}

	added, err := s.ledger.MarkResolved(ctx, userID, adID, outcome)
	if err != nil {
		return nil, fmt.Errorf("answer: %w", err)
	}
	if !added {
		s.log.Debug().Str("user_id", userID).Str("ad_id", adID).Msg("answer ignored, already resolved")
		res.AlreadyResolved = true
		return res, nil
	}

	// The resolution is committed; finish the paired effects even if the
	// caller goes away.
	ctx = context.WithoutCancel(ctx)
	if correct {
		err := retryTransient(ctx, s.retry, s.log, "credit correct answer", func() error {
			return s.ledger.CreditForCorrectAnswer(ctx, userID, adID)
		})
		if err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Str("ad_id", adID).Msg("reward lost after resolution")
			return nil, fmt.Errorf("answer: credit: %w", err)
		}
		res.CreditsAwarded = domain.CorrectAnswerReward
	}
	err = retryTransient(ctx, s.retry, s.log, "record attempt", func() error {
		return s.ads.RecordAttempt(ctx, userID, adID, correct)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("ad_id", adID).Bool("correct", correct).Msg("attempt not recorded")
	}

	s.log.Info().Str("user_id", userID).Str("ad_id", adID).Str("outcome", string(outcome)).Msg("ad answered")
	return res, nil
}

// Skip resolves the ad without an answer. No credit or counter changes.
func (s *ResolutionService) Skip(ctx context.Context, userID, adID string) (*ports.ResolutionResult, error) {
	if _, err := s.ads.Get(ctx, adID); err != nil {
		return nil, err
	}
	added, err := s.ledger.MarkResolved(ctx, userID, adID, domain.OutcomeSkipped)
	if err != nil {
		return nil, fmt.Errorf("skip: %w", err)
	}
	if added {
		s.log.Info().Str("user_id", userID).Str("ad_id", adID).Msg("ad skipped")
	}
	return &ports.ResolutionResult{
		AdID:            adID,
		Outcome:         domain.OutcomeSkipped,
		AlreadyResolved: !added,
		CorrectIndex:    -1,
	}, nil
}
