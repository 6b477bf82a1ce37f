package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

const defaultCandidateLimit = 50

// ResolvedIndex answers which of a set of ads a user already resolved.
type ResolvedIndex interface {
	ResolvedAmong(ctx context.Context, userID string, adIDs []string) (map[string]bool, error)
}

// FeedConfig tunes candidate selection.
type FeedConfig struct {
	CandidateLimit int
	// ExcludeOwnAds hides a user's own ads from their feed.
	ExcludeOwnAds bool
	// ImpressionTTL is how long a served card is not counted again for the same viewer.
	ImpressionTTL time.Duration
}

// FeedService selects the next card for a user.
type FeedService struct {
	ads      ports.AdRepository
	resolved ResolvedIndex
	counters ports.CounterSink
	dedup    ports.ImpressionDedup
	cfg      FeedConfig
	now      func() time.Time
	pick     func(n int) int
	log      zerolog.Logger
}

// NewFeedService wires the selector. counters and dedup may be nil, in which
// case impressions are not recorded or not de-duplicated respectively.
func NewFeedService(
	ads ports.AdRepository,
	resolved ResolvedIndex,
	counters ports.CounterSink,
	dedup ports.ImpressionDedup,
	cfg FeedConfig,
	log zerolog.Logger,
) *FeedService {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = defaultCandidateLimit
	}
	if cfg.ImpressionTTL <= 0 {
		cfg.ImpressionTTL = 24 * time.Hour
	}
	return &FeedService{
		ads:      ads,
		resolved: resolved,
		counters: counters,
		dedup:    dedup,
		cfg:      cfg,
		now:      time.Now,
		pick:     rand.IntN,
		log:      log,
	}
}

// NextCard returns a uniformly random eligible ad. The store query narrows the
// candidates; every eligibility rule is applied again here against the same
// clock so a lagging index can never surface a resolved, paused or expired ad.
func (s *FeedService) NextCard(ctx context.Context, userID, language string) (*domain.Advertisement, error) {
	lang := domain.NormalizeLanguage(language)
	if err := domain.ValidateLanguage(lang); err != nil {
		return nil, err
	}
	now := s.now()

	q := ports.CandidateQuery{
		Language: lang,
		Now:      now,
		ViewerID: userID,
		Limit:    s.cfg.CandidateLimit,
	}
	if s.cfg.ExcludeOwnAds {
		q.ExcludeOwnerID = userID
	}
	candidates, err := s.ads.FindCandidates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("next card: %w", err)
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoCardAvailable
	}

	ids := make([]string, len(candidates))
	for i, ad := range candidates {
		ids[i] = ad.ID
	}
	resolved, err := s.resolved.ResolvedAmong(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("next card: %w", err)
	}

	eligible := candidates[:0:0]
	for _, ad := range candidates {
		switch {
		case resolved[ad.ID]:
		case ad.IsExpired(now):
		case !ad.IsActive():
		case ad.Language != lang:
		case s.cfg.ExcludeOwnAds && ad.OwnerID == userID:
		default:
			eligible = append(eligible, ad)
		}
	}
	s.log.Debug().
		Str("user_id", userID).
		Str("language", lang).
		Int("candidates", len(candidates)).
		Int("eligible", len(eligible)).
		Msg("feed candidates filtered")
	if len(eligible) == 0 {
		return nil, domain.ErrNoCardAvailable
	}

	card := eligible[s.pick(len(eligible))]
	s.recordImpression(ctx, userID, card)
	return card, nil
}

func (s *FeedService) recordImpression(ctx context.Context, userID string, ad *domain.Advertisement) {
	if s.counters == nil || ad.OwnerID == userID {
		return
	}
	if s.dedup != nil {
		first, err := s.dedup.FirstSeen(ctx, userID, ad.ID, s.cfg.ImpressionTTL)
		if err != nil {
			s.log.Warn().Err(err).Str("ad_id", ad.ID).Msg("impression dedup failed, counting anyway")
		} else if !first {
			return
		}
	}
	s.counters.Enqueue(ports.CounterEvent{AdID: ad.ID, Kind: ports.CounterImpression})
}
