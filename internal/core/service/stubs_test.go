package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
	"github.com/adrecipro/adquiz/internal/infrastructure/db/memory"
)

var discardLogger = zerolog.Nop()

var fixedNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

// fastRetry keeps retry loops from sleeping in tests.
var fastRetry = RetryPolicy{MaxTries: 5, Initial: time.Microsecond, Max: time.Microsecond}

// ---------------------------------------------------------------------------
// Failure-injecting repository wrappers
// ---------------------------------------------------------------------------

// flakyUsers delegates to a real repository and fails selected calls first.
type flakyUsers struct {
	ports.UserRepository

	mu              sync.Mutex
	decrementErrs   []error // returned, in order, before delegating
	incrementErrs   []error
	decrementCalls  int
	incrementCalls  int
	addResolutionFn func(domain.Resolution) (bool, error)
	// lostAcks are returned, in order, after a keyed increment has committed,
	// the way a timeout looks when the server applied the write.
	lostAcks []error
}

// popErr removes and returns the first error of errs, or nil.
func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *flakyUsers) DecrementCreditsIfSufficient(ctx context.Context, userID string, amount int64) (int64, error) {
	f.mu.Lock()
	f.decrementCalls++
	if len(f.decrementErrs) > 0 {
		err := f.decrementErrs[0]
		f.decrementErrs = f.decrementErrs[1:]
		f.mu.Unlock()
		return 0, err
	}
	f.mu.Unlock()
	return f.UserRepository.DecrementCreditsIfSufficient(ctx, userID, amount)
}

func (f *flakyUsers) IncrementCredits(ctx context.Context, userID string, amount int64) (int64, error) {
	f.mu.Lock()
	f.incrementCalls++
	if len(f.incrementErrs) > 0 {
		err := f.incrementErrs[0]
		f.incrementErrs = f.incrementErrs[1:]
		f.mu.Unlock()
		return 0, err
	}
	f.mu.Unlock()
	return f.UserRepository.IncrementCredits(ctx, userID, amount)
}

func (f *flakyUsers) IncrementCreditsOnce(ctx context.Context, userID string, amount int64, opKey string) (int64, bool, error) {
	f.mu.Lock()
	f.incrementCalls++
	err := popErr(&f.incrementErrs)
	f.mu.Unlock()
	if err != nil {
		return 0, false, err
	}

	balance, applied, err := f.UserRepository.IncrementCreditsOnce(ctx, userID, amount, opKey)
	if err != nil {
		return balance, applied, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if lost := popErr(&f.lostAcks); lost != nil {
		return 0, false, lost
	}
	return balance, applied, nil
}

func (f *flakyUsers) AddResolution(ctx context.Context, r domain.Resolution) (bool, error) {
	if f.addResolutionFn != nil {
		return f.addResolutionFn(r)
	}
	return f.UserRepository.AddResolution(ctx, r)
}

// flakyAds delegates to a real repository and can fail Create or count calls.
type flakyAds struct {
	ports.AdRepository

	createErr error
	countErr  error
	creates   int

	mu           sync.Mutex
	counterCalls int
	lostAcks     []error // returned after a keyed counter update committed
}

func (f *flakyAds) IncrementCountersOnce(ctx context.Context, adID string, d domain.CounterDelta, opKey string) (bool, error) {
	f.mu.Lock()
	f.counterCalls++
	f.mu.Unlock()

	applied, err := f.AdRepository.IncrementCountersOnce(ctx, adID, d, opKey)
	if err != nil {
		return applied, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if lost := popErr(&f.lostAcks); lost != nil {
		return false, lost
	}
	return applied, nil
}

func (f *flakyAds) Create(ctx context.Context, ad *domain.Advertisement) error {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	return f.AdRepository.Create(ctx, ad)
}

func (f *flakyAds) CountUpTo(ctx context.Context, limit int64) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.AdRepository.CountUpTo(ctx, limit)
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type stubStorage struct {
	err  error
	keys []string
}

func (s *stubStorage) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	return "https://cdn.example.com/" + key, nil
}

type stubGenerator struct {
	draft *domain.QuizDraft
	err   error
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, _ string) (*domain.QuizDraft, error) {
	g.calls++
	return g.draft, g.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []ports.CounterEvent
}

func (r *recordingSink) Enqueue(ev ports.CounterEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	store       *memory.Store
	users       *flakyUsers
	ads         *flakyAds
	notifier    *memory.Notifier
	ledger      *LedgerService
	adSvc       *AdService
	feed        *FeedService
	sink        *recordingSink
	storage     *stubStorage
	generator   *stubGenerator
	publication *PublicationService
	resolution  *ResolutionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:     store,
		users:     &flakyUsers{UserRepository: store.Users()},
		ads:       &flakyAds{AdRepository: store.Ads()},
		notifier:  memory.NewNotifier(),
		sink:      &recordingSink{},
		storage:   &stubStorage{},
		generator: &stubGenerator{},
	}
	f.ledger = NewLedgerService(f.users, f.notifier, discardLogger)
	f.ledger.retry = fastRetry
	f.ledger.now = func() time.Time { return fixedNow }

	f.adSvc = NewAdService(f.ads, discardLogger)
	f.adSvc.now = func() time.Time { return fixedNow }

	f.feed = NewFeedService(f.ads, f.ledger, f.sink, memory.NewImpressionDedup(), FeedConfig{}, discardLogger)
	f.feed.now = func() time.Time { return fixedNow }
	f.feed.pick = func(int) int { return 0 }

	f.publication = NewPublicationService(f.ledger, f.adSvc, f.storage, f.generator, discardLogger)
	f.publication.now = func() time.Time { return fixedNow }

	f.resolution = NewResolutionService(f.ledger, f.adSvc, discardLogger)
	f.resolution.retry = fastRetry
	return f
}

func (f *fixture) seedUser(t *testing.T, id string, credits int64, plan domain.Plan) {
	t.Helper()
	u := domain.NewUser(domain.Identity{UserID: id, DisplayName: id}, fixedNow)
	u.Credits = credits
	u.Plan = plan
	if _, _, err := f.store.Users().Bootstrap(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

// seedAd stores an ad directly, bypassing AdService.
func (f *fixture) seedAd(t *testing.T, id, owner string, expires time.Time) *domain.Advertisement {
	t.Helper()
	ad := &domain.Advertisement{
		ID:          id,
		OwnerID:     owner,
		Description: "ad " + id,
		Quiz:        validQuiz(),
		Language:    "ja",
		Plan:        domain.PlanFree,
		CreatedAt:   fixedNow.Add(-time.Hour),
		ExpiresAt:   expires,
		Active:      domain.BoolPtr(true),
	}
	if err := f.store.Ads().Create(context.Background(), ad); err != nil {
		t.Fatalf("seed ad: %v", err)
	}
	return ad
}

// seedPlatformAds fills the platform past the early-adopter threshold.
func (f *fixture) seedPlatformAds(t *testing.T) {
	t.Helper()
	for _, id := range []string{"seed-1", "seed-2", "seed-3"} {
		f.seedAd(t, id, "someone-else", fixedNow.Add(24*time.Hour))
	}
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	u, err := f.store.Users().FindByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	return u.Credits
}

func (f *fixture) ad(t *testing.T, adID string) *domain.Advertisement {
	t.Helper()
	ad, err := f.store.Ads().FindByID(context.Background(), adID)
	if err != nil {
		t.Fatalf("find ad: %v", err)
	}
	return ad
}

func validQuiz() domain.Quiz {
	return domain.Quiz{
		Question:    "What colour is the sky?",
		Options:     []string{"Blue", "Green", "Red"},
		AnswerIndex: 0,
	}
}
