// Package memory is an in-process record store. It backs STORE_DRIVER=memory
// and the concurrency tests; every mutation holds the store lock so the
// conditional and relative writes have the same atomicity as the Mongo ones.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

// Store holds users, advertisements and the resolution index.
type Store struct {
	mu sync.RWMutex

	users       map[string]*domain.User
	ads         map[string]*domain.Advertisement
	resolutions map[string]domain.Resolution
	// applied holds the recent operation keys of each record, oldest first.
	applied map[string][]string
}

func New() *Store {
	return &Store{
		users:       make(map[string]*domain.User),
		ads:         make(map[string]*domain.Advertisement),
		resolutions: make(map[string]domain.Resolution),
		applied:     make(map[string][]string),
	}
}

// Users returns the UserRepository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Ads returns the AdRepository view of the store.
func (s *Store) Ads() *AdRepository { return &AdRepository{s: s} }

// markApplied adds key to the window of record and reports whether it was
// absent. The caller holds the write lock.
func (s *Store) markApplied(record, key string) bool {
	ops := s.applied[record]
	if slices.Contains(ops, key) {
		return false
	}
	ops = append(ops, key)
	if len(ops) > domain.AppliedOpsWindow {
		ops = ops[len(ops)-domain.AppliedOpsWindow:]
	}
	s.applied[record] = ops
	return true
}

// Ping always succeeds; it lets the store stand in for a health dependency.
func (s *Store) Ping(context.Context) error { return nil }

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// UserRepository implements ports.UserRepository.
type UserRepository struct {
	s *Store
}

var _ ports.UserRepository = (*UserRepository)(nil)

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *UserRepository) Bootstrap(_ context.Context, u *domain.User) (*domain.User, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.users[u.ID]; ok {
		return cloneUser(existing), false, nil
	}
	r.s.users[u.ID] = cloneUser(u)
	return cloneUser(u), true, nil
}

func (r *UserRepository) FindByID(_ context.Context, userID string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) DecrementCreditsIfSufficient(_ context.Context, userID string, amount int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	if u.Credits < amount {
		return u.Credits, domain.ErrInsufficientCredits
	}
	u.Credits -= amount
	return u.Credits, nil
}

func (r *UserRepository) IncrementCredits(_ context.Context, userID string, amount int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	u.Credits += amount
	return u.Credits, nil
}

func (r *UserRepository) IncrementCreditsOnce(_ context.Context, userID string, amount int64, opKey string) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return 0, false, domain.ErrUserNotFound
	}
	if !r.s.markApplied("user:"+userID, opKey) {
		return u.Credits, false, nil
	}
	u.Credits += amount
	return u.Credits, true, nil
}

func (r *UserRepository) AddResolution(_ context.Context, res domain.Resolution) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[res.UserID]; !ok {
		return false, domain.ErrUserNotFound
	}
	key := domain.ResolutionKey(res.UserID, res.AdID)
	if _, ok := r.s.resolutions[key]; ok {
		return false, nil
	}
	r.s.resolutions[key] = res
	return true, nil
}

func (r *UserRepository) ResolvedAmong(_ context.Context, userID string, adIDs []string) (map[string]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]bool)
	for _, id := range adIDs {
		if _, ok := r.s.resolutions[domain.ResolutionKey(userID, id)]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, userID string, upd ports.ProfileUpdate) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = *upd.PhotoURL
	}
	return cloneUser(u), nil
}

func (r *UserRepository) SetPlan(_ context.Context, userID string, plan domain.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Plan = plan
	return nil
}

// ---------------------------------------------------------------------------
// Advertisements
// ---------------------------------------------------------------------------

// AdRepository implements ports.AdRepository.
type AdRepository struct {
	s *Store
}

var _ ports.AdRepository = (*AdRepository)(nil)

func cloneAd(a *domain.Advertisement) *domain.Advertisement {
	c := *a
	c.Quiz.Options = append([]string(nil), a.Quiz.Options...)
	if a.Active != nil {
		c.Active = domain.BoolPtr(*a.Active)
	}
	return &c
}

func (r *AdRepository) Create(_ context.Context, ad *domain.Advertisement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.ads[ad.ID] = cloneAd(ad)
	return nil
}

func (r *AdRepository) FindByID(_ context.Context, adID string) (*domain.Advertisement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ad, ok := r.s.ads[adID]
	if !ok {
		return nil, domain.ErrAdNotFound
	}
	return cloneAd(ad), nil
}

func (r *AdRepository) IncrementCounters(_ context.Context, adID string, d domain.CounterDelta) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ad, ok := r.s.ads[adID]
	if !ok {
		return domain.ErrAdNotFound
	}
	ad.Impressions += d.Impressions
	ad.Clicks += d.Clicks
	ad.Attempts += d.Attempts
	ad.CorrectAnswers += d.CorrectAnswers
	return nil
}

func (r *AdRepository) IncrementCountersOnce(_ context.Context, adID string, d domain.CounterDelta, opKey string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ad, ok := r.s.ads[adID]
	if !ok {
		return false, domain.ErrAdNotFound
	}
	if !r.s.markApplied("ad:"+adID, opKey) {
		return false, nil
	}
	ad.Impressions += d.Impressions
	ad.Clicks += d.Clicks
	ad.Attempts += d.Attempts
	ad.CorrectAnswers += d.CorrectAnswers
	return true, nil
}

func (r *AdRepository) owned(adID, ownerID string) (*domain.Advertisement, error) {
	ad, ok := r.s.ads[adID]
	if !ok {
		return nil, domain.ErrAdNotFound
	}
	if ad.OwnerID != ownerID {
		return nil, domain.ErrNotOwner
	}
	return ad, nil
}

func (r *AdRepository) SetActive(_ context.Context, adID, ownerID string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ad, err := r.owned(adID, ownerID)
	if err != nil {
		return err
	}
	ad.Active = domain.BoolPtr(active)
	return nil
}

func (r *AdRepository) Delete(_ context.Context, adID, ownerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.owned(adID, ownerID); err != nil {
		return err
	}
	delete(r.s.ads, adID)
	delete(r.s.applied, "ad:"+adID)
	return nil
}

// FindCandidates applies the same predicates as the Mongo pipeline, including
// the anti-join on the resolution index. Order is randomised by map iteration.
func (r *AdRepository) FindCandidates(_ context.Context, q ports.CandidateQuery) ([]*domain.Advertisement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Advertisement, 0)
	for _, ad := range r.s.ads {
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		if ad.Language != q.Language || !ad.Visible(q.Now) {
			continue
		}
		if q.ExcludeOwnerID != "" && ad.OwnerID == q.ExcludeOwnerID {
			continue
		}
		if q.ViewerID != "" {
			if _, ok := r.s.resolutions[domain.ResolutionKey(q.ViewerID, ad.ID)]; ok {
				continue
			}
		}
		out = append(out, cloneAd(ad))
	}
	return out, nil
}

func (r *AdRepository) ListByOwner(_ context.Context, ownerID string) ([]*domain.Advertisement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Advertisement, 0)
	for _, ad := range r.s.ads {
		if ad.OwnerID == ownerID {
			out = append(out, cloneAd(ad))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *AdRepository) CountUpTo(_ context.Context, limit int64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := int64(len(r.s.ads))
	if limit > 0 && n > limit {
		n = limit
	}
	return n, nil
}
