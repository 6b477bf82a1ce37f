package domain

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// AdState is the lifecycle state of an advertisement as observed at a point in time.
// Expired is derived from ExpiresAt at read time and never stored.
type AdState string

const (
	AdStateActive  AdState = "active"
	AdStatePaused  AdState = "paused"
	AdStateExpired AdState = "expired"
)

// Counters are the four monotonic per-ad counters.
type Counters struct {
	Impressions    int64 `json:"impressions"     bson:"impressions"`
	Clicks         int64 `json:"clicks"          bson:"clicks"`
	Attempts       int64 `json:"attempts"        bson:"attempts"`
	CorrectAnswers int64 `json:"correct_answers" bson:"correct_answers"`
}

// Advertisement is an ad card with its quiz.
type Advertisement struct {
	ID          string    `json:"id"                  bson:"_id"`
	OwnerID     string    `json:"owner_id"            bson:"owner_id"`
	AuthorName  string    `json:"author_name"         bson:"author_name"`
	AuthorIcon  string    `json:"author_icon"         bson:"author_icon"`
	Description string    `json:"description"         bson:"description"`
	ImageURL    string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	LinkURL     string    `json:"link_url,omitempty"  bson:"link_url,omitempty"`
	Quiz        Quiz      `json:"quiz"                bson:"quiz"`
	Language    string    `json:"language"            bson:"language"`
	Plan        Plan      `json:"plan"                bson:"plan"`
	CreatedAt   time.Time `json:"created_at"          bson:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"          bson:"expires_at"`
	// Active is nil on records written before the flag existed; nil means active.
	Active   *bool `json:"is_active,omitempty" bson:"is_active,omitempty"`
	Counters `bson:",inline"`
}

// IsActive reports the owner-controlled flag, treating an absent flag as true.
func (a *Advertisement) IsActive() bool {
	return a.Active == nil || *a.Active
}

// IsExpired reports whether now is past the expiry instant.
func (a *Advertisement) IsExpired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && now.After(a.ExpiresAt)
}

// State derives the lifecycle state at now. Expiry wins over the active flag.
func (a *Advertisement) State(now time.Time) AdState {
	switch {
	case a.IsExpired(now):
		return AdStateExpired
	case !a.IsActive():
		return AdStatePaused
	default:
		return AdStateActive
	}
}

// Visible reports whether the ad may be served in a feed at now.
func (a *Advertisement) Visible(now time.Time) bool {
	return a.State(now) == AdStateActive
}

// SuccessRate returns the percentage of correct attempts, rounded, or 0 without attempts.
func (c Counters) SuccessRate() int {
	if c.Attempts <= 0 {
		return 0
	}
	return int(math.Round(float64(c.CorrectAnswers) / float64(c.Attempts) * 100))
}

// CounterDelta is a set of relative counter increments applied atomically.
type CounterDelta struct {
	Impressions    int64
	Clicks         int64
	Attempts       int64
	CorrectAnswers int64
}

// IsZero reports whether the delta changes nothing.
func (d CounterDelta) IsZero() bool {
	return d == CounterDelta{}
}

// AttemptDelta is the increment for one quiz attempt. Attempts and correct
// answers move together so correct answers never exceed attempts.
func AttemptDelta(wasCorrect bool) CounterDelta {
	d := CounterDelta{Attempts: 1}
	if wasCorrect {
		d.CorrectAnswers = 1
	}
	return d
}

// ValidateContent checks the description against the plan limit.
func ValidateContent(description string, plan Plan) error {
	n := utf8.RuneCountInString(description)
	if n == 0 {
		return ErrEmptyContent
	}
	if n > plan.DescriptionLimit() {
		return ErrContentTooLong
	}
	return nil
}

// ValidateLink accepts an empty link or an absolute http(s) URL.
func ValidateLink(link string) error {
	if err := validate.Var(link, "omitempty,http_url,max=2048"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLink, link)
	}
	return nil
}

// BoolPtr is a small helper for the optional Active flag.
func BoolPtr(v bool) *bool { return &v }
