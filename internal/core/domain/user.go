package domain

import (
	"net/url"
	"time"
)

// Plan is the billing tier of a user. It decides how long published ads live
// and how long their description may be.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
)

const (
	// InitialCredits is the balance granted on first sign-in.
	InitialCredits int64 = 3
	// PublicationCost is the price of publishing one ad.
	PublicationCost int64 = 3
	// CorrectAnswerReward is credited once per correctly answered ad.
	CorrectAnswerReward int64 = 1
	// LuckyThreshold: while fewer ads than this exist platform-wide, publishing is free.
	LuckyThreshold int64 = 3
)

var planHorizons = map[Plan]time.Duration{
	PlanFree:     7 * 24 * time.Hour,
	PlanStandard: 30 * 24 * time.Hour,
	PlanPremium:  90 * 24 * time.Hour,
}

var planDescriptionLimits = map[Plan]int{
	PlanFree:     140,
	PlanStandard: 1000,
	PlanPremium:  1000,
}

// Valid reports whether p is one of the known plans.
func (p Plan) Valid() bool {
	_, ok := planHorizons[p]
	return ok
}

// Horizon returns how long an ad published under p stays visible.
// Unknown plans fall back to the free horizon.
func (p Plan) Horizon() time.Duration {
	if h, ok := planHorizons[p]; ok {
		return h
	}
	return planHorizons[PlanFree]
}

// DescriptionLimit returns the maximum description length in characters.
func (p Plan) DescriptionLimit() int {
	if l, ok := planDescriptionLimits[p]; ok {
		return l
	}
	return planDescriptionLimits[PlanFree]
}

// User is the ledger account of a signed-in identity.
//
// Credits are only ever mutated through relative store operations; the value
// held here is a snapshot. Resolved ads are kept in a separate resolution index
// keyed by (user, ad) rather than as an embedded set.
type User struct {
	ID          string    `json:"id" bson:"_id"`
	Email       string    `json:"email,omitempty" bson:"email,omitempty"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	PhotoURL    string    `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	Credits     int64     `json:"credits" bson:"credits"`
	Plan        Plan      `json:"plan" bson:"plan"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// Identity is what the identity provider tells us about the caller.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	PhotoURL    string
}

// NewUser builds the bootstrap record for a first-seen identity.
func NewUser(id Identity, now time.Time) *User {
	name := id.DisplayName
	if name == "" {
		name = defaultDisplayName(id.Email)
	}
	return &User{
		ID:          id.UserID,
		Email:       id.Email,
		DisplayName: name,
		PhotoURL:    id.PhotoURL,
		Credits:     InitialCredits,
		Plan:        PlanFree,
		CreatedAt:   now.UTC(),
	}
}

// AuthorIcon returns the user's photo, or a generated avatar URL when none is set.
func (u *User) AuthorIcon() string {
	if u.PhotoURL != "" {
		return u.PhotoURL
	}
	name := u.DisplayName
	if name == "" {
		name = "U"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}

func defaultDisplayName(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			if i == 0 {
				break
			}
			return email[:i]
		}
	}
	if email != "" {
		return email
	}
	return "User"
}
