package domain

import "time"

// Outcome is how a user resolved an ad. All outcomes end in the same terminal state.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeSkipped   Outcome = "skipped"
)

// Resolution records that a user has answered or skipped an ad.
// At most one exists per (UserID, AdID).
type Resolution struct {
	UserID     string    `json:"user_id"     bson:"user_id"`
	AdID       string    `json:"ad_id"       bson:"ad_id"`
	Outcome    Outcome   `json:"outcome"     bson:"outcome"`
	ResolvedAt time.Time `json:"resolved_at" bson:"resolved_at"`
}

// ResolutionKey is the unique key of a (user, ad) pair.
func ResolutionKey(userID, adID string) string {
	return userID + ":" + adID
}

// AppliedOpsWindow is how many keyed operations a user or ad record remembers.
// Repeating an operation whose key is still in the window changes nothing.
const AppliedOpsWindow = 256

// RewardOpKey keys the correct-answer credit that follows a resolution.
func RewardOpKey(userID, adID string) string {
	return "reward:" + ResolutionKey(userID, adID)
}

// AttemptOpKey keys the attempt counter update that follows a resolution.
func AttemptOpKey(userID, adID string) string {
	return "attempt:" + ResolutionKey(userID, adID)
}
