package domain

import "errors"

// Ledger errors.
var (
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrUserNotFound           = errors.New("user not found")
	ErrConflictRetryExhausted = errors.New("balance update conflicted too many times")
	// ErrWriteConflict is reported by stores when an optimistic write lost a race.
	// Services retry it; it never reaches the transport layer.
	ErrWriteConflict   = errors.New("write conflict")
	ErrAlreadyResolved = errors.New("ad already resolved by user")
)

// Advertisement errors.
var (
	ErrAdNotFound      = errors.New("advertisement not found")
	ErrNotOwner        = errors.New("caller does not own the advertisement")
	ErrInvalidQuiz     = errors.New("invalid quiz")
	ErrInvalidLanguage = errors.New("invalid language code")
	ErrContentTooLong  = errors.New("description exceeds plan limit")
	ErrEmptyContent    = errors.New("description is required")
	ErrInvalidAnswer   = errors.New("answer index out of range")
	ErrNoCardAvailable = errors.New("no card available")
	ErrInvalidLink     = errors.New("link must be an http(s) url")
)

// Collaborator errors.
var (
	ErrStorageFailure = errors.New("object storage failure")
	ErrQuizGenerator  = errors.New("quiz generation failed")
	ErrInvalidPlan    = errors.New("invalid plan")
	ErrInvalidProfile = errors.New("invalid profile")
)

// IsPermanent reports whether err is a business outcome that must not be retried.
func IsPermanent(err error) bool {
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var permanentErrors = []error{
	ErrInsufficientCredits,
	ErrUserNotFound,
	ErrConflictRetryExhausted,
	ErrAlreadyResolved,
	ErrAdNotFound,
	ErrNotOwner,
	ErrInvalidQuiz,
	ErrInvalidLanguage,
	ErrContentTooLong,
	ErrEmptyContent,
	ErrInvalidAnswer,
	ErrInvalidLink,
	ErrInvalidPlan,
	ErrInvalidProfile,
}
