package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type quizRequest struct {
	Question    string   `json:"question"     validate:"required"`
	Options     []string `json:"options"      validate:"required"`
	AnswerIndex *int     `json:"answer_index" validate:"required"`
}

type publishRequest struct {
	Description string      `json:"description" validate:"required"`
	LinkURL     string      `json:"link_url"`
	Language    string      `json:"language"    validate:"required"`
	Quiz        quizRequest `json:"quiz"        validate:"required"`
}

type draftRequest struct {
	Text string `json:"text" validate:"required"`
}

type answerRequest struct {
	SelectedIndex *int `json:"selected_index" validate:"required"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

// --- Response types ---

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Credits     int64     `json:"credits"`
	Plan        string    `json:"plan"`
	CreatedAt   time.Time `json:"created_at"`
}

// cardQuiz never carries the answer.
type cardQuiz struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type cardResponse struct {
	ID          string    `json:"id"`
	AuthorName  string    `json:"author_name"`
	AuthorIcon  string    `json:"author_icon"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	LinkURL     string    `json:"link_url,omitempty"`
	Language    string    `json:"language"`
	Quiz        cardQuiz  `json:"quiz"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ownedQuiz struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
}

type countersResponse struct {
	Impressions    int64 `json:"impressions"`
	Clicks         int64 `json:"clicks"`
	Attempts       int64 `json:"attempts"`
	CorrectAnswers int64 `json:"correct_answers"`
}

type ownedAdResponse struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	ImageURL    string           `json:"image_url,omitempty"`
	LinkURL     string           `json:"link_url,omitempty"`
	Language    string           `json:"language"`
	Plan        string           `json:"plan"`
	Quiz        ownedQuiz        `json:"quiz"`
	State       string           `json:"state"`
	Active      bool             `json:"is_active"`
	Counters    countersResponse `json:"counters"`
	SuccessRate int              `json:"success_rate"`
	CreatedAt   time.Time        `json:"created_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
}

type publishResponse struct {
	Ad      ownedAdResponse `json:"ad"`
	Exempt  bool            `json:"exempt"`
	Charged int64           `json:"charged"`
}

type draftResponse struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Language    string   `json:"language"`
}

type resolutionResponse struct {
	AdID            string `json:"ad_id"`
	Outcome         string `json:"outcome"`
	AlreadyResolved bool   `json:"already_resolved"`
	CreditsAwarded  int64  `json:"credits_awarded"`
	CorrectIndex    *int   `json:"correct_index,omitempty"`
}

type clickResponse struct {
	LinkURL string `json:"link_url,omitempty"`
}
