package ports

import (
	"context"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

// ImageUpload is an optional image attached to a publication.
type ImageUpload struct {
	Data        []byte
	ContentType string
	Ext         string // including the dot, e.g. ".jpg"
}

// PublishInput is a finalized ad as submitted by its author.
type PublishInput struct {
	UserID      string
	Description string
	LinkURL     string
	Quiz        domain.Quiz
	Language    string
	Image       *ImageUpload
}

// PublishResult describes a successful publication.
type PublishResult struct {
	Ad      *domain.Advertisement
	Exempt  bool
	Charged int64
}

// PublicationService drafts quizzes and publishes ads.
type PublicationService interface {
	Draft(ctx context.Context, userID, text string) (*domain.QuizDraft, error)
	Publish(ctx context.Context, in PublishInput) (*PublishResult, error)
}
