package handler

import (
	"time"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

// --- Request → Service input ---

func toQuiz(q quizRequest) domain.Quiz {
	out := domain.Quiz{Question: q.Question, Options: q.Options}
	if q.AnswerIndex != nil {
		out.AnswerIndex = *q.AnswerIndex
	}
	return out
}

func toPublishInput(req publishRequest, userID string, image *ports.ImageUpload) ports.PublishInput {
	return ports.PublishInput{
		UserID:      userID,
		Description: req.Description,
		LinkURL:     req.LinkURL,
		Quiz:        toQuiz(req.Quiz),
		Language:    domain.NormalizeLanguage(req.Language),
		Image:       image,
	}
}

// --- Domain → Response ---

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Credits:     u.Credits,
		Plan:        string(u.Plan),
		CreatedAt:   u.CreatedAt,
	}
}

func toCardResponse(ad *domain.Advertisement) cardResponse {
	return cardResponse{
		ID:          ad.ID,
		AuthorName:  ad.AuthorName,
		AuthorIcon:  ad.AuthorIcon,
		Description: ad.Description,
		ImageURL:    ad.ImageURL,
		LinkURL:     ad.LinkURL,
		Language:    ad.Language,
		Quiz: cardQuiz{
			Question: ad.Quiz.Question,
			Options:  ad.Quiz.Options,
		},
		ExpiresAt: ad.ExpiresAt,
	}
}

func toOwnedAdResponse(ad *domain.Advertisement, now time.Time) ownedAdResponse {
	return toOwnedAdStats(ports.AdStats{
		Ad:          ad,
		State:       ad.State(now),
		SuccessRate: ad.Counters.SuccessRate(),
	})
}

func toOwnedAdStats(s ports.AdStats) ownedAdResponse {
	ad := s.Ad
	return ownedAdResponse{
		ID:          ad.ID,
		Description: ad.Description,
		ImageURL:    ad.ImageURL,
		LinkURL:     ad.LinkURL,
		Language:    ad.Language,
		Plan:        string(ad.Plan),
		Quiz: ownedQuiz{
			Question:    ad.Quiz.Question,
			Options:     ad.Quiz.Options,
			AnswerIndex: ad.Quiz.AnswerIndex,
		},
		State:  string(s.State),
		Active: ad.IsActive(),
		Counters: countersResponse{
			Impressions:    ad.Impressions,
			Clicks:         ad.Clicks,
			Attempts:       ad.Attempts,
			CorrectAnswers: ad.CorrectAnswers,
		},
		SuccessRate: s.SuccessRate,
		CreatedAt:   ad.CreatedAt,
		ExpiresAt:   ad.ExpiresAt,
	}
}

func toResolutionResponse(r *ports.ResolutionResult) resolutionResponse {
	resp := resolutionResponse{
		AdID:            r.AdID,
		Outcome:         string(r.Outcome),
		AlreadyResolved: r.AlreadyResolved,
		CreditsAwarded:  r.CreditsAwarded,
	}
	if r.CorrectIndex >= 0 {
		idx := r.CorrectIndex
		resp.CorrectIndex = &idx
	}
	return resp
}

func toDraftResponse(d *domain.QuizDraft) draftResponse {
	return draftResponse{
		Question:    d.Question,
		Options:     d.Options,
		AnswerIndex: d.AnswerIndex,
		Language:    d.Language,
	}
}
