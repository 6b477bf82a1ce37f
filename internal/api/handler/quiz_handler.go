package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adrecipro/adquiz/internal/api/metrics"
	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

type QuizHandler struct {
	publication ports.PublicationService
}

func NewQuizHandler(publication ports.PublicationService) *QuizHandler {
	return &QuizHandler{publication: publication}
}

// Draft handles POST /v1/quizzes/draft.
//
// @Summary      Draft a quiz from free text
// @Tags         quizzes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      draftRequest  true  "Ad text"
// @Success      200   {object}  draftResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /v1/quizzes/draft [post]
func (h *QuizHandler) Draft(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	draft, err := h.publication.Draft(c.Request().Context(), userID, req.Text)
	switch {
	case err == nil:
		metrics.QuizDraftsTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, domain.ErrQuizGenerator):
		metrics.QuizDraftsTotal.WithLabelValues("error").Inc()
		return err
	default:
		metrics.QuizDraftsTotal.WithLabelValues("invalid").Inc()
		return err
	}
	return c.JSON(http.StatusOK, toDraftResponse(draft))
}
