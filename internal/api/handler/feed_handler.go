package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adrecipro/adquiz/internal/api/metrics"
	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

// DefaultLanguage is used when neither the lang query nor Accept-Language is set.
const DefaultLanguage = "ja"

type FeedHandler struct {
	feed ports.FeedService
}

func NewFeedHandler(feed ports.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// Next handles GET /v1/feed/next.
//
// @Summary      Get the next card for the caller
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        lang  query     string  false  "Language code (defaults to Accept-Language, then ja)"
// @Success      200   {object}  cardResponse
// @Success      204   "No card available"
// @Failure      422   {object}  errorResponse
// @Router       /v1/feed/next [get]
func (h *FeedHandler) Next(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	ad, err := h.feed.NextCard(c.Request().Context(), userID, requestLanguage(c))
	if errors.Is(err, domain.ErrNoCardAvailable) {
		metrics.FeedRequestsTotal.WithLabelValues("empty").Inc()
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		metrics.FeedRequestsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.FeedRequestsTotal.WithLabelValues("served").Inc()
	return c.JSON(http.StatusOK, toCardResponse(ad))
}

// requestLanguage resolves the feed language: lang query, then the first
// Accept-Language entry, then DefaultLanguage.
func requestLanguage(c echo.Context) string {
	if lang := domain.NormalizeLanguage(c.QueryParam("lang")); lang != "" {
		return lang
	}
	if lang := domain.NormalizeLanguage(c.Request().Header.Get("Accept-Language")); lang != "" && lang != "*" {
		return lang
	}
	return DefaultLanguage
}
