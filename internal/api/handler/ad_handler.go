package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adrecipro/adquiz/internal/api/metrics"
	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

// MaxImageBytes bounds an uploaded ad image.
const MaxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// AdHandler serves publication, owner lifecycle actions and viewer
// interactions with a single card.
type AdHandler struct {
	publication ports.PublicationService
	ads         ports.AdService
	resolution  ports.ResolutionService
	counters    ports.CounterSink
	now         func() time.Time
}

func NewAdHandler(
	publication ports.PublicationService,
	ads ports.AdService,
	resolution ports.ResolutionService,
	counters ports.CounterSink,
) *AdHandler {
	return &AdHandler{
		publication: publication,
		ads:         ads,
		resolution:  resolution,
		counters:    counters,
		now:         time.Now,
	}
}

// Publish handles POST /v1/ads.
//
// Accepts either a JSON body or multipart/form-data with the JSON fields as
// form values (quiz as a JSON string) and an optional "image" file.
//
// @Summary      Publish an ad with its quiz
// @Tags         ads
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        body   body      publishRequest  false  "Ad (JSON requests)"
// @Param        image  formData  file            false  "Ad image (multipart requests)"
// @Success      201    {object}  publishResponse
// @Failure      400    {object}  errorResponse
// @Failure      402    {object}  errorResponse
// @Failure      413    {object}  errorResponse
// @Failure      415    {object}  errorResponse
// @Failure      422    {object}  errorResponse
// @Failure      502    {object}  errorResponse
// @Failure      503    {object}  errorResponse
// @Router       /v1/ads [post]
func (h *AdHandler) Publish(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var (
		req   publishRequest
		image *ports.ImageUpload
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		req, image, err = bindMultipartPublish(c)
		if err != nil {
			return err
		}
	} else if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.publication.Publish(c.Request().Context(), toPublishInput(req, userID, image))
	if err != nil {
		metrics.PublicationsTotal.WithLabelValues(errorClass(err)).Inc()
		return err
	}

	if res.Exempt {
		metrics.PublicationsTotal.WithLabelValues("exempt").Inc()
	} else {
		metrics.PublicationsTotal.WithLabelValues("charged").Inc()
		metrics.CreditsMovedTotal.WithLabelValues(ports.ReasonPublication).Add(float64(res.Charged))
	}

	return c.JSON(http.StatusCreated, publishResponse{
		Ad:      toOwnedAdResponse(res.Ad, h.now()),
		Exempt:  res.Exempt,
		Charged: res.Charged,
	})
}

// SetActive handles PATCH /v1/ads/:id/active.
//
// @Summary      Pause or resume an owned ad
// @Tags         ads
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string            true  "Ad id"
// @Param        body  body  setActiveRequest  true  "Desired flag"
// @Success      204
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/ads/{id}/active [patch]
func (h *AdHandler) SetActive(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.ads.SetActive(c.Request().Context(), c.Param("id"), userID, *req.Active); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /v1/ads/:id.
//
// @Summary      Delete an owned ad
// @Tags         ads
// @Security     BearerAuth
// @Param        id  path  string  true  "Ad id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/ads/{id} [delete]
func (h *AdHandler) Delete(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	if err := h.ads.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Answer handles POST /v1/ads/:id/answer.
//
// @Summary      Answer a card's quiz
// @Tags         ads
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Ad id"
// @Param        body  body      answerRequest  true  "Selected option"
// @Success      200   {object}  resolutionResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/ads/{id}/answer [post]
func (h *AdHandler) Answer(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.resolution.Answer(c.Request().Context(), userID, c.Param("id"), *req.SelectedIndex)
	if err != nil {
		return err
	}
	recordResolution(res)
	return c.JSON(http.StatusOK, toResolutionResponse(res))
}

// Skip handles POST /v1/ads/:id/skip.
//
// @Summary      Skip a card
// @Tags         ads
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Ad id"
// @Success      200  {object}  resolutionResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/ads/{id}/skip [post]
func (h *AdHandler) Skip(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	res, err := h.resolution.Skip(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	recordResolution(res)
	return c.JSON(http.StatusOK, toResolutionResponse(res))
}

// Click handles POST /v1/ads/:id/click. The click is counted asynchronously
// and the destination link is returned for the client to open.
//
// @Summary      Record a click on a card's link
// @Tags         ads
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Ad id"
// @Success      202  {object}  clickResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/ads/{id}/click [post]
func (h *AdHandler) Click(c echo.Context) error {
	if _, err := ctxUserID(c); err != nil {
		return err
	}
	ad, err := h.ads.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	h.counters.Enqueue(ports.CounterEvent{AdID: ad.ID, Kind: ports.CounterClick})
	return c.JSON(http.StatusAccepted, clickResponse{LinkURL: ad.LinkURL})
}

func recordResolution(res *ports.ResolutionResult) {
	result := "applied"
	if res.AlreadyResolved {
		result = "duplicate"
	}
	metrics.ResolutionsTotal.WithLabelValues(string(res.Outcome), result).Inc()
	if res.CreditsAwarded > 0 {
		metrics.CreditsMovedTotal.WithLabelValues(ports.ReasonCorrectAnswer).Add(float64(res.CreditsAwarded))
	}
}

// bindMultipartPublish reads a multipart publish request. The quiz arrives as
// a JSON-encoded form value.
func bindMultipartPublish(c echo.Context) (publishRequest, *ports.ImageUpload, error) {
	req := publishRequest{
		Description: c.FormValue("description"),
		LinkURL:     c.FormValue("link_url"),
		Language:    c.FormValue("language"),
	}
	if raw := c.FormValue("quiz"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Quiz); err != nil {
			return req, nil, echo.NewHTTPError(http.StatusBadRequest, "quiz must be a JSON object")
		}
	}

	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid image upload")
	}
	if fh.Size > MaxImageBytes {
		return req, nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image too large")
	}
	f, err := fh.Open()
	if err != nil {
		return req, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid image upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return req, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid image upload")
	}
	if len(data) > MaxImageBytes {
		return req, nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image too large")
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return req, nil, echo.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported image type")
	}
	return req, &ports.ImageUpload{Data: data, ContentType: contentType, Ext: ext}, nil
}

// errorClass labels a failed publication for metrics.
func errorClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		return "insufficient_credits"
	case errors.Is(err, domain.ErrStorageFailure):
		return "storage_failure"
	case errors.Is(err, domain.ErrConflictRetryExhausted):
		return "conflict"
	case domain.IsPermanent(err):
		return "invalid"
	default:
		return "error"
	}
}
