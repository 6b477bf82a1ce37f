package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/api/metrics"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

// streamHeartbeat keeps idle SSE connections open through proxies.
const streamHeartbeat = 25 * time.Second

// ProfileHandler serves the caller's account: balance, profile, owned ads and
// the live balance stream.
type ProfileHandler struct {
	ledger ports.LedgerService
	ads    ports.AdService
	log    zerolog.Logger
}

func NewProfileHandler(ledger ports.LedgerService, ads ports.AdService, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{ledger: ledger, ads: ads, log: log}
}

// Me handles GET /v1/me.
//
// @Summary      Get the caller's balance and profile
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	u, err := h.ledger.GetUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// UpdateMe handles PATCH /v1/me.
//
// @Summary      Update display name or photo
// @Tags         me
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/me [patch]
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	u, err := h.ledger.UpdateProfile(c.Request().Context(), userID, ports.ProfileUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// MyAds handles GET /v1/me/ads.
//
// @Summary      List the caller's ads with counters
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   ownedAdResponse
// @Router       /v1/me/ads [get]
func (h *ProfileHandler) MyAds(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	stats, err := h.ads.ListOwned(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	resp := make([]ownedAdResponse, 0, len(stats))
	for _, s := range stats {
		resp = append(resp, toOwnedAdStats(s))
	}
	return c.JSON(http.StatusOK, resp)
}

// BalanceStream handles GET /v1/me/balance/stream as server-sent events.
// The first event is the current balance; later events follow every change.
//
// @Summary      Stream balance changes
// @Tags         me
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200
// @Router       /v1/me/balance/stream [get]
func (h *ProfileHandler) BalanceStream(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	events, cancel, err := h.ledger.SubscribeBalance(ctx, userID)
	if err != nil {
		return err
	}
	defer cancel()

	// Snapshot after subscribing so no change falls between the two.
	u, err := h.ledger.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	metrics.BalanceStreams.Inc()
	defer metrics.BalanceStreams.Dec()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, ports.BalanceEvent{UserID: u.ID, Credits: u.Credits, At: time.Now().UTC()}); err != nil {
		return nil
	}

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeEvent(res, ev); err != nil {
				h.log.Debug().Err(err).Str("user_id", userID).Msg("balance stream closed by client")
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(res *echo.Response, ev ports.BalanceEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: balance\ndata: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
