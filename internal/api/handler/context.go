package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adrecipro/adquiz/internal/api/middleware"
)

// ctxUserID extracts the caller id injected by the Auth middleware and fails
// fast with 401 before any service call when it is missing.
func ctxUserID(c echo.Context) (string, error) {
	userID, _ := c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return userID, nil
}
