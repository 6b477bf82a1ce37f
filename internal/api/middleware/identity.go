package middleware

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

// identityCacheSize bounds how many ensured ids a process remembers.
var identityCacheSize = 10000

// Identity bootstraps the ledger account of every authenticated caller on
// first observation. Must run after Auth.
//
// Recently ensured ids are kept in an LRU cache; an evicted id only costs one
// more EnsureUser, which is idempotent.
func Identity(ledger ports.LedgerService, log zerolog.Logger) echo.MiddlewareFunc {
	seen, err := lru.New(identityCacheSize)
	if err != nil {
		panic(fmt.Sprintf("identity cache: %v", err))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(CtxUserID).(string)
			if userID == "" {
				return next(c)
			}
			if _, ok := seen.Get(userID); ok {
				return next(c)
			}

			name, _ := c.Get(CtxName).(string)
			picture, _ := c.Get(CtxPicture).(string)
			email, _ := c.Get(CtxEmail).(string)

			_, created, err := ledger.EnsureUser(c.Request().Context(), domain.Identity{
				UserID:      userID,
				Email:       email,
				DisplayName: name,
				PhotoURL:    picture,
			})
			if err != nil {
				return err
			}
			log.Debug().Str("user_id", userID).Bool("created", created).Msg("identity ensured")
			seen.Add(userID, struct{}{})
			return next(c)
		}
	}
}
