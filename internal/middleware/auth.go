package middleware

import (
	"net/http"
	"strings"

	"github.com/Eursukkul/food-rescue/listing-service/internal/auth"
	"github.com/Eursukkul/food-rescue/listing-service/internal/dto"
	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"github.com/labstack/echo/v4"
)

const (
	ContextAccountID = "account_id"
	ContextRole      = "role"
)

type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's id and role on the context.
func RequireAuth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(raw) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, dto.ErrorResponse{
					Message: "missing bearer token",
					Code:    "UNAUTHORIZED",
				})
			}

			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, dto.ErrorResponse{
					Message: err.Error(),
					Code:    "UNAUTHORIZED",
				})
			}

			c.Set(ContextAccountID, claims.Subject)
			c.Set(ContextRole, claims.Role)
			return next(c)
		}
	}
}

// AccountID returns the authenticated caller, or "" on public routes.
func AccountID(c echo.Context) string {
	id, _ := c.Get(ContextAccountID).(string)
	return id
}

func Role(c echo.Context) models.Role {
	role, _ := c.Get(ContextRole).(models.Role)
	return role
}
