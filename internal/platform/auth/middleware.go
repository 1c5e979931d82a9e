package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Middleware validates the Authorization bearer token and stores the caller's
// id and role in both the echo context and the request context. Requests
// matched by skipper pass through unauthenticated.
func Middleware(issuer *TokenIssuer, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, userID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", userID)
			c.Set("user_role", claims.Role)

			return next(c)
		}
	}
}

// DefaultSkipper exempts health, readiness and auth endpoints from token
// checks.
func DefaultSkipper(c echo.Context) bool {
	path := c.Request().URL.Path
	switch path {
	case "/health", "/health/db", "/api/v1/auth/login", "/api/v1/auth/register", "/api/v1/auth/verify":
		return true
	}
	return false
}
