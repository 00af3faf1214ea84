package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kojileo/datebank/internal/model"
	"github.com/kojileo/datebank/internal/repository"
	"github.com/kojileo/datebank/pkg/jwtutil"
	"github.com/kojileo/datebank/pkg/logger"
	"github.com/kojileo/datebank/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const userKey = "user"

// TokenValidator verifies identity provider tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwtutil.IdentityClaims, error)
}

// UserResolver maps a verified identity to a stored user.
type UserResolver interface {
	ResolveSignIn(ctx context.Context, id repository.Identity) (model.User, error)
}

// AuthMiddleware authenticates the bearer token and loads the acting user.
func AuthMiddleware(tokens TokenValidator, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := tokens.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired identity token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			user, err := users.ResolveSignIn(c.Request().Context(), repository.Identity{
				Email: claims.Email,
				Name:  claims.Name,
				Image: claims.Picture,
			})
			if err != nil {
				log.Error("Failed to resolve signed-in user", zap.Error(err))
				prometheus.RecordAuthError("user_resolution_failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			c.Set(userKey, user)
			logger.Attach(c, log.With(zap.Uint("user_id", user.ID)))
			return next(c)
		}
	}
}

// CurrentUser returns the user loaded by AuthMiddleware.
func CurrentUser(c echo.Context) (model.User, bool) {
	user, ok := c.Get(userKey).(model.User)
	return user, ok
}
