package handler

import (
	"errors"
	"net/http"

	"github.com/kojileo/datebank/internal/repository"
	"github.com/kojileo/datebank/pkg/logger"
	"github.com/kojileo/datebank/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// respondError maps domain errors to responses. Missing and foreign records
// share one response; store failures are logged and never echoed back.
func respondError(c echo.Context, resource string, err error) error {
	var verr *repository.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, repository.ErrNotFound):
		prometheus.RecordAccessDenied(resource)
		return c.JSON(http.StatusNotFound, echo.Map{"error": resource + " not found"})
	case errors.Is(err, repository.ErrAlreadyMember):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user is already a member"})
	case errors.Is(err, repository.ErrLastMember):
		return c.JSON(http.StatusConflict, echo.Map{"error": "the last member cannot leave; delete the tenant instead"})
	default:
		logger.FromEcho(c).Error("Request failed", zap.String("resource", resource), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

func unauthenticated(c echo.Context) error {
	logger.FromEcho(c).Error("Failed to get user from context")
	prometheus.RecordAuthError("missing_user")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
}
