package handler

import (
	"net/http"

	"github.com/kojileo/datebank/internal/middleware"
	"github.com/kojileo/datebank/internal/model"
	"github.com/labstack/echo/v4"
)

type profileResponse struct {
	model.User
	Tenants []model.Tenant `json:"tenants"`
}

// GetProfile returns the signed-in user and the tenants they belong to
func (h *Handler) GetProfile(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	tenants, err := h.tenants.List(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, "user", err)
	}
	return c.JSON(http.StatusOK, profileResponse{User: user, Tenants: tenants})
}
