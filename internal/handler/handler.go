package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kojileo/datebank/internal/invite"
	"github.com/kojileo/datebank/internal/model"
	"github.com/kojileo/datebank/prometheus"
	"github.com/labstack/echo/v4"
)

// PlaceStore is the place repository as seen by the handlers.
type PlaceStore interface {
	List(ctx context.Context, userID, tenantID uint) ([]model.Place, error)
	Get(ctx context.Context, userID, placeID uint) (model.Place, error)
	Create(ctx context.Context, userID, tenantID uint, in model.PlaceInput) (model.Place, error)
	Update(ctx context.Context, userID, placeID uint, patch model.PlacePatch) (model.Place, error)
	Delete(ctx context.Context, userID, placeID uint) error
}

// TenantStore is the tenant repository as seen by the handlers.
type TenantStore interface {
	Create(ctx context.Context, userID uint, name string) (model.Tenant, error)
	List(ctx context.Context, userID uint) ([]model.Tenant, error)
	Get(ctx context.Context, userID, tenantID uint) (model.Tenant, error)
	Delete(ctx context.Context, userID, tenantID uint) (int64, error)
	Leave(ctx context.Context, userID, tenantID uint) error
}

// Inviter runs the invite flow.
type Inviter interface {
	Invite(ctx context.Context, inviter model.User, tenantID uint, email string) (invite.Result, error)
}

// Handler serves the datebank HTTP API.
type Handler struct {
	places  PlaceStore
	tenants TenantStore
	invites Inviter
}

func New(places PlaceStore, tenants TenantStore, invites Inviter) *Handler {
	return &Handler{places: places, tenants: tenants, invites: invites}
}

// Register mounts the routes. auth guards everything under /api.
func (h *Handler) Register(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.Validator = NewRequestValidator()

	e.GET("/health", HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	api := e.Group("/api", auth)

	api.GET("/users/me", h.GetProfile)

	places := api.Group("/places")
	places.GET("", h.ListPlaces)
	places.POST("", h.CreatePlace)
	places.GET("/:id", h.GetPlace)
	places.PUT("/:id", h.UpdatePlace)
	places.PATCH("/:id", h.UpdatePlace)
	places.DELETE("/:id", h.DeletePlace)

	tenants := api.Group("/tenants")
	tenants.POST("", h.CreateTenant)
	tenants.GET("", h.ListTenants)
	tenants.GET("/:id", h.GetTenant)
	tenants.DELETE("/:id", h.DeleteTenant)
	tenants.POST("/:id/invite", h.InviteToTenant)
	tenants.DELETE("/:id/members/me", h.LeaveTenant)
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidID(c echo.Context, what string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + what})
}
