package handler

import (
	"net/http"
	"time"

	"github.com/kojileo/datebank/internal/middleware"
	"github.com/kojileo/datebank/internal/model"
	"github.com/kojileo/datebank/pkg/logger"
	"github.com/kojileo/datebank/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type createPlaceRequest struct {
	TenantID uint `json:"tenant_id" validate:"required"`
	model.PlaceInput
}

// ListPlaces returns the places of one tenant, newest first
func (h *Handler) ListPlaces(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordPlaceOperation("list")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	raw := c.QueryParam("tenantId")
	if raw == "" {
		raw = c.QueryParam("tenant_id")
	}
	if raw == "" {
		log.Warn("Missing tenantId parameter")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenantId is required"})
	}
	tenantID, ok := parseID(raw)
	if !ok {
		return invalidID(c, "tenantId")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	places, err := h.places.List(c.Request().Context(), user.ID, tenantID)
	if err != nil {
		return respondError(c, "tenant", err)
	}

	log.Debug("Places retrieved", zap.Uint("tenant_id", tenantID), zap.Int("count", len(places)))
	return c.JSON(http.StatusOK, places)
}

// GetPlace returns a single place
func (h *Handler) GetPlace(c echo.Context) error {
	prometheus.RecordPlaceOperation("get")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	placeID, ok := parseID(c.Param("id"))
	if !ok {
		return invalidID(c, "place ID")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	place, err := h.places.Get(c.Request().Context(), user.ID, placeID)
	if err != nil {
		return respondError(c, "place", err)
	}
	return c.JSON(http.StatusOK, place)
}

// CreatePlace adds a place to a tenant the caller belongs to
func (h *Handler) CreatePlace(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordPlaceOperation("create")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	var req createPlaceRequest
	if err := bindStrict(c, &req); err != nil {
		log.Warn("Invalid place creation request", zap.Error(err))
		return respondError(c, "tenant", err)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	place, err := h.places.Create(c.Request().Context(), user.ID, req.TenantID, req.PlaceInput)
	if err != nil {
		return respondError(c, "tenant", err)
	}

	log.Info("Place created",
		zap.Uint("place_id", place.ID),
		zap.Uint("tenant_id", place.TenantID),
		zap.String("name", place.Name))
	return c.JSON(http.StatusCreated, place)
}

// UpdatePlace changes the supplied fields of a place
func (h *Handler) UpdatePlace(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordPlaceOperation("update")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	placeID, ok := parseID(c.Param("id"))
	if !ok {
		return invalidID(c, "place ID")
	}

	var patch model.PlacePatch
	if err := bindStrict(c, &patch); err != nil {
		log.Warn("Invalid place update request", zap.Uint("place_id", placeID), zap.Error(err))
		return respondError(c, "place", err)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	place, err := h.places.Update(c.Request().Context(), user.ID, placeID, patch)
	if err != nil {
		return respondError(c, "place", err)
	}

	log.Info("Place updated", zap.Uint("place_id", place.ID), zap.Uint("tenant_id", place.TenantID))
	return c.JSON(http.StatusOK, place)
}

// DeletePlace removes a place
func (h *Handler) DeletePlace(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordPlaceOperation("delete")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	placeID, ok := parseID(c.Param("id"))
	if !ok {
		return invalidID(c, "place ID")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.places.Delete(c.Request().Context(), user.ID, placeID); err != nil {
		return respondError(c, "place", err)
	}

	log.Info("Place deleted", zap.Uint("place_id", placeID))
	return c.NoContent(http.StatusNoContent)
}
