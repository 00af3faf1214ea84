package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/kojileo/datebank/internal/middleware"
	"github.com/kojileo/datebank/internal/repository"
	"github.com/kojileo/datebank/pkg/logger"
	"github.com/kojileo/datebank/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type createTenantRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *inviteRequest) normalize() {
	r.Email = repository.NormalizeEmail(r.Email)
}

// CreateTenant creates a tenant with the caller as its only member
func (h *Handler) CreateTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("create")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	var req createTenantRequest
	if err := bindStrict(c, &req); err != nil {
		log.Warn("Invalid tenant creation request", zap.Error(err))
		return respondError(c, "tenant", err)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	tenant, err := h.tenants.Create(c.Request().Context(), user.ID, req.Name)
	if err != nil {
		return respondError(c, "tenant", err)
	}
	prometheus.UpdateUsersPerTenant(tenant.ID, int64(len(tenant.Members)))

	log.Info("Tenant created", zap.Uint("tenant_id", tenant.ID), zap.String("name", tenant.Name))
	return c.JSON(http.StatusCreated, tenant)
}

// ListTenants returns the tenants the caller belongs to
func (h *Handler) ListTenants(c echo.Context) error {
	prometheus.RecordTenantOperation("list")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	tenants, err := h.tenants.List(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, "tenant", err)
	}
	return c.JSON(http.StatusOK, tenants)
}

// GetTenant returns one tenant with its members
func (h *Handler) GetTenant(c echo.Context) error {
	prometheus.RecordTenantOperation("get")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	tenantID, ok := parseID(c.Param("id"))
	if !ok {
		return invalidID(c, "tenant ID")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	tenant, err := h.tenants.Get(c.Request().Context(), user.ID, tenantID)
	if err != nil {
		return respondError(c, "tenant", err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant removes a tenant together with its places and memberships.
// Any member may do this.
func (h *Handler) DeleteTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("delete")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	tenantID, ok := parseID(c.Param("id"))
	if !ok {
		return invalidID(c, "tenant ID")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	removed, err := h.tenants.Delete(c.Request().Context(), user.ID, tenantID)
	if err != nil {
		return respondError(c, "tenant", err)
	}
	prometheus.ForgetTenant(tenantID)

	log.Info("Tenant deleted", zap.Uint("tenant_id", tenantID), zap.Int64("places_removed", removed))
	return c.NoContent(http.StatusNoContent)
}

// InviteToTenant adds a user to the tenant by email
func (h *Handler) InviteToTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("invite")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	tenantID, ok := parseID(c.Param("id"))
	if !ok {
		return invalidID(c, "tenant ID")
	}

	var req inviteRequest
	if err := bindStrict(c, &req); err != nil {
		log.Warn("Invalid invite request", zap.Uint("tenant_id", tenantID), zap.Error(err))
		return respondError(c, "tenant", err)
	}

	res, err := h.invites.Invite(c.Request().Context(), user, tenantID, req.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		prometheus.RecordInvite("denied")
	case errors.Is(err, repository.ErrAlreadyMember):
		prometheus.RecordInvite("already_member")
	case err != nil:
		prometheus.RecordInvite("failed")
	case res.Provisioned:
		prometheus.RecordInvite("provisioned")
	default:
		prometheus.RecordInvite("added")
	}
	if err != nil {
		return respondError(c, "tenant", err)
	}

	log.Info("User invited",
		zap.Uint("tenant_id", tenantID),
		zap.Uint("invitee_id", res.User.ID),
		zap.Bool("provisioned", res.Provisioned))
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "User invited successfully",
		"tenant_id":   tenantID,
		"user":        res.User,
		"provisioned": res.Provisioned,
	})
}

// LeaveTenant removes the caller's own membership
func (h *Handler) LeaveTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("leave")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	tenantID, ok := parseID(c.Param("id"))
	if !ok {
		return invalidID(c, "tenant ID")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.tenants.Leave(c.Request().Context(), user.ID, tenantID); err != nil {
		return respondError(c, "tenant", err)
	}

	log.Info("Member left tenant", zap.Uint("tenant_id", tenantID))
	return c.NoContent(http.StatusNoContent)
}
