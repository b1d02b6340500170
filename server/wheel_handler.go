package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/kristianakila/restbek2/auth"
	"github.com/kristianakila/restbek2/errors"
	"github.com/kristianakila/restbek2/metrics"
	"github.com/kristianakila/restbek2/wheel"
)

// WheelHandler serves the tenant wheel API.
type WheelHandler struct {
	app      *App
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewWheelHandler creates a wheel handler.
func NewWheelHandler(app *App) *WheelHandler {
	return &WheelHandler{
		app:      app,
		logger:   app.logger.With().Str("handler", "wheel").Logger(),
		validate: validator.New(),
	}
}

// SpinRequest is the spin request body. The referrer is optional and only
// honored on the user's first attributed spin.
type SpinRequest struct {
	ReferrerID string `json:"referrer_id"`
}

// LeadRequest carries contact details for a won spin.
type LeadRequest struct {
	SpinID string `json:"spin_id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Phone  string `json:"phone" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// FallbackRequest marks a spin's lead as abandoned.
type FallbackRequest struct {
	SpinID string `json:"spin_id" validate:"required"`
	Reason string `json:"reason"`
}

// resolveIdentity extracts tenant and user, rejecting tokens scoped to a
// different tenant.
func (h *WheelHandler) resolveIdentity(c *gin.Context) (tenantID, userID string, ok bool) {
	tenantID = c.Param("tenant_id")
	if tenantID == "" {
		ErrorWithMessage(c, http.StatusBadRequest, "tenant_id is required")
		return "", "", false
	}

	userID, exists := auth.GetUserID(c)
	if !exists || userID == "" {
		ErrorWithMessage(c, http.StatusUnauthorized, "user identity missing from token")
		return "", "", false
	}

	if tokenTenant, has := auth.GetTenantID(c); has && tokenTenant != "" && tokenTenant != tenantID {
		ErrorWithMessage(c, http.StatusForbidden, "token is not valid for this tenant")
		return "", "", false
	}

	return tenantID, userID, true
}

// GetConfig returns the public wheel layout for a tenant. No auth: the
// prize list carries no user data.
// Route: GET /api/wheel/:tenant_id/config
func (h *WheelHandler) GetConfig(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	if tenantID == "" {
		ErrorWithMessage(c, http.StatusBadRequest, "tenant_id is required")
		return
	}

	prizes, err := h.app.wheelEngine.GetWheelConfig(c.Request.Context(), tenantID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	OK(c, gin.H{"tenant_id": tenantID, "prizes": prizes})
}

// GetStatus returns the caller's eligibility and history for a tenant.
// Route: GET /api/wheel/:tenant_id/status
func (h *WheelHandler) GetStatus(c *gin.Context) {
	tenantID, userID, ok := h.resolveIdentity(c)
	if !ok {
		return
	}

	status, err := h.app.wheelEngine.GetStatus(c.Request.Context(), tenantID, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	OK(c, status)
}

// Spin executes a spin for the caller.
// Route: POST /api/wheel/:tenant_id/spin
func (h *WheelHandler) Spin(c *gin.Context) {
	tenantID, userID, ok := h.resolveIdentity(c)
	if !ok {
		return
	}

	var req SpinRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn().Err(err).Msg("Invalid spin request body")
			ErrorWithMessage(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	record, err := h.app.wheelEngine.Spin(c.Request.Context(), tenantID, userID, req.ReferrerID)
	if err != nil {
		metrics.SpinsRejectedTotal.WithLabelValues(tenantID, rejectionReason(err)).Inc()
		HandleAppError(c, err)
		return
	}

	metrics.SpinsTotal.WithLabelValues(tenantID, string(record.RewardKind)).Inc()
	OK(c, record)
}

// SubmitLead records contact details against a spin.
// Route: POST /api/wheel/:tenant_id/lead
func (h *WheelHandler) SubmitLead(c *gin.Context) {
	tenantID, userID, ok := h.resolveIdentity(c)
	if !ok {
		return
	}

	var req LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.logger.Warn().Err(err).Msg("Lead validation failed")
		ErrorWithMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	contact := wheel.Contact{Name: req.Name, Phone: req.Phone, Email: req.Email}
	state, changed, err := h.app.wheelEngine.SubmitLead(c.Request.Context(), tenantID, userID, req.SpinID, contact)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if changed {
		metrics.LeadsTotal.WithLabelValues(tenantID, string(state)).Inc()
	}
	OK(c, gin.H{"spin_id": req.SpinID, "lead_state": state})
}

// FallbackLead marks a spin's lead as abandoned.
// Route: POST /api/wheel/:tenant_id/lead/fallback
func (h *WheelHandler) FallbackLead(c *gin.Context) {
	tenantID, userID, ok := h.resolveIdentity(c)
	if !ok {
		return
	}

	var req FallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		ErrorWithMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	state, changed, err := h.app.wheelEngine.FallbackLead(c.Request.Context(), tenantID, userID, req.SpinID, req.Reason)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if changed {
		metrics.LeadsTotal.WithLabelValues(tenantID, string(state)).Inc()
	}
	OK(c, gin.H{"spin_id": req.SpinID, "lead_state": state})
}

func rejectionReason(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrDailyLimitReached:
		return "daily_limit"
	case errors.ErrCoolingDown:
		return "cooldown"
	case errors.ErrSubscriptionRequired:
		return "subscription"
	case errors.ErrNoPrizesAvailable:
		return "no_prizes"
	case errors.ErrTenantNotFound:
		return "unknown_tenant"
	case errors.ErrUserStoreUnavailable:
		return "store_unavailable"
	default:
		return "other"
	}
}
