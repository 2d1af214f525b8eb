package resolution

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/middleware"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/response"
)

// Resolver lists the sellable services of a product.
type Resolver interface {
	ResolveServicesForProduct(ctx context.Context, productID string, opts domain.ResolveOptions) ([]domain.ResolvedServiceView, error)
	GroupForDisplay(ctx context.Context, views []domain.ResolvedServiceView) ([]domain.ServiceGroup, error)
}

// OverrideService edits per-product overrides.
type OverrideService interface {
	GetOverride(ctx context.Context, serviceID, productID string) (domain.OverrideRecord, error)
	SetOverride(ctx context.Context, serviceID, productID string, fields domain.OverrideFields) (domain.OverrideRecord, error)
	ToggleOverrideDisabled(ctx context.Context, serviceID, productID string, disabled bool) (domain.OverrideRecord, error)
	ClearOverride(ctx context.Context, serviceID, productID string) error
}

// DisabledRequest is the body of the disable toggle.
type DisabledRequest struct {
	Disabled *bool `json:"disabled"`
}

// Handler serves /v1/products/{id}/services and its override sub-resources.
type Handler struct {
	Resolver  Resolver
	Overrides OverrideService
	Logger    logger.Logger
}

// NewHandler creates a resolution handler.
func NewHandler(resolver Resolver, overrides OverrideService, log logger.Logger) *Handler {
	return &Handler{
		Resolver:  resolver,
		Overrides: overrides,
		Logger:    log,
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}
	response.JSON(w, h.Logger, successStatus, data)
}

func boolQuery(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperror.NewValidationError(key + " must be a boolean")
	}
	return v, nil
}

// ResolveServicesHandler handles GET /v1/products/{id}/services.
// include_disabled is only honored for admins; grouped=true returns display groups.
// Products hidden from the caller are 404.
//
// @Summary  Services that apply to a product, with overrides applied
// @Tags     products
// @Param    id               path  string true  "product id"
// @Param    include_disabled query bool   false "admins only: keep entries disabled for this product"
// @Param    grouped          query bool   false "group variants under their parent"
// @Success  200
// @Failure  404 {object} domain.ErrorResponse
// @Router   /v1/products/{id}/services [get]
func (h *Handler) ResolveServicesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	includeDisabled, err := boolQuery(r, "include_disabled")
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	grouped, err := boolQuery(r, "grouped")
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	role := middleware.CallerRole(ctx)
	if includeDisabled && role != domain.RoleAdmin {
		includeDisabled = false
	}

	opts := domain.ResolveOptions{IncludeDisabled: includeDisabled, Role: role}
	views, err := h.Resolver.ResolveServicesForProduct(ctx, r.PathValue("id"), opts)
	if err != nil || !grouped {
		h.handleServiceResponse(w, r, views, err, http.StatusOK)
		return
	}

	groups, err := h.Resolver.GroupForDisplay(ctx, views)
	h.handleServiceResponse(w, r, groups, err, http.StatusOK)
}

// GetOverrideHandler handles GET /v1/products/{id}/services/{serviceId}/override.
//
// @Summary  Stored override for a service on a product, or the all-default equivalent
// @Tags     overrides
// @Success  200
// @Router   /v1/products/{id}/services/{serviceId}/override [get]
func (h *Handler) GetOverrideHandler(w http.ResponseWriter, r *http.Request) {
	o, err := h.Overrides.GetOverride(r.Context(), r.PathValue("serviceId"), r.PathValue("id"))
	h.handleServiceResponse(w, r, o, err, http.StatusOK)
}

// SetOverrideHandler handles PUT /v1/products/{id}/services/{serviceId}/override.
//
// @Summary  Upsert price and/or time; omitted fields keep their value
// @Tags     overrides
// @Success  200
// @Router   /v1/products/{id}/services/{serviceId}/override [put]
func (h *Handler) SetOverrideHandler(w http.ResponseWriter, r *http.Request) {
	var fields domain.OverrideFields
	if err := response.Decode(r, &fields); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	o, err := h.Overrides.SetOverride(r.Context(), r.PathValue("serviceId"), r.PathValue("id"), fields)
	h.handleServiceResponse(w, r, o, err, http.StatusOK)
}

// ClearOverrideHandler handles DELETE /v1/products/{id}/services/{serviceId}/override.
//
// @Summary  Remove the override row
// @Tags     overrides
// @Success  204
// @Router   /v1/products/{id}/services/{serviceId}/override [delete]
func (h *Handler) ClearOverrideHandler(w http.ResponseWriter, r *http.Request) {
	err := h.Overrides.ClearOverride(r.Context(), r.PathValue("serviceId"), r.PathValue("id"))
	h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
}

// SetDisabledHandler handles PUT /v1/products/{id}/services/{serviceId}/disabled.
//
// @Summary  Disable or re-enable a service for one product
// @Tags     overrides
// @Success  200
// @Router   /v1/products/{id}/services/{serviceId}/disabled [put]
func (h *Handler) SetDisabledHandler(w http.ResponseWriter, r *http.Request) {
	var req DisabledRequest
	if err := response.Decode(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	if req.Disabled == nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("disabled is required"), http.StatusOK)
		return
	}
	o, err := h.Overrides.ToggleOverrideDisabled(r.Context(), r.PathValue("serviceId"), r.PathValue("id"), *req.Disabled)
	h.handleServiceResponse(w, r, o, err, http.StatusOK)
}
