package repair

import (
	"context"
	"net/http"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/response"
)

// RepairService is the contract of the service catalog layer.
type RepairService interface {
	CreateService(ctx context.Context, in domain.ServiceInput) (domain.ServiceRecord, error)
	GetService(ctx context.Context, id string) (domain.ServiceRecord, error)
	ListServices(ctx context.Context, level domain.Level, nodeID string) ([]domain.ServiceRecord, error)
	ListVariants(ctx context.Context, parentID string) ([]domain.ServiceRecord, error)
	UpdateService(ctx context.Context, id string, upd domain.ServiceUpdate) (domain.ServiceRecord, error)
	SetServiceActive(ctx context.Context, id string, active bool) error
	DeleteService(ctx context.Context, id string) error
}

// ActiveRequest is the body of the activation endpoint.
type ActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// Handler serves the /v1/services endpoints.
type Handler struct {
	Service RepairService
	Logger  logger.Logger
}

// NewHandler creates a service catalog handler.
func NewHandler(svc RepairService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}
	response.JSON(w, h.Logger, successStatus, data)
}

// CreateServiceHandler handles POST /v1/services.
//
// @Summary  Create a service, or a variant when parent_service_id is set
// @Tags     services
// @Success  201
// @Failure  422 {object} domain.ErrorResponse "variant assignment differs from its parent"
// @Router   /v1/services [post]
func (h *Handler) CreateServiceHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.ServiceInput
	if err := response.Decode(r, &in); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusCreated)
		return
	}
	created, err := h.Service.CreateService(r.Context(), in)
	h.handleServiceResponse(w, r, created, err, http.StatusCreated)
}

// ListServicesHandler handles GET /v1/services?level=&node_id=.
//
// @Summary  List services pinned to one catalog node
// @Tags     services
// @Param    level   query string true "brand, category, series or product"
// @Param    node_id query string true "catalog node id"
// @Success  200
// @Router   /v1/services [get]
func (h *Handler) ListServicesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.Service.ListServices(r.Context(), domain.Level(q.Get("level")), q.Get("node_id"))
	h.handleServiceResponse(w, r, list, err, http.StatusOK)
}

// GetServiceHandler handles GET /v1/services/{id}.
//
// @Summary  Get a service
// @Tags     services
// @Success  200
// @Router   /v1/services/{id} [get]
func (h *Handler) GetServiceHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.GetService(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, rec, err, http.StatusOK)
}

// ListVariantsHandler handles GET /v1/services/{id}/variants.
//
// @Summary  List the variants of a service
// @Tags     services
// @Success  200
// @Router   /v1/services/{id}/variants [get]
func (h *Handler) ListVariantsHandler(w http.ResponseWriter, r *http.Request) {
	variants, err := h.Service.ListVariants(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, variants, err, http.StatusOK)
}

// UpdateServiceHandler handles PATCH /v1/services/{id}.
//
// @Summary  Update descriptive fields, price, time or sort order
// @Tags     services
// @Success  200
// @Router   /v1/services/{id} [patch]
func (h *Handler) UpdateServiceHandler(w http.ResponseWriter, r *http.Request) {
	var upd domain.ServiceUpdate
	if err := response.Decode(r, &upd); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	rec, err := h.Service.UpdateService(r.Context(), r.PathValue("id"), upd)
	h.handleServiceResponse(w, r, rec, err, http.StatusOK)
}

// SetServiceActiveHandler handles PUT /v1/services/{id}/active.
//
// @Summary  Activate or deactivate a service; deactivating a parent cascades to its variants
// @Tags     services
// @Success  204
// @Router   /v1/services/{id}/active [put]
func (h *Handler) SetServiceActiveHandler(w http.ResponseWriter, r *http.Request) {
	var req ActiveRequest
	if err := response.Decode(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
		return
	}
	if req.IsActive == nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("is_active is required"), http.StatusNoContent)
		return
	}
	err := h.Service.SetServiceActive(r.Context(), r.PathValue("id"), *req.IsActive)
	h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
}

// DeleteServiceHandler handles DELETE /v1/services/{id}.
//
// @Summary  Delete a service with its variants and overrides
// @Tags     services
// @Success  204
// @Router   /v1/services/{id} [delete]
func (h *Handler) DeleteServiceHandler(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteService(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
}
