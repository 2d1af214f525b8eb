package catalog

import (
	"context"
	"net/http"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/middleware"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/response"
	"github.com/sysverax/somerville-mobile-sub000/internal/service/catalogservice"
	"github.com/sysverax/somerville-mobile-sub000/internal/visibility"
)

// CatalogService is what the handler expects from the catalog service layer.
type CatalogService interface {
	CreateNode(ctx context.Context, level domain.Level, in domain.CatalogNodeInput) (domain.CatalogNode, error)
	GetNode(ctx context.Context, level domain.Level, id string, role domain.UserRole) (catalogservice.NodeView, error)
	GetVisibility(ctx context.Context, level domain.Level, id string, role domain.UserRole) (visibility.Result, error)
	ListNodes(ctx context.Context, level domain.Level, parentID string, role domain.UserRole) ([]catalogservice.NodeView, error)
	UpdateNode(ctx context.Context, level domain.Level, id string, upd domain.CatalogNodeUpdate) (domain.CatalogNode, error)
	SetNodeActive(ctx context.Context, level domain.Level, id string, active bool) error
}

// ActiveRequest is the body of the activation endpoint.
type ActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

// Handler serves the brand/category/series/product endpoints.
type Handler struct {
	Service CatalogService
	Logger  logger.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(svc CatalogService, log logger.Logger) *Handler {
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

func levelOf(r *http.Request) domain.Level {
	return domain.Level(r.PathValue("level"))
}

// CreateNodeHandler handles POST /v1/catalog/{level}.
//
// @Summary  Create a catalog node
// @Tags     catalog
// @Param    level path string true "brand, category, series or product"
// @Success  201
// @Router   /v1/catalog/{level} [post]
func (h *Handler) CreateNodeHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.CatalogNodeInput
	if err := response.Decode(r, &in); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusCreated)
		return
	}

	if claims, ok := middleware.GetUserClaimsFromContext(r.Context()); ok {
		h.Logger.Info("Catalog node creation requested.", map[string]interface{}{
			"user_id": claims.UserID,
			"level":   levelOf(r),
		})
	}

	node, err := h.Service.CreateNode(r.Context(), levelOf(r), in)
	h.handleServiceResponse(w, r, node, err, http.StatusCreated)
}

// ListNodesHandler handles GET /v1/catalog/{level}?parent_id=.
//
// @Summary  List catalog nodes visible to the caller
// @Tags     catalog
// @Param    level     path  string true  "brand, category, series or product"
// @Param    parent_id query string false "only children of this node"
// @Success  200
// @Router   /v1/catalog/{level} [get]
func (h *Handler) ListNodesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nodes, err := h.Service.ListNodes(ctx, levelOf(r), r.URL.Query().Get("parent_id"), middleware.CallerRole(ctx))
	h.handleServiceResponse(w, r, nodes, err, http.StatusOK)
}

// GetNodeHandler handles GET /v1/catalog/{level}/{id}.
//
// @Summary  Get a catalog node
// @Tags     catalog
// @Success  200
// @Failure  404
// @Router   /v1/catalog/{level}/{id} [get]
func (h *Handler) GetNodeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	node, err := h.Service.GetNode(ctx, levelOf(r), r.PathValue("id"), middleware.CallerRole(ctx))
	h.handleServiceResponse(w, r, node, err, http.StatusOK)
}

// GetVisibilityHandler handles GET /v1/catalog/{level}/{id}/visibility.
//
// @Summary  Resolve visibility of a catalog node for the caller
// @Tags     catalog
// @Success  200
// @Router   /v1/catalog/{level}/{id}/visibility [get]
func (h *Handler) GetVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.Service.GetVisibility(ctx, levelOf(r), r.PathValue("id"), middleware.CallerRole(ctx))
	h.handleServiceResponse(w, r, res, err, http.StatusOK)
}

// UpdateNodeHandler handles PATCH /v1/catalog/{level}/{id}.
//
// @Summary  Update name or description of a catalog node
// @Tags     catalog
// @Success  200
// @Router   /v1/catalog/{level}/{id} [patch]
func (h *Handler) UpdateNodeHandler(w http.ResponseWriter, r *http.Request) {
	var upd domain.CatalogNodeUpdate
	if err := response.Decode(r, &upd); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	node, err := h.Service.UpdateNode(r.Context(), levelOf(r), r.PathValue("id"), upd)
	h.handleServiceResponse(w, r, node, err, http.StatusOK)
}

// SetNodeActiveHandler handles PUT /v1/catalog/{level}/{id}/active.
//
// @Summary  Activate or deactivate a catalog node
// @Tags     catalog
// @Success  204
// @Router   /v1/catalog/{level}/{id}/active [put]
func (h *Handler) SetNodeActiveHandler(w http.ResponseWriter, r *http.Request) {
	var req ActiveRequest
	if err := response.Decode(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
		return
	}
	if req.IsActive == nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("is_active is required"), http.StatusNoContent)
		return
	}
	err := h.Service.SetNodeActive(r.Context(), levelOf(r), r.PathValue("id"), *req.IsActive)
	h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
}
