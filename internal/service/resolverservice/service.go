package resolverservice

import (
	"context"
	"errors"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/visibility"
)

// CatalogReader loads a product together with its ancestors.
type CatalogReader interface {
	GetProductWithAncestors(ctx context.Context, productID string) (domain.Lineage, error)
}

// ServiceCatalog is the read side of the service store. GetServicesByLevelAndNode
// must return records in stored order.
type ServiceCatalog interface {
	GetServicesByLevelAndNode(ctx context.Context, level domain.Level, nodeID string) ([]domain.ServiceRecord, error)
	GetVariants(ctx context.Context, parentServiceID string) ([]domain.ServiceRecord, error)
	GetServiceByID(ctx context.Context, id string) (domain.ServiceRecord, error)
}

// OverrideReader returns the override for a pair; found is false when no row exists.
type OverrideReader interface {
	GetOverride(ctx context.Context, serviceID, productID string) (domain.OverrideRecord, bool, error)
}

// Service resolves the sellable services of a product.
type Service struct {
	catalog   CatalogReader
	services  ServiceCatalog
	overrides OverrideReader
	logger    logger.Logger
}

// NewService creates a resolver.
func NewService(catalog CatalogReader, services ServiceCatalog, overrides OverrideReader, logger logger.Logger) *Service {
	return &Service{catalog: catalog, services: services, overrides: overrides, logger: logger}
}

// ResolveServicesForProduct returns every active standalone service and variant
// assigned to the product or one of its ancestors, with overrides applied.
//
// Order is brand slot first, then category, series and product, each in the
// service catalog's stored order. Parents that have variants never appear.
// Entries disabled for the product are dropped unless opts.IncludeDisabled is set.
// With opts.Role set, a product hidden from that role is NotFound.
func (s *Service) ResolveServicesForProduct(ctx context.Context, productID string, opts domain.ResolveOptions) ([]domain.ResolvedServiceView, error) {
	s.logger.Debug("Resolving services for product.", map[string]interface{}{"product_id": productID, "include_disabled": opts.IncludeDisabled})

	if productID == "" {
		return nil, apperror.NewValidationError("product id is required")
	}

	lineage, err := s.catalog.GetProductWithAncestors(ctx, productID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		s.logger.Error("Failed to load product lineage.", err)
		return nil, apperror.NewInternalError("failed to load product lineage", err)
	}

	if opts.Role != "" && visibility.ResolveLineage(lineage, opts.Role).State == visibility.StateHidden {
		return nil, apperror.NewNotFoundError("product " + productID)
	}

	if lineage.IsDangling() {
		// Resolution carries on with the slots that did resolve.
		s.logger.Warn("Product has a dangling ancestor.", map[string]interface{}{
			"product_id":        productID,
			"missing_parent_id": lineage.MissingParentID,
		})
	}

	candidates, err := s.collect(ctx, lineage)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ResolvedServiceView, 0, len(candidates))
	for _, svc := range candidates {
		override, _, err := s.overrides.GetOverride(ctx, svc.ID, productID)
		if err != nil {
			s.logger.Error("Failed to load service override.", err)
			return nil, apperror.NewInternalError("failed to load service override", err)
		}

		view := domain.ResolvedServiceView{
			Service:              svc,
			EffectivePrice:       override.EffectivePrice(svc.BasePrice),
			EffectiveTime:        override.EffectiveTime(svc.BaseTimeMinutes),
			IsDisabledForProduct: override.IsDisabled,
		}
		if svc.IsVariant && svc.ParentServiceID != nil {
			parentID := *svc.ParentServiceID
			view.GroupParentID = &parentID
		}

		if view.IsDisabledForProduct && !opts.IncludeDisabled {
			continue
		}
		views = append(views, view)
	}

	s.logger.Debug("Services resolved for product.", map[string]interface{}{"product_id": productID, "count": len(views)})
	return views, nil
}

// collect unions the four level slots and drops inactive records and parents with variants.
func (s *Service) collect(ctx context.Context, lineage domain.Lineage) ([]domain.ServiceRecord, error) {
	var out []domain.ServiceRecord
	hasVariants := make(map[string]bool)

	for _, level := range domain.Levels {
		node, ok := lineage.At(level)
		if !ok {
			continue
		}

		records, err := s.services.GetServicesByLevelAndNode(ctx, level, node.ID)
		if err != nil {
			s.logger.Error("Failed to load services for slot.", err)
			return nil, apperror.NewInternalError("failed to load services", err)
		}

		for _, rec := range records {
			if !rec.IsActive {
				continue
			}
			if !rec.IsVariant {
				has, seen := hasVariants[rec.ID]
				if !seen {
					variants, err := s.services.GetVariants(ctx, rec.ID)
					if err != nil {
						s.logger.Error("Failed to load service variants.", err)
						return nil, apperror.NewInternalError("failed to load service variants", err)
					}
					has = len(variants) > 0
					hasVariants[rec.ID] = has
				}
				if has {
					continue
				}
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// GroupForDisplay loads the parent headers needed by views and groups them.
func (s *Service) GroupForDisplay(ctx context.Context, views []domain.ResolvedServiceView) ([]domain.ServiceGroup, error) {
	parents := make(map[string]domain.ServiceRecord)
	for _, v := range views {
		if v.GroupParentID == nil {
			continue
		}
		id := *v.GroupParentID
		if _, ok := parents[id]; ok {
			continue
		}
		parent, err := s.services.GetServiceByID(ctx, id)
		if err != nil {
			var nf *apperror.NotFoundError
			if errors.As(err, &nf) {
				return nil, apperror.NewInternalError("variant parent is missing", err)
			}
			return nil, apperror.NewInternalError("failed to load variant parent", err)
		}
		parents[id] = parent
	}
	return GroupForDisplay(views, parents), nil
}
