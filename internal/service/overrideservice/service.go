package overrideservice

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
)

// OverrideRepository stores overrides with at most one row per (service, product).
type OverrideRepository interface {
	GetOverride(ctx context.Context, serviceID, productID string) (domain.OverrideRecord, bool, error)
	UpsertOverride(ctx context.Context, serviceID, productID string, fields domain.OverrideFields) (domain.OverrideRecord, error)
	SetDisabled(ctx context.Context, serviceID, productID string, disabled bool) (domain.OverrideRecord, bool, error)
	DeleteOverride(ctx context.Context, serviceID, productID string) (bool, error)
}

// ServiceLookup reads services and their variants.
type ServiceLookup interface {
	GetServiceByID(ctx context.Context, id string) (domain.ServiceRecord, error)
	GetVariants(ctx context.Context, parentServiceID string) ([]domain.ServiceRecord, error)
}

// ProductLookup loads a product lineage.
type ProductLookup interface {
	GetProductWithAncestors(ctx context.Context, productID string) (domain.Lineage, error)
}

// Service edits per-product exceptions to service defaults.
type Service struct {
	repo     OverrideRepository
	services ServiceLookup
	products ProductLookup
	logger   logger.Logger
}

// NewService creates the override service.
func NewService(repo OverrideRepository, services ServiceLookup, products ProductLookup, logger logger.Logger) *Service {
	return &Service{repo: repo, services: services, products: products, logger: logger}
}

// GetOverride returns the stored override or its all-default equivalent.
func (s *Service) GetOverride(ctx context.Context, serviceID, productID string) (domain.OverrideRecord, error) {
	if err := validateIDs(serviceID, productID); err != nil {
		return domain.OverrideRecord{}, err
	}
	o, _, err := s.repo.GetOverride(ctx, serviceID, productID)
	return o, err
}

// SetOverride upserts price and/or time for the pair. Omitted fields keep their
// stored value and the disabled flag is left alone.
func (s *Service) SetOverride(ctx context.Context, serviceID, productID string, fields domain.OverrideFields) (domain.OverrideRecord, error) {
	if fields.Price == nil && fields.Time == nil {
		return domain.OverrideRecord{}, apperror.NewValidationError("price or time is required")
	}
	if fields.Price != nil {
		if err := domain.CheckPrice(*fields.Price); err != nil {
			return domain.OverrideRecord{}, apperror.NewValidationError("price " + err.Error())
		}
	}
	if fields.Time != nil {
		if err := domain.CheckMinutes(*fields.Time); err != nil {
			return domain.OverrideRecord{}, apperror.NewValidationError("time " + err.Error())
		}
	}
	if err := s.validateTarget(ctx, serviceID, productID); err != nil {
		return domain.OverrideRecord{}, err
	}

	o, err := s.repo.UpsertOverride(ctx, serviceID, productID, fields)
	if err != nil {
		s.logger.Error("Failed to set override.", err)
		return domain.OverrideRecord{}, err
	}
	s.logger.Info("Override set.", map[string]interface{}{"service_id": serviceID, "product_id": productID})
	return o, nil
}

// ToggleOverrideDisabled writes only the disabled flag. Re-enabling a pair that
// was never overridden is a no-op and creates nothing.
func (s *Service) ToggleOverrideDisabled(ctx context.Context, serviceID, productID string, disabled bool) (domain.OverrideRecord, error) {
	if err := s.validateTarget(ctx, serviceID, productID); err != nil {
		return domain.OverrideRecord{}, err
	}

	o, changed, err := s.repo.SetDisabled(ctx, serviceID, productID, disabled)
	if err != nil {
		s.logger.Error("Failed to toggle override.", err)
		return domain.OverrideRecord{}, err
	}
	if !changed {
		s.logger.Debug("No override row to re-enable.", map[string]interface{}{"service_id": serviceID, "product_id": productID})
	}
	return o, nil
}

// ClearOverride removes the override for the pair. An absent row is a no-op.
func (s *Service) ClearOverride(ctx context.Context, serviceID, productID string) error {
	if err := validateIDs(serviceID, productID); err != nil {
		return err
	}
	removed, err := s.repo.DeleteOverride(ctx, serviceID, productID)
	if err != nil {
		return err
	}
	s.logger.Info("Override cleared.", map[string]interface{}{"service_id": serviceID, "product_id": productID, "removed": removed})
	return nil
}

// validateTarget checks the pair can carry an override: both exist, the service
// is a sellable line (standalone or variant), and it is assigned within the
// product's lineage.
func (s *Service) validateTarget(ctx context.Context, serviceID, productID string) error {
	if err := validateIDs(serviceID, productID); err != nil {
		return err
	}

	svc, err := s.services.GetServiceByID(ctx, serviceID)
	if err != nil {
		return err
	}
	if !svc.IsVariant {
		variants, err := s.services.GetVariants(ctx, serviceID)
		if err != nil {
			return err
		}
		if len(variants) > 0 {
			return apperror.NewInvalidAssignmentError(fmt.Sprintf("service %s has variants; override a variant instead", serviceID))
		}
	}

	lineage, err := s.products.GetProductWithAncestors(ctx, productID)
	if err != nil {
		return err
	}
	node, ok := lineage.At(svc.Level)
	if !ok || node.ID != svc.AssignedNodeID {
		return apperror.NewInvalidAssignmentError(fmt.Sprintf("service %s does not apply to product %s", serviceID, productID))
	}
	return nil
}

func validateIDs(serviceID, productID string) error {
	if _, err := uuid.Parse(serviceID); err != nil {
		return apperror.NewValidationError("service id must be a valid UUID")
	}
	if _, err := uuid.Parse(productID); err != nil {
		return apperror.NewValidationError("product id must be a valid UUID")
	}
	return nil
}
