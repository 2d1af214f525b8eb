package repairservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
)

// ServiceRepository is the persistence contract for repair services.
type ServiceRepository interface {
	Create(ctx context.Context, s domain.ServiceRecord) (domain.ServiceRecord, error)
	GetServiceByID(ctx context.Context, id string) (domain.ServiceRecord, error)
	GetServicesByLevelAndNode(ctx context.Context, level domain.Level, nodeID string) ([]domain.ServiceRecord, error)
	GetVariants(ctx context.Context, parentServiceID string) ([]domain.ServiceRecord, error)
	Update(ctx context.Context, s domain.ServiceRecord) error
	SetActive(ctx context.Context, id string, active bool) (int64, error)
	Delete(ctx context.Context, id string) error
}

// NodeLookup checks that an assignment target exists in the catalog.
type NodeLookup interface {
	GetNode(ctx context.Context, level domain.Level, id string) (domain.CatalogNode, error)
}

// Service administers the repair service catalog.
type Service struct {
	repo   ServiceRepository
	nodes  NodeLookup
	logger logger.Logger
}

// NewService creates the service catalog service.
func NewService(repo ServiceRepository, nodes NodeLookup, logger logger.Logger) *Service {
	return &Service{repo: repo, nodes: nodes, logger: logger}
}

// CreateService creates a standalone service or, when ParentServiceID is set, a variant.
// A variant always sits on its parent's level and node.
func (s *Service) CreateService(ctx context.Context, in domain.ServiceInput) (domain.ServiceRecord, error) {
	s.logger.Debug("Creating service.", map[string]interface{}{
		"level":             in.Level,
		"assigned_node_id":  in.AssignedNodeID,
		"parent_service_id": in.ParentServiceID,
	})

	name, err := validateName(in.Name)
	if err != nil {
		return domain.ServiceRecord{}, err
	}
	if err := domain.CheckPrice(in.BasePrice); err != nil {
		return domain.ServiceRecord{}, apperror.NewValidationError("base_price " + err.Error())
	}
	if err := domain.CheckMinutes(in.BaseTimeMinutes); err != nil {
		return domain.ServiceRecord{}, apperror.NewValidationError("base_time_minutes " + err.Error())
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	now := time.Now().UTC()
	rec := domain.ServiceRecord{
		ID:              uuid.NewString(),
		Name:            name,
		Description:     strings.TrimSpace(in.Description),
		BasePrice:       in.BasePrice,
		BaseTimeMinutes: in.BaseTimeMinutes,
		SortOrder:       in.SortOrder,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if in.ParentServiceID != "" {
		parent, err := s.variantParent(ctx, in)
		if err != nil {
			return domain.ServiceRecord{}, err
		}
		if active && !parent.IsActive {
			s.logger.Info("Parent service is inactive, creating variant as inactive.", map[string]interface{}{"parent_service_id": parent.ID})
			active = false
		}
		pid := parent.ID
		rec.Level = parent.Level
		rec.AssignedNodeID = parent.AssignedNodeID
		rec.IsVariant = true
		rec.ParentServiceID = &pid
	} else {
		level, nodeID, err := s.assignment(ctx, in.Level, in.AssignedNodeID)
		if err != nil {
			return domain.ServiceRecord{}, err
		}
		rec.Level = level
		rec.AssignedNodeID = nodeID
	}
	rec.IsActive = active

	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		s.logger.Error("Failed to create service.", err)
		return domain.ServiceRecord{}, err
	}
	return created, nil
}

// variantParent loads and checks the parent of a variant being created.
// Level and node may be omitted; when given they must match the parent's.
func (s *Service) variantParent(ctx context.Context, in domain.ServiceInput) (domain.ServiceRecord, error) {
	if _, err := uuid.Parse(in.ParentServiceID); err != nil {
		return domain.ServiceRecord{}, apperror.NewValidationError("parent_service_id must be a valid UUID")
	}
	parent, err := s.repo.GetServiceByID(ctx, in.ParentServiceID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return domain.ServiceRecord{}, apperror.NewValidationError(fmt.Sprintf("parent service %s does not exist", in.ParentServiceID))
		}
		return domain.ServiceRecord{}, err
	}
	if parent.IsVariant {
		return domain.ServiceRecord{}, apperror.NewInvalidAssignmentError("a variant cannot have variants of its own")
	}
	if in.Level != "" && in.Level != parent.Level {
		return domain.ServiceRecord{}, apperror.NewInvalidAssignmentError(
			fmt.Sprintf("variant level %q differs from parent level %q", in.Level, parent.Level))
	}
	if in.AssignedNodeID != "" && in.AssignedNodeID != parent.AssignedNodeID {
		return domain.ServiceRecord{}, apperror.NewInvalidAssignmentError(
			fmt.Sprintf("variant node %s differs from parent node %s", in.AssignedNodeID, parent.AssignedNodeID))
	}
	return parent, nil
}

func (s *Service) assignment(ctx context.Context, level domain.Level, nodeID string) (domain.Level, string, error) {
	if level.Depth() < 0 {
		return "", "", apperror.NewValidationError(fmt.Sprintf("unknown level %q", level))
	}
	if _, err := uuid.Parse(nodeID); err != nil {
		return "", "", apperror.NewValidationError("assigned_node_id must be a valid UUID")
	}
	if _, err := s.nodes.GetNode(ctx, level, nodeID); err != nil {
		if apperror.IsNotFound(err) {
			return "", "", apperror.NewValidationError(fmt.Sprintf("%s %s does not exist", level, nodeID))
		}
		return "", "", err
	}
	return level, nodeID, nil
}

// GetService returns one service.
func (s *Service) GetService(ctx context.Context, id string) (domain.ServiceRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ServiceRecord{}, apperror.NewValidationError("service id must be a valid UUID")
	}
	return s.repo.GetServiceByID(ctx, id)
}

// ListServices returns the services and variants pinned to one node, in stored order.
func (s *Service) ListServices(ctx context.Context, level domain.Level, nodeID string) ([]domain.ServiceRecord, error) {
	if level.Depth() < 0 {
		return nil, apperror.NewValidationError(fmt.Sprintf("unknown level %q", level))
	}
	if _, err := uuid.Parse(nodeID); err != nil {
		return nil, apperror.NewValidationError("node_id must be a valid UUID")
	}
	list, err := s.repo.GetServicesByLevelAndNode(ctx, level, nodeID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.ServiceRecord{}
	}
	return list, nil
}

// ListVariants returns the variants of a service. An unknown service is NotFound.
func (s *Service) ListVariants(ctx context.Context, parentID string) ([]domain.ServiceRecord, error) {
	if _, err := s.GetService(ctx, parentID); err != nil {
		return nil, err
	}
	variants, err := s.repo.GetVariants(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if variants == nil {
		variants = []domain.ServiceRecord{}
	}
	return variants, nil
}

// UpdateService applies the non-nil fields of upd. Level and assignment cannot change.
func (s *Service) UpdateService(ctx context.Context, id string, upd domain.ServiceUpdate) (domain.ServiceRecord, error) {
	rec, err := s.GetService(ctx, id)
	if err != nil {
		return domain.ServiceRecord{}, err
	}

	if upd.Name != nil {
		name, err := validateName(*upd.Name)
		if err != nil {
			return domain.ServiceRecord{}, err
		}
		rec.Name = name
	}
	if upd.Description != nil {
		rec.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.BasePrice != nil {
		if err := domain.CheckPrice(*upd.BasePrice); err != nil {
			return domain.ServiceRecord{}, apperror.NewValidationError("base_price " + err.Error())
		}
		rec.BasePrice = *upd.BasePrice
	}
	if upd.BaseTimeMinutes != nil {
		if err := domain.CheckMinutes(*upd.BaseTimeMinutes); err != nil {
			return domain.ServiceRecord{}, apperror.NewValidationError("base_time_minutes " + err.Error())
		}
		rec.BaseTimeMinutes = *upd.BaseTimeMinutes
	}
	if upd.SortOrder != nil {
		rec.SortOrder = *upd.SortOrder
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, rec); err != nil {
		s.logger.Error("Failed to update service.", err)
		return domain.ServiceRecord{}, err
	}
	return rec, nil
}

// SetServiceActive toggles a service. Deactivating a parent deactivates its
// variants too; activating one never touches variants. A variant cannot be
// activated while its parent is inactive.
func (s *Service) SetServiceActive(ctx context.Context, id string, active bool) error {
	rec, err := s.GetService(ctx, id)
	if err != nil {
		return err
	}

	if active && rec.IsVariant && rec.ParentServiceID != nil {
		parent, err := s.repo.GetServiceByID(ctx, *rec.ParentServiceID)
		if err != nil {
			return err
		}
		if !parent.IsActive {
			return apperror.NewConflictError(fmt.Sprintf("parent service %s is inactive", parent.ID))
		}
	}

	cascaded, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return err
	}
	s.logger.Info("Service activation changed.", map[string]interface{}{
		"service_id":        id,
		"active":            active,
		"variants_cascaded": cascaded,
	})
	return nil
}

// DeleteService removes a service with its variants and overrides.
func (s *Service) DeleteService(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("service id must be a valid UUID")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Service deleted.", map[string]interface{}{"service_id": id})
	return nil
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperror.NewValidationError("name cannot be empty")
	}
	if len(name) > 200 {
		return "", apperror.NewValidationError("name must be at most 200 characters")
	}
	return name, nil
}
