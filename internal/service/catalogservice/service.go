package catalogservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/visibility"
)

// CatalogRepository is what the catalog service needs from persistence.
type CatalogRepository interface {
	CreateNode(ctx context.Context, node domain.CatalogNode) (domain.CatalogNode, error)
	GetNode(ctx context.Context, level domain.Level, id string) (domain.CatalogNode, error)
	ListNodes(ctx context.Context, level domain.Level, parentID string) ([]domain.CatalogNode, error)
	UpdateNode(ctx context.Context, node domain.CatalogNode) error
	SetNodeActive(ctx context.Context, level domain.Level, id string, active bool) error
	GetLineage(ctx context.Context, level domain.Level, id string) (domain.Lineage, error)
}

// NodeView is a node as seen by a caller, with its visibility decision.
type NodeView struct {
	domain.CatalogNode
	Visibility visibility.Result `json:"visibility"`
}

// Service manages brands, categories, series and products.
type Service struct {
	repo   CatalogRepository
	logger logger.Logger
}

// NewService creates the catalog service.
func NewService(repo CatalogRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateNode creates a node under an existing parent (brands have no parent).
func (s *Service) CreateNode(ctx context.Context, level domain.Level, in domain.CatalogNodeInput) (domain.CatalogNode, error) {
	s.logger.Debug("Creating catalog node.", map[string]interface{}{"level": level, "parent_id": in.ParentID})

	if level.Depth() < 0 {
		return domain.CatalogNode{}, apperror.NewValidationError(fmt.Sprintf("unknown catalog level %q", level))
	}
	name, err := validateName(in.Name)
	if err != nil {
		return domain.CatalogNode{}, err
	}

	parentLevel, hasParent := level.Parent()
	switch {
	case !hasParent && in.ParentID != "":
		return domain.CatalogNode{}, apperror.NewValidationError("a brand cannot have a parent")
	case hasParent:
		if _, err := uuid.Parse(in.ParentID); err != nil {
			return domain.CatalogNode{}, apperror.NewValidationError(fmt.Sprintf("a %s needs a valid %s id as parent", level, parentLevel))
		}
		if _, err := s.repo.GetNode(ctx, parentLevel, in.ParentID); err != nil {
			if apperror.IsNotFound(err) {
				return domain.CatalogNode{}, apperror.NewValidationError(fmt.Sprintf("%s %s does not exist", parentLevel, in.ParentID))
			}
			return domain.CatalogNode{}, err
		}
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	now := time.Now().UTC()
	node := domain.CatalogNode{
		ID:          uuid.NewString(),
		Level:       level,
		ParentID:    in.ParentID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		IsActive:    active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.CreateNode(ctx, node)
	if err != nil {
		s.logger.Error("Failed to create catalog node.", err)
		return domain.CatalogNode{}, err
	}
	return created, nil
}

// GetNode returns a node with its visibility for role. Public callers get
// NotFound for hidden nodes.
func (s *Service) GetNode(ctx context.Context, level domain.Level, id string, role domain.UserRole) (NodeView, error) {
	lineage, err := s.lineage(ctx, level, id)
	if err != nil {
		return NodeView{}, err
	}

	res := s.resolve(lineage, role)
	if res.State == visibility.StateHidden {
		return NodeView{}, apperror.NewNotFoundError(fmt.Sprintf("%s %s", level, id))
	}
	return NodeView{CatalogNode: lineage.Node, Visibility: res}, nil
}

// GetVisibility resolves visibility of a node for role.
func (s *Service) GetVisibility(ctx context.Context, level domain.Level, id string, role domain.UserRole) (visibility.Result, error) {
	lineage, err := s.lineage(ctx, level, id)
	if err != nil {
		return visibility.Result{}, err
	}
	return s.resolve(lineage, role), nil
}

// ListNodes lists nodes of a level, optionally under one parent. Public callers
// only see visible nodes; admins see all of them with diagnostics.
func (s *Service) ListNodes(ctx context.Context, level domain.Level, parentID string, role domain.UserRole) ([]NodeView, error) {
	if level.Depth() < 0 {
		return nil, apperror.NewValidationError(fmt.Sprintf("unknown catalog level %q", level))
	}
	parentLevel, hasParent := level.Parent()
	if parentID != "" {
		if !hasParent {
			return nil, apperror.NewValidationError("brands have no parent")
		}
		if _, err := uuid.Parse(parentID); err != nil {
			return nil, apperror.NewValidationError("parent_id must be a valid UUID")
		}
	}

	nodes, err := s.repo.ListNodes(ctx, level, parentID)
	if err != nil {
		return nil, err
	}

	// Siblings share an ancestor chain; load each distinct chain once.
	chains := make(map[string][]domain.CatalogNode)
	views := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		var chain []domain.CatalogNode
		if hasParent {
			c, ok := chains[n.ParentID]
			if !ok {
				c, err = s.chainFor(ctx, parentLevel, n.ParentID)
				if err != nil {
					return nil, err
				}
				chains[n.ParentID] = c
			}
			chain = c
		}

		res := visibility.Resolve(n, chain, role)
		if res.State == visibility.StateHidden {
			continue
		}
		views = append(views, NodeView{CatalogNode: n, Visibility: res})
	}
	return views, nil
}

// UpdateNode changes a node's name and/or description.
func (s *Service) UpdateNode(ctx context.Context, level domain.Level, id string, upd domain.CatalogNodeUpdate) (domain.CatalogNode, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.CatalogNode{}, apperror.NewValidationError("id must be a valid UUID")
	}
	node, err := s.repo.GetNode(ctx, level, id)
	if err != nil {
		return domain.CatalogNode{}, err
	}

	if upd.Name != nil {
		name, err := validateName(*upd.Name)
		if err != nil {
			return domain.CatalogNode{}, err
		}
		node.Name = name
	}
	if upd.Description != nil {
		node.Description = strings.TrimSpace(*upd.Description)
	}
	node.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateNode(ctx, node); err != nil {
		s.logger.Error("Failed to update catalog node.", err)
		return domain.CatalogNode{}, err
	}
	return node, nil
}

// SetNodeActive activates or deactivates a node. Descendants are not touched:
// they are hidden through visibility cascading instead.
func (s *Service) SetNodeActive(ctx context.Context, level domain.Level, id string, active bool) error {
	if level.Depth() < 0 {
		return apperror.NewValidationError(fmt.Sprintf("unknown catalog level %q", level))
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("id must be a valid UUID")
	}
	if err := s.repo.SetNodeActive(ctx, level, id, active); err != nil {
		return err
	}
	s.logger.Info("Catalog node activation changed.", map[string]interface{}{"level": level, "id": id, "active": active})
	return nil
}

func (s *Service) lineage(ctx context.Context, level domain.Level, id string) (domain.Lineage, error) {
	if level.Depth() < 0 {
		return domain.Lineage{}, apperror.NewValidationError(fmt.Sprintf("unknown catalog level %q", level))
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Lineage{}, apperror.NewValidationError("id must be a valid UUID")
	}
	return s.repo.GetLineage(ctx, level, id)
}

// chainFor returns [parent, parent's ancestors...]. A missing parent yields the
// truncated chain so visibility reports it as dangling.
func (s *Service) chainFor(ctx context.Context, level domain.Level, id string) ([]domain.CatalogNode, error) {
	lineage, err := s.repo.GetLineage(ctx, level, id)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return append([]domain.CatalogNode{lineage.Node}, lineage.Ancestors...), nil
}

func (s *Service) resolve(lineage domain.Lineage, role domain.UserRole) visibility.Result {
	res := visibility.ResolveLineage(lineage, role)
	if err := res.Err(); err != nil {
		s.logger.Warn("Visibility resolved over a dangling ancestor chain.", map[string]interface{}{
			"node_id": lineage.Node.ID,
			"error":   err.Error(),
		})
	}
	return res
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
