package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceRecord is a repair/maintenance service pinned to one node of one hierarchy level.
// A variant shares its parent's Level and AssignedNodeID and carries its own price and time.
// Whether a service has variants is derived from the catalog, never stored.
type ServiceRecord struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Level           Level           `json:"level"`
	AssignedNodeID  string          `json:"assigned_node_id"`
	BasePrice       decimal.Decimal `json:"base_price"`
	BaseTimeMinutes int             `json:"base_time_minutes"`
	IsActive        bool            `json:"is_active"`
	IsVariant       bool            `json:"is_variant"`
	ParentServiceID *string         `json:"parent_service_id,omitempty"`
	SortOrder       int             `json:"sort_order"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ServiceInput is the payload for creating a service or a variant.
// For variants, Level and AssignedNodeID may be omitted and are inherited from the parent.
type ServiceInput struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Level           Level           `json:"level"`
	AssignedNodeID  string          `json:"assigned_node_id"`
	BasePrice       decimal.Decimal `json:"base_price"`
	BaseTimeMinutes int             `json:"base_time_minutes"`
	IsActive        *bool           `json:"is_active"`
	ParentServiceID string          `json:"parent_service_id"`
	SortOrder       int             `json:"sort_order"`
}

// ServiceUpdate carries optional changes to a service. Assignment is immutable.
type ServiceUpdate struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	BasePrice       *decimal.Decimal `json:"base_price"`
	BaseTimeMinutes *int             `json:"base_time_minutes"`
	SortOrder       *int             `json:"sort_order"`
}

// ResolveOptions controls resolveServicesForProduct.
type ResolveOptions struct {
	IncludeDisabled bool
	// Role, when set, hides products that are not visible to that role.
	Role UserRole
}

// ResolvedServiceView is a sellable line for one product with overrides applied.
type ResolvedServiceView struct {
	Service              ServiceRecord   `json:"service"`
	EffectivePrice       decimal.Decimal `json:"effective_price"`
	EffectiveTime        int             `json:"effective_time"`
	IsDisabledForProduct bool            `json:"is_disabled_for_product"`
	GroupParentID        *string         `json:"group_parent_id,omitempty"`
}

// ServiceGroup bundles the variants of one parent service under it.
// Standalone services form singleton groups with a nil Parent.
type ServiceGroup struct {
	Parent *ServiceRecord        `json:"parent"`
	Items  []ResolvedServiceView `json:"items"`
}
