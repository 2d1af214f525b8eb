// Package visibility decides whether a catalog node can be shown to a caller.
//
// A node is live for the public only when it and every ancestor are active.
// Administrators always see the node, but still get the nearest inactive
// entity as diagnostic metadata.
package visibility

import (
	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
)

// State is the outcome of a visibility decision.
type State string

const (
	StateVisible State = "visible"
	StateHidden  State = "hidden"
)

// Result describes a visibility decision. BlockingAncestor is the closest inactive
// entity in the chain, starting with the node itself.
type Result struct {
	State            State               `json:"state"`
	BlockingAncestor *domain.CatalogNode `json:"blocking_ancestor,omitempty"`
	Dangling         bool                `json:"dangling"`
	MissingParentID  string              `json:"missing_parent_id,omitempty"`
	nodeID           string
}

// Err returns a DanglingAncestorError when the chain was incomplete, nil otherwise.
func (r Result) Err() error {
	if !r.Dangling {
		return nil
	}
	return apperror.NewDanglingAncestorError(r.nodeID, r.MissingParentID)
}

// Resolve computes visibility of node given its ancestor chain (immediate parent first).
// The chain must follow node.ParentID upwards up to the brand; any gap or
// mismatch is reported as a dangling ancestor and hides the node from the public.
func Resolve(node domain.CatalogNode, ancestors []domain.CatalogNode, role domain.UserRole) Result {
	res := Result{nodeID: node.ID}

	if !node.IsActive {
		n := node
		res.BlockingAncestor = &n
	}

	depth := node.Level.Depth()
	if depth < 0 {
		res.Dangling = true
	}

	expectedID := node.ParentID
	expectedLevel, _ := node.Level.Parent()
	for i := 0; i < depth; i++ {
		if i >= len(ancestors) || ancestors[i].ID != expectedID || ancestors[i].Level != expectedLevel {
			res.Dangling = true
			res.MissingParentID = expectedID
			break
		}
		a := ancestors[i]
		if res.BlockingAncestor == nil && !a.IsActive {
			res.BlockingAncestor = &a
		}
		expectedID = a.ParentID
		expectedLevel, _ = a.Level.Parent()
	}

	switch {
	case role == domain.RoleAdmin:
		res.State = StateVisible
	case res.Dangling || res.BlockingAncestor != nil:
		res.State = StateHidden
	default:
		res.State = StateVisible
	}
	return res
}

// ResolveLineage is Resolve applied to a fetched lineage.
func ResolveLineage(l domain.Lineage, role domain.UserRole) Result {
	res := Resolve(l.Node, l.Ancestors, role)
	if l.MissingParentID != "" && res.MissingParentID == "" {
		res.Dangling = true
		res.MissingParentID = l.MissingParentID
		if role != domain.RoleAdmin {
			res.State = StateHidden
		}
	}
	return res
}
