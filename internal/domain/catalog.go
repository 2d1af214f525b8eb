package domain

import "time"

// Level is the rung of the catalog hierarchy a node or a service belongs to.
type Level string

const (
	LevelBrand    Level = "brand"
	LevelCategory Level = "category"
	LevelSeries   Level = "series"
	LevelProduct  Level = "product"
)

// Levels lists the hierarchy from the root down. Resolution walks slots in this order.
var Levels = []Level{LevelBrand, LevelCategory, LevelSeries, LevelProduct}

// ParseLevel validates a raw level string.
func ParseLevel(s string) (Level, bool) {
	for _, l := range Levels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// Depth is the number of ancestors a node at this level has (brand = 0, product = 3).
func (l Level) Depth() int {
	for i, lv := range Levels {
		if lv == l {
			return i
		}
	}
	return -1
}

// Parent returns the level directly above l. Brand has none.
func (l Level) Parent() (Level, bool) {
	d := l.Depth()
	if d <= 0 {
		return "", false
	}
	return Levels[d-1], true
}

// Child returns the level directly below l. Product has none.
func (l Level) Child() (Level, bool) {
	d := l.Depth()
	if d < 0 || d == len(Levels)-1 {
		return "", false
	}
	return Levels[d+1], true
}

// CatalogNode is a Brand, Category, Series or Product.
// Level is derived from the table the node was read from and is never persisted as a column.
type CatalogNode struct {
	ID          string    `json:"id"`
	Level       Level     `json:"level"`
	ParentID    string    `json:"parent_id,omitempty"` // empty for brands
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Lineage is a node plus its ordered ancestor chain, immediate parent first.
// When a parent reference does not resolve, walking stops and MissingParentID
// records the id that could not be found.
type Lineage struct {
	Node            CatalogNode   `json:"node"`
	Ancestors       []CatalogNode `json:"ancestors"`
	MissingParentID string        `json:"missing_parent_id,omitempty"`
}

// At returns the node of the lineage sitting at the given level, if present.
func (l Lineage) At(level Level) (CatalogNode, bool) {
	if l.Node.Level == level {
		return l.Node, true
	}
	for _, a := range l.Ancestors {
		if a.Level == level {
			return a, true
		}
	}
	return CatalogNode{}, false
}

// IsDangling reports whether the ancestor chain is incomplete.
func (l Lineage) IsDangling() bool {
	return l.MissingParentID != "" || len(l.Ancestors) < l.Node.Level.Depth()
}

// CatalogNodeInput is the payload for creating a catalog node.
type CatalogNodeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
	IsActive    *bool  `json:"is_active"`
}

// CatalogNodeUpdate carries optional changes to a node's descriptive fields.
type CatalogNodeUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}
