package catalogrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/cache"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/database"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
)

// levelTable maps a level to its table and the column pointing at the parent.
type levelTable struct {
	table     string
	parentCol string
}

var tables = map[domain.Level]levelTable{
	domain.LevelBrand:    {table: "brands"},
	domain.LevelCategory: {table: "categories", parentCol: "brand_id"},
	domain.LevelSeries:   {table: "series", parentCol: "category_id"},
	domain.LevelProduct:  {table: "products", parentCol: "series_id"},
}

const (
	generationKey = "catalog:generation"
	lineageKey    = "catalog:g%d:lineage:product:%s"
)

// CatalogRepository stores brands, categories, series and products.
// Product lineages are cached in Redis under a generation counter that every
// catalog write bumps, so a stale ancestor flag is never served.
type CatalogRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewCatalogRepository creates the repository. cacheClient may be nil.
func NewCatalogRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *CatalogRepository {
	return &CatalogRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

func tableFor(level domain.Level) (levelTable, error) {
	t, ok := tables[level]
	if !ok {
		return levelTable{}, apperror.NewValidationError(fmt.Sprintf("unknown catalog level %q", level))
	}
	return t, nil
}

func (t levelTable) selectColumns() string {
	parent := "''"
	if t.parentCol != "" {
		parent = t.parentCol + "::text"
	}
	return fmt.Sprintf("id::text, %s, name, description, is_active, created_at, updated_at", parent)
}

func scanNode(level domain.Level, row interface{ Scan(...interface{}) error }) (domain.CatalogNode, error) {
	n := domain.CatalogNode{Level: level}
	err := row.Scan(&n.ID, &n.ParentID, &n.Name, &n.Description, &n.IsActive, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

// CreateNode inserts a node at node.Level.
func (r *CatalogRepository) CreateNode(ctx context.Context, node domain.CatalogNode) (domain.CatalogNode, error) {
	t, err := tableFor(node.Level)
	if err != nil {
		return domain.CatalogNode{}, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	cols := "id, name, description, is_active, created_at, updated_at"
	vals := "$1, $2, $3, $4, $5, $6"
	args := []interface{}{node.ID, node.Name, node.Description, node.IsActive, node.CreatedAt, node.UpdatedAt}
	if t.parentCol != "" {
		cols += ", " + t.parentCol
		vals += ", $7"
		args = append(args, node.ParentID)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.table, cols, vals)

	if _, err := r.DB.ExecContext(ctxTimeout, query, args...); err != nil {
		switch database.PQCode(err) {
		case database.CodeForeignKeyViolation:
			return domain.CatalogNode{}, apperror.NewValidationError(fmt.Sprintf("parent %s does not exist", node.ParentID))
		case database.CodeUniqueViolation:
			return domain.CatalogNode{}, apperror.NewConflictError(fmt.Sprintf("%s %s already exists", node.Level, node.ID))
		}
		r.logger.Error("Failed to insert catalog node.", err)
		return domain.CatalogNode{}, apperror.NewDBError("failed to insert catalog node", err)
	}

	r.bumpGeneration(ctx)
	r.logger.Info("Catalog node created.", map[string]interface{}{"level": node.Level, "id": node.ID})
	return node, nil
}

// GetNode loads one node.
func (r *CatalogRepository) GetNode(ctx context.Context, level domain.Level, id string) (domain.CatalogNode, error) {
	t, err := tableFor(level)
	if err != nil {
		return domain.CatalogNode{}, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", t.selectColumns(), t.table)
	node, err := scanNode(level, r.DB.QueryRowContext(ctxTimeout, query, id))
	if errors.Is(err, sql.ErrNoRows) || database.PQCode(err) == database.CodeInvalidTextRepresentation {
		return domain.CatalogNode{}, apperror.NewNotFoundError(fmt.Sprintf("%s %s", level, id))
	}
	if err != nil {
		r.logger.Error("Failed to load catalog node.", err)
		return domain.CatalogNode{}, apperror.NewDBError("failed to load catalog node", err)
	}
	return node, nil
}

// ListNodes lists nodes of a level, optionally restricted to one parent, ordered by name.
func (r *CatalogRepository) ListNodes(ctx context.Context, level domain.Level, parentID string) ([]domain.CatalogNode, error) {
	t, err := tableFor(level)
	if err != nil {
		return nil, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s", t.selectColumns(), t.table)
	var args []interface{}
	if parentID != "" && t.parentCol != "" {
		query += fmt.Sprintf(" WHERE %s = $1", t.parentCol)
		args = append(args, parentID)
	}
	query += " ORDER BY name, id"

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if database.PQCode(err) == database.CodeInvalidTextRepresentation {
		return []domain.CatalogNode{}, nil
	}
	if err != nil {
		r.logger.Error("Failed to list catalog nodes.", err)
		return nil, apperror.NewDBError("failed to list catalog nodes", err)
	}
	defer rows.Close()

	nodes := make([]domain.CatalogNode, 0)
	for rows.Next() {
		n, err := scanNode(level, rows)
		if err != nil {
			return nil, apperror.NewDBError("failed to scan catalog node", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("failed to iterate catalog nodes", err)
	}
	return nodes, nil
}

// UpdateNode writes name and description.
func (r *CatalogRepository) UpdateNode(ctx context.Context, node domain.CatalogNode) error {
	t, err := tableFor(node.Level)
	if err != nil {
		return err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := fmt.Sprintf("UPDATE %s SET name = $2, description = $3, updated_at = $4 WHERE id = $1", t.table)
	res, err := r.DB.ExecContext(ctxTimeout, query, node.ID, node.Name, node.Description, node.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update catalog node.", err)
		return apperror.NewDBError("failed to update catalog node", err)
	}
	if err := requireRow(res, node.Level, node.ID); err != nil {
		return err
	}

	r.bumpGeneration(ctx)
	return nil
}

// SetNodeActive flips the is_active flag.
func (r *CatalogRepository) SetNodeActive(ctx context.Context, level domain.Level, id string, active bool) error {
	t, err := tableFor(level)
	if err != nil {
		return err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := fmt.Sprintf("UPDATE %s SET is_active = $2, updated_at = NOW() WHERE id = $1", t.table)
	res, err := r.DB.ExecContext(ctxTimeout, query, id, active)
	if err != nil {
		r.logger.Error("Failed to toggle catalog node.", err)
		return apperror.NewDBError("failed to toggle catalog node", err)
	}
	if err := requireRow(res, level, id); err != nil {
		return err
	}

	r.bumpGeneration(ctx)
	r.logger.Info("Catalog node activation changed.", map[string]interface{}{"level": level, "id": id, "active": active})
	return nil
}

// GetLineage loads a node and walks its parent references up to the brand.
// A parent that cannot be found stops the walk and is reported in MissingParentID.
func (r *CatalogRepository) GetLineage(ctx context.Context, level domain.Level, id string) (domain.Lineage, error) {
	node, err := r.GetNode(ctx, level, id)
	if err != nil {
		return domain.Lineage{}, err
	}

	lineage := domain.Lineage{Node: node, Ancestors: make([]domain.CatalogNode, 0, level.Depth())}
	cur := node
	for {
		parentLevel, ok := cur.Level.Parent()
		if !ok {
			break
		}
		parent, err := r.GetNode(ctx, parentLevel, cur.ParentID)
		if apperror.IsNotFound(err) {
			lineage.MissingParentID = cur.ParentID
			r.logger.Warn("Dangling ancestor in catalog.", map[string]interface{}{
				"node_id":   cur.ID,
				"parent_id": cur.ParentID,
			})
			break
		}
		if err != nil {
			return domain.Lineage{}, err
		}
		lineage.Ancestors = append(lineage.Ancestors, parent)
		cur = parent
	}
	return lineage, nil
}

// GetProductWithAncestors returns the product lineage using cache-aside.
// Incomplete lineages are never cached.
func (r *CatalogRepository) GetProductWithAncestors(ctx context.Context, productID string) (domain.Lineage, error) {
	key, cacheable := r.lineageCacheKey(ctx, productID)

	if cacheable {
		cached, err := r.Cache.Get(ctx, key)
		if err == nil {
			var lineage domain.Lineage
			if json.Unmarshal([]byte(cached), &lineage) == nil {
				return lineage, nil
			}
			r.logger.Warn("Discarding undecodable cached lineage.", map[string]interface{}{"key": key})
		} else if err != cache.ErrCacheMiss {
			r.logger.Warn("Cache read failed, falling back to DB.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	lineage, err := r.GetLineage(ctx, domain.LevelProduct, productID)
	if err != nil {
		return domain.Lineage{}, err
	}

	if cacheable && !lineage.IsDangling() {
		if payload, err := json.Marshal(lineage); err == nil {
			if err := r.Cache.Set(ctx, key, payload, r.CacheTTL); err != nil {
				r.logger.Warn("Cache write failed.", map[string]interface{}{"key": key, "error": err.Error()})
			}
		}
	}
	return lineage, nil
}

func (r *CatalogRepository) lineageCacheKey(ctx context.Context, productID string) (string, bool) {
	if r.Cache == nil {
		return "", false
	}
	gen, err := r.Cache.GetInt(ctx, generationKey)
	if err != nil && err != cache.ErrCacheMiss {
		return "", false
	}
	return fmt.Sprintf(lineageKey, gen, productID), true
}

func (r *CatalogRepository) bumpGeneration(ctx context.Context) {
	if r.Cache == nil {
		return
	}
	if _, err := r.Cache.Incr(ctx, generationKey); err != nil {
		r.logger.Warn("Failed to bump catalog cache generation.", map[string]interface{}{"error": err.Error()})
	}
}

func requireRow(res sql.Result, level domain.Level, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.NewDBError("failed to read affected rows", err)
	}
	if n == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("%s %s", level, id))
	}
	return nil
}
