package repairrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/database"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
)

const serviceColumns = `id::text, name, description, level, assigned_node_id::text, base_price,
	base_time_minutes, is_active, is_variant, parent_service_id::text, sort_order, created_at, updated_at`

// storedOrder is the catalog's own ordering, relied on by resolution.
const storedOrder = "ORDER BY sort_order, created_at, id"

// ServiceRepository stores repair services and their variants.
type ServiceRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewServiceRepository creates the repository.
func NewServiceRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *ServiceRepository {
	return &ServiceRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

func scanService(row interface{ Scan(...interface{}) error }) (domain.ServiceRecord, error) {
	var (
		s      domain.ServiceRecord
		level  string
		parent sql.NullString
	)
	err := row.Scan(&s.ID, &s.Name, &s.Description, &level, &s.AssignedNodeID, &s.BasePrice,
		&s.BaseTimeMinutes, &s.IsActive, &s.IsVariant, &parent, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.ServiceRecord{}, err
	}
	s.Level = domain.Level(level)
	if parent.Valid {
		p := parent.String
		s.ParentServiceID = &p
	}
	return s, nil
}

// Create inserts a service or variant.
func (r *ServiceRepository) Create(ctx context.Context, s domain.ServiceRecord) (domain.ServiceRecord, error) {
	r.logger.Debug("Inserting service.", map[string]interface{}{"id": s.ID, "level": s.Level, "node": s.AssignedNodeID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var parent sql.NullString
	if s.ParentServiceID != nil {
		parent = sql.NullString{String: *s.ParentServiceID, Valid: true}
	}

	const query = `
		INSERT INTO services (id, name, description, level, assigned_node_id, base_price, base_time_minutes,
			is_active, is_variant, parent_service_id, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.DB.ExecContext(ctxTimeout, query, s.ID, s.Name, s.Description, string(s.Level), s.AssignedNodeID,
		s.BasePrice, s.BaseTimeMinutes, s.IsActive, s.IsVariant, parent, s.SortOrder, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		switch database.PQCode(err) {
		case database.CodeForeignKeyViolation:
			return domain.ServiceRecord{}, apperror.NewValidationError("parent service does not exist")
		case database.CodeCheckViolation:
			return domain.ServiceRecord{}, apperror.NewValidationError("service violates a catalog constraint")
		case database.CodeNumericValueOutOfRange:
			return domain.ServiceRecord{}, apperror.NewValidationError("price or time is out of range")
		case database.CodeUniqueViolation:
			return domain.ServiceRecord{}, apperror.NewConflictError(fmt.Sprintf("service %s already exists", s.ID))
		}
		r.logger.Error("Failed to insert service.", err)
		return domain.ServiceRecord{}, apperror.NewDBError("failed to insert service", err)
	}
	return s, nil
}

// GetServiceByID loads one service.
func (r *ServiceRepository) GetServiceByID(ctx context.Context, id string) (domain.ServiceRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := "SELECT " + serviceColumns + " FROM services WHERE id = $1"
	s, err := scanService(r.DB.QueryRowContext(ctxTimeout, query, id))
	if errors.Is(err, sql.ErrNoRows) || database.PQCode(err) == database.CodeInvalidTextRepresentation {
		return domain.ServiceRecord{}, apperror.NewNotFoundError(fmt.Sprintf("service %s", id))
	}
	if err != nil {
		r.logger.Error("Failed to load service.", err)
		return domain.ServiceRecord{}, apperror.NewDBError("failed to load service", err)
	}
	return s, nil
}

// GetServicesByLevelAndNode returns every service and variant assigned to one node, in stored order.
func (r *ServiceRepository) GetServicesByLevelAndNode(ctx context.Context, level domain.Level, nodeID string) ([]domain.ServiceRecord, error) {
	query := "SELECT " + serviceColumns + " FROM services WHERE level = $1 AND assigned_node_id = $2 " + storedOrder
	return r.list(ctx, query, string(level), nodeID)
}

// GetVariants returns the variants of a parent service, in stored order.
func (r *ServiceRepository) GetVariants(ctx context.Context, parentServiceID string) ([]domain.ServiceRecord, error) {
	query := "SELECT " + serviceColumns + " FROM services WHERE parent_service_id = $1 " + storedOrder
	return r.list(ctx, query, parentServiceID)
}

func (r *ServiceRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.ServiceRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if database.PQCode(err) == database.CodeInvalidTextRepresentation {
		return []domain.ServiceRecord{}, nil
	}
	if err != nil {
		r.logger.Error("Failed to list services.", err)
		return nil, apperror.NewDBError("failed to list services", err)
	}
	defer rows.Close()

	out := make([]domain.ServiceRecord, 0)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, apperror.NewDBError("failed to scan service", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("failed to iterate services", err)
	}
	return out, nil
}

// Update writes the mutable fields of a service. Assignment columns are never touched.
func (r *ServiceRepository) Update(ctx context.Context, s domain.ServiceRecord) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
		UPDATE services
		SET name = $2, description = $3, base_price = $4, base_time_minutes = $5, sort_order = $6, updated_at = $7
		WHERE id = $1`

	res, err := r.DB.ExecContext(ctxTimeout, query, s.ID, s.Name, s.Description, s.BasePrice, s.BaseTimeMinutes, s.SortOrder, s.UpdatedAt)
	if err != nil {
		switch database.PQCode(err) {
		case database.CodeNumericValueOutOfRange:
			return apperror.NewValidationError("price or time is out of range")
		case database.CodeCheckViolation:
			return apperror.NewValidationError("service violates a catalog constraint")
		}
		r.logger.Error("Failed to update service.", err)
		return apperror.NewDBError("failed to update service", err)
	}
	return requireRow(res, s.ID)
}

// SetActive changes a service's is_active flag. Deactivating also deactivates
// every variant of the service in the same transaction. It returns the number
// of variants that were cascaded.
func (r *ServiceRepository) SetActive(ctx context.Context, id string, active bool) (int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Failed to start transaction.", err)
		return 0, apperror.NewDBError("failed to start transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctxTimeout, `UPDATE services SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		r.logger.Error("Failed to toggle service.", err)
		return 0, apperror.NewDBError("failed to toggle service", err)
	}
	if err := requireRow(res, id); err != nil {
		return 0, err
	}

	var cascaded int64
	if !active {
		res, err := tx.ExecContext(ctxTimeout,
			`UPDATE services SET is_active = FALSE, updated_at = NOW() WHERE parent_service_id = $1 AND is_active`, id)
		if err != nil {
			r.logger.Error("Failed to cascade deactivation to variants.", err)
			return 0, apperror.NewDBError("failed to deactivate variants", err)
		}
		if cascaded, err = res.RowsAffected(); err != nil {
			return 0, apperror.NewDBError("failed to read affected rows", err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit service activation.", err)
		return 0, apperror.NewDBError("failed to commit transaction", err)
	}
	return cascaded, nil
}

// Delete removes a service. Variants and overrides are removed by ON DELETE CASCADE.
func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete service.", err)
		return apperror.NewDBError("failed to delete service", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.NewDBError("failed to read affected rows", err)
	}
	if n == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("service %s", id))
	}
	return nil
}
