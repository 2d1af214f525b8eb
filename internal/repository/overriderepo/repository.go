package overriderepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/database"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
)

const overrideColumns = "service_id::text, product_id::text, price_override, time_override, is_disabled, updated_at"

// OverrideRepository stores per-(service, product) overrides.
// The (service_id, product_id) primary key makes concurrent upserts converge
// to last-writer-wins instead of duplicating rows.
type OverrideRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewOverrideRepository creates the repository.
func NewOverrideRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *OverrideRepository {
	return &OverrideRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

func scanOverride(row interface{ Scan(...interface{}) error }) (domain.OverrideRecord, error) {
	var (
		o     domain.OverrideRecord
		price decimal.NullDecimal
		mins  sql.NullInt64
	)
	if err := row.Scan(&o.ServiceID, &o.ProductID, &price, &mins, &o.IsDisabled, &o.UpdatedAt); err != nil {
		return domain.OverrideRecord{}, err
	}
	if price.Valid {
		p := price.Decimal
		o.PriceOverride = &p
	}
	if mins.Valid {
		m := int(mins.Int64)
		o.TimeOverride = &m
	}
	return o, nil
}

// GetOverride returns the stored override. When no row exists it returns the
// all-default record and found=false.
func (r *OverrideRepository) GetOverride(ctx context.Context, serviceID, productID string) (domain.OverrideRecord, bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := "SELECT " + overrideColumns + " FROM service_overrides WHERE service_id = $1 AND product_id = $2"
	o, err := scanOverride(r.DB.QueryRowContext(ctxTimeout, query, serviceID, productID))
	if errors.Is(err, sql.ErrNoRows) || database.PQCode(err) == database.CodeInvalidTextRepresentation {
		return domain.DefaultOverride(serviceID, productID), false, nil
	}
	if err != nil {
		r.logger.Error("Failed to load override.", err)
		return domain.OverrideRecord{}, false, apperror.NewDBError("failed to load override", err)
	}
	return o, true, nil
}

// UpsertOverride writes price and/or time for the pair. Nil fields keep the
// stored value; is_disabled is never changed here.
func (r *OverrideRepository) UpsertOverride(ctx context.Context, serviceID, productID string, fields domain.OverrideFields) (domain.OverrideRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		price decimal.NullDecimal
		mins  sql.NullInt64
	)
	if fields.Price != nil {
		price = decimal.NullDecimal{Decimal: *fields.Price, Valid: true}
	}
	if fields.Time != nil {
		mins = sql.NullInt64{Int64: int64(*fields.Time), Valid: true}
	}

	query := `
		INSERT INTO service_overrides (service_id, product_id, price_override, time_override, is_disabled, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
		ON CONFLICT (service_id, product_id) DO UPDATE SET
			price_override = COALESCE(EXCLUDED.price_override, service_overrides.price_override),
			time_override  = COALESCE(EXCLUDED.time_override, service_overrides.time_override),
			updated_at     = EXCLUDED.updated_at
		RETURNING ` + overrideColumns

	o, err := scanOverride(r.DB.QueryRowContext(ctxTimeout, query, serviceID, productID, price, mins))
	if err != nil {
		switch database.PQCode(err) {
		case database.CodeForeignKeyViolation:
			return domain.OverrideRecord{}, apperror.NewNotFoundError("service or product does not exist")
		case database.CodeNumericValueOutOfRange, database.CodeCheckViolation:
			return domain.OverrideRecord{}, apperror.NewValidationError("override price or time is out of range")
		}
		r.logger.Error("Failed to upsert override.", err)
		return domain.OverrideRecord{}, apperror.NewDBError("failed to upsert override", err)
	}
	return o, nil
}

// SetDisabled writes only is_disabled. Disabling upserts the row; enabling only
// updates an existing row and never creates one. changed is false when there was
// no row to re-enable.
func (r *OverrideRepository) SetDisabled(ctx context.Context, serviceID, productID string, disabled bool) (domain.OverrideRecord, bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var query string
	if disabled {
		query = `
			INSERT INTO service_overrides (service_id, product_id, is_disabled, updated_at)
			VALUES ($1, $2, TRUE, NOW())
			ON CONFLICT (service_id, product_id) DO UPDATE SET is_disabled = TRUE, updated_at = EXCLUDED.updated_at
			RETURNING ` + overrideColumns
	} else {
		query = `
			UPDATE service_overrides SET is_disabled = FALSE, updated_at = NOW()
			WHERE service_id = $1 AND product_id = $2
			RETURNING ` + overrideColumns
	}

	o, err := scanOverride(r.DB.QueryRowContext(ctxTimeout, query, serviceID, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultOverride(serviceID, productID), false, nil
	}
	if err != nil {
		if database.PQCode(err) == database.CodeForeignKeyViolation {
			return domain.OverrideRecord{}, false, apperror.NewNotFoundError("service or product does not exist")
		}
		r.logger.Error("Failed to toggle override.", err)
		return domain.OverrideRecord{}, false, apperror.NewDBError("failed to toggle override", err)
	}
	return o, true, nil
}

// DeleteOverride removes the row for the pair. removed is false if none existed.
func (r *OverrideRepository) DeleteOverride(ctx context.Context, serviceID, productID string) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctxTimeout,
		`DELETE FROM service_overrides WHERE service_id = $1 AND product_id = $2`, serviceID, productID)
	if err != nil {
		r.logger.Error("Failed to delete override.", err)
		return false, apperror.NewDBError("failed to delete override", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperror.NewDBError("failed to read affected rows", err)
	}
	return n > 0, nil
}
