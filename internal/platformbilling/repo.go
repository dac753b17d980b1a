package platformbilling

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/db/models"
	"github.com/wattly/wattly-backend/pkg/pagination"
)

// Repository persists platform invoices and reads the aggregate totals they
// are derived from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SumConsumption(ctx context.Context, orgID uuid.UUID, year, month int) (decimal.Decimal, error)
	MaxYearSequence(ctx context.Context, year int) (int, error)
	ExistsForPeriod(ctx context.Context, orgID uuid.UUID, year, month int) (bool, error)
	Create(ctx context.Context, invoice *models.PlatformInvoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PlatformInvoice, error)
	List(ctx context.Context, cursor string, limit int) ([]models.PlatformInvoice, string, error)
	OrganizationsWithoutInvoice(ctx context.Context, year, month int) ([]uuid.UUID, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed platform invoice repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) SumConsumption(ctx context.Context, orgID uuid.UUID, year, month int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.MonthlyAggregate{}).
		Where("organization_id = ? AND year = ? AND month = ?", orgID, year, month).
		Select("COALESCE(SUM(total_consumption_kwh), 0)").
		Scan(&total).Error
	return total, err
}

func (r *gormRepository) MaxYearSequence(ctx context.Context, year int) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.PlatformInvoice{}).
		Where("year = ?", year).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&max).Error
	return max, err
}

func (r *gormRepository) ExistsForPeriod(ctx context.Context, orgID uuid.UUID, year, month int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PlatformInvoice{}).
		Where("organization_id = ? AND year = ? AND month = ?", orgID, year, month).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) Create(ctx context.Context, invoice *models.PlatformInvoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.PlatformInvoice, error) {
	var invoice models.PlatformInvoice
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *gormRepository) List(ctx context.Context, cursor string, limit int) ([]models.PlatformInvoice, string, error) {
	limit = pagination.NormalizeLimit(limit)

	query := r.db.WithContext(ctx).
		Model(&models.PlatformInvoice{}).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit))

	if cursor != "" {
		decoded, err := pagination.ParseCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		query = query.Where(
			"(created_at, id) < (?, ?)",
			decoded.CreatedAt, decoded.ID,
		)
	}

	var rows []models.PlatformInvoice
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return rows, next, nil
}

// OrganizationsWithoutInvoice lists organizations that have aggregates for the
// period but no platform invoice yet. The cron sweep uses it to backfill.
func (r *gormRepository) OrganizationsWithoutInvoice(ctx context.Context, year, month int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.MonthlyAggregate{}).
		Where("year = ? AND month = ?", year, month).
		Where("organization_id NOT IN (?)",
			r.db.Model(&models.PlatformInvoice{}).
				Select("organization_id").
				Where("year = ? AND month = ?", year, month),
		).
		Distinct().
		Pluck("organization_id", &ids).Error
	return ids, err
}
