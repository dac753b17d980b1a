package invoices

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wattly/wattly-backend/pkg/db/models"
	"github.com/wattly/wattly-backend/pkg/enums"
	"github.com/wattly/wattly-backend/pkg/pagination"
)

// Repository exposes invoice persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockOrganization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)
	MaxSequence(ctx context.Context, orgID uuid.UUID) (int, error)
	BilledMemberIDs(ctx context.Context, orgID uuid.UUID, year, month int) (map[uuid.UUID]bool, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	Update(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, orgID uuid.UUID, cursor string, limit int) ([]models.Invoice, string, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository constructs an invoice repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

// LockOrganization takes a row lock on the organization so concurrent
// generation runs serialize their sequence reads.
func (r *gormRepository) LockOrganization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&org, "id = ?", orgID).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) MaxSequence(ctx context.Context, orgID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("organization_id = ?", orgID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&max).Error
	return max, err
}

func (r *gormRepository) BilledMemberIDs(ctx context.Context, orgID uuid.UUID, year, month int) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("organization_id = ? AND period_year = ? AND period_month = ?", orgID, year, month).
		Pluck("member_id", &ids).Error
	if err != nil {
		return nil, err
	}
	billed := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		billed[id] = true
	}
	return billed, nil
}

func (r *gormRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *gormRepository) Update(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

func (r *gormRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("organization_id = ?", orgID).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// List returns org-scoped invoices using cursor pagination, newest first.
func (r *gormRepository) List(ctx context.Context, orgID uuid.UUID, cursor string, limit int) ([]models.Invoice, string, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(cursor))
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("organization_id = ?", orgID)
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}
	query = query.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit))

	var rows []models.Invoice
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

// MarkOverdue flips sent invoices past their due date. Invoked by the cron
// sweep; monetary fields stay untouched.
func (r *gormRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", enums.InvoiceStatusSent, asOf).
		Update("status", enums.InvoiceStatusOverdue)
	return result.RowsAffected, result.Error
}
