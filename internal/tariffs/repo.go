package tariffs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/db/models"
)

// Repository exposes tariff plan persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, plan *models.TariffPlan) (*models.TariffPlan, error)
	Update(ctx context.Context, plan *models.TariffPlan) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TariffPlan, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.TariffPlan, error)
	EligibleForDate(ctx context.Context, orgID uuid.UUID, day time.Time) ([]models.TariffPlan, error)
	ClearDefault(ctx context.Context, orgID uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository constructs a tariff repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) Create(ctx context.Context, plan *models.TariffPlan) (*models.TariffPlan, error) {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *gormRepository) Update(ctx context.Context, plan *models.TariffPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TariffPlan, error) {
	var plan models.TariffPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.TariffPlan, error) {
	var plans []models.TariffPlan
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("valid_from DESC").Order("id DESC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// EligibleForDate returns plans whose validity window contains the given day.
func (r *gormRepository) EligibleForDate(ctx context.Context, orgID uuid.UUID, day time.Time) ([]models.TariffPlan, error) {
	var plans []models.TariffPlan
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("valid_from <= ?", day).
		Where("valid_to IS NULL OR valid_to > ?", day).
		Order("valid_from DESC").Order("id DESC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *gormRepository) ClearDefault(ctx context.Context, orgID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.TariffPlan{}).
		Where("organization_id = ? AND is_default", orgID).
		Update("is_default", false).Error
}
