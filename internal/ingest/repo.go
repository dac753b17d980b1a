package ingest

import (
	"context"

	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/db/models"
)

// Repository persists load curve batches with their readings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, batch *models.LoadCurveBatch) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository constructs an ingest repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) CreateBatch(ctx context.Context, batch *models.LoadCurveBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}
