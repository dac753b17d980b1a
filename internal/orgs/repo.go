package orgs

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/db/models"
)

// Repository exposes organization, member and meter point persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org *models.Organization) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
	FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	CreateMember(ctx context.Context, member *models.Member) (*models.Member, error)
	FindMember(ctx context.Context, id uuid.UUID) (*models.Member, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.Member, error)

	CreateMeterPoint(ctx context.Context, point *models.MeterPoint) (*models.MeterPoint, error)
	ListMeterPoints(ctx context.Context, orgID uuid.UUID) ([]models.MeterPoint, error)
	FindMeterPointByPod(ctx context.Context, orgID uuid.UUID, podCode string) (*models.MeterPoint, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository constructs an orgs repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) CreateOrganization(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		return nil, err
	}
	return org, nil
}

func (r *gormRepository) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}

func (r *gormRepository) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) CreateMember(ctx context.Context, member *models.Member) (*models.Member, error) {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

func (r *gormRepository) FindMember(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *gormRepository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.Member, error) {
	var members []models.Member
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("name ASC").Order("id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *gormRepository) CreateMeterPoint(ctx context.Context, point *models.MeterPoint) (*models.MeterPoint, error) {
	if err := r.db.WithContext(ctx).Create(point).Error; err != nil {
		return nil, err
	}
	return point, nil
}

func (r *gormRepository) ListMeterPoints(ctx context.Context, orgID uuid.UUID) ([]models.MeterPoint, error) {
	var points []models.MeterPoint
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("pod_code ASC").
		Find(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

// FindMeterPointByPod matches the POD code case-insensitively within one
// organization.
func (r *gormRepository) FindMeterPointByPod(ctx context.Context, orgID uuid.UUID, podCode string) (*models.MeterPoint, error) {
	var point models.MeterPoint
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND UPPER(pod_code) = ?", orgID, strings.ToUpper(podCode)).
		First(&point).Error
	if err != nil {
		return nil, err
	}
	return &point, nil
}
