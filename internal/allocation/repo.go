package allocation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wattly/wattly-backend/pkg/db/models"
)

// Repository exposes the persistence operations the allocation service needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	MemberEnergies(ctx context.Context, orgID uuid.UUID, year, month int) ([]MemberEnergy, error)
	ReplaceAggregates(ctx context.Context, rows []models.MonthlyAggregate) error
	ListForPeriod(ctx context.Context, orgID uuid.UUID, year, month int) ([]models.MonthlyAggregate, error)
	FindForMember(ctx context.Context, orgID, memberID uuid.UUID, year, month int) (*models.MonthlyAggregate, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository constructs an allocation repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// MemberEnergies sums the latest batch per meter point into per-member monthly
// totals. Superseded batches for the same meter and period are ignored.
func (r *gormRepository) MemberEnergies(ctx context.Context, orgID uuid.UUID, year, month int) ([]MemberEnergy, error) {
	var batches []models.LoadCurveBatch
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND year = ? AND month = ?", orgID, year, month).
		Order("created_at ASC").Order("id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}

	latest := make(map[uuid.UUID]models.LoadCurveBatch, len(batches))
	for _, b := range batches {
		latest[b.MeterPointID] = b
	}

	var members []models.Member
	err = r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	priorities := make(map[uuid.UUID]int, len(members))
	for _, m := range members {
		priorities[m.ID] = m.PriorityLevel
	}

	byMember := make(map[uuid.UUID]*MemberEnergy)
	order := make([]uuid.UUID, 0, len(latest))
	for _, b := range batches {
		kept := latest[b.MeterPointID]
		if kept.ID != b.ID {
			continue
		}
		entry, ok := byMember[b.MemberID]
		if !ok {
			entry = &MemberEnergy{
				MemberID:      b.MemberID,
				PriorityLevel: priorities[b.MemberID],
			}
			byMember[b.MemberID] = entry
			order = append(order, b.MemberID)
		}
		entry.TotalConsumptionKwh = entry.TotalConsumptionKwh.Add(b.TotalConsumptionKwh)
		entry.TotalProductionKwh = entry.TotalProductionKwh.Add(b.TotalProductionKwh)
	}

	energies := make([]MemberEnergy, 0, len(order))
	for _, id := range order {
		energies = append(energies, *byMember[id])
	}
	return energies, nil
}

// ReplaceAggregates upserts one month of aggregates keyed on
// (organization, member, year, month), recomputing superseded rows in place.
func (r *gormRepository) ReplaceAggregates(ctx context.Context, rows []models.MonthlyAggregate) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "organization_id"},
				{Name: "member_id"},
				{Name: "year"},
				{Name: "month"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_consumption_kwh",
				"total_production_kwh",
				"self_consumption_kwh",
				"community_consumption_kwh",
				"grid_consumption_kwh",
				"exported_to_community_kwh",
				"exported_to_grid_kwh",
				"computed_at",
				"updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *gormRepository) ListForPeriod(ctx context.Context, orgID uuid.UUID, year, month int) ([]models.MonthlyAggregate, error) {
	var rows []models.MonthlyAggregate
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND year = ? AND month = ?", orgID, year, month).
		Order("member_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) FindForMember(ctx context.Context, orgID, memberID uuid.UUID, year, month int) (*models.MonthlyAggregate, error) {
	var row models.MonthlyAggregate
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND member_id = ? AND year = ? AND month = ?", orgID, memberID, year, month).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
