package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthlyAggregate is the five-way energy split for one member and month.
// Invariant: total consumption == self + community + grid consumption, and
// total production >= self + exported-to-community + exported-to-grid.
// Recomputed in place on re-import, keyed on (organization, member, year, month).
type MonthlyAggregate struct {
	ID                      uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID          uuid.UUID       `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:uniq_monthly_aggregate_period,priority:1"`
	MemberID                uuid.UUID       `gorm:"column:member_id;type:uuid;not null;uniqueIndex:uniq_monthly_aggregate_period,priority:2"`
	Year                    int             `gorm:"column:year;not null;uniqueIndex:uniq_monthly_aggregate_period,priority:3"`
	Month                   int             `gorm:"column:month;not null;uniqueIndex:uniq_monthly_aggregate_period,priority:4"`
	TotalConsumptionKwh     decimal.Decimal `gorm:"column:total_consumption_kwh;type:numeric(16,6);not null"`
	TotalProductionKwh      decimal.Decimal `gorm:"column:total_production_kwh;type:numeric(16,6);not null"`
	SelfConsumptionKwh      decimal.Decimal `gorm:"column:self_consumption_kwh;type:numeric(16,6);not null"`
	CommunityConsumptionKwh decimal.Decimal `gorm:"column:community_consumption_kwh;type:numeric(16,6);not null"`
	GridConsumptionKwh      decimal.Decimal `gorm:"column:grid_consumption_kwh;type:numeric(16,6);not null"`
	ExportedToCommunityKwh  decimal.Decimal `gorm:"column:exported_to_community_kwh;type:numeric(16,6);not null"`
	ExportedToGridKwh       decimal.Decimal `gorm:"column:exported_to_grid_kwh;type:numeric(16,6);not null"`
	ComputedAt              time.Time       `gorm:"column:computed_at;not null"`
	CreatedAt               time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
