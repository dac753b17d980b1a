package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoadCurveBatch is one persisted import of interval readings for a meter and
// calendar month. Batches are immutable; a re-import creates a superseding batch.
type LoadCurveBatch struct {
	ID                  uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID      uuid.UUID         `gorm:"column:organization_id;type:uuid;not null;index"`
	MemberID            uuid.UUID         `gorm:"column:member_id;type:uuid;not null;index"`
	MeterPointID        uuid.UUID         `gorm:"column:meter_point_id;type:uuid;not null;index"`
	Year                int               `gorm:"column:year;not null"`
	Month               int               `gorm:"column:month;not null"`
	PeriodStart         time.Time         `gorm:"column:period_start;not null"`
	PeriodEnd           time.Time         `gorm:"column:period_end;not null"`
	ReadingCount        int               `gorm:"column:reading_count;not null"`
	TotalConsumptionKwh decimal.Decimal   `gorm:"column:total_consumption_kwh;type:numeric(16,6);not null"`
	TotalProductionKwh  decimal.Decimal   `gorm:"column:total_production_kwh;type:numeric(16,6);not null"`
	Readings            []IntervalReading `gorm:"foreignKey:BatchID"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// IntervalReading is a fixed 15-minute meter slice. Immutable once ingested.
type IntervalReading struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BatchID     uuid.UUID       `gorm:"column:batch_id;type:uuid;not null;uniqueIndex:uniq_interval_reading_slot,priority:1"`
	Timestamp   time.Time       `gorm:"column:ts;not null;uniqueIndex:uniq_interval_reading_slot,priority:2"`
	ConsumedKwh decimal.Decimal `gorm:"column:consumed_kwh;type:numeric(16,6);not null"`
	ProducedKwh decimal.Decimal `gorm:"column:produced_kwh;type:numeric(16,6);not null"`
}
