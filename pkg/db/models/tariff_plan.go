package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TariffPlan carries the four-rate model and VAT for a validity window.
// At most one plan per organization is marked default at any time.
type TariffPlan struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID       `gorm:"column:organization_id;type:uuid;not null;index"`
	Name           string          `gorm:"column:name;not null"`
	CommunityRate  decimal.Decimal `gorm:"column:community_rate;type:numeric(10,4);not null"`
	GridRate       decimal.Decimal `gorm:"column:grid_rate;type:numeric(10,4);not null"`
	InjectionRate  decimal.Decimal `gorm:"column:injection_rate;type:numeric(10,4);not null"`
	MonthlyFee     decimal.Decimal `gorm:"column:monthly_fee;type:numeric(10,2);not null"`
	VATPercent     decimal.Decimal `gorm:"column:vat_percent;type:numeric(5,2);not null"`
	IsDefault      bool            `gorm:"column:is_default;not null;default:false"`
	ValidFrom      time.Time       `gorm:"column:valid_from;not null"`
	ValidTo        *time.Time      `gorm:"column:valid_to"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
