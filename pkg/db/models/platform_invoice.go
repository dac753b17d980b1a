package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wattly/wattly-backend/pkg/enums"
)

// PlatformInvoice bills the organization itself for platform usage, one per
// (organization, year, month). Numbering is global per year, not per org.
type PlatformInvoice struct {
	ID                  uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID      uuid.UUID           `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:uniq_platform_invoice_period,priority:1"`
	Year                int                 `gorm:"column:year;not null;uniqueIndex:uniq_platform_invoice_period,priority:2"`
	Month               int                 `gorm:"column:month;not null;uniqueIndex:uniq_platform_invoice_period,priority:3"`
	Number              string              `gorm:"column:number;not null;uniqueIndex:uniq_platform_invoice_number"`
	Sequence            int                 `gorm:"column:sequence;not null;index"`
	Status              enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null;default:'draft'"`
	Currency            enums.Currency      `gorm:"column:currency;not null;default:'CHF'"`
	TotalConsumptionKwh decimal.Decimal     `gorm:"column:total_consumption_kwh;type:numeric(16,6);not null"`
	RatePerKwh          decimal.Decimal     `gorm:"column:rate_per_kwh;type:numeric(10,4);not null"`
	MinimumApplied      bool                `gorm:"column:minimum_applied;not null;default:false"`
	Subtotal            decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	VATAmount           decimal.Decimal     `gorm:"column:vat_amount;type:numeric(12,2);not null"`
	Total               decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	IssuedAt            time.Time           `gorm:"column:issued_at;not null"`
	DueDate             time.Time           `gorm:"column:due_date;not null"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
