package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wattly/wattly-backend/pkg/enums"
)

// Invoice bills one member for one calendar month. Monetary fields are frozen
// at creation; the uniqueness of (organization, member, period) and of the
// number are enforced by the schema, not just application logic.
type Invoice struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID           `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:uniq_invoice_member_period,priority:1;uniqueIndex:uniq_invoice_number,priority:1"`
	MemberID       uuid.UUID           `gorm:"column:member_id;type:uuid;not null;uniqueIndex:uniq_invoice_member_period,priority:2"`
	TariffPlanID   uuid.UUID           `gorm:"column:tariff_plan_id;type:uuid;not null"`
	Number         string              `gorm:"column:number;not null;uniqueIndex:uniq_invoice_number,priority:2"`
	Sequence       int                 `gorm:"column:sequence;not null;index"`
	PeriodYear     int                 `gorm:"column:period_year;not null;uniqueIndex:uniq_invoice_member_period,priority:3"`
	PeriodMonth    int                 `gorm:"column:period_month;not null;uniqueIndex:uniq_invoice_member_period,priority:4"`
	Status         enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null;default:'draft'"`
	Currency       enums.Currency      `gorm:"column:currency;not null;default:'CHF'"`
	Subtotal       decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	VATAmount      decimal.Decimal     `gorm:"column:vat_amount;type:numeric(12,2);not null"`
	Total          decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	IssuedAt       time.Time           `gorm:"column:issued_at;not null"`
	DueDate        time.Time           `gorm:"column:due_date;not null"`
	SentAt         *time.Time          `gorm:"column:sent_at"`
	PaidAt         *time.Time          `gorm:"column:paid_at"`
	CancelledAt    *time.Time          `gorm:"column:cancelled_at"`
	Lines          []InvoiceLine       `gorm:"foreignKey:InvoiceID"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// InvoiceLine is an ordered quantity x unit-price row. Credit lines carry a
// negative total.
type InvoiceLine struct {
	ID          uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID   uuid.UUID             `gorm:"column:invoice_id;type:uuid;not null;index"`
	Position    int                   `gorm:"column:position;not null"`
	Kind        enums.InvoiceLineKind `gorm:"column:kind;type:invoice_line_kind;not null"`
	Description string                `gorm:"column:description;not null"`
	Quantity    decimal.Decimal       `gorm:"column:quantity;type:numeric(16,6);not null"`
	UnitPrice   decimal.Decimal       `gorm:"column:unit_price;type:numeric(10,4);not null"`
	Total       decimal.Decimal       `gorm:"column:total;type:numeric(12,4);not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
