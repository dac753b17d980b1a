package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wattly/wattly-backend/pkg/enums"
)

// Organization is an energy community that bills its members.
// The payee fields form the creditor identity printed on payment slips.
type Organization struct {
	ID                 uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string                   `gorm:"column:name;not null"`
	DistributionPolicy enums.DistributionPolicy `gorm:"column:distribution_policy;type:distribution_policy;not null;default:'prorata'"`
	PayeeName          string                   `gorm:"column:payee_name"`
	PayeeStreet        string                   `gorm:"column:payee_street"`
	PayeePostalCode    int                      `gorm:"column:payee_postal_code"`
	PayeeCity          string                   `gorm:"column:payee_city"`
	IBAN               string                   `gorm:"column:iban"`
	Currency           enums.Currency           `gorm:"column:currency;not null;default:'CHF'"`
	PaymentTermDays    int                      `gorm:"column:payment_term_days;not null;default:30"`
	DefaultLocale      string                   `gorm:"column:default_locale;not null;default:'de-CH'"`
	AllowedLocales     pq.StringArray           `gorm:"column:allowed_locales;type:text[];default:ARRAY['de-CH']::text[]"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
