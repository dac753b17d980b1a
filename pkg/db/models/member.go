package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wattly/wattly-backend/pkg/enums"
)

// Member is a billed participant of an organization. Administrative members
// manage the community and are excluded from member invoicing runs.
type Member struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID        `gorm:"column:organization_id;type:uuid;not null;index"`
	Name           string           `gorm:"column:name;not null"`
	Email          string           `gorm:"column:email;not null"`
	Locale         string           `gorm:"column:locale;not null;default:'de-CH'"`
	Role           enums.MemberRole `gorm:"column:role;type:member_role;not null;default:'member'"`
	PriorityLevel  int              `gorm:"column:priority_level;not null;default:0"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
