package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wattly/wattly-backend/pkg/enums"
)

// MeterPoint is one physical grid connection, identified by its POD code.
type MeterPoint struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID           `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:uniq_meter_point_pod,priority:1"`
	MemberID       uuid.UUID           `gorm:"column:member_id;type:uuid;not null;index"`
	PodCode        string              `gorm:"column:pod_code;not null;uniqueIndex:uniq_meter_point_pod,priority:2"`
	Category       enums.MeterCategory `gorm:"column:category;type:meter_category;not null;default:'consumer'"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
