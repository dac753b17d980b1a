package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wattly/wattly-backend/pkg/enums"
)

// User is an API account. Organization admins carry an organization binding;
// platform operators have none and may act on any organization.
type User struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string           `gorm:"column:email;not null;uniqueIndex:uniq_user_email"`
	PasswordHash   string           `gorm:"column:password_hash;not null"`
	Name           string           `gorm:"column:name;not null"`
	Role           enums.MemberRole `gorm:"column:role;type:member_role;not null;default:'admin'"`
	OrganizationID *uuid.UUID       `gorm:"column:organization_id;type:uuid;index"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	LastLoginAt    *time.Time       `gorm:"column:last_login_at"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
