package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/wattly/wattly-backend/pkg/db/models"
	"github.com/wattly/wattly-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID             uuid.UUID        `json:"id"`
	Email          string           `json:"email"`
	Name           string           `json:"name"`
	Role           enums.MemberRole `json:"role"`
	OrganizationID *uuid.UUID       `json:"organization_id,omitempty"`
	IsActive       bool             `json:"is_active"`
	LastLoginAt    *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email          string
	PasswordHash   string
	Name           string
	Role           enums.MemberRole
	OrganizationID *uuid.UUID
	IsActive       *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
		IsActive:       u.IsActive,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	role := c.Role
	if role == "" {
		role = enums.MemberRoleAdmin
	}

	return &models.User{
		Email:          c.Email,
		PasswordHash:   c.PasswordHash,
		Name:           c.Name,
		Role:           role,
		OrganizationID: c.OrganizationID,
		IsActive:       isActive,
	}
}
