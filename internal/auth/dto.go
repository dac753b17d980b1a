package auth

import (
	"github.com/google/uuid"

	"github.com/wattly/wattly-backend/internal/users"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RegisterRequest creates an API account. An organization binding scopes the
// account to that organization; without one the account is a platform
// operator.
type RegisterRequest struct {
	Email          string     `json:"email" validate:"required,email"`
	Password       string     `json:"password" validate:"required,min=12"`
	Name           string     `json:"name" validate:"required"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
}

// RegisterResponse returns the created account.
type RegisterResponse struct {
	User *users.UserDTO `json:"user"`
}
