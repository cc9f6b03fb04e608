package domain

import (
	"time"

	"github.com/google/uuid"
)

// Admin represents a reviewer account. Only the password hash is ever stored;
// the hash never leaves the store/app layers.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SignupRequest is the DTO for admin account creation.
type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest is the DTO for admin login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
