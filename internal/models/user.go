package models

import "time"

// User is an account record. The session pointer fields mirror the in-memory
// session store so a restart can still tell "never logged in" from "had an
// active session".
type User struct {
	ID               string     `db:"id" json:"id"`
	Username         string     `db:"username" json:"username"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	CurrentSessionID *string    `db:"current_session_id" json:"-"`
	SessionExpiresAt *time.Time `db:"session_expires_at" json:"-"`
	LastLoginAt      *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// UserInfo is the public projection returned by auth endpoints.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// SignUpRequest is the registration payload.
type SignUpRequest struct {
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// SignInRequest is the login payload.
type SignInRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}
