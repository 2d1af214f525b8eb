package domain

import "time"

// User is an account able to call the API.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRole doubles as the caller role for visibility decisions.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePublic UserRole = "public"
)

// UserRegistration is the register payload.
type UserRegistration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
