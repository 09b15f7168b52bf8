package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleOfficer UserRole = "OFFICER"
	RoleStudent UserRole = "STUDENT"
)

// User is an account that can sign in and act on enrollments.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	StudentID    string     `json:"student_id,omitempty"`
	Active       bool       `json:"active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateUserRequest is the payload for creating an account.
type CreateUserRequest struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=6"`
	Role      UserRole `json:"role" validate:"required,oneof=ADMIN OFFICER STUDENT"`
	StudentID string   `json:"student_id" validate:"required_if=Role STUDENT"`
}

// UpdateUserRequest is the payload for updating an account. Empty fields are left unchanged.
type UpdateUserRequest struct {
	Name     string   `json:"name" validate:"omitempty,max=100"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Password string   `json:"password" validate:"omitempty,min=6"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=ADMIN OFFICER STUDENT"`
}
