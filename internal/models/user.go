package models

// Role controls access to administrative operations.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a user in the system.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Not serialized
	Role         Role   `json:"role"`
	CreatedAt    string `json:"created_at"`
}
