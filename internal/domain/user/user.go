package user

import (
	"context"

	"github.com/google/uuid"
)

// Role values carried in auth claims.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the slice of the platform user this service needs.
type User struct {
	ID    uuid.UUID
	Email string
	Name  string
	Role  string
}

// Directory resolves platform users. The user store itself is owned by
// another service; this is a read-only collaborator.
type Directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
