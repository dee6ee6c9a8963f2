package users

import (
	"context"
)

// Repository is the record store contract. Lookup is by exact, case-sensitive
// login; GetAll preserves insertion order. Missing records are reported as
// common.ErrorNotFound.
//
// Add does not re-check login uniqueness; the service verifies it first.
// Update and Remove address records by ID, so a login change persists
// correctly.
type Repository interface {
	GetByLogin(ctx context.Context, login string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetAll(ctx context.Context) ([]*User, error)
	Add(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Remove(ctx context.Context, id string) error
}
