// Package db wires repositories to their backing store. The server picks
// the Postgres manager when a DSN is configured and the in-memory one
// otherwise.
package db

import (
	"context"

	"github.com/dmitrijs2005/userdir/internal/server/refreshtokens"
	"github.com/dmitrijs2005/userdir/internal/server/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	// Seed inserts the bootstrap admin record unless a user with the same
	// login already exists.
	Seed(ctx context.Context, admin *users.User) error
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	Close() error
}
