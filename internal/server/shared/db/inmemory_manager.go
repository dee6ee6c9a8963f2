package db

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/server/refreshtokens"
	"github.com/dmitrijs2005/userdir/internal/server/users"
)

type InMemoryRepositoryManager struct {
	users         users.Repository
	refreshTokens refreshtokens.Repository
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Seed(ctx context.Context, admin *users.User) error {
	_, err := m.users.GetByLogin(ctx, admin.Login)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return m.users.Add(ctx, admin)
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
