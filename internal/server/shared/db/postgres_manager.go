package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/dbx"
	"github.com/dmitrijs2005/userdir/internal/server/migrations"
	"github.com/dmitrijs2005/userdir/internal/server/refreshtokens"
	"github.com/dmitrijs2005/userdir/internal/server/users"
)

type PostgresRepositoryManager struct {
	db            *sql.DB
	users         users.Repository
	refreshTokens refreshtokens.Repository
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	return &PostgresRepositoryManager{
		db:            db,
		users:         users.NewPostgresRepository(db),
		refreshTokens: refreshtokens.NewPostgresRepository(db),
	}, nil
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	return goose.UpContext(ctx, m.db, ".")
}

// Seed runs inside a transaction so a concurrent startup of two server
// instances cannot insert the admin record twice.
func (m *PostgresRepositoryManager) Seed(ctx context.Context, admin *users.User) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := users.NewPostgresRepository(tx)

		_, err := repo.GetByLogin(ctx, admin.Login)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return repo.Add(ctx, admin)
	})
}

func (m *PostgresRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *PostgresRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
