package users

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/userdir/internal/common"
)

var userCols = []string{
	"id", "login", "password", "name", "gender", "birthday", "admin",
	"created_on", "created_by", "modified_on", "modified_by", "revoked_on", "revoked_by",
}

func newUserMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresRepository(db), mock
}

func TestPostgresRepository_GetByLogin(t *testing.T) {
	repo, mock := newUserMock(t)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	revoked := created.Add(time.Hour)

	rows := sqlmock.NewRows(userCols).AddRow(
		"1", "alice", "pass1", "Alice", 1, nil, false,
		created, "Admin", nil, nil, revoked, "Admin")
	mock.ExpectQuery(`SELECT .+ FROM users WHERE login = \$1`).
		WithArgs("alice").WillReturnRows(rows)

	u, err := repo.GetByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
	assert.Equal(t, GenderMale, u.Gender)
	assert.Nil(t, u.Birthday)
	assert.Nil(t, u.ModifiedOn)
	assert.Empty(t, u.ModifiedBy)
	require.NotNil(t, u.RevokedOn)
	assert.Equal(t, revoked, *u.RevokedOn)
	assert.Equal(t, "Admin", u.RevokedBy)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByLogin_NotFound(t *testing.T) {
	repo, mock := newUserMock(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE login = \$1`).
		WithArgs("ghost").WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByLogin(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByID(t *testing.T) {
	repo, mock := newUserMock(t)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(userCols).AddRow(
		"1", "alice", "pass1", "Alice", 0, nil, true,
		created, "Admin", nil, nil, nil, nil)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs("1").WillReturnRows(rows)

	u, err := repo.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Login)
	assert.True(t, u.Admin)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetAll(t *testing.T) {
	repo, mock := newUserMock(t)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(userCols).
		AddRow("1", "alice", "p", "Alice", 0, nil, false, created, "Admin", nil, nil, nil, nil).
		AddRow("2", "bob", "p", "Bob", 1, nil, false, created.Add(time.Hour), "Admin", nil, nil, nil, nil)
	mock.ExpectQuery(`SELECT .+ FROM users ORDER BY seq`).WillReturnRows(rows)

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Login)
	assert.Equal(t, "bob", all[1].Login)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Add(t *testing.T) {
	repo, mock := newUserMock(t)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	birthday := time.Date(1990, 5, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("1", "alice", "pass1", "Alice", 0, &birthday, false, created, "Admin").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Add(context.Background(), &User{
		ID: "1", Login: "alice", Password: "pass1", Name: "Alice",
		Gender: GenderFemale, Birthday: &birthday,
		CreatedOn: created, CreatedBy: "Admin",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Update(t *testing.T) {
	repo, mock := newUserMock(t)

	modified := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE users SET`).
		WithArgs("1", "alicia", "pass1", "Alice", 0, nil, false,
			&modified, "Admin", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &User{
		ID: "1", Login: "alicia", Password: "pass1", Name: "Alice",
		ModifiedOn: &modified, ModifiedBy: "Admin",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Update_NotFound(t *testing.T) {
	repo, mock := newUserMock(t)

	mock.ExpectExec(`UPDATE users SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &User{ID: "9", Login: "ghost"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Remove(t *testing.T) {
	repo, mock := newUserMock(t)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs("1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Remove(context.Background(), "1"))

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs("1").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Remove(context.Background(), "1"), common.ErrorNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
