package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/dbx"
)

// PostgresRepository stores records in the users table. It works over
// dbx.DBTX so the same code runs against a *sql.DB or inside a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, login, password, name, gender, birthday, admin,
		created_on, created_by, modified_on, modified_by, revoked_on, revoked_by`

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, login))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetAll(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Add(ctx context.Context, user *User) error {
	query := `INSERT INTO users
		(id, login, password, name, gender, birthday, admin, created_on, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Login, user.Password, user.Name, int(user.Gender),
		user.Birthday, user.Admin, user.CreatedOn, user.CreatedBy)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *User) error {
	query := `UPDATE users SET
		login = $2, password = $3, name = $4, gender = $5, birthday = $6,
		admin = $7, modified_on = $8, modified_by = $9,
		revoked_on = $10, revoked_by = $11
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Login, user.Password, user.Name, int(user.Gender),
		user.Birthday, user.Admin,
		user.ModifiedOn, nullString(user.ModifiedBy),
		user.RevokedOn, nullString(user.RevokedBy))
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return requireRowAffected(res)
}

func (r *PostgresRepository) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return requireRowAffected(res)
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*User, error) {
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return u, nil
}

func scanUser(scan func(dest ...any) error) (*User, error) {
	var (
		u          User
		gender     int
		birthday   sql.NullTime
		modifiedOn sql.NullTime
		modifiedBy sql.NullString
		revokedOn  sql.NullTime
		revokedBy  sql.NullString
	)

	err := scan(&u.ID, &u.Login, &u.Password, &u.Name, &gender, &birthday,
		&u.Admin, &u.CreatedOn, &u.CreatedBy,
		&modifiedOn, &modifiedBy, &revokedOn, &revokedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning row: %w", err)
	}

	u.Gender = Gender(gender)
	u.Birthday = timePtr(birthday)
	u.ModifiedOn = timePtr(modifiedOn)
	u.ModifiedBy = modifiedBy.String
	u.RevokedOn = timePtr(revokedOn)
	u.RevokedBy = revokedBy.String
	return &u, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
