package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/dbx"
	"github.com/scsp-app/scsp-server/internal/server/models"
)

const pgUniqueViolation = "23505"

const userColumns = `id, email, username, full_name, password_hash, email_confirmed,
		        is_banned, ban_reason, cpf, cnpj, security_stamp, created_at, last_activity`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, email, username, full_name, password_hash, email_confirmed, security_stamp, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 `

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.UserName, user.FullName, user.PasswordHash,
		user.EmailConfirmed, user.SecurityStamp, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + `
		 FROM users
		 WHERE lower(email) = lower($1)
		 `
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + `
		 FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, userID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.UserName, &user.FullName, &user.PasswordHash, &user.EmailConfirmed,
		&user.IsBanned, &user.BanReason, &user.Cpf, &user.Cnpj, &user.SecurityStamp, &user.CreatedAt, &user.LastActivity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) SetEmailConfirmed(ctx context.Context, userID string) error {
	query :=
		`UPDATE users SET email_confirmed = TRUE
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, userID)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID, passwordHash, securityStamp string) error {
	query :=
		`UPDATE users SET password_hash = $2, security_stamp = $3
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, userID, passwordHash, securityStamp)
}

func (r *PostgresRepository) UpdateTaxIDs(ctx context.Context, userID, cpf, cnpj string) error {
	query :=
		`UPDATE users SET cpf = $2, cnpj = $3
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, userID, cpf, cnpj)
}

func (r *PostgresRepository) TouchLastActivity(ctx context.Context, userID string, at time.Time) error {
	query :=
		`UPDATE users SET last_activity = $2
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, userID, at)
}

// execOne runs an update expected to hit exactly one user row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetRoles(ctx context.Context, userID string) ([]models.Role, error) {
	query :=
		`SELECT role FROM user_roles
		 WHERE user_id = $1
		 ORDER BY role
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	roles := []models.Role{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		role, err := models.ParseRole(name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return roles, nil
}

func (r *PostgresRepository) AddRole(ctx context.Context, userID string, role models.Role) error {
	query :=
		`INSERT INTO user_roles (user_id, role)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		 `
	if _, err := r.db.ExecContext(ctx, query, userID, string(role)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
