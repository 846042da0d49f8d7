// Package refreshtokens provides a PostgreSQL-backed repository for managing
// refresh tokens used in the server's session flow.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/dbx"
	"github.com/scsp-app/scsp-server/internal/server/models"
)

// PostgresRepository implements refresh token storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new refresh token row and fills its ID.
func (r *PostgresRepository) Create(ctx context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, token, created_at, expires_at, device_id, ip)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		t.UserID, t.Token, t.CreatedAt, t.ExpiresAt, t.DeviceID, t.IP).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// Find returns the refresh token row for the given token string.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, created_at, expires_at, revoked_at, replaced_by_token, device_id, ip
		FROM refresh_tokens
		WHERE token = $1
	`
	t := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&t.ID, &t.UserID, &t.Token, &t.CreatedAt, &t.ExpiresAt,
		&t.RevokedAt, &t.ReplacedByToken, &t.DeviceID, &t.IP)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// MarkReplaced is the compare-and-set step of rotation.
func (r *PostgresRepository) MarkReplaced(ctx context.Context, token, replacedBy string, at time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2, replaced_by_token = $3
		WHERE token = $1 AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, token, at, replacedBy)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

// Revoke revokes a single token owned by userID.
func (r *PostgresRepository) Revoke(ctx context.Context, token, userID string, at time.Time) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $3
		WHERE token = $1 AND user_id = $2 AND revoked_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, token, userID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RevokeAllForUser ends every session of userID.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
