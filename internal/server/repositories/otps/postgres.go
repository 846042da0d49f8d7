// Package otps provides a PostgreSQL-backed repository for one-time codes.
package otps

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

// PostgresRepository implements Repository over dbx.DBTX. Lock and
// FindLatestUnconsumed only give their guarantees when db is a *sql.Tx.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LockKey is the advisory lock key for a (user, purpose) pair.
func LockKey(userID string, purpose models.OtpPurpose) string {
	return fmt.Sprintf("otp:%s:%d", userID, int(purpose))
}

func (r *PostgresRepository) Lock(ctx context.Context, userID string, purpose models.OtpPurpose) error {
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	if _, err := r.db.ExecContext(ctx, query, LockKey(userID, purpose)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteUnconsumed(ctx context.Context, userID string, purpose models.OtpPurpose) error {
	query := `
		DELETE FROM otp_codes
		WHERE user_id = $1 AND purpose = $2 AND consumed_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, userID, int(purpose)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, entry *models.OtpEntry) (*models.OtpEntry, error) {
	query := `
		INSERT INTO otp_codes (user_id, purpose, code_hash, salt, created_at, expires_at, attempts, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.UserID, int(entry.Purpose), entry.CodeHash, entry.Salt,
		entry.CreatedAt, entry.ExpiresAt, entry.Attempts, entry.MaxAttempts).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) FindLatestUnconsumed(ctx context.Context, userID string, purpose models.OtpPurpose) (*models.OtpEntry, error) {
	query := `
		SELECT id, user_id, purpose, code_hash, salt, created_at, expires_at, consumed_at, attempts, max_attempts
		FROM otp_codes
		WHERE user_id = $1 AND purpose = $2 AND consumed_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`
	e := &models.OtpEntry{}
	var p int
	err := r.db.QueryRowContext(ctx, query, userID, int(purpose)).Scan(
		&e.ID, &e.UserID, &p, &e.CodeHash, &e.Salt,
		&e.CreatedAt, &e.ExpiresAt, &e.ConsumedAt, &e.Attempts, &e.MaxAttempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	e.Purpose = models.OtpPurpose(p)
	return e, nil
}

func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE otp_codes SET attempts = attempts + 1
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkConsumed(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE otp_codes SET consumed_at = $2
		WHERE id = $1 AND consumed_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
