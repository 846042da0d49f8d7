// Package otps declares the storage contract for one-time-code entries.
package otps

import (
	"context"
	"time"

	"github.com/scsp-app/scsp-server/internal/server/models"
)

// Repository is used inside a transaction by the one-time-code service.
type Repository interface {
	// Lock serialises issuance for one (user, purpose) pair until the
	// surrounding transaction ends.
	Lock(ctx context.Context, userID string, purpose models.OtpPurpose) error
	// DeleteUnconsumed removes every outstanding entry for the pair.
	DeleteUnconsumed(ctx context.Context, userID string, purpose models.OtpPurpose) error
	Create(ctx context.Context, entry *models.OtpEntry) (*models.OtpEntry, error)
	// FindLatestUnconsumed returns the newest unconsumed entry and locks its row.
	// Returns common.ErrorNotFound when there is none.
	FindLatestUnconsumed(ctx context.Context, userID string, purpose models.OtpPurpose) (*models.OtpEntry, error)
	IncrementAttempts(ctx context.Context, id int64) error
	// MarkConsumed stamps consumed_at on entry id unless it is already set, and
	// reports whether a row was updated. A superseded (deleted) entry reports false.
	MarkConsumed(ctx context.Context, id int64, at time.Time) (bool, error)
}
