// Package refreshtokens declares the server-side repository contract for
// refresh token lineages in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/scsp-app/scsp-server/internal/server/models"
)

// Repository defines operations for issuing, retrieving, rotating and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token row.
	Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)

	// Find looks up a refresh token by its opaque token string.
	// Returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// MarkReplaced revokes token and links it to its successor, but only if it
	// is still unrevoked. It reports whether this call performed the transition.
	MarkReplaced(ctx context.Context, token, replacedBy string, at time.Time) (bool, error)

	// Revoke revokes token if it belongs to userID and is still active.
	// Revoking an unknown or foreign token is not an error.
	Revoke(ctx context.Context, token, userID string, at time.Time) error

	// RevokeAllForUser revokes every unrevoked token of userID and returns how many.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)
}
