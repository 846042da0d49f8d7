// Package users declares the storage contract for accounts and their roles.
package users

import (
	"context"
	"time"

	"github.com/scsp-app/scsp-server/internal/server/models"
)

type Repository interface {
	// Create inserts the user. A duplicate email or username yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	SetEmailConfirmed(ctx context.Context, userID string) error
	// UpdatePassword replaces the password hash and security stamp together.
	UpdatePassword(ctx context.Context, userID, passwordHash, securityStamp string) error
	// UpdateTaxIDs overwrites both tax ids; an empty string clears one.
	UpdateTaxIDs(ctx context.Context, userID, cpf, cnpj string) error
	TouchLastActivity(ctx context.Context, userID string, at time.Time) error
	GetRoles(ctx context.Context, userID string) ([]models.Role, error)
	// AddRole is idempotent.
	AddRole(ctx context.Context, userID string, role models.Role) error
}
