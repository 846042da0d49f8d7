// Package identity is the credential store: accounts, password hashes, email
// confirmation state and roles, backed by the users repository and bcrypt.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/dbx"
	"github.com/scsp-app/scsp-server/internal/server/models"
	"github.com/scsp-app/scsp-server/internal/server/repositories/repomanager"
	"github.com/scsp-app/scsp-server/internal/timex"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
	cost        int
}

func NewStore(db dbx.DBTX, m repomanager.RepositoryManager, clock timex.Clock) *Store {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &Store{db: db, repomanager: m, clock: clock, cost: bcrypt.DefaultCost}
}

// Create registers a new, unconfirmed account. The email doubles as the user name.
func (s *Store) Create(ctx context.Context, email, fullName, password string) (*models.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, &PolicyError{Problems: []string{"Full name is required."}}
	}
	if err := CheckPassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:            uuid.NewString(),
		Email:         email,
		UserName:      email,
		FullName:      fullName,
		PasswordHash:  hash,
		SecurityStamp: uuid.NewString(),
		CreatedAt:     s.clock.Now(),
	}

	created, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, fmt.Errorf("%w: email '%s' is already taken", common.ErrorConflict, email)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *Store) FindByID(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// VerifyPassword reports whether password matches the stored hash.
func (s *Store) VerifyPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *Store) GetRoles(ctx context.Context, userID string) ([]models.Role, error) {
	return s.repomanager.Users(s.db).GetRoles(ctx, userID)
}

func (s *Store) AddRole(ctx context.Context, userID string, role models.Role) error {
	return s.repomanager.Users(s.db).AddRole(ctx, userID, role)
}

func (s *Store) MarkEmailConfirmed(ctx context.Context, userID string) error {
	return s.repomanager.Users(s.db).SetEmailConfirmed(ctx, userID)
}

// UpdateTaxIDs stores the account's CPF and CNPJ as given, blanks included.
func (s *Store) UpdateTaxIDs(ctx context.Context, userID, cpf, cnpj string) error {
	return s.repomanager.Users(s.db).UpdateTaxIDs(ctx, userID, strings.TrimSpace(cpf), strings.TrimSpace(cnpj))
}

func (s *Store) TouchLastActivity(ctx context.Context, userID string) error {
	return s.repomanager.Users(s.db).TouchLastActivity(ctx, userID, s.clock.Now())
}

// ChangePassword replaces the password after checking the current one.
// A wrong current password yields common.ErrInvalidCredentials.
func (s *Store) ChangePassword(ctx context.Context, user *models.User, current, next string) error {
	if !s.VerifyPassword(user, current) {
		return common.ErrInvalidCredentials
	}
	return s.setPassword(ctx, user.ID, next)
}

// ResetPassword replaces the password without knowing the old one. Callers
// must have proven control of the account first.
func (s *Store) ResetPassword(ctx context.Context, userID, next string) error {
	return s.setPassword(ctx, userID, next)
}

func (s *Store) setPassword(ctx context.Context, userID, password string) error {
	if err := CheckPassword(password); err != nil {
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	// A new stamp invalidates outstanding link tokens.
	return s.repomanager.Users(s.db).UpdatePassword(ctx, userID, hash, uuid.NewString())
}

func (s *Store) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
