package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/cryptox"
	"github.com/scsp-app/scsp-server/internal/dbx"
	"github.com/scsp-app/scsp-server/internal/logging"
	"github.com/scsp-app/scsp-server/internal/server/config"
	"github.com/scsp-app/scsp-server/internal/server/models"
	"github.com/scsp-app/scsp-server/internal/server/repositories/refreshtokens"
	"github.com/scsp-app/scsp-server/internal/server/repositories/repomanager"
	"github.com/scsp-app/scsp-server/internal/timex"
)

// RefreshTokenService issues, rotates and revokes device-bound refresh tokens.
//
// Every rotation grants the successor a full lifetime, so a session that
// refreshes at least once per lifetime window never ends on its own.
type RefreshTokenService struct {
	db          dbx.DBTX
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
	log         logging.Logger
	lifetime    time.Duration
}

func NewRefreshTokenService(db dbx.DBTX, tx dbx.Transactor, m repomanager.RepositoryManager,
	clock timex.Clock, log logging.Logger, cfg *config.Config) *RefreshTokenService {
	return &RefreshTokenService{
		db:          db,
		tx:          tx,
		repomanager: m,
		clock:       clock,
		log:         log.With("module", "refresh_tokens"),
		lifetime:    cfg.RefreshTokenValidityDuration,
	}
}

// Issue starts a new session lineage for userID.
func (s *RefreshTokenService) Issue(ctx context.Context, userID, deviceID, ip string) (string, *models.RefreshToken, error) {
	var (
		token string
		row   *models.RefreshToken
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		token, row, err = s.create(ctx, s.repomanager.RefreshTokens(tx), userID, optional(deviceID), optional(ip))
		return err
	})
	if err != nil {
		return "", nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return token, row, nil
}

func (s *RefreshTokenService) create(ctx context.Context, repo refreshtokens.Repository, userID string, deviceID, ip *string) (string, *models.RefreshToken, error) {
	token, err := cryptox.GenerateOpaqueToken(cryptox.DefaultTokenSize)
	if err != nil {
		return "", nil, err
	}
	now := s.clock.Now()
	row, err := repo.Create(ctx, &models.RefreshToken{
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifetime),
		DeviceID:  deviceID,
		IP:        ip,
	})
	if err != nil {
		return "", nil, err
	}
	return token, row, nil
}

// Rotate exchanges presented for a successor token and returns the successor
// together with the predecessor row.
//
// Errors, checked in order: common.ErrRefreshTokenNotFound,
// common.ErrRefreshTokenRevoked, common.ErrRefreshTokenExpired and
// common.ErrDeviceMismatch. Of two concurrent rotations of the same token
// exactly one succeeds; the other gets common.ErrRefreshTokenRevoked.
func (s *RefreshTokenService) Rotate(ctx context.Context, presented, deviceHint, ip string) (string, *models.RefreshToken, error) {
	current, err := s.repomanager.RefreshTokens(s.db).Find(ctx, presented)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrRefreshTokenNotFound
		}
		return "", nil, fmt.Errorf("find refresh token: %w", err)
	}

	if current.RevokedAt != nil {
		return "", nil, common.ErrRefreshTokenRevoked
	}
	if !s.clock.Now().Before(current.ExpiresAt) {
		return "", nil, common.ErrRefreshTokenExpired
	}
	if deviceHint != "" && (current.DeviceID == nil || *current.DeviceID != deviceHint) {
		return "", nil, common.ErrDeviceMismatch
	}

	successorIP := current.IP
	if ip != "" {
		successorIP = &ip
	}

	var successor string
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)

		token, err := cryptox.GenerateOpaqueToken(cryptox.DefaultTokenSize)
		if err != nil {
			return err
		}

		won, err := repo.MarkReplaced(ctx, presented, token, s.clock.Now())
		if err != nil {
			return err
		}
		if !won {
			return common.ErrRefreshTokenRevoked
		}

		now := s.clock.Now()
		if _, err := repo.Create(ctx, &models.RefreshToken{
			UserID:    current.UserID,
			Token:     token,
			CreatedAt: now,
			ExpiresAt: now.Add(s.lifetime),
			DeviceID:  current.DeviceID,
			IP:        successorIP,
		}); err != nil {
			return err
		}

		successor = token
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrRefreshTokenRevoked) {
			s.log.Warn(ctx, "refresh token rotated concurrently", "user_id", current.UserID)
			return "", nil, common.ErrRefreshTokenRevoked
		}
		return "", nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return successor, current, nil
}

// Revoke ends the session of presented if it belongs to userID. Unknown or
// foreign tokens are ignored.
func (s *RefreshTokenService) Revoke(ctx context.Context, presented, userID string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.RefreshTokens(tx).Revoke(ctx, presented, userID, s.clock.Now())
	})
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAll ends every session of userID.
func (s *RefreshTokenService) RevokeAll(ctx context.Context, userID string) error {
	var n int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		n, err = s.repomanager.RefreshTokens(tx).RevokeAllForUser(ctx, userID, s.clock.Now())
		return err
	})
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	s.log.Info(ctx, "sessions revoked", "user_id", userID, "count", n)
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
