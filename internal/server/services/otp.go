package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/cryptox"
	"github.com/scsp-app/scsp-server/internal/dbx"
	"github.com/scsp-app/scsp-server/internal/logging"
	"github.com/scsp-app/scsp-server/internal/server/config"
	"github.com/scsp-app/scsp-server/internal/server/models"
	"github.com/scsp-app/scsp-server/internal/server/notify"
	"github.com/scsp-app/scsp-server/internal/server/repositories/repomanager"
	"github.com/scsp-app/scsp-server/internal/timex"
)

// OtpService owns the one-time-code lifecycle for each (user, purpose) pair:
// at most one pending entry, validated without being burned, then consumed
// explicitly once the guarded action has succeeded.
type OtpService struct {
	tx                  dbx.Transactor
	repomanager         repomanager.RepositoryManager
	sender              notify.Sender
	clock               timex.Clock
	log                 logging.Logger
	maxAttempts         int
	notificationTimeout time.Duration
}

func NewOtpService(tx dbx.Transactor, m repomanager.RepositoryManager, sender notify.Sender,
	clock timex.Clock, log logging.Logger, cfg *config.Config) *OtpService {
	maxAttempts := cfg.OtpMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = models.DefaultOtpMaxAttempts
	}
	return &OtpService{
		tx:                  tx,
		repomanager:         m,
		sender:              sender,
		clock:               clock,
		log:                 log.With("module", "otp"),
		maxAttempts:         maxAttempts,
		notificationTimeout: cfg.NotificationTimeout,
	}
}

// Issue replaces any pending entry for (userID, purpose) with a fresh one and
// returns the plaintext code. The code is not persisted.
func (s *OtpService) Issue(ctx context.Context, userID string, purpose models.OtpPurpose, ttl time.Duration, digits int) (string, *models.OtpEntry, error) {
	if !purpose.Valid() {
		return "", nil, fmt.Errorf("%w: unknown purpose %d", common.ErrorValidation, int(purpose))
	}

	code, err := cryptox.GenerateNumericCode(digits)
	if err != nil {
		return "", nil, err
	}
	salt, err := cryptox.GenerateSalt(cryptox.DefaultSaltSize)
	if err != nil {
		return "", nil, err
	}

	now := s.clock.Now()
	entry := &models.OtpEntry{
		UserID:      userID,
		Purpose:     purpose,
		CodeHash:    cryptox.Digest(code, salt),
		Salt:        salt,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		MaxAttempts: s.maxAttempts,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Otps(tx)
		if err := repo.Lock(ctx, userID, purpose); err != nil {
			return err
		}
		if err := repo.DeleteUnconsumed(ctx, userID, purpose); err != nil {
			return err
		}
		var err error
		entry, err = repo.Create(ctx, entry)
		return err
	})
	if err != nil {
		return "", nil, fmt.Errorf("issue code: %w", err)
	}

	s.log.Info(ctx, "code issued", "user_id", userID, "purpose", purpose.String(), "expires_at", entry.ExpiresAt)
	return code, entry, nil
}

// IssueAndNotify issues a code and emails it to the user.
func (s *OtpService) IssueAndNotify(ctx context.Context, user *models.User, purpose models.OtpPurpose, ttl time.Duration, digits int) (*models.OtpEntry, error) {
	return s.IssueAndNotifyWithLink(ctx, user, purpose, ttl, digits, "")
}

// IssueAndNotifyWithLink is IssueAndNotify with an action link placed next to
// the code. A failed delivery returns common.ErrNotificationFailed together
// with the entry, which stays persisted and usable.
func (s *OtpService) IssueAndNotifyWithLink(ctx context.Context, user *models.User, purpose models.OtpPurpose, ttl time.Duration, digits int, link string) (*models.OtpEntry, error) {
	code, entry, err := s.Issue(ctx, user.ID, purpose, ttl, digits)
	if err != nil {
		return nil, err
	}

	email, err := renderCodeEmail(user.FirstName(), purpose, code, link, entry.ExpiresAt.Sub(entry.CreatedAt))
	if err != nil {
		return entry, fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}

	sendCtx := ctx
	if s.notificationTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.notificationTimeout)
		defer cancel()
	}
	if err := s.sender.Send(sendCtx, user.Email, email.Subject, email.HTML); err != nil {
		s.log.Warn(ctx, "code delivery failed", "user_id", user.ID, "purpose", purpose.String(), "error", err)
		return entry, fmt.Errorf("%w: %v", common.ErrNotificationFailed, err)
	}
	return entry, nil
}

func renderCodeEmail(firstName string, purpose models.OtpPurpose, code, link string, ttl time.Duration) (notify.Email, error) {
	minutes := int(math.Round(ttl.Minutes()))
	switch {
	case purpose == models.OtpPurposePasswordReset && link != "":
		return notify.PasswordResetLinkAndCode(firstName, link, code, minutes)
	case purpose == models.OtpPurposePasswordReset:
		return notify.PasswordResetCode(firstName, code, minutes)
	case link != "":
		return notify.EmailConfirmationLinkAndCode(firstName, link, code, minutes)
	default:
		return notify.EmailConfirmationCode(firstName, code, minutes)
	}
}

// Validate checks code against the newest pending entry without consuming it.
//
// Errors: common.ErrOtpNoActiveCode, common.ErrOtpExpired,
// common.ErrOtpAttemptsExhausted and common.ErrOtpInvalidCode. A mismatch
// increments the attempt counter and that increment is committed.
func (s *OtpService) Validate(ctx context.Context, userID string, purpose models.OtpPurpose, code string) (*models.OtpEntry, error) {
	var (
		matched *models.OtpEntry
		verdict error
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Otps(tx)

		entry, err := repo.FindLatestUnconsumed(ctx, userID, purpose)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				verdict = common.ErrOtpNoActiveCode
				return nil
			}
			return err
		}

		if s.clock.Now().After(entry.ExpiresAt) {
			verdict = common.ErrOtpExpired
			return nil
		}
		if entry.Attempts >= entry.MaxAttempts {
			verdict = common.ErrOtpAttemptsExhausted
			return nil
		}

		if !cryptox.ConstantTimeEquals(cryptox.Digest(code, entry.Salt), entry.CodeHash) {
			if err := repo.IncrementAttempts(ctx, entry.ID); err != nil {
				return err
			}
			entry.Attempts++
			verdict = common.ErrOtpInvalidCode
			return nil
		}

		matched = entry
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("validate code: %w", err)
	}
	if verdict != nil {
		return nil, verdict
	}
	return matched, nil
}

// Consume burns a validated entry. A second call, or a call for an entry that
// has since been superseded, returns common.ErrOtpNoActiveCode.
func (s *OtpService) Consume(ctx context.Context, entry *models.OtpEntry) error {
	var ok bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		ok, err = s.repomanager.Otps(tx).MarkConsumed(ctx, entry.ID, s.clock.Now())
		return err
	})
	if err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	if !ok {
		return common.ErrOtpNoActiveCode
	}
	return nil
}
