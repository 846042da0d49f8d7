// Package services contains server-side business logic: the one-time-code and
// refresh-token lifecycles and the account flows composed from them.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/logging"
	"github.com/scsp-app/scsp-server/internal/server/auth"
	"github.com/scsp-app/scsp-server/internal/server/config"
	"github.com/scsp-app/scsp-server/internal/server/identity"
	"github.com/scsp-app/scsp-server/internal/server/models"
)

// IdentityStore is the credential store the account flows delegate to.
type IdentityStore interface {
	Create(ctx context.Context, email, fullName, password string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	GetRoles(ctx context.Context, userID string) ([]models.Role, error)
	AddRole(ctx context.Context, userID string, role models.Role) error
	MarkEmailConfirmed(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, user *models.User, current, next string) error
	ResetPassword(ctx context.Context, userID, next string) error
	UpdateTaxIDs(ctx context.Context, userID, cpf, cnpj string) error
	TouchLastActivity(ctx context.Context, userID string) error
}

type AccessTokenMinter interface {
	Mint(user *models.User, roles []models.Role) (string, time.Time, error)
}

type LinkTokens interface {
	Issue(userID string, purpose auth.UserTokenPurpose, stamp string) (string, error)
	Verify(token string, purpose auth.UserTokenPurpose) (userID, stamp string, err error)
}

type AppTokenValidator interface {
	Valid(token string) bool
}

const (
	msgRegistered          = "User registered successfully. Check your email to confirm the account."
	msgCodeRequested       = "If the email exists, you will receive a code."
	msgResetRequested      = "If the email exists, we will send a link and a code to reset the password."
	msgEmailConfirmed      = "Email confirmed successfully."
	msgEmailConfirmedLogin = "Email confirmed successfully. You can now log in."
	msgAlreadyConfirmed    = "Email already confirmed."
	msgSessionEnded        = "Session ended."
	msgPasswordChanged     = "Password changed successfully."
	msgPasswordReset       = "Password reset successfully."
	msgCpfUpdated          = "CPF updated."
	msgCnpjUpdated         = "CNPJ updated."

	confirmEmailPath  = "/account/confirm-email"
	resetPasswordPath = "/account/reset-password"
)

// Ack is the result of operations that only report success.
type Ack struct {
	Message string
}

type RegisterRequest struct {
	AppToken string
	Email    string
	FullName string
	Password string
}

type LoginRequest struct {
	Email    string
	Password string
	DeviceID string
	IP       string
}

type LoginResult struct {
	UserID         string
	FullName       string
	Email          string
	CreatedAt      time.Time
	Roles          []string
	Token          string
	TokenExpiresAt time.Time
	RefreshToken   string
}

type RefreshRequest struct {
	RefreshToken string
	DeviceID     string
	IP           string
}

type RefreshResult struct {
	Token          string
	TokenExpiresAt time.Time
	RefreshToken   string
}

type UserInfo struct {
	UserID         string
	FullName       string
	Email          string
	CreatedAt      time.Time
	EmailConfirmed bool
	Cpf            string
	Cnpj           string
	Roles          []string
}

// AccountService composes the identity store, one-time codes, refresh tokens
// and access tokens into the account flows exposed to clients. Every refusal
// is returned as a *Failure.
type AccountService struct {
	identity      IdentityStore
	otps          *OtpService
	refresh       *RefreshTokenService
	minter        AccessTokenMinter
	links         LinkTokens
	apps          AppTokenValidator
	log           logging.Logger
	otpTTL        time.Duration
	otpDigits     int
	publicBaseURL string
}

func NewAccountService(id IdentityStore, otps *OtpService, refresh *RefreshTokenService,
	minter AccessTokenMinter, links LinkTokens, apps AppTokenValidator,
	log logging.Logger, cfg *config.Config) *AccountService {
	return &AccountService{
		identity:      id,
		otps:          otps,
		refresh:       refresh,
		minter:        minter,
		links:         links,
		apps:          apps,
		log:           log.With("module", "account"),
		otpTTL:        cfg.OtpValidityDuration,
		otpDigits:     cfg.OtpDigits,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// Register creates an unconfirmed account and emails a confirmation link and code.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*Ack, error) {
	if !s.apps.Valid(req.AppToken) {
		return nil, fail(CodeAppTokenInvalid, "Invalid app token.")
	}
	if f := required(map[string]string{"Email": req.Email, "FullName": req.FullName, "Password": req.Password}); f != nil {
		return nil, f
	}

	user, err := s.identity.Create(ctx, req.Email, req.FullName, req.Password)
	if err != nil {
		var pe *identity.PolicyError
		switch {
		case errors.As(err, &pe):
			return nil, fail(CodeRegistrationFailed, "Registration failed.", pe.Problems...)
		case errors.Is(err, common.ErrorConflict):
			return nil, fail(CodeRegistrationFailed, "Registration failed.",
				fmt.Sprintf("Email '%s' is already taken.", strings.TrimSpace(req.Email)))
		default:
			return nil, s.internal(ctx, "register", err)
		}
	}

	if err := s.identity.AddRole(ctx, user.ID, models.RoleUser); err != nil {
		s.log.Error(ctx, "default role not assigned", "user_id", user.ID, "error", err)
	}

	link := s.linkFor(ctx, user, auth.PurposeConfirmEmail, confirmEmailPath)
	if _, err := s.otps.IssueAndNotifyWithLink(ctx, user, models.OtpPurposeEmailConfirmation, s.otpTTL, s.otpDigits, link); err != nil {
		s.log.Warn(ctx, "confirmation email not sent", "user_id", user.ID, "error", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return &Ack{Message: msgRegistered}, nil
}

// RequestEmailConfirmationCode answers identically whether or not the account
// exists or is already confirmed.
func (s *AccountService) RequestEmailConfirmationCode(ctx context.Context, email string) (*Ack, error) {
	if f := required(map[string]string{"Email": email}); f != nil {
		return nil, f
	}

	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &Ack{Message: msgCodeRequested}, nil
		}
		return nil, s.internal(ctx, "request confirmation code", err)
	}
	if user.EmailConfirmed {
		return &Ack{Message: msgCodeRequested}, nil
	}

	if _, err := s.otps.IssueAndNotify(ctx, user, models.OtpPurposeEmailConfirmation, s.otpTTL, s.otpDigits); err != nil {
		s.log.Warn(ctx, "confirmation code not sent", "user_id", user.ID, "error", err)
	}
	return &Ack{Message: msgCodeRequested}, nil
}

// ConfirmEmailWithCode confirms the email and only then burns the code, so a
// failed confirmation leaves the code usable.
func (s *AccountService) ConfirmEmailWithCode(ctx context.Context, email, code string) (*Ack, error) {
	if f := required(map[string]string{"Email": email, "Code": code}); f != nil {
		return nil, f
	}

	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Same answer as an account without a pending code.
			return nil, s.otpFailure(ctx, common.ErrOtpNoActiveCode)
		}
		return nil, s.internal(ctx, "confirm email", err)
	}
	// Unlike an unknown email, a confirmed account is reported as such.
	if user.EmailConfirmed {
		return &Ack{Message: msgAlreadyConfirmed}, nil
	}

	entry, err := s.otps.Validate(ctx, user.ID, models.OtpPurposeEmailConfirmation, code)
	if err != nil {
		return nil, s.otpFailure(ctx, err)
	}

	if err := s.identity.MarkEmailConfirmed(ctx, user.ID); err != nil {
		s.log.Error(ctx, "email confirmation failed", "user_id", user.ID, "error", err)
		return nil, fail(CodeEmailConfirmationFailed, "Could not confirm the email.")
	}

	if err := s.otps.Consume(ctx, entry); err != nil {
		s.log.Warn(ctx, "code not consumed", "user_id", user.ID, "error", err)
	}
	return &Ack{Message: msgEmailConfirmed}, nil
}

// ConfirmEmail confirms the email with the token from the emailed link.
func (s *AccountService) ConfirmEmail(ctx context.Context, email, token string) (*Ack, error) {
	if f := required(map[string]string{"Email": email, "Token": token}); f != nil {
		return nil, f
	}

	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fail(CodeUserNotFound, "User not found.")
		}
		return nil, s.internal(ctx, "confirm email link", err)
	}
	if user.EmailConfirmed {
		return &Ack{Message: msgAlreadyConfirmed}, nil
	}
	if !s.linkMatches(token, auth.PurposeConfirmEmail, user) {
		return nil, fail(CodeEmailConfirmationFailed, "Could not confirm the email.", "Invalid or expired token.")
	}

	if err := s.identity.MarkEmailConfirmed(ctx, user.ID); err != nil {
		s.log.Error(ctx, "email confirmation failed", "user_id", user.ID, "error", err)
		return nil, fail(CodeEmailConfirmationFailed, "Could not confirm the email.")
	}
	return &Ack{Message: msgEmailConfirmedLogin}, nil
}

// Login checks, in order, that the account exists, is confirmed, is not
// banned and that the password matches, then opens a session.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if f := required(map[string]string{"Email": req.Email, "Password": req.Password}); f != nil {
		return nil, f
	}

	user, err := s.identity.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fail(CodeUserNotFound, "User not found.")
		}
		return nil, s.internal(ctx, "login", err)
	}
	if !user.EmailConfirmed {
		return nil, fail(CodeEmailNotConfirmed, "Please confirm your email before logging in.")
	}
	if user.IsBanned {
		return nil, fail(CodeUserBanned, "User banned. Reason: "+user.BanReason)
	}
	if !s.identity.VerifyPassword(user, req.Password) {
		return nil, fail(CodeInvalidCredentials, "Invalid credentials.")
	}

	roles, err := s.identity.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, s.internal(ctx, "login roles", err)
	}
	token, expiresAt, err := s.minter.Mint(user, roles)
	if err != nil {
		return nil, s.internal(ctx, "login mint", err)
	}
	refresh, _, err := s.refresh.Issue(ctx, user.ID, req.DeviceID, req.IP)
	if err != nil {
		return nil, s.internal(ctx, "login refresh token", err)
	}

	s.touch(ctx, user.ID)
	s.log.Info(ctx, "user logged in", "user_id", user.ID, "device_id", req.DeviceID)

	return &LoginResult{
		UserID:         user.ID,
		FullName:       user.FullName,
		Email:          user.Email,
		CreatedAt:      user.CreatedAt,
		Roles:          roleNames(roles),
		Token:          token,
		TokenExpiresAt: expiresAt,
		RefreshToken:   refresh,
	}, nil
}

// Refresh rotates the presented refresh token and mints a new access token.
func (s *AccountService) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResult, error) {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, fail(CodeRefreshRequired, "Refresh token is required.")
	}

	successor, previous, err := s.refresh.Rotate(ctx, req.RefreshToken, req.DeviceID, req.IP)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrRefreshTokenNotFound):
		return nil, fail(CodeRefreshInvalid, "Invalid refresh token.")
	case errors.Is(err, common.ErrRefreshTokenRevoked):
		return nil, fail(CodeRefreshRevoked, "Refresh token revoked.")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return nil, fail(CodeRefreshExpired, "Refresh token expired.")
	case errors.Is(err, common.ErrDeviceMismatch):
		return nil, fail(CodeDeviceMismatch, "Invalid device.")
	default:
		return nil, s.internal(ctx, "refresh rotate", err)
	}

	user, err := s.identity.FindByID(ctx, previous.UserID)
	if err != nil {
		s.dropSuccessor(ctx, successor, previous.UserID)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fail(CodeUserNotFound, "User not found.")
		}
		return nil, s.internal(ctx, "refresh owner", err)
	}
	if user.IsBanned {
		s.dropSuccessor(ctx, successor, user.ID)
		return nil, fail(CodeUserBanned, "User banned. Reason: "+user.BanReason)
	}

	roles, err := s.identity.GetRoles(ctx, user.ID)
	if err != nil {
		s.dropSuccessor(ctx, successor, user.ID)
		return nil, s.internal(ctx, "refresh roles", err)
	}
	token, expiresAt, err := s.minter.Mint(user, roles)
	if err != nil {
		s.dropSuccessor(ctx, successor, user.ID)
		return nil, s.internal(ctx, "refresh mint", err)
	}

	s.touch(ctx, user.ID)
	return &RefreshResult{Token: token, TokenExpiresAt: expiresAt, RefreshToken: successor}, nil
}

// Logout revokes token if the caller owns it. The answer is the same either way.
func (s *AccountService) Logout(ctx context.Context, callerID, token string) (*Ack, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fail(CodeRefreshRequired, "Refresh token is required.")
	}
	if callerID == "" {
		return nil, fail(CodeUnauthenticated, "User is not authenticated.")
	}
	if err := s.refresh.Revoke(ctx, token, callerID); err != nil {
		return nil, s.internal(ctx, "logout", err)
	}
	return &Ack{Message: msgSessionEnded}, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, callerID, current, next string) (*Ack, error) {
	if callerID == "" {
		return nil, fail(CodeUnauthenticated, "User is not authenticated.")
	}
	if f := required(map[string]string{"CurrentPassword": current, "NewPassword": next}); f != nil {
		return nil, f
	}

	user, err := s.identity.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fail(CodeUserNotFound, "User not found.")
		}
		return nil, s.internal(ctx, "change password", err)
	}

	if err := s.identity.ChangePassword(ctx, user, current, next); err != nil {
		var pe *identity.PolicyError
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			return nil, fail(CodePasswordChangeFailed, "Could not change the password.", "Incorrect password.")
		case errors.As(err, &pe):
			return nil, fail(CodePasswordChangeFailed, "Could not change the password.", pe.Problems...)
		default:
			return nil, s.internal(ctx, "change password", err)
		}
	}

	s.log.Info(ctx, "password changed", "user_id", user.ID)
	return &Ack{Message: msgPasswordChanged}, nil
}

// ForgotPassword emails a reset link and code when the account exists. The
// answer does not reveal whether it does.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (*Ack, error) {
	if f := required(map[string]string{"Email": email}); f != nil {
		return nil, f
	}

	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &Ack{Message: msgResetRequested}, nil
		}
		return nil, s.internal(ctx, "forgot password", err)
	}

	link := s.linkFor(ctx, user, auth.PurposeResetPassword, resetPasswordPath)
	if _, err := s.otps.IssueAndNotifyWithLink(ctx, user, models.OtpPurposePasswordReset, s.otpTTL, s.otpDigits, link); err != nil {
		s.log.Warn(ctx, "reset email not sent", "user_id", user.ID, "error", err)
	}
	return &Ack{Message: msgResetRequested}, nil
}

// ResetPassword sets a new password using the token from the emailed link and
// ends every existing session.
func (s *AccountService) ResetPassword(ctx context.Context, email, token, next string) (*Ack, error) {
	if f := required(map[string]string{"Email": email, "Token": token, "NewPassword": next}); f != nil {
		return nil, f
	}

	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fail(CodePasswordResetFailed, "Could not reset the password.", "Invalid or expired token.")
		}
		return nil, s.internal(ctx, "reset password", err)
	}
	if !s.linkMatches(token, auth.PurposeResetPassword, user) {
		return nil, fail(CodePasswordResetFailed, "Could not reset the password.", "Invalid or expired token.")
	}

	if f := s.resetPassword(ctx, user, next); f != nil {
		return nil, f
	}
	return &Ack{Message: msgPasswordReset}, nil
}

// RequestPasswordResetCode answers identically whether or not the account exists.
func (s *AccountService) RequestPasswordResetCode(ctx context.Context, email string) (*Ack, error) {
	if f := required(map[string]string{"Email": email}); f != nil {
		return nil, f
	}

	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &Ack{Message: msgCodeRequested}, nil
		}
		return nil, s.internal(ctx, "request reset code", err)
	}

	if _, err := s.otps.IssueAndNotify(ctx, user, models.OtpPurposePasswordReset, s.otpTTL, s.otpDigits); err != nil {
		s.log.Warn(ctx, "reset code not sent", "user_id", user.ID, "error", err)
	}
	return &Ack{Message: msgCodeRequested}, nil
}

// ResetPasswordWithCode validates the code, resets the password, burns the
// code and ends every existing session.
func (s *AccountService) ResetPasswordWithCode(ctx context.Context, email, code, next string) (*Ack, error) {
	if f := required(map[string]string{"Email": email, "Code": code, "NewPassword": next}); f != nil {
		return nil, f
	}

	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.otpFailure(ctx, common.ErrOtpNoActiveCode)
		}
		return nil, s.internal(ctx, "reset password with code", err)
	}

	entry, err := s.otps.Validate(ctx, user.ID, models.OtpPurposePasswordReset, code)
	if err != nil {
		return nil, s.otpFailure(ctx, err)
	}

	if f := s.resetPassword(ctx, user, next); f != nil {
		return nil, f
	}

	if err := s.otps.Consume(ctx, entry); err != nil {
		s.log.Warn(ctx, "code not consumed", "user_id", user.ID, "error", err)
	}
	return &Ack{Message: msgPasswordReset}, nil
}

func (s *AccountService) resetPassword(ctx context.Context, user *models.User, next string) *Failure {
	if err := s.identity.ResetPassword(ctx, user.ID, next); err != nil {
		var pe *identity.PolicyError
		if errors.As(err, &pe) {
			return fail(CodePasswordResetFailed, "Could not reset the password.", pe.Problems...)
		}
		return s.internal(ctx, "reset password", err)
	}
	if err := s.refresh.RevokeAll(ctx, user.ID); err != nil {
		s.log.Error(ctx, "sessions not revoked after reset", "user_id", user.ID, "error", err)
	}
	s.log.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}

func (s *AccountService) GetUserInfo(ctx context.Context, callerID string) (*UserInfo, error) {
	if callerID == "" {
		return nil, fail(CodeUnauthenticated, "User is not authenticated.")
	}

	user, err := s.identity.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fail(CodeUserNotFound, "User not found.")
		}
		return nil, s.internal(ctx, "user info", err)
	}
	roles, err := s.identity.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, s.internal(ctx, "user info roles", err)
	}

	return &UserInfo{
		UserID:         user.ID,
		FullName:       user.FullName,
		Email:          user.Email,
		CreatedAt:      user.CreatedAt,
		EmailConfirmed: user.EmailConfirmed,
		Cpf:            user.Cpf,
		Cnpj:           user.Cnpj,
		Roles:          roleNames(roles),
	}, nil
}

// UpdateCpfCnpj stores the caller's tax ids and grants the Verified role.
// Both values are written, so an empty one clears what was stored.
func (s *AccountService) UpdateCpfCnpj(ctx context.Context, callerID, cpf, cnpj string) (*Ack, error) {
	if callerID == "" {
		return nil, fail(CodeUnauthenticated, "User is not authenticated.")
	}
	cpf, cnpj = strings.TrimSpace(cpf), strings.TrimSpace(cnpj)
	if cpf == "" && cnpj == "" {
		return nil, fail(CodeValidation, "Provide a CPF or CNPJ to update.")
	}

	if err := s.identity.UpdateTaxIDs(ctx, callerID, cpf, cnpj); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fail(CodeUserNotFound, "User not found.")
		}
		return nil, s.internal(ctx, "update tax ids", err)
	}

	roles, err := s.identity.GetRoles(ctx, callerID)
	if err != nil {
		return nil, s.internal(ctx, "update tax ids roles", err)
	}
	if !models.HasRole(roles, models.RoleVerified) {
		if err := s.identity.AddRole(ctx, callerID, models.RoleVerified); err != nil {
			s.log.Error(ctx, "role not assigned", "user_id", callerID, "role", string(models.RoleVerified), "error", err)
			return nil, fail(CodeRoleAssignmentFailed, "Could not add the role.")
		}
		s.log.Info(ctx, "role assigned", "user_id", callerID, "role", string(models.RoleVerified))
	}

	if cpf == "" {
		return &Ack{Message: msgCnpjUpdated}, nil
	}
	return &Ack{Message: msgCpfUpdated}, nil
}

// AddRole grants roleName to the account with the given email. Callers are
// expected to have checked the Admin role.
func (s *AccountService) AddRole(ctx context.Context, email, roleName string) (*Ack, error) {
	if f := required(map[string]string{"Email": email, "Role": roleName}); f != nil {
		return nil, f
	}
	role, err := models.ParseRole(roleName)
	if err != nil {
		return nil, fail(CodeValidation, "Invalid request.", fmt.Sprintf("Role '%s' does not exist.", roleName))
	}

	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fail(CodeUserNotFound, "User not found.")
		}
		return nil, s.internal(ctx, "add role", err)
	}

	roles, err := s.identity.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, s.internal(ctx, "add role", err)
	}
	if models.HasRole(roles, role) {
		return nil, fail(CodeRoleAssignmentFailed, "User already has this role.")
	}
	if err := s.identity.AddRole(ctx, user.ID, role); err != nil {
		s.log.Error(ctx, "role not assigned", "user_id", user.ID, "role", string(role), "error", err)
		return nil, fail(CodeRoleAssignmentFailed, "Could not add the role.")
	}

	s.log.Info(ctx, "role assigned", "user_id", user.ID, "role", string(role))
	return &Ack{Message: fmt.Sprintf("Role %s added successfully.", role)}, nil
}

func (s *AccountService) internal(ctx context.Context, op string, err error) *Failure {
	s.log.Error(ctx, "operation failed", "op", op, "error", err)
	return fail(CodeInternal, "An unexpected error occurred.")
}

func (s *AccountService) otpFailure(ctx context.Context, err error) *Failure {
	switch {
	case errors.Is(err, common.ErrOtpNoActiveCode):
		return fail(CodeOtpNoActiveCode, "No active code. Request a new one.")
	case errors.Is(err, common.ErrOtpExpired):
		return fail(CodeOtpExpired, "Code expired. Request a new one.")
	case errors.Is(err, common.ErrOtpAttemptsExhausted):
		return fail(CodeOtpAttemptsExhausted, "Too many invalid attempts. Request a new code.")
	case errors.Is(err, common.ErrOtpInvalidCode):
		return fail(CodeOtpInvalid, "Invalid code.")
	default:
		return s.internal(ctx, "validate code", err)
	}
}

// linkFor builds the emailed action link, or "" if no token could be issued.
func (s *AccountService) linkFor(ctx context.Context, user *models.User, purpose auth.UserTokenPurpose, path string) string {
	token, err := s.links.Issue(user.ID, purpose, user.SecurityStamp)
	if err != nil {
		s.log.Error(ctx, "link token not issued", "user_id", user.ID, "error", err)
		return ""
	}
	q := url.Values{"email": {user.Email}, "token": {token}}
	return s.publicBaseURL + path + "?" + q.Encode()
}

func (s *AccountService) linkMatches(token string, purpose auth.UserTokenPurpose, user *models.User) bool {
	userID, stamp, err := s.links.Verify(token, purpose)
	return err == nil && userID == user.ID && stamp == user.SecurityStamp
}

func (s *AccountService) dropSuccessor(ctx context.Context, token, userID string) {
	if err := s.refresh.Revoke(ctx, token, userID); err != nil {
		s.log.Error(ctx, "successor token not revoked", "user_id", userID, "error", err)
	}
}

func (s *AccountService) touch(ctx context.Context, userID string) {
	if err := s.identity.TouchLastActivity(ctx, userID); err != nil {
		s.log.Warn(ctx, "last activity not recorded", "user_id", userID, "error", err)
	}
}

// required returns a validation failure naming every blank field, in sorted order.
func required(fields map[string]string) *Failure {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, fmt.Sprintf("The %s field is required.", name))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fail(CodeValidation, "Invalid request.", missing...)
}

func roleNames(roles []models.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
