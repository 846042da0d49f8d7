// Package common defines shared constants and sentinel errors used across
// the account server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrSigningKeyMissing  = errors.New("signing key is not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// One-time code lifecycle errors.
	ErrOtpNoActiveCode      = errors.New("no active code")
	ErrOtpExpired           = errors.New("code expired")
	ErrOtpAttemptsExhausted = errors.New("too many invalid attempts")
	ErrOtpInvalidCode       = errors.New("invalid code")

	// Refresh token lifecycle errors.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrDeviceMismatch       = errors.New("device mismatch")

	// Outbound notification errors.
	ErrNotificationFailed = errors.New("notification failed")
)
