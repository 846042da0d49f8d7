package services

import (
	"errors"
	"strings"
)

// Code is a machine-readable failure reason that clients branch on.
type Code string

const (
	CodeValidation              Code = "VALIDATION_ERROR"
	CodeAppTokenInvalid         Code = "APP_TOKEN_INVALID"
	CodeUnauthenticated         Code = "UNAUTHENTICATED"
	CodeUserNotFound            Code = "USER_NOT_FOUND"
	CodeEmailNotConfirmed       Code = "EMAIL_NOT_CONFIRMED"
	CodeUserBanned              Code = "USER_BANNED"
	CodeInvalidCredentials      Code = "INVALID_CREDENTIALS"
	CodeRegistrationFailed      Code = "REGISTRATION_FAILED"
	CodeEmailConfirmationFailed Code = "EMAIL_CONFIRMATION_FAILED"
	CodePasswordChangeFailed    Code = "PASSWORD_CHANGE_FAILED"
	CodePasswordResetFailed     Code = "PASSWORD_RESET_FAILED"
	CodeRoleAssignmentFailed    Code = "ROLE_ASSIGNMENT_FAILED"
	CodeRefreshRequired         Code = "REFRESH_REQUIRED"
	CodeRefreshInvalid          Code = "REFRESH_INVALID"
	CodeRefreshRevoked          Code = "REFRESH_REVOKED"
	CodeRefreshExpired          Code = "REFRESH_EXPIRED"
	CodeDeviceMismatch          Code = "DEVICE_MISMATCH"
	CodeOtpNoActiveCode         Code = "OTP_NO_ACTIVE_CODE"
	CodeOtpExpired              Code = "OTP_EXPIRED"
	CodeOtpAttemptsExhausted    Code = "OTP_ATTEMPTS_EXHAUSTED"
	CodeOtpInvalid              Code = "OTP_INVALID"
	CodeInternal                Code = "INTERNAL_ERROR"
)

// Failure is the error every AccountService operation returns when a request
// is refused. Message is human readable; Details lists individual problems.
type Failure struct {
	Code    Code
	Message string
	Details []string
}

func (f *Failure) Error() string {
	if len(f.Details) == 0 {
		return string(f.Code) + ": " + f.Message
	}
	return string(f.Code) + ": " + f.Message + " (" + strings.Join(f.Details, "; ") + ")"
}

func fail(code Code, message string, details ...string) *Failure {
	return &Failure{Code: code, Message: message, Details: details}
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
