package models

import (
	"fmt"
	"time"
)

// OtpPurpose scopes a one-time code to the flow it was issued for.
type OtpPurpose int

const (
	OtpPurposeEmailConfirmation OtpPurpose = 1
	OtpPurposePasswordReset     OtpPurpose = 2
)

// DefaultOtpMaxAttempts is the number of wrong guesses an entry tolerates.
const DefaultOtpMaxAttempts = 5

func (p OtpPurpose) String() string {
	switch p {
	case OtpPurposeEmailConfirmation:
		return "EmailConfirmation"
	case OtpPurposePasswordReset:
		return "PasswordReset"
	default:
		return fmt.Sprintf("OtpPurpose(%d)", int(p))
	}
}

func (p OtpPurpose) Valid() bool {
	return p == OtpPurposeEmailConfirmation || p == OtpPurposePasswordReset
}

// OtpEntry is one outstanding or historical one-time-code challenge.
// The plaintext code is never stored; CodeHash is Digest(code, Salt).
type OtpEntry struct {
	ID          int64
	UserID      string
	Purpose     OtpPurpose
	CodeHash    string
	Salt        string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ConsumedAt  *time.Time
	Attempts    int
	MaxAttempts int
}
