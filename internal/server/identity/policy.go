package identity

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/scsp-app/scsp-server/internal/common"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes = 72
)

// PolicyError lists every rule an input broke. It matches common.ErrorValidation.
type PolicyError struct {
	Problems []string
}

func (e *PolicyError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *PolicyError) Is(target error) bool {
	return target == common.ErrorValidation
}

// CheckPassword applies the password policy and returns nil or a *PolicyError.
func CheckPassword(password string) error {
	var problems []string
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("Passwords must be at least %d characters.", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		problems = append(problems, fmt.Sprintf("Passwords must be at most %d bytes.", MaxPasswordBytes))
	}
	if !strings.ContainsFunc(password, isASCIIDigit) {
		problems = append(problems, "Passwords must have at least one digit ('0'-'9').")
	}
	if len(problems) > 0 {
		return &PolicyError{Problems: problems}
	}
	return nil
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// NormalizeEmail trims the address and checks it is a bare address without a display name.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &PolicyError{Problems: []string{fmt.Sprintf("Email '%s' is invalid.", email)}}
	}
	return email, nil
}
