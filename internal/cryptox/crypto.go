// Package cryptox produces one-time numeric codes, salts and opaque bearer
// tokens, and computes the one-way digests stored in place of the codes.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

const (
	// DefaultSaltSize is the number of random bytes behind a code salt.
	DefaultSaltSize = 16
	// DefaultTokenSize is the number of random bytes behind a refresh token.
	DefaultTokenSize = 32

	maxDigits = 18
)

// ErrInvalidDigits is returned when a code length is outside 1..18.
var ErrInvalidDigits = errors.New("digits must be between 1 and 18")

// GenerateNumericCode returns a string of exactly digits decimal characters,
// drawn uniformly from [0, 10^digits) using crypto/rand and zero-padded.
//
// Example:
//
//	code, err := GenerateNumericCode(6) // "049201"
func GenerateNumericCode(digits int) (string, error) {
	if digits < 1 || digits > maxDigits {
		return "", ErrInvalidDigits
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

// GenerateSalt returns size random bytes encoded with standard base64.
func GenerateSalt(size int) (string, error) {
	b, err := randomBytes(size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// GenerateOpaqueToken returns size random bytes encoded as unpadded base64url,
// suitable for use as a bearer secret in URLs and headers.
func GenerateOpaqueToken(size int) (string, error) {
	b, err := randomBytes(size)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Digest returns the hex-encoded SHA-256 of code + ":" + salt.
func Digest(code, salt string) string {
	sum := sha256.Sum256([]byte(code + ":" + salt))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEquals compares two digests without leaking the position of the
// first differing byte. Inputs of different length compare unequal right away;
// that is only acceptable because both sides are fixed-length digests.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func randomBytes(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid size %d", size)
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
