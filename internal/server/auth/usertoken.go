package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/timex"
)

// UserTokenPurpose scopes a link token to a single flow.
type UserTokenPurpose string

const (
	PurposeConfirmEmail  UserTokenPurpose = "confirm-email"
	PurposeResetPassword UserTokenPurpose = "reset-password"
)

type userTokenClaims struct {
	jwt.RegisteredClaims
	Purpose UserTokenPurpose `json:"purpose"`
	Stamp   string           `json:"stamp"`
}

// UserTokens issues the opaque tokens embedded in confirmation and reset links.
// A token is bound to the account's security stamp, so it stops working as
// soon as the credentials change.
type UserTokens struct {
	secret []byte
	ttl    time.Duration
	clock  timex.Clock
}

func NewUserTokens(secret string, ttl time.Duration, clock timex.Clock) (*UserTokens, error) {
	if secret == "" {
		return nil, common.ErrSigningKeyMissing
	}
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &UserTokens{secret: []byte("user-token:" + secret), ttl: ttl, clock: clock}, nil
}

func (u *UserTokens) Issue(userID string, purpose UserTokenPurpose, stamp string) (string, error) {
	now := u.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, userTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.ttl)),
		},
		Purpose: purpose,
		Stamp:   stamp,
	})
	return token.SignedString(u.secret)
}

// Verify checks signature, expiry and purpose and returns the subject user id
// and the stamp the token was issued against.
func (u *UserTokens) Verify(tokenString string, purpose UserTokenPurpose) (userID, stamp string, err error) {
	claims := &userTokenClaims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(u.clock.Now),
	)

	_, err = parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return u.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", common.ErrTokenExpired
		}
		return "", "", common.ErrInvalidToken
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return "", "", common.ErrInvalidToken
	}
	return claims.Subject, claims.Stamp, nil
}
