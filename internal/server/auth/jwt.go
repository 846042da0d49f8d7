// Package auth mints and verifies the server's bearer credentials: short-lived
// access tokens, single-purpose emailed link tokens and client app tokens.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/server/models"
	"github.com/scsp-app/scsp-server/internal/timex"
)

// Claims carries the registered claims plus the account id and its roles.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"uid"`
	Roles  []string `json:"roles,omitempty"`
}

// HasRole reports whether the token grants role.
func (c *Claims) HasRole(role models.Role) bool {
	for _, r := range c.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

// Minter signs HS256 access tokens. Safe for concurrent use.
type Minter struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	clock    timex.Clock
}

func NewMinter(secret, issuer, audience string, ttl time.Duration, clock timex.Clock) (*Minter, error) {
	if secret == "" {
		return nil, common.ErrSigningKeyMissing
	}
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &Minter{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		clock:    clock,
	}, nil
}

// Mint issues an access token for user with the given roles and returns it
// together with its expiry.
func (m *Minter) Mint(user *models.User, roles []models.Role) (string, time.Time, error) {
	now := m.clock.Now()
	expiresAt := now.Add(m.ttl)

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Subject(),
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: user.ID,
		Roles:  names,
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// Parse verifies signature, issuer, audience and expiry.
// Expired tokens yield common.ErrTokenExpired, anything else common.ErrInvalidToken.
func (m *Minter) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock.Now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
