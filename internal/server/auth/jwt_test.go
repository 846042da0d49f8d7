package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/server/models"
	"github.com/scsp-app/scsp-server/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestMinter(t *testing.T, clock timex.Clock) *Minter {
	t.Helper()
	m, err := NewMinter("super-secret", "scsp-api", "scsp-app", 30*time.Minute, clock)
	require.NoError(t, err)
	return m
}

func testUser() *models.User {
	return &models.User{ID: "user-123", Email: "ana@example.com", UserName: "ana"}
}

func TestNewMinter_EmptySecret(t *testing.T) {
	_, err := NewMinter("", "iss", "aud", time.Minute, nil)
	assert.ErrorIs(t, err, common.ErrSigningKeyMissing)
}

func TestMintAndParse_Success(t *testing.T) {
	clock := timex.NewManualClock(t0)
	m := newTestMinter(t, clock)

	tok, expiresAt, err := m.Mint(testUser(), []models.Role{models.RoleUser, models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, t0.Add(30*time.Minute), expiresAt)

	clock.Advance(29 * time.Minute)

	claims, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "ana", claims.Subject)
	assert.Equal(t, "scsp-api", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"scsp-app"}, claims.Audience)
	assert.Equal(t, []string{"User", "Admin"}, claims.Roles)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.IssuedAt.Equal(t0))
	assert.True(t, claims.ExpiresAt.Equal(t0.Add(30*time.Minute)))
	assert.True(t, claims.HasRole(models.RoleAdmin))
	assert.False(t, claims.HasRole(models.RoleDeveloper))
}

func TestMint_SubjectFallsBackToEmail(t *testing.T) {
	m := newTestMinter(t, timex.NewManualClock(t0))

	tok, _, err := m.Mint(&models.User{ID: "u1", Email: "x@example.com"}, nil)
	require.NoError(t, err)

	claims, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", claims.Subject)
	assert.Empty(t, claims.Roles)
}

func TestMint_UniqueJTI(t *testing.T) {
	m := newTestMinter(t, timex.NewManualClock(t0))

	a, _, err := m.Mint(testUser(), nil)
	require.NoError(t, err)
	b, _, err := m.Mint(testUser(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParse_Expired(t *testing.T) {
	clock := timex.NewManualClock(t0)
	m := newTestMinter(t, clock)

	tok, _, err := m.Mint(testUser(), nil)
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)

	_, err = m.Parse(tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	clock := timex.NewManualClock(t0)
	tok, _, err := newTestMinter(t, clock).Mint(testUser(), nil)
	require.NoError(t, err)

	other, err := NewMinter("another-secret", "scsp-api", "scsp-app", 30*time.Minute, clock)
	require.NoError(t, err)

	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_WrongAudienceOrIssuer(t *testing.T) {
	clock := timex.NewManualClock(t0)
	tok, _, err := newTestMinter(t, clock).Mint(testUser(), nil)
	require.NoError(t, err)

	wrongAud, err := NewMinter("super-secret", "scsp-api", "other-app", 30*time.Minute, clock)
	require.NoError(t, err)
	_, err = wrongAud.Parse(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	wrongIss, err := NewMinter("super-secret", "other-api", "scsp-app", 30*time.Minute, clock)
	require.NoError(t, err)
	_, err = wrongIss.Parse(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	clock := timex.NewManualClock(t0)
	m := newTestMinter(t, clock)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "scsp-api",
			Audience:  jwt.ClaimStrings{"scsp-app"},
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
		UserID: "user-123",
	})
	tok, err := token.SignedString([]byte("super-secret"))
	require.NoError(t, err)

	_, err = m.Parse(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	m := newTestMinter(t, timex.NewManualClock(t0))

	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := m.Parse(tok)
		if !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}
