package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/logging"
	"github.com/scsp-app/scsp-server/internal/server/config"
	"github.com/scsp-app/scsp-server/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const refreshLifetime = 14 * 24 * time.Hour

func newRefreshService(t *testing.T) (*RefreshTokenService, *fakeRepoManager, *timex.ManualClock) {
	t.Helper()
	rm := newFakeRepoManager()
	clock := timex.NewManualClock(t0)
	cfg := &config.Config{RefreshTokenValidityDuration: refreshLifetime}
	return NewRefreshTokenService(nil, &fakeTransactor{}, rm, clock, logging.Nop{}, cfg), rm, clock
}

func TestRefreshTokenService_Issue(t *testing.T) {
	svc, rm, _ := newRefreshService(t)

	token, row, err := svc.Issue(context.Background(), "u1", "dev-a", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, token, row.Token)

	stored := rm.refresh.get(token)
	require.NotNil(t, stored)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, t0.Add(refreshLifetime), stored.ExpiresAt)
	require.NotNil(t, stored.DeviceID)
	assert.Equal(t, "dev-a", *stored.DeviceID)
	require.NotNil(t, stored.IP)
	assert.Equal(t, "10.0.0.1", *stored.IP)
}

func TestRefreshTokenService_Issue_EmptyDeviceAndIPAreNull(t *testing.T) {
	svc, rm, _ := newRefreshService(t)

	token, _, err := svc.Issue(context.Background(), "u1", "", "")
	require.NoError(t, err)
	stored := rm.refresh.get(token)
	assert.Nil(t, stored.DeviceID)
	assert.Nil(t, stored.IP)
}

func TestRefreshTokenService_Rotate_Chain(t *testing.T) {
	svc, rm, clock := newRefreshService(t)
	ctx := context.Background()

	r1, _, err := svc.Issue(ctx, "u1", "dev-a", "10.0.0.1")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	r2, prev, err := svc.Rotate(ctx, r1, "dev-a", "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "u1", prev.UserID)
	assert.NotEqual(t, r1, r2)

	clock.Advance(time.Hour)
	r3, _, err := svc.Rotate(ctx, r2, "", "")
	require.NoError(t, err)

	row1, row2, row3 := rm.refresh.get(r1), rm.refresh.get(r2), rm.refresh.get(r3)
	require.NotNil(t, row1.RevokedAt)
	assert.Equal(t, r2, *row1.ReplacedByToken)
	require.NotNil(t, row2.RevokedAt)
	assert.Equal(t, r3, *row2.ReplacedByToken)
	assert.True(t, row3.IsActive(clock.Now()))

	assert.Equal(t, t0.Add(2*time.Hour+refreshLifetime), row3.ExpiresAt)
	assert.Equal(t, "dev-a", *row3.DeviceID)
	assert.Equal(t, "10.0.0.2", *row3.IP, "ip falls back to the predecessor's")

	_, _, err = svc.Rotate(ctx, r1, "", "")
	assert.ErrorIs(t, err, common.ErrRefreshTokenRevoked)
}

func TestRefreshTokenService_Rotate_ConcurrentHasOneWinner(t *testing.T) {
	svc, _, _ := newRefreshService(t)
	ctx := context.Background()

	r1, _, err := svc.Issue(ctx, "u1", "dev-a", "")
	require.NoError(t, err)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		revoked int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Rotate(ctx, r1, "dev-a", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, common.ErrRefreshTokenRevoked):
				revoked++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, n-1, revoked)
}

func TestRefreshTokenService_Rotate_Expiry(t *testing.T) {
	svc, _, clock := newRefreshService(t)
	ctx := context.Background()

	live, _, err := svc.Issue(ctx, "u1", "", "")
	require.NoError(t, err)
	dead, _, err := svc.Issue(ctx, "u1", "", "")
	require.NoError(t, err)

	clock.Set(t0.Add(refreshLifetime - time.Second))
	_, _, err = svc.Rotate(ctx, live, "", "")
	require.NoError(t, err)

	clock.Set(t0.Add(refreshLifetime))
	_, _, err = svc.Rotate(ctx, dead, "", "")
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

func TestRefreshTokenService_Rotate_Refusals(t *testing.T) {
	svc, _, _ := newRefreshService(t)
	ctx := context.Background()

	bound, _, err := svc.Issue(ctx, "u1", "dev-a", "")
	require.NoError(t, err)
	unbound, _, err := svc.Issue(ctx, "u1", "", "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		device  string
		wantErr error
	}{
		{name: "unknown token", token: "nope", wantErr: common.ErrRefreshTokenNotFound},
		{name: "other device", token: bound, device: "dev-b", wantErr: common.ErrDeviceMismatch},
		{name: "hint on unbound token", token: unbound, device: "dev-a", wantErr: common.ErrDeviceMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Rotate(ctx, tt.token, tt.device, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, _, err = svc.Rotate(ctx, bound, "", "")
	assert.NoError(t, err, "an empty hint skips the device check")
}

func TestRefreshTokenService_Revoke_OnlyOwner(t *testing.T) {
	svc, rm, _ := newRefreshService(t)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, "u1", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, token, "intruder"))
	assert.Nil(t, rm.refresh.get(token).RevokedAt)

	require.NoError(t, svc.Revoke(ctx, "unknown", "u1"))

	require.NoError(t, svc.Revoke(ctx, token, "u1"))
	assert.NotNil(t, rm.refresh.get(token).RevokedAt)

	_, _, err = svc.Rotate(ctx, token, "", "")
	assert.ErrorIs(t, err, common.ErrRefreshTokenRevoked)
}

func TestRefreshTokenService_RevokeAll(t *testing.T) {
	svc, rm, _ := newRefreshService(t)
	ctx := context.Background()

	a, _, _ := svc.Issue(ctx, "u1", "dev-a", "")
	b, _, _ := svc.Issue(ctx, "u1", "dev-b", "")
	other, _, _ := svc.Issue(ctx, "u2", "", "")

	require.NoError(t, svc.RevokeAll(ctx, "u1"))
	assert.NotNil(t, rm.refresh.get(a).RevokedAt)
	assert.NotNil(t, rm.refresh.get(b).RevokedAt)
	assert.Nil(t, rm.refresh.get(other).RevokedAt)
}
