package server

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/logging"
	"github.com/scsp-app/scsp-server/internal/server/config"
	"github.com/scsp-app/scsp-server/internal/server/notify"
	"github.com/scsp-app/scsp-server/internal/server/repositories/repomanager"
	"github.com/scsp-app/scsp-server/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.SecretKey = "app-test-secret"
	return c
}

func TestNewApp_RequiresSecret(t *testing.T) {
	c := testConfig()
	c.SecretKey = ""

	_, err := NewApp(context.Background(), c)
	assert.ErrorIs(t, err, config.ErrSecretKeyMissing)
}

func TestNewApp_RejectsBadOtpDigits(t *testing.T) {
	c := testConfig()
	c.OtpDigits = 0

	_, err := NewApp(context.Background(), c)
	assert.ErrorIs(t, err, config.ErrInvalidSetting)
}

func TestNewApp_WiresServices(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	app, err := newApp(testConfig(), logging.Nop{}, db, repomanager.NewPostgresRepositoryManager(), timex.SystemClock{})
	require.NoError(t, err)
	assert.NotNil(t, app.accounts)
	assert.NotNil(t, app.tokens)
}

func TestNewApp_MissingSigningKey(t *testing.T) {
	c := testConfig()
	c.SecretKey = ""

	_, err := newApp(c, logging.Nop{}, nil, repomanager.NewPostgresRepositoryManager(), timex.SystemClock{})
	assert.ErrorIs(t, err, common.ErrSigningKeyMissing)
}

func TestNewSender(t *testing.T) {
	c := testConfig()

	_, ok := newSender(c, logging.Nop{}).(*notify.LogSender)
	assert.True(t, ok, "no SMTP host means mail is logged")

	c.SMTPHost = "smtp.example.com"
	_, ok = newSender(c, logging.Nop{}).(*notify.SMTPSender)
	assert.True(t, ok)
}
