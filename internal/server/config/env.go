package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/scsp-app/scsp-server/internal/flagx"
)

// Environment variables recognised by parseEnv.
const (
	EnvEndpointAddrGRPC    = "SCSP_GRPC_ADDR"
	EnvDatabaseDSN         = "SCSP_DATABASE_DSN"
	EnvSecretKey           = "SCSP_SECRET_KEY"
	EnvIssuer              = "SCSP_ISSUER"
	EnvAudience            = "SCSP_AUDIENCE"
	EnvAccessTokenTTL      = "SCSP_ACCESS_TOKEN_TTL"
	EnvRefreshTokenTTL     = "SCSP_REFRESH_TOKEN_TTL"
	EnvOtpTTL              = "SCSP_OTP_TTL"
	EnvOtpDigits           = "SCSP_OTP_DIGITS"
	EnvOtpMaxAttempts      = "SCSP_OTP_MAX_ATTEMPTS"
	EnvUserTokenTTL        = "SCSP_USER_TOKEN_TTL"
	EnvAppTokens           = "SCSP_APP_TOKENS"
	EnvPublicBaseURL       = "SCSP_PUBLIC_BASE_URL"
	EnvSMTPHost            = "SCSP_SMTP_HOST"
	EnvSMTPPort            = "SCSP_SMTP_PORT"
	EnvSMTPUser            = "SCSP_SMTP_USER"
	EnvSMTPPassword        = "SCSP_SMTP_PASSWORD"
	EnvSMTPFrom            = "SCSP_SMTP_FROM"
	EnvSMTPUseTLS          = "SCSP_SMTP_USE_TLS"
	EnvNotificationTimeout = "SCSP_NOTIFICATION_TIMEOUT"
	EnvLogLevel            = "SCSP_LOG_LEVEL"
	envDotFile             = ".env"
)

// parseEnv overlays values from the process environment. A .env file in the
// working directory is loaded first when present; it never overrides
// variables that are already set. Malformed numbers or durations panic.
func parseEnv(config *Config) {
	if _, err := os.Stat(envDotFile); err == nil {
		if err := godotenv.Load(envDotFile); err != nil {
			panic(fmt.Errorf("load %s: %w", envDotFile, err))
		}
	}

	envString(&config.EndpointAddrGRPC, EnvEndpointAddrGRPC)
	envString(&config.DatabaseDSN, EnvDatabaseDSN)
	envString(&config.SecretKey, EnvSecretKey)
	envString(&config.Issuer, EnvIssuer)
	envString(&config.Audience, EnvAudience)
	envDuration(&config.AccessTokenValidityDuration, EnvAccessTokenTTL)
	envDuration(&config.RefreshTokenValidityDuration, EnvRefreshTokenTTL)
	envDuration(&config.OtpValidityDuration, EnvOtpTTL)
	envInt(&config.OtpDigits, EnvOtpDigits)
	envInt(&config.OtpMaxAttempts, EnvOtpMaxAttempts)
	envDuration(&config.UserTokenValidityDuration, EnvUserTokenTTL)
	if v, ok := os.LookupEnv(EnvAppTokens); ok {
		config.AppTokens = flagx.SplitList(v)
	}
	envString(&config.PublicBaseURL, EnvPublicBaseURL)
	envString(&config.SMTPHost, EnvSMTPHost)
	envInt(&config.SMTPPort, EnvSMTPPort)
	envString(&config.SMTPUser, EnvSMTPUser)
	envString(&config.SMTPPassword, EnvSMTPPassword)
	envString(&config.SMTPFrom, EnvSMTPFrom)
	envBool(&config.SMTPUseTLS, EnvSMTPUseTLS)
	envDuration(&config.NotificationTimeout, EnvNotificationTimeout)
	envString(&config.LogLevel, EnvLogLevel)
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = n
}

func envBool(dst *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = b
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = d
}
