package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/scsp-app/scsp-server/internal/flagx"
	"github.com/scsp-app/scsp-server/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
// Absent keys leave the current value untouched.
type JsonConfig struct {
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	Issuer                       *string         `json:"issuer"`
	Audience                     *string         `json:"audience"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	OtpValidityDuration          *timex.Duration `json:"otp_validity_duration"`
	OtpDigits                    *int            `json:"otp_digits"`
	OtpMaxAttempts               *int            `json:"otp_max_attempts"`
	UserTokenValidityDuration    *timex.Duration `json:"user_token_validity_duration"`
	AppTokens                    []string        `json:"app_tokens"`
	PublicBaseURL                *string         `json:"public_base_url"`
	SMTPHost                     *string         `json:"smtp_host"`
	SMTPPort                     *int            `json:"smtp_port"`
	SMTPUser                     *string         `json:"smtp_user"`
	SMTPPassword                 *string         `json:"smtp_password"`
	SMTPFrom                     *string         `json:"smtp_from"`
	SMTPUseTLS                   *bool           `json:"smtp_use_tls"`
	NotificationTimeout          *timex.Duration `json:"notification_timeout"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson loads configuration values from the file named by -c/-config.
// Without the flag nothing is loaded. Unreadable files or invalid JSON panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Issuer, c.Issuer)
	setString(&config.Audience, c.Audience)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.OtpValidityDuration, c.OtpValidityDuration)
	setInt(&config.OtpDigits, c.OtpDigits)
	setInt(&config.OtpMaxAttempts, c.OtpMaxAttempts)
	setDuration(&config.UserTokenValidityDuration, c.UserTokenValidityDuration)
	if c.AppTokens != nil {
		config.AppTokens = c.AppTokens
	}
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	if c.SMTPUseTLS != nil {
		config.SMTPUseTLS = *c.SMTPUseTLS
	}
	setDuration(&config.NotificationTimeout, c.NotificationTimeout)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
