package models

import "time"

// RefreshToken is one link in a device session's rotation lineage.
type RefreshToken struct {
	ID              int64
	UserID          string
	Token           string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	RevokedAt       *time.Time
	ReplacedByToken *string
	DeviceID        *string
	IP              *string
}

// IsActive reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
