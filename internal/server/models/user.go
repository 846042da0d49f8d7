package models

import "time"

// User is an account as held by the identity store.
type User struct {
	ID             string
	Email          string
	UserName       string
	FullName       string
	PasswordHash   string
	EmailConfirmed bool
	IsBanned       bool
	BanReason      string
	// Cpf and Cnpj are Brazilian personal and company tax ids. Either marks the account Verified.
	Cpf  string
	Cnpj string
	// SecurityStamp changes whenever credentials change; link tokens embed it.
	SecurityStamp string
	CreatedAt     time.Time
	LastActivity  *time.Time
}

// FirstName returns the first word of FullName, used to greet users in emails.
func (u *User) FirstName() string {
	for i, r := range u.FullName {
		if r == ' ' {
			return u.FullName[:i]
		}
	}
	return u.FullName
}

// Subject is the identity placed in the access token "sub" claim.
func (u *User) Subject() string {
	if u.UserName != "" {
		return u.UserName
	}
	return u.Email
}
