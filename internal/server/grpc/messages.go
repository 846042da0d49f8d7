package grpc

import "time"

type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest is sent with the client application token in metadata.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type ConfirmEmailWithCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ConfirmEmailRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId,omitempty"`
}

type LoginResponse struct {
	UserID         string    `json:"userId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"createdAt"`
	Roles          []string  `json:"roles"`
	Token          string    `json:"token"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
	RefreshToken   string    `json:"refreshToken"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId,omitempty"`
}

type RefreshResponse struct {
	Token          string    `json:"token"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
	RefreshToken   string    `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type ResetPasswordWithCodeRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type GetUserInfoRequest struct{}

type UserInfoResponse struct {
	UserID         string    `json:"userId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"createdAt"`
	EmailConfirmed bool      `json:"emailConfirmed"`
	Cpf            string    `json:"cpf,omitempty"`
	Cnpj           string    `json:"cnpj,omitempty"`
	Roles          []string  `json:"roles"`
}

type AddRoleRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type UpdateCpfCnpjRequest struct {
	Cpf  string `json:"cpf"`
	Cnpj string `json:"cnpj"`
}
