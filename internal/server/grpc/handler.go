package grpc

import (
	"context"

	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/server/services"
)

func ack(a *services.Ack, err error) (*MessageResponse, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return &MessageResponse{Message: a.Message}, nil
}

func (s *Server) Register(ctx context.Context, req *RegisterRequest) (*MessageResponse, error) {
	return ack(s.accounts.Register(ctx, services.RegisterRequest{
		AppToken: metadataValue(ctx, common.AppTokenHeaderName),
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	}))
}

func (s *Server) RequestEmailConfirmationCode(ctx context.Context, req *EmailRequest) (*MessageResponse, error) {
	return ack(s.accounts.RequestEmailConfirmationCode(ctx, req.Email))
}

func (s *Server) ConfirmEmailWithCode(ctx context.Context, req *ConfirmEmailWithCodeRequest) (*MessageResponse, error) {
	return ack(s.accounts.ConfirmEmailWithCode(ctx, req.Email, req.Code))
}

func (s *Server) ConfirmEmail(ctx context.Context, req *ConfirmEmailRequest) (*MessageResponse, error) {
	return ack(s.accounts.ConfirmEmail(ctx, req.Email, req.Token))
}

func (s *Server) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	res, err := s.accounts.Login(ctx, services.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		DeviceID: req.DeviceID,
		IP:       clientIP(ctx),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &LoginResponse{
		UserID:         res.UserID,
		FullName:       res.FullName,
		Email:          res.Email,
		CreatedAt:      res.CreatedAt,
		Roles:          res.Roles,
		Token:          res.Token,
		TokenExpiresAt: res.TokenExpiresAt,
		RefreshToken:   res.RefreshToken,
	}, nil
}

func (s *Server) Refresh(ctx context.Context, req *RefreshRequest) (*RefreshResponse, error) {
	res, err := s.accounts.Refresh(ctx, services.RefreshRequest{
		RefreshToken: req.RefreshToken,
		DeviceID:     req.DeviceID,
		IP:           clientIP(ctx),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &RefreshResponse{Token: res.Token, TokenExpiresAt: res.TokenExpiresAt, RefreshToken: res.RefreshToken}, nil
}

func (s *Server) Logout(ctx context.Context, req *LogoutRequest) (*MessageResponse, error) {
	return ack(s.accounts.Logout(ctx, callerID(ctx), req.RefreshToken))
}

func (s *Server) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*MessageResponse, error) {
	return ack(s.accounts.ChangePassword(ctx, callerID(ctx), req.CurrentPassword, req.NewPassword))
}

func (s *Server) ForgotPassword(ctx context.Context, req *EmailRequest) (*MessageResponse, error) {
	return ack(s.accounts.ForgotPassword(ctx, req.Email))
}

func (s *Server) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*MessageResponse, error) {
	return ack(s.accounts.ResetPassword(ctx, req.Email, req.Token, req.NewPassword))
}

func (s *Server) RequestPasswordResetCode(ctx context.Context, req *EmailRequest) (*MessageResponse, error) {
	return ack(s.accounts.RequestPasswordResetCode(ctx, req.Email))
}

func (s *Server) ResetPasswordWithCode(ctx context.Context, req *ResetPasswordWithCodeRequest) (*MessageResponse, error) {
	return ack(s.accounts.ResetPasswordWithCode(ctx, req.Email, req.Code, req.NewPassword))
}

func (s *Server) GetUserInfo(ctx context.Context, _ *GetUserInfoRequest) (*UserInfoResponse, error) {
	info, err := s.accounts.GetUserInfo(ctx, callerID(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &UserInfoResponse{
		UserID:         info.UserID,
		FullName:       info.FullName,
		Email:          info.Email,
		CreatedAt:      info.CreatedAt,
		EmailConfirmed: info.EmailConfirmed,
		Cpf:            info.Cpf,
		Cnpj:           info.Cnpj,
		Roles:          info.Roles,
	}, nil
}

func (s *Server) AddRole(ctx context.Context, req *AddRoleRequest) (*MessageResponse, error) {
	return ack(s.accounts.AddRole(ctx, req.Email, req.Role))
}

func (s *Server) UpdateCpfCnpj(ctx context.Context, req *UpdateCpfCnpjRequest) (*MessageResponse, error) {
	return ack(s.accounts.UpdateCpfCnpj(ctx, callerID(ctx), req.Cpf, req.Cnpj))
}
