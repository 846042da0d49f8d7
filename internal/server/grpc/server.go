package grpc

import (
	"context"
	"net"
	"time"

	"github.com/scsp-app/scsp-server/internal/logging"
	"github.com/scsp-app/scsp-server/internal/server/auth"
	"github.com/scsp-app/scsp-server/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Accounts is the account API the transport exposes.
type Accounts interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.Ack, error)
	RequestEmailConfirmationCode(ctx context.Context, email string) (*services.Ack, error)
	ConfirmEmailWithCode(ctx context.Context, email, code string) (*services.Ack, error)
	ConfirmEmail(ctx context.Context, email, token string) (*services.Ack, error)
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	Refresh(ctx context.Context, req services.RefreshRequest) (*services.RefreshResult, error)
	Logout(ctx context.Context, callerID, token string) (*services.Ack, error)
	ChangePassword(ctx context.Context, callerID, current, next string) (*services.Ack, error)
	ForgotPassword(ctx context.Context, email string) (*services.Ack, error)
	ResetPassword(ctx context.Context, email, token, next string) (*services.Ack, error)
	RequestPasswordResetCode(ctx context.Context, email string) (*services.Ack, error)
	ResetPasswordWithCode(ctx context.Context, email, code, next string) (*services.Ack, error)
	GetUserInfo(ctx context.Context, callerID string) (*services.UserInfo, error)
	AddRole(ctx context.Context, email, role string) (*services.Ack, error)
	UpdateCpfCnpj(ctx context.Context, callerID, cpf, cnpj string) (*services.Ack, error)
}

// TokenParser validates access tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

const (
	limiterCleanupInterval = 3 * time.Minute
	limiterIdleTimeout     = 10 * time.Minute
)

type Server struct {
	address  string
	accounts Accounts
	tokens   TokenParser
	limiter  *RateLimiter
	logger   logging.Logger
}

func NewServer(address string, l logging.Logger, accounts Accounts, tokens TokenParser, limiter *RateLimiter) *Server {
	if limiter == nil {
		limiter = NewRateLimiter(nil)
	}
	return &Server{
		address:  address,
		logger:   l.With("module", "grpc_server"),
		accounts: accounts,
		tokens:   tokens,
		limiter:  limiter,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.rateLimitInterceptor,
		s.accessTokenInterceptor,
		s.roleInterceptor,
	))

	RegisterAccountServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go s.limiter.RunCleanup(ctx, limiterCleanupInterval, limiterIdleTimeout)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
