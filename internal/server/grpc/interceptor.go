package grpc

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/scsp-app/scsp-server/internal/common"
	"github.com/scsp-app/scsp-server/internal/server/auth"
	"github.com/scsp-app/scsp-server/internal/server/models"
	"github.com/scsp-app/scsp-server/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// authenticated lists methods that need a valid access token.
var authenticated = map[string]bool{
	"Logout":         true,
	"ChangePassword": true,
	"GetUserInfo":    true,
	"AddRole":        true,
	"UpdateCpfCnpj":  true,
}

// requiredRoles lists methods restricted to a role.
var requiredRoles = map[string]models.Role{
	"AddRole": models.RoleAdmin,
}

// ClaimsFromContext returns the access-token claims the auth interceptor attached.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

func callerID(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.UserID
	}
	return ""
}

func methodName(fullMethod string) string {
	if i := strings.LastIndex(fullMethod, "/"); i >= 0 {
		return fullMethod[i+1:]
	}
	return fullMethod
}

func metadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// clientIP is the host part of the peer address.
func clientIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}

func (s *Server) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ip := clientIP(ctx)
	method := methodName(info.FullMethod)

	if !s.limiter.Allow(PolicyGlobal, ip) {
		s.logger.Warn(ctx, "rate limited", "policy", PolicyGlobal.Name, "ip", ip, "method", method)
		return nil, failureStatus(codes.ResourceExhausted, ReasonRateLimited, "Too many requests. Try again later.", nil)
	}
	if p, ok := methodPolicies[method]; ok && !s.limiter.Allow(p, ip) {
		s.logger.Warn(ctx, "rate limited", "policy", p.Name, "ip", ip, "method", method)
		return nil, failureStatus(codes.ResourceExhausted, ReasonRateLimited, "Too many requests. Try again later.", nil)
	}
	return handler(ctx, req)
}

func (s *Server) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !authenticated[methodName(info.FullMethod)] {
		return handler(ctx, req)
	}

	accessToken := metadataValue(ctx, common.AccessTokenHeaderName)
	if accessToken == "" {
		return nil, failureStatus(codes.Unauthenticated, services.CodeUnauthenticated, "missing token", nil)
	}

	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, common.ErrTokenExpired) {
			msg = "token expired"
		}
		return nil, failureStatus(codes.Unauthenticated, services.CodeUnauthenticated, msg, nil)
	}

	return handler(context.WithValue(ctx, claimsKey, claims), req)
}

func (s *Server) roleInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	role, ok := requiredRoles[methodName(info.FullMethod)]
	if !ok {
		return handler(ctx, req)
	}
	claims, ok := ClaimsFromContext(ctx)
	if !ok || !claims.HasRole(role) {
		return nil, failureStatus(codes.PermissionDenied, ReasonForbidden, "Insufficient permissions.", nil)
	}
	return handler(ctx, req)
}
