package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "scsp.account.AccountService"

// AccountServiceServer is the server API for the account service.
type AccountServiceServer interface {
	Register(context.Context, *RegisterRequest) (*MessageResponse, error)
	RequestEmailConfirmationCode(context.Context, *EmailRequest) (*MessageResponse, error)
	ConfirmEmailWithCode(context.Context, *ConfirmEmailWithCodeRequest) (*MessageResponse, error)
	ConfirmEmail(context.Context, *ConfirmEmailRequest) (*MessageResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	Logout(context.Context, *LogoutRequest) (*MessageResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*MessageResponse, error)
	ForgotPassword(context.Context, *EmailRequest) (*MessageResponse, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*MessageResponse, error)
	RequestPasswordResetCode(context.Context, *EmailRequest) (*MessageResponse, error)
	ResetPasswordWithCode(context.Context, *ResetPasswordWithCodeRequest) (*MessageResponse, error)
	GetUserInfo(context.Context, *GetUserInfoRequest) (*UserInfoResponse, error)
	AddRole(context.Context, *AddRoleRequest) (*MessageResponse, error)
	UpdateCpfCnpj(context.Context, *UpdateCpfCnpjRequest) (*MessageResponse, error)
}

// FullMethod returns the wire name of a method of the account service.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary adapts a typed handler to grpc.MethodDesc.
func unary[Req, Resp any](name string, call func(AccountServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AccountServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AccountServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var AccountServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", AccountServiceServer.Register),
		unary("RequestEmailConfirmationCode", AccountServiceServer.RequestEmailConfirmationCode),
		unary("ConfirmEmailWithCode", AccountServiceServer.ConfirmEmailWithCode),
		unary("ConfirmEmail", AccountServiceServer.ConfirmEmail),
		unary("Login", AccountServiceServer.Login),
		unary("Refresh", AccountServiceServer.Refresh),
		unary("Logout", AccountServiceServer.Logout),
		unary("ChangePassword", AccountServiceServer.ChangePassword),
		unary("ForgotPassword", AccountServiceServer.ForgotPassword),
		unary("ResetPassword", AccountServiceServer.ResetPassword),
		unary("RequestPasswordResetCode", AccountServiceServer.RequestPasswordResetCode),
		unary("ResetPasswordWithCode", AccountServiceServer.ResetPasswordWithCode),
		unary("GetUserInfo", AccountServiceServer.GetUserInfo),
		unary("AddRole", AccountServiceServer.AddRole),
		unary("UpdateCpfCnpj", AccountServiceServer.UpdateCpfCnpj),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&AccountServiceDesc, srv)
}
