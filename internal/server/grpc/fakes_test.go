package grpc

import (
	"context"
	"sync"

	"github.com/scsp-app/scsp-server/internal/server/services"
)

// fakeAccounts records the arguments of the last call and answers with the
// configured result or err.
type fakeAccounts struct {
	mu sync.Mutex

	err      error
	login    *services.LoginResult
	refresh  *services.RefreshResult
	userInfo *services.UserInfo

	method   string
	caller   string
	email    string
	register services.RegisterRequest
	loginReq services.LoginRequest
	args     []string
}

func (f *fakeAccounts) record(method, caller, email string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.method, f.caller, f.email, f.args = method, caller, email, args
}

func (f *fakeAccounts) ack(method string) (*services.Ack, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.Ack{Message: method + " ok"}, nil
}

func (f *fakeAccounts) Register(_ context.Context, req services.RegisterRequest) (*services.Ack, error) {
	f.mu.Lock()
	f.register = req
	f.mu.Unlock()
	f.record("Register", "", req.Email)
	return f.ack("Register")
}

func (f *fakeAccounts) RequestEmailConfirmationCode(_ context.Context, email string) (*services.Ack, error) {
	f.record("RequestEmailConfirmationCode", "", email)
	return f.ack("RequestEmailConfirmationCode")
}

func (f *fakeAccounts) ConfirmEmailWithCode(_ context.Context, email, code string) (*services.Ack, error) {
	f.record("ConfirmEmailWithCode", "", email, code)
	return f.ack("ConfirmEmailWithCode")
}

func (f *fakeAccounts) ConfirmEmail(_ context.Context, email, token string) (*services.Ack, error) {
	f.record("ConfirmEmail", "", email, token)
	return f.ack("ConfirmEmail")
}

func (f *fakeAccounts) Login(_ context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	f.mu.Lock()
	f.loginReq = req
	f.mu.Unlock()
	f.record("Login", "", req.Email)
	if f.err != nil {
		return nil, f.err
	}
	return f.login, nil
}

func (f *fakeAccounts) Refresh(_ context.Context, req services.RefreshRequest) (*services.RefreshResult, error) {
	f.record("Refresh", "", "", req.RefreshToken, req.DeviceID)
	if f.err != nil {
		return nil, f.err
	}
	return f.refresh, nil
}

func (f *fakeAccounts) Logout(_ context.Context, callerID, token string) (*services.Ack, error) {
	f.record("Logout", callerID, "", token)
	return f.ack("Logout")
}

func (f *fakeAccounts) ChangePassword(_ context.Context, callerID, current, next string) (*services.Ack, error) {
	f.record("ChangePassword", callerID, "", current, next)
	return f.ack("ChangePassword")
}

func (f *fakeAccounts) ForgotPassword(_ context.Context, email string) (*services.Ack, error) {
	f.record("ForgotPassword", "", email)
	return f.ack("ForgotPassword")
}

func (f *fakeAccounts) ResetPassword(_ context.Context, email, token, next string) (*services.Ack, error) {
	f.record("ResetPassword", "", email, token, next)
	return f.ack("ResetPassword")
}

func (f *fakeAccounts) RequestPasswordResetCode(_ context.Context, email string) (*services.Ack, error) {
	f.record("RequestPasswordResetCode", "", email)
	return f.ack("RequestPasswordResetCode")
}

func (f *fakeAccounts) ResetPasswordWithCode(_ context.Context, email, code, next string) (*services.Ack, error) {
	f.record("ResetPasswordWithCode", "", email, code, next)
	return f.ack("ResetPasswordWithCode")
}

func (f *fakeAccounts) GetUserInfo(_ context.Context, callerID string) (*services.UserInfo, error) {
	f.record("GetUserInfo", callerID, "")
	if f.err != nil {
		return nil, f.err
	}
	return f.userInfo, nil
}

func (f *fakeAccounts) AddRole(_ context.Context, email, role string) (*services.Ack, error) {
	f.record("AddRole", "", email, role)
	return f.ack("AddRole")
}

func (f *fakeAccounts) UpdateCpfCnpj(_ context.Context, callerID, cpf, cnpj string) (*services.Ack, error) {
	f.record("UpdateCpfCnpj", callerID, "", cpf, cnpj)
	return f.ack("UpdateCpfCnpj")
}

func (f *fakeAccounts) last() (method, caller string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.method, f.caller
}
