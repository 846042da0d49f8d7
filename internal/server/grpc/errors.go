package grpc

import (
	"strings"

	"github.com/scsp-app/scsp-server/internal/server/services"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain is set on every errdetails.ErrorInfo this server returns.
const ErrorDomain = "scsp.account"

// Reasons produced by the transport itself rather than the account service.
const (
	ReasonRateLimited services.Code = "RATE_LIMITED"
	ReasonForbidden   services.Code = "FORBIDDEN"
)

var failureCodes = map[services.Code]codes.Code{
	services.CodeValidation:              codes.InvalidArgument,
	services.CodeAppTokenInvalid:         codes.PermissionDenied,
	services.CodeUnauthenticated:         codes.Unauthenticated,
	services.CodeUserNotFound:            codes.NotFound,
	services.CodeEmailNotConfirmed:       codes.FailedPrecondition,
	services.CodeUserBanned:              codes.PermissionDenied,
	services.CodeInvalidCredentials:      codes.Unauthenticated,
	services.CodeRegistrationFailed:      codes.InvalidArgument,
	services.CodeEmailConfirmationFailed: codes.InvalidArgument,
	services.CodePasswordChangeFailed:    codes.InvalidArgument,
	services.CodePasswordResetFailed:     codes.InvalidArgument,
	services.CodeRoleAssignmentFailed:    codes.FailedPrecondition,
	services.CodeRefreshRequired:         codes.InvalidArgument,
	services.CodeRefreshInvalid:          codes.Unauthenticated,
	services.CodeRefreshRevoked:          codes.Unauthenticated,
	services.CodeRefreshExpired:          codes.Unauthenticated,
	services.CodeDeviceMismatch:          codes.Unauthenticated,
	services.CodeOtpNoActiveCode:         codes.FailedPrecondition,
	services.CodeOtpExpired:              codes.FailedPrecondition,
	services.CodeOtpAttemptsExhausted:    codes.ResourceExhausted,
	services.CodeOtpInvalid:              codes.InvalidArgument,
	services.CodeInternal:                codes.Internal,
}

// toStatus converts a service error into a gRPC status error whose
// ErrorInfo reason is the failure code. Anything that is not a
// *services.Failure is reported as an internal error without its text.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	f, ok := services.AsFailure(err)
	if !ok {
		return failureStatus(codes.Internal, services.CodeInternal, "An unexpected error occurred.", nil)
	}
	code, ok := failureCodes[f.Code]
	if !ok {
		code = codes.Unknown
	}
	return failureStatus(code, f.Code, f.Message, f.Details)
}

func failureStatus(code codes.Code, reason services.Code, message string, details []string) error {
	info := &errdetails.ErrorInfo{Reason: string(reason), Domain: ErrorDomain}
	if len(details) > 0 {
		info.Metadata = map[string]string{"details": strings.Join(details, "\n")}
	}
	st, err := status.New(code, message).WithDetails(info)
	if err != nil {
		return status.Error(code, message)
	}
	return st.Err()
}

// FailureReason extracts the failure code carried by a status error, or "".
func FailureReason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}
