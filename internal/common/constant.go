package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// AppTokenHeaderName carries the client application token checked on registration.
const AppTokenHeaderName = "scsapp-token"
