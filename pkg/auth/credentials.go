package auth

import (
	"context"

	"google.golang.org/grpc/credentials"
)

// TokenCredentials attaches a bearer token, and optionally a user name, to
// every rpc.
type TokenCredentials struct {
	Token string
	User  string
	// Refuse to send the token over connections without transport security.
	RequireTLS bool
}

var _ credentials.PerRPCCredentials = TokenCredentials{}

// GetRequestMetadata implements credentials.PerRPCCredentials.
func (c TokenCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	md := map[string]string{
		AuthorizationKey: "Bearer " + c.Token,
	}
	if c.User != "" {
		md[UserKey] = c.User
	}
	return md, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials.
func (c TokenCredentials) RequireTransportSecurity() bool {
	return c.RequireTLS
}
