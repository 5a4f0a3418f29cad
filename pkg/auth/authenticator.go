package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type Authenticator interface {
	Authenticate(ctx context.Context) (AuthenticatedUser, error)
}

type authnUserKeyType struct{}

var authnUserKey authnUserKeyType

// AuthenticatedUser names the caller of an rpc. It is only used for logging;
// every authenticated caller may run every operation.
type AuthenticatedUser string

const (
	// Metadata key holding the bearer token.
	AuthorizationKey = "authorization"
	// Optional metadata key naming the caller, e.g. a chat user handle.
	UserKey = "x-relay-user"

	DefaultUser AuthenticatedUser = "operator"
)

// AuthenticatedUserFromContext returns the user stored in ctx by the auth
// middleware, or DefaultUser if there is none.
func AuthenticatedUserFromContext(ctx context.Context) AuthenticatedUser {
	v, ok := ctx.Value(authnUserKey).(AuthenticatedUser)
	if !ok {
		return DefaultUser
	}
	return v
}

// NewTokenAuthenticator returns an Authenticator that accepts requests
// carrying "authorization: Bearer <token>" metadata.
func NewTokenAuthenticator(token string) Authenticator {
	return &tokenAuthenticator{token: []byte(token)}
}

type tokenAuthenticator struct {
	token []byte
}

// Authenticate implements Authenticator.
func (a *tokenAuthenticator) Authenticate(ctx context.Context) (AuthenticatedUser, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Errorf(codes.Unauthenticated, "no metadata found")
	}
	values := md.Get(AuthorizationKey)
	if len(values) == 0 {
		return "", status.Errorf(codes.Unauthenticated, "missing bearer token")
	}
	scheme, token, ok := strings.Cut(values[0], " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", status.Errorf(codes.Unauthenticated, "malformed authorization metadata")
	}
	if subtle.ConstantTimeCompare([]byte(token), a.token) != 1 {
		return "", status.Errorf(codes.Unauthenticated, "invalid bearer token")
	}
	if users := md.Get(UserKey); len(users) > 0 && users[0] != "" {
		return AuthenticatedUser(users[0]), nil
	}
	return DefaultUser, nil
}

// NewCertAuthenticator returns an Authenticator naming the caller after the
// common name of its verified client certificate. It must be used together
// with a server that requires and verifies client certificates.
func NewCertAuthenticator() Authenticator {
	return &certAuthenticator{}
}

type certAuthenticator struct{}

// Authenticate implements Authenticator.
func (*certAuthenticator) Authenticate(ctx context.Context) (AuthenticatedUser, error) {
	info, ok := peer.FromContext(ctx)
	if !ok {
		return "", status.Errorf(codes.Internal, "no peer info found")
	}
	tlsInfo, ok := info.AuthInfo.(credentials.TLSInfo)
	if !ok {
		return "", status.Errorf(codes.Unauthenticated, "connection is not using tls")
	}
	for _, chain := range tlsInfo.State.VerifiedChains {
		if len(chain) > 0 && chain[0].Subject.CommonName != "" {
			return AuthenticatedUser(chain[0].Subject.CommonName), nil
		}
	}
	return "", status.Errorf(codes.Unauthenticated, "no subject common name found in any verified chains")
}
