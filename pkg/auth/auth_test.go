package auth_test

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/kralicky/streamrelay/pkg/auth"
)

func incoming(kv ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(kv...))
}

func codeOf(err error) codes.Code {
	return status.Code(err)
}

var _ = Describe("Token Authenticator", func() {
	authenticator := auth.NewTokenAuthenticator("s3cret")

	It("should accept the configured bearer token", func() {
		user, err := authenticator.Authenticate(incoming("authorization", "Bearer s3cret"))
		Expect(err).NotTo(HaveOccurred())
		Expect(user).To(Equal(auth.DefaultUser))
	})
	It("should use the user name from metadata", func() {
		user, err := authenticator.Authenticate(incoming("authorization", "bearer s3cret", auth.UserKey, "alice"))
		Expect(err).NotTo(HaveOccurred())
		Expect(user).To(BeEquivalentTo("alice"))
	})
	It("should reject missing, malformed and wrong tokens", func() {
		_, err := authenticator.Authenticate(context.Background())
		Expect(codeOf(err)).To(Equal(codes.Unauthenticated))
		_, err = authenticator.Authenticate(incoming("x", "y"))
		Expect(codeOf(err)).To(Equal(codes.Unauthenticated))
		_, err = authenticator.Authenticate(incoming("authorization", "s3cret"))
		Expect(codeOf(err)).To(Equal(codes.Unauthenticated))
		_, err = authenticator.Authenticate(incoming("authorization", "Basic s3cret"))
		Expect(codeOf(err)).To(Equal(codes.Unauthenticated))
		_, err = authenticator.Authenticate(incoming("authorization", "Bearer s3cre"))
		Expect(codeOf(err)).To(Equal(codes.Unauthenticated))
	})
})

var _ = Describe("Cert Authenticator", func() {
	authenticator := auth.NewCertAuthenticator()

	withPeer := func(info credentials.AuthInfo) context.Context {
		return peer.NewContext(context.Background(), &peer.Peer{AuthInfo: info})
	}

	It("should name the user after the verified certificate", func() {
		leaf := &x509.Certificate{Subject: pkix.Name{CommonName: "alice"}}
		ctx := withPeer(credentials.TLSInfo{
			State: tls.ConnectionState{VerifiedChains: [][]*x509.Certificate{{leaf}}},
		})
		user, err := authenticator.Authenticate(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(user).To(BeEquivalentTo("alice"))
	})
	It("should reject connections without verified certificates", func() {
		_, err := authenticator.Authenticate(context.Background())
		Expect(codeOf(err)).To(Equal(codes.Internal))
		_, err = authenticator.Authenticate(withPeer(nil))
		Expect(codeOf(err)).To(Equal(codes.Unauthenticated))
		_, err = authenticator.Authenticate(withPeer(credentials.TLSInfo{}))
		Expect(codeOf(err)).To(Equal(codes.Unauthenticated))
	})
})

var _ = Describe("Middleware", func() {
	middlewares := []auth.Middleware{auth.NewMiddleware(auth.NewTokenAuthenticator("s3cret"))}
	info := &grpc.UnaryServerInfo{FullMethod: "/relay.v1.Relay/List"}

	It("should pass the authenticated user to the handler", func() {
		interceptor := auth.UnaryServerInterceptor(middlewares)
		var seen auth.AuthenticatedUser
		_, err := interceptor(incoming("authorization", "Bearer s3cret", auth.UserKey, "bob"), nil, info,
			func(ctx context.Context, req any) (any, error) {
				seen = auth.AuthenticatedUserFromContext(ctx)
				return nil, nil
			})
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(BeEquivalentTo("bob"))
	})
	It("should not call the handler for unauthenticated requests", func() {
		interceptor := auth.UnaryServerInterceptor(middlewares)
		called := false
		_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
			called = true
			return nil, nil
		})
		Expect(codeOf(err)).To(Equal(codes.Unauthenticated))
		Expect(called).To(BeFalse())
	})
	It("should default the user outside of authenticated handlers", func() {
		Expect(auth.AuthenticatedUserFromContext(context.Background())).To(Equal(auth.DefaultUser))
	})
})

var _ = Describe("TokenCredentials", func() {
	It("should attach the bearer token and user", func() {
		creds := auth.TokenCredentials{Token: "s3cret", User: "alice"}
		md, err := creds.GetRequestMetadata(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(md).To(Equal(map[string]string{
			"authorization": "Bearer s3cret",
			auth.UserKey:    "alice",
		}))
		Expect(creds.RequireTransportSecurity()).To(BeFalse())
	})
	It("should be accepted by the token authenticator", func() {
		md, _ := auth.TokenCredentials{Token: "s3cret"}.GetRequestMetadata(context.Background())
		ctx := metadata.NewIncomingContext(context.Background(), metadata.New(md))
		_, err := auth.NewTokenAuthenticator("s3cret").Authenticate(ctx)
		Expect(err).NotTo(HaveOccurred())
	})
})
