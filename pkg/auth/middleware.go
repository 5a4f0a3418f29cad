package auth

import (
	"context"
	"log/slog"

	"github.com/kralicky/streamrelay/pkg/util"
	"google.golang.org/grpc"
)

// Middleware runs before every rpc handler. It may reject the call by
// returning an error, or derive a new context for the handler.
type Middleware interface {
	Eval(ctx context.Context, fullMethod string) (context.Context, error)
}

// NewMiddleware returns a Middleware storing the user returned by
// authenticator in the handler context.
func NewMiddleware(authenticator Authenticator) Middleware {
	return &authnMiddleware{authenticator: authenticator}
}

type authnMiddleware struct {
	authenticator Authenticator
}

var _ Middleware = (*authnMiddleware)(nil)

// Eval implements Middleware.
func (m *authnMiddleware) Eval(ctx context.Context, fullMethod string) (context.Context, error) {
	user, err := m.authenticator.Authenticate(ctx)
	if err != nil {
		slog.With(
			"method", util.MethodName(fullMethod),
			"error", err,
		).Warn("rejected unauthenticated request")
		return ctx, err
	}
	return context.WithValue(ctx, authnUserKey, user), nil
}

func evalAll(ctx context.Context, middlewares []Middleware, fullMethod string) (context.Context, error) {
	for _, m := range middlewares {
		var err error
		if ctx, err = m.Eval(ctx, fullMethod); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

func UnaryServerInterceptor(middlewares []Middleware) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := evalAll(ctx, middlewares, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func StreamServerInterceptor(middlewares []Middleware) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := evalAll(ss.Context(), middlewares, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, util.ServerStreamWithContext(ctx, ss))
	}
}
