package relayv1

import (
	context "context"
)

type (
	relayClientContextKeyType struct{}
)

var relayClientContextKey relayClientContextKeyType

func ContextWithClient(ctx context.Context, client RelayClient) context.Context {
	return context.WithValue(ctx, relayClientContextKey, client)
}

func ClientFromContext(ctx context.Context) (RelayClient, bool) {
	client, ok := ctx.Value(relayClientContextKey).(RelayClient)
	return client, ok
}
