package grpc

import (
	"context"
	"crypto/subtle"

	"github.com/dmitrijs2005/farmadvisor/internal/client/client"
	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const idempotencyKey ctxKey = "idempotencyKey"

// authInterceptor checks the bearer token on SubmitTask and moves the
// idempotency key from metadata into the context.
func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if info.FullMethod != client.MethodSubmitTask {
		return handler(ctx, req)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	if s.token != "" {
		var got string
		if values := md.Get(client.AuthMetadataKey); len(values) > 0 {
			got = values[0]
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte("Bearer "+s.token)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid token")
		}
	}
	if values := md.Get(models.IdempotencyMetadataKey); len(values) > 0 {
		ctx = context.WithValue(ctx, idempotencyKey, values[0])
	}

	return handler(ctx, req)
}

func idempotencyKeyFrom(ctx context.Context) string {
	k, _ := ctx.Value(idempotencyKey).(string)
	return k
}
