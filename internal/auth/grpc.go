package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// NewUnaryAuthInterceptor returns a gRPC unary interceptor that authenticates
// the bearer token in incoming metadata and injects the Identity into the context.
// Methods listed in allowUnauthenticated bypass authentication (e.g., login, health checks).
func NewUnaryAuthInterceptor(gate *Gate, allowUnauthenticated ...string) grpc.UnaryServerInterceptor {
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, m := range allowUnauthenticated {
		allow[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		id, err := gate.Authenticate(AuthorizationFromMD(ctx))
		if err != nil {
			// *perrors.Err carries its own gRPC status.
			return nil, err
		}
		return handler(WithIdentity(ctx, id), req)
	}
}

// AuthorizationFromMD returns the authorization metadata value, or "".
func AuthorizationFromMD(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	// metadata keys are lower-cased on the wire.
	if vals := md.Get("authorization"); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
