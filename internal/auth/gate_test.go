package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cityfix/internal/perrors"
	"cityfix/internal/testutil"
	"cityfix/models"
)

func newTestGate(t *testing.T) (*Gate, *TokenService) {
	t.Helper()
	ts, err := NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	return NewGate(ts), ts
}

func TestGate_Authenticate(t *testing.T) {
	gate, ts := newTestGate(t)
	tok, err := ts.Sign(Identity{ID: 3, Email: "w@x.com", Role: models.RoleWorker})
	require.NoError(t, err)

	id, err := gate.Authenticate("Bearer " + tok)
	require.NoError(t, err)
	require.Equal(t, int64(3), id.ID)
	require.Equal(t, models.RoleWorker, id.Role)

	// scheme is case-insensitive
	_, err = gate.Authenticate("bearer " + tok)
	require.NoError(t, err)
}

func TestGate_MissingVersusForbidden(t *testing.T) {
	gate, ts := newTestGate(t)
	tok, err := ts.Sign(Identity{ID: 3, Email: "w@x.com", Role: models.RoleWorker})
	require.NoError(t, err)

	for _, h := range []string{"", "   ", "Bearer", "Bearer   "} {
		_, err := gate.Authenticate(h)
		require.ErrorIs(t, err, perrors.ErrMissingToken, "header %q", h)
	}
	for _, h := range []string{"Bearer garbage", "Basic " + tok, "Bearer " + tok + "x"} {
		_, err := gate.Authenticate(h)
		require.ErrorIs(t, err, perrors.ErrForbidden, "header %q", h)
	}
}

func TestGate_ExpiredTokenIsForbidden(t *testing.T) {
	gate, _ := newTestGate(t)
	tok := testutil.SignToken(t, testSecret, testutil.IdentityClaims(1, "a@x.com", "citizen", -time.Minute))
	_, err := gate.Authenticate("Bearer " + tok)
	require.ErrorIs(t, err, perrors.ErrForbidden)
	require.ErrorIs(t, err, perrors.ErrInvalidToken)
}

func TestRequireIdentity(t *testing.T) {
	_, err := RequireIdentity(context.Background())
	require.ErrorIs(t, err, perrors.ErrMissingToken)

	ctx := WithIdentity(context.Background(), &Identity{ID: 1, Email: "a@x.com", Role: models.RoleAdmin})
	id, err := RequireIdentity(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), id.ID)
}

func TestUnaryAuthInterceptor(t *testing.T) {
	gate, ts := newTestGate(t)
	// allowlisted method should bypass auth
	interceptor := NewUnaryAuthInterceptor(gate, "/health")

	// 1) Allowlisted path: no header -> handler executes, no identity
	hCalled := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/health"}, func(ctx context.Context, req any) (any, error) {
		hCalled = true
		if _, ok := IdentityFromContext(ctx); ok {
			t.Fatalf("expected no identity on allowlisted path")
		}
		return 123, nil
	})
	require.NoError(t, err)
	require.True(t, hCalled)

	// 2) Protected path without token -> Unauthenticated, handler not called
	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		t.Fatalf("handler must not run without a token")
		return nil, nil
	})
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	// 3) Bad token -> PermissionDenied
	_, err = interceptor(testutil.CtxWithBearer(context.Background(), "nope"), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		t.Fatalf("handler must not run with a bad token")
		return nil, nil
	})
	require.Equal(t, codes.PermissionDenied, status.Code(err))

	// 4) Authenticated path: with token -> identity injected
	tok, err := ts.Sign(Identity{ID: 9, Email: "bob@x.com", Role: models.RoleCitizen})
	require.NoError(t, err)
	_, err = interceptor(testutil.CtxWithBearer(context.Background(), tok), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		id, ok := IdentityFromContext(ctx)
		if !ok || id.ID != 9 || id.Email != "bob@x.com" {
			t.Fatalf("identity not injected: %+v ok=%v", id, ok)
		}
		return nil, nil
	})
	require.NoError(t, err)
}
