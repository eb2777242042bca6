package perrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsMatchesByKind(t *testing.T) {
	err := New(KindDuplicateEmail, "email already exists", errors.New("UNIQUE constraint failed"))
	require.ErrorIs(t, err, ErrDuplicateEmail)
	require.NotErrorIs(t, err, ErrValidation)

	wrapped := fmt.Errorf("register: %w", err)
	require.ErrorIs(t, wrapped, ErrDuplicateEmail)
}

func TestAs_UnknownErrorBecomesInternal(t *testing.T) {
	e := As(errors.New("disk on fire"))
	require.Equal(t, KindInternal, e.Kind)
	require.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
	require.Equal(t, "server error", e.Message)
}

func TestStorageHidesCause(t *testing.T) {
	err := Storage(errors.New("database is locked"))
	e := As(err)
	require.Equal(t, "storage failure", e.Message)
	require.ErrorContains(t, err, "database is locked")
}

func TestGRPCStatus(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ErrMissingToken)
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	st, ok := status.FromError(New(KindForbidden, "invalid token", nil))
	require.True(t, ok)
	require.Equal(t, codes.PermissionDenied, st.Code())
	require.Equal(t, "invalid token", st.Message())
}
