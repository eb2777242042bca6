package grpcserver

import (
	"context"
	"log/slog"

	"google.golang.org/protobuf/types/known/structpb"

	"cityfix/internal/perrors"
	"cityfix/internal/service"
)

// AuthServer implements cityfix.v1.AuthService.
type AuthServer struct {
	Users  *service.Users
	Logger *slog.Logger
}

var _ AuthService = (*AuthServer)(nil)

// Register expects {name, email, password, role?} and returns {token, user}.
func (s *AuthServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in service.RegisterInput
	fields := []struct {
		key string
		dst *string
	}{
		{"name", &in.Name},
		{"email", &in.Email},
		{"password", &in.Password},
		{"role", &in.Role},
	}
	for _, f := range fields {
		v, err := stringField(req, f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	res, err := s.Users.Register(ctx, in)
	if err != nil {
		perrors.Log(ctx, s.Logger, "register", err)
		return nil, perrors.As(err)
	}
	return authResultStruct(res)
}

// Login expects {email, password} and returns {token, user}.
func (s *AuthServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, err := stringField(req, "email")
	if err != nil {
		return nil, err
	}
	password, err := stringField(req, "password")
	if err != nil {
		return nil, err
	}
	res, err := s.Users.Login(ctx, email, password)
	if err != nil {
		perrors.Log(ctx, s.Logger, "login", err)
		return nil, perrors.As(err)
	}
	return authResultStruct(res)
}
