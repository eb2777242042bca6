package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"cityfix/internal/auth"
	"cityfix/internal/perrors"
	"cityfix/models"
	"cityfix/repository"
)

// RegisterInput is a registration request. Role is optional and defaults to citizen.
type RegisterInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Role     string `validate:"-"`
}

// AuthResult is what a successful registration or login returns.
type AuthResult struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// BootstrapAdmin is the well-known account ensured at startup.
type BootstrapAdmin struct {
	Name     string `validate:"-"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Users is the user registry: registration, login and bootstrap provisioning.
type Users struct {
	repo   repository.UserStore
	hasher *auth.Hasher
	tokens *auth.TokenService
	log    *slog.Logger
}

func NewUsers(repo repository.UserStore, hasher *auth.Hasher, tokens *auth.TokenService, logger *slog.Logger) *Users {
	if logger == nil {
		logger = slog.Default()
	}
	return &Users{repo: repo, hasher: hasher, tokens: tokens, log: logger}
}

// Register creates a citizen (or the requested role) and returns a token for it.
func (s *Users) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	name, email := in.Name, in.Email
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, perrors.New(perrors.KindValidation, "role must be one of citizen, worker, admin", err)
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, perrors.Validation("password must be at most 72 bytes")
		}
		return nil, perrors.Internal(err)
	}

	u, err := s.repo.Create(ctx, &models.User{Name: name, Email: email, PasswordHash: digest, Role: role})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, perrors.New(perrors.KindDuplicateEmail, perrors.ErrDuplicateEmail.Message, err)
		}
		return nil, perrors.Internal(err)
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "user registered", slog.Int64("user_id", u.ID), slog.String("role", string(u.Role)))
	return res, nil
}

// Login checks email and password. Unknown email and wrong password produce
// the same error and take the same bcrypt effort.
func (s *Users) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, perrors.ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, perrors.Internal(err)
	}
	if u == nil {
		if err := s.hasher.VerifyDummy(ctx, password); err != nil && ctx.Err() != nil {
			return nil, perrors.Internal(err)
		}
		return nil, perrors.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, password, u.PasswordHash)
	if err != nil {
		return nil, perrors.Internal(err)
	}
	if !ok {
		return nil, perrors.ErrInvalidCredentials
	}
	return s.issue(u)
}

// EnsureBootstrapAdmin creates the admin account or resets its password and
// role. Idempotent; run on every startup.
func (s *Users) EnsureBootstrapAdmin(ctx context.Context, a BootstrapAdmin) (*models.User, error) {
	a.Email = strings.TrimSpace(a.Email)
	if err := validateInput(a); err != nil {
		return nil, err
	}
	email := a.Email
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = "Admin"
	}
	digest, err := s.hasher.Hash(ctx, a.Password)
	if err != nil {
		return nil, perrors.Internal(err)
	}
	u, err := s.repo.UpsertAdmin(ctx, name, email, digest)
	if err != nil {
		return nil, perrors.Storage(err)
	}
	s.log.InfoContext(ctx, "admin user ensured", slog.Int64("user_id", u.ID), slog.String("email", u.Email))
	return u, nil
}

func (s *Users) issue(u *models.User) (*AuthResult, error) {
	tok, err := s.tokens.Sign(auth.Identity{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, perrors.Internal(err)
	}
	return &AuthResult{Token: tok, User: u.Public()}, nil
}
