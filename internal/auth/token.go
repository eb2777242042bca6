package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"cityfix/internal/perrors"
	"cityfix/models"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// ErrMissingSecret means the process was started without a signing secret.
var ErrMissingSecret = errors.New("auth: token signing secret is empty")

// Identity is the authenticated caller carried by a token.
type Identity struct {
	ID    int64
	Email string
	Role  models.Role
}

type claims struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 identity tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenService)

// WithClock replaces time.Now for both issuing and validating.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService fails when secret is empty; a zero ttl means DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Sign issues a token for id, expiring ttl after now.
func (s *TokenService) Sign(id Identity) (string, error) {
	if id.ID <= 0 || id.Email == "" || !id.Role.Valid() {
		return "", fmt.Errorf("cannot sign incomplete identity %+v", id)
	}
	now := s.now()
	c := claims{
		ID:    id.ID,
		Email: id.Email,
		Role:  string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Verify validates signature, algorithm and expiry and returns the identity.
// Every failure is perrors.KindInvalidToken.
func (s *TokenService) Verify(tokenStr string) (*Identity, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("token not valid")
		}
		return nil, perrors.New(perrors.KindInvalidToken, perrors.ErrInvalidToken.Message, err)
	}
	role := models.Role(c.Role)
	if c.ID <= 0 || c.Email == "" || !role.Valid() {
		return nil, perrors.New(perrors.KindInvalidToken, perrors.ErrInvalidToken.Message, errors.New("invalid claims"))
	}
	return &Identity{ID: c.ID, Email: c.Email, Role: role}, nil
}
