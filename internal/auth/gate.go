package auth

import (
	"strings"

	"cityfix/internal/perrors"
)

// TokenVerifier is the part of TokenService the Gate needs.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}

// Gate authenticates the Authorization header of a protected call.
type Gate struct {
	tokens TokenVerifier
}

func NewGate(tokens TokenVerifier) *Gate {
	return &Gate{tokens: tokens}
}

// Authenticate extracts a bearer token from header and verifies it.
// No token at all is MissingToken; anything present but unacceptable is Forbidden.
func (g *Gate) Authenticate(header string) (*Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, perrors.ErrMissingToken
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return nil, perrors.ErrMissingToken
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return nil, perrors.New(perrors.KindForbidden, perrors.ErrForbidden.Message, nil)
	}
	id, err := g.tokens.Verify(token)
	if err != nil {
		return nil, perrors.New(perrors.KindForbidden, perrors.ErrForbidden.Message, err)
	}
	return id, nil
}
