package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored digests.
const BcryptCost = 10

// maxPasswordBytes is the bcrypt input limit; longer input would be silently truncated.
const maxPasswordBytes = 72

// ErrPasswordTooLong is returned for plaintext bcrypt cannot represent.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hasher hashes and verifies passwords. The bcrypt work runs on its own
// goroutine so a cancelled caller stops waiting immediately.
type Hasher struct {
	cost  int
	dummy []byte // digest of dummyPassword at cost
}

const dummyPassword = "cityfix-unused-dummy-password"

// NewHasher returns a Hasher using BcryptCost.
func NewHasher() *Hasher {
	h, err := NewHasherCost(BcryptCost)
	if err != nil {
		panic(err)
	}
	return h
}

// NewHasherCost returns a Hasher with a custom cost. Tests use bcrypt.MinCost.
func NewHasherCost(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("dummy digest: %w", err)
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Hash returns a salted bcrypt digest of plaintext.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := offload(ctx, func() ([]byte, error) {
		return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches digest. A mismatch is (false, nil);
// a malformed digest is an error.
func (h *Hasher) Verify(ctx context.Context, plaintext, digest string) (bool, error) {
	return offload(ctx, func() (bool, error) {
		err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	})
}

// VerifyDummy spends the same effort as Verify against a digest nothing matches.
// Login calls it for unknown emails so response time does not reveal which
// emails are registered.
func (h *Hasher) VerifyDummy(ctx context.Context, plaintext string) error {
	_, err := h.Verify(ctx, plaintext, string(h.dummy))
	return err
}

func offload[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}
