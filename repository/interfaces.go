package repository

import (
	"context"
	"errors"

	"github.com/mattn/go-sqlite3"

	"cityfix/models"
)

var (
	// ErrDuplicate is returned when an insert violates a UNIQUE constraint.
	ErrDuplicate = errors.New("repository: unique constraint violated")
	// ErrUnknownReference is returned when an insert violates a FOREIGN KEY constraint.
	ErrUnknownReference = errors.New("repository: referenced row does not exist")
)

// UserStore defines operations on User entities.
type UserStore interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertAdmin(ctx context.Context, name, email, passwordHash string) (*models.User, error)
}

// ReportStore defines operations on Report entities.
type ReportStore interface {
	Create(ctx context.Context, r *models.Report) (*models.Report, error)
	GetByID(ctx context.Context, id int64) (*models.Report, error)
}

var (
	_ UserStore   = (*UserRepository)(nil)
	_ ReportStore = (*ReportRepository)(nil)
)

// translate maps sqlite constraint failures onto the repository sentinels.
func translate(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique:
		return errors.Join(ErrDuplicate, err)
	case sqlite3.ErrConstraintForeignKey:
		return errors.Join(ErrUnknownReference, err)
	}
	return err
}
