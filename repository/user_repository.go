package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"cityfix/models"
)

const userColumns = `id, name, email, password, role, location, latitude, longitude, created_at`

type UserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// Create inserts a new user. Role defaults to citizen. A taken email yields ErrDuplicate;
// the UNIQUE constraint makes this atomic under concurrent inserts.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	if u.Role == "" {
		u.Role = models.RoleCitizen
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	createdAt := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password, role, location, latitude, longitude, created_at) VALUES (?,?,?,?,?,?,?,?)`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), u.Location, u.Latitude, u.Longitude, createdAt)
	if err != nil {
		return nil, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *u
	out.ID = id
	out.CreatedAt = createdAt
	return &out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByEmail looks a user up by exact (case-sensitive) email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// UpsertAdmin inserts an admin account or, when the email exists, overwrites
// its password digest and forces the admin role. Safe to run repeatedly.
func (r *UserRepository) UpsertAdmin(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (name, email, password, role, created_at) VALUES (?, ?, ?, 'admin', ?)
ON CONFLICT(email) DO UPDATE SET password = excluded.password, role = 'admin'`,
		name, email, passwordHash, r.now().UTC())
	if err != nil {
		return nil, translate(err)
	}
	u, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("upserted admin not found: %s", email)
	}
	return u, nil
}

// getOne returns nil, nil when no row matches.
func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u models.User
	if err := r.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
