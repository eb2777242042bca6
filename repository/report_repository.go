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

const reportColumns = `id, user_id, category, photo, location, latitude, longitude, description, status, assigned_worker_id, admin_notes, created_at, updated_at`

// ReportRepository persists Report entities.
type ReportRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db, now: time.Now}
}

// Create inserts a new report and reads it back. Status defaults to 'submitted'
// and created_at/updated_at are set to the same instant. An owner that does not
// exist yields ErrUnknownReference.
func (r *ReportRepository) Create(ctx context.Context, rep *models.Report) (*models.Report, error) {
	if rep == nil {
		return nil, errors.New("report is nil")
	}
	if rep.Status == "" {
		rep.Status = models.ReportStatusSubmitted
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, `
INSERT INTO reports (user_id, category, photo, location, latitude, longitude, description, status, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rep.UserID, rep.Category, rep.Photo, rep.Location, rep.Latitude, rep.Longitude, rep.Description, string(rep.Status), now, now)
	if err != nil {
		return nil, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("created report not found: id=%d", id)
	}
	return out, nil
}

// GetByID fetches a report by its ID, returning nil, nil when absent.
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rep models.Report
	if err := r.db.GetContext(ctx, &rep, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rep, nil
}
