package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"cityfix/internal/auth"
	"cityfix/internal/blob"
	"cityfix/internal/geo"
	"cityfix/internal/perrors"
	"cityfix/models"
	"cityfix/repository"
)

// SubmitInput is a new report. Everything except Category is optional.
type SubmitInput struct {
	Category    string       `validate:"required"`
	Location    *string      `validate:"-"`
	Latitude    *float64     `validate:"-"`
	Longitude   *float64     `validate:"-"`
	Description *string      `validate:"-"`
	Photo       *blob.Upload `validate:"-"`
}

// Reports is the report registry. Only creation is exposed.
type Reports struct {
	reports repository.ReportStore
	users   repository.UserStore
	blobs   blob.Store // nil disables photo uploads
	log     *slog.Logger
}

func NewReports(reports repository.ReportStore, users repository.UserStore, blobs blob.Store, logger *slog.Logger) *Reports {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reports{reports: reports, users: users, blobs: blobs, log: logger}
}

// Submit stores a report owned by owner with status submitted and returns its id.
// A photo, if any, is stored first and removed again if the insert fails.
func (s *Reports) Submit(ctx context.Context, owner *auth.Identity, in SubmitInput) (int64, error) {
	if owner == nil {
		return 0, perrors.ErrMissingToken
	}
	in.Category = strings.TrimSpace(in.Category)
	if err := validateInput(in); err != nil {
		return 0, err
	}
	category := in.Category
	if err := geo.Validate(in.Latitude, in.Longitude); err != nil {
		return 0, perrors.New(perrors.KindValidation, err.Error(), nil)
	}

	u, err := s.users.GetByID(ctx, owner.ID)
	if err != nil {
		return 0, perrors.Storage(err)
	}
	if u == nil {
		return 0, perrors.New(perrors.KindForbidden, "account no longer exists", nil)
	}

	var photo *string
	if in.Photo != nil {
		name, err := s.storePhoto(ctx, *in.Photo)
		if err != nil {
			return 0, err
		}
		photo = &name
	}

	rep, err := s.reports.Create(ctx, &models.Report{
		UserID:      u.ID,
		Category:    category,
		Photo:       photo,
		Location:    trimmed(in.Location),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: trimmed(in.Description),
		Status:      models.ReportStatusSubmitted,
	})
	if err != nil {
		if photo != nil {
			if derr := s.blobs.Delete(context.WithoutCancel(ctx), *photo); derr != nil {
				s.log.WarnContext(ctx, "orphaned photo", slog.String("photo", *photo), slog.Any("error", derr))
			}
		}
		if errors.Is(err, repository.ErrUnknownReference) {
			return 0, perrors.New(perrors.KindForbidden, "account no longer exists", err)
		}
		return 0, perrors.Storage(err)
	}

	s.log.InfoContext(ctx, "report submitted",
		slog.Int64("report_id", rep.ID),
		slog.Int64("user_id", rep.UserID),
		slog.String("category", rep.Category),
		slog.Bool("photo", photo != nil))
	return rep.ID, nil
}

func (s *Reports) storePhoto(ctx context.Context, u blob.Upload) (string, error) {
	if s.blobs == nil {
		return "", perrors.Validation("photo uploads are not enabled")
	}
	name, err := s.blobs.Put(ctx, u)
	switch {
	case err == nil:
		return name, nil
	case errors.Is(err, blob.ErrNotImage), errors.Is(err, blob.ErrTooLarge):
		return "", perrors.New(perrors.KindValidation, err.Error(), err)
	default:
		return "", perrors.Storage(err)
	}
}

// trimmed maps blank optional text to nil.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
