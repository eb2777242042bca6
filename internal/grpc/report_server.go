package grpcserver

import (
	"context"
	"log/slog"

	"google.golang.org/protobuf/types/known/structpb"

	"cityfix/internal/auth"
	"cityfix/internal/perrors"
	"cityfix/internal/service"
)

// ReportServer implements cityfix.v1.ReportService.
type ReportServer struct {
	Reports *service.Reports
	Logger  *slog.Logger
}

var _ ReportService = (*ReportServer)(nil)

// Submit creates a report for the authenticated caller and returns {reportId}.
func (s *ReportServer) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	in, err := submitInputFromStruct(req)
	if err != nil {
		return nil, err
	}
	reportID, err := s.Reports.Submit(ctx, id, in)
	if err != nil {
		perrors.Log(ctx, s.Logger, "submit report", err)
		return nil, perrors.As(err)
	}
	out, err := structpb.NewStruct(map[string]any{"reportId": reportID})
	if err != nil {
		return nil, perrors.Internal(err)
	}
	return out, nil
}

func submitInputFromStruct(req *structpb.Struct) (service.SubmitInput, error) {
	var (
		in  service.SubmitInput
		err error
	)
	if in.Category, err = stringField(req, "category"); err != nil {
		return in, err
	}
	if in.Location, err = optString(req, "location"); err != nil {
		return in, err
	}
	if in.Description, err = optString(req, "description"); err != nil {
		return in, err
	}
	if in.Latitude, err = optFloat(req, "latitude"); err != nil {
		return in, err
	}
	if in.Longitude, err = optFloat(req, "longitude"); err != nil {
		return in, err
	}
	in.Photo, err = photoField(req)
	return in, err
}
