package grpcserver

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"cityfix/internal/auth"
	"cityfix/internal/blob"
	"cityfix/internal/config"
	"cityfix/internal/service"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// Deps is what the gRPC services need from the rest of the process.
type Deps struct {
	Users   *service.Users
	Reports *service.Reports
	Gate    *auth.Gate
	Logger  *slog.Logger
	// MaxPhotoBytes is the decoded photo limit enforced by the blob store.
	// Zero means blob.DefaultMaxBytes.
	MaxPhotoBytes int64
}

// messageOverhead is room for the non-photo fields of a Submit request.
const messageOverhead = 1 << 20

// maxRecvMsgSize fits a base64 photo of maxPhoto bytes plus the rest of the request.
func maxRecvMsgSize(maxPhoto int64) int {
	if maxPhoto <= 0 {
		maxPhoto = blob.DefaultMaxBytes
	}
	return base64.StdEncoding.EncodedLen(int(maxPhoto)) + messageOverhead
}

// NewServer builds a gRPC server with AuthService, ReportService and the
// standard health service registered. Register and Login are the only
// methods reachable without a bearer token.
func NewServer(d Deps) *grpc.Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxRecvMsgSize(d.MaxPhotoBytes)),
		grpc.ChainUnaryInterceptor(
			accessLog(d.Logger),
			auth.NewUnaryAuthInterceptor(d.Gate, healthCheckMethod, registerMethod, loginMethod),
		),
	)

	srv.RegisterService(&authServiceDesc, &AuthServer{Users: d.Users, Logger: d.Logger})
	srv.RegisterService(&reportServiceDesc, &ReportServer{Reports: d.Reports, Logger: d.Logger})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC starts the gRPC server on the configured address and returns a shutdown function.
func StartGRPC(cfg *config.Config, d Deps) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := NewServer(d)
	go func() { _ = srv.Serve(lis) }()
	d.Logger.Info("grpc server listening", slog.String("addr", lis.Addr().String()))

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}

func accessLog(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.DebugContext(ctx, "grpc call",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("elapsed", time.Since(start)))
		return resp, err
	}
}
