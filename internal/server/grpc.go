package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// NewGRPCServer builds a server carrying the extraction service and the standard health
// service, already marked SERVING.
func NewGRPCServer(svc ExtractionServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	gs := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	RegisterExtractionServer(gs, svc)
	return gs, hs
}

// loggingInterceptor tags each call with a request id and logs its outcome.
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		reqID := uuid.NewString()
		ctx = common.WithRequestID(ctx, reqID)
		start := time.Now()

		resp, err := handler(ctx, req)

		attrs := []any{"method", info.FullMethod, "request_id", reqID, "elapsed", time.Since(start)}
		if err != nil {
			logger.Warn("rpc failed", append(attrs, "code", status.Code(err).String(), "error", err)...)
		} else {
			logger.Debug("rpc ok", attrs...)
		}
		return resp, err
	}
}
