// Package grpc exposes public verification over gRPC together with the
// standard health service.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/mitrasign/internal/logging"
	"github.com/dmitrijs2005/mitrasign/internal/server/metrics"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
)

// Resolver resolves a canonical verification id.
type Resolver interface {
	Resolve(ctx context.Context, rawID string) (*models.Verification, error)
}

type GRPCServer struct {
	address  string
	resolver Resolver
	metrics  *metrics.Metrics
	logger   logging.Logger
	timeout  time.Duration
}

func NewGRPCServer(a string, l logging.Logger, r Resolver, m *metrics.Metrics, timeout time.Duration) *GRPCServer {
	if m == nil {
		m = metrics.New()
	}
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		resolver: r,
		metrics:  m,
		timeout:  timeout,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.loggingInterceptor,
		timeoutInterceptor(s.timeout),
	))

	srv.RegisterService(&verificationServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(verificationServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
