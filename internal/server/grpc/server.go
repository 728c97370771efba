// Package grpc runs the gRPC endpoint of the server. It serves the standard
// grpc.health.v1 service so orchestrators can probe readiness.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/socialgraph/internal/logging"
	"github.com/dmitrijs2005/socialgraph/internal/server/metrics"
)

// ServiceName is the health-check name of the follow API. The empty name
// reports overall server health.
const ServiceName = "socialgraph.Follows"

type GRPCServer struct {
	address string
	logger  logging.Logger
	metrics *metrics.Metrics
	health  *health.Server
}

// NewGRPCServer creates the server. m may be nil.
func NewGRPCServer(a string, l logging.Logger, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		metrics: m,
		health:  health.NewServer(),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	interceptors := []grpc.UnaryServerInterceptor{s.loggingInterceptor}
	if s.metrics != nil {
		interceptors = append(interceptors, s.metrics.UnaryServerInterceptor())
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	healthpb.RegisterHealthServer(srv, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		// flips every service to NOT_SERVING before draining
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	// pending RPCs are finished once GracefulStop returns
	<-stopped
	return nil
}

// SetServing changes the reported status of the follow API, e.g. when the
// database becomes unreachable.
func (s *GRPCServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}
