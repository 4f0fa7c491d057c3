// Package grpc serves the gRPC side of boostauth: the standard health
// service, whose status follows the account store, and the Session service
// for bearer-authenticated callers.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/boostauth/internal/logging"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
)

const defaultHealthInterval = 5 * time.Second

// AuthService is what the gRPC layer needs from services.AuthService.
type AuthService interface {
	Authenticate(token string) (string, error)
	CurrentAccount(ctx context.Context, token string) (*models.Account, error)
	Ping(ctx context.Context) error
}

type GRPCServer struct {
	address        string
	logger         logging.Logger
	auth           AuthService
	health         *health.Server
	healthInterval time.Duration
}

func NewGRPCServer(a string, l logging.Logger, auth AuthService) *GRPCServer {
	return &GRPCServer{
		address:        a,
		logger:         l.With("module", "grpc_server"),
		auth:           auth,
		health:         health.NewServer(),
		healthInterval: defaultHealthInterval,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	healthpb.RegisterHealthServer(srv, s.health)
	srv.RegisterService(&sessionServiceDesc, &sessionServer{auth: s.auth})

	s.updateHealth(ctx)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.watchHealth(ctx)
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}

// watchHealth re-probes the store until ctx is done.
func (s *GRPCServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.updateHealth(ctx)
		}
	}
}

func (s *GRPCServer) updateHealth(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.auth.Ping(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn(ctx, "store ping failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(sessionServiceName, st)
}
