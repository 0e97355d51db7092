package grpcsrv

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/infra/server/grpc/interceptors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server carries the grpc.health.v1 service used by orchestrators.
type Server struct {
	*grpc.Server
	Health *health.Server

	addr   string
	logger *slog.Logger
}

func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors.Unary(logger)...),
		grpc.ChainStreamInterceptor(interceptors.Stream(logger)...),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	return &Server{
		Server: s,
		Health: hs,
		addr:   cfg.GRPC.Addr,
		logger: logger,
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc server: listen %s: %w", s.addr, err)
	}
	return s.StartOn(ln)
}

// StartOn serves on an existing listener and reports SERVING.
func (s *Server) StartOn(ln net.Listener) error {
	s.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("GRPC_SERVER_STARTED", "addr", ln.Addr().String())
	go func() {
		if err := s.Serve(ln); err != nil {
			s.logger.Error("GRPC_SERVER_FAILED", "err", err)
		}
	}()
	return nil
}

// Stop flips health to NOT_SERVING and drains in-flight calls until ctx expires.
func (s *Server) Stop(ctx context.Context) {
	s.Health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.Server.Stop()
	}
}

var Module = fx.Module("grpc-server",
	fx.Provide(func(cfg *config.Config, logger *slog.Logger) *Server {
		return NewServer(cfg, logger.With("component", "grpc"))
	}),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return s.Start() },
			OnStop: func(ctx context.Context) error {
				s.Stop(ctx)
				return nil
			},
		})
	}),
)
