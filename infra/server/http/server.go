package httpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/internal/handler/ws"
	"go.uber.org/fx"
)

// Server is the public HTTP listener carrying /ws, /health, /stats and /metrics.
type Server struct {
	*http.Server
	logger *slog.Logger
}

func NewServer(cfg *config.Config, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listener synchronously so a busy port fails app start.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("http server: listen %s: %w", s.Addr, err)
	}

	s.logger.Info("HTTP_SERVER_STARTED", "addr", ln.Addr().String())
	go func() {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP_SERVER_FAILED", "err", err)
		}
	}()
	return nil
}

var Module = fx.Module("http-server",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *Server, wsh *ws.WSHandler) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				return s.Start()
			},
			OnStop: func(ctx context.Context) error {
				// Hijacked WebSocket connections are not tracked by http.Server.
				wsh.Shutdown()

				ctx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
				defer cancel()
				return s.Shutdown(ctx)
			},
		})
	}),
)
