package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/im-relay-service/internal/domain/model"
	"github.com/webitel/im-relay-service/internal/service/dto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/webitel/im-relay-service/internal/service"

// RelayMiddleware implements [DECORATOR_PATTERN] to add logging and tracing
// to the relay without touching routing logic.
type RelayMiddleware struct {
	Next   Relayer
	Logger *slog.Logger
	Tracer trace.Tracer
}

// NewRelayMiddleware wraps next with observability. The tracer comes from the
// global provider installed at startup.
func NewRelayMiddleware(next Relayer, logger *slog.Logger) Relayer {
	return &RelayMiddleware{
		Next:   next,
		Logger: logger,
		Tracer: otel.Tracer(tracerName),
	}
}

func (m *RelayMiddleware) Connect(ctx context.Context, meta model.ConnectMetadata) (*Session, error) {
	s, err := m.Next.Connect(ctx, meta)
	if err != nil {
		m.Logger.Error("RELAY_CONNECT_FAILED", "remote_ip", meta.RemoteIP, "err", err)
		return nil, err
	}

	m.Logger.Info("RELAY_CONNECTION_OPENED",
		"conn_id", s.Conn().GetID(),
		"remote_ip", meta.RemoteIP,
	)
	return s, nil
}

// Dispatch wraps event routing with a span, execution timing and outcome logging.
func (m *RelayMiddleware) Dispatch(ctx context.Context, s *Session, env *dto.Envelope) error {
	ctx, span := m.Tracer.Start(ctx, "relay."+env.Event,
		trace.WithAttributes(
			attribute.String("relay.event", env.Event),
			attribute.String("relay.conn_id", s.Conn().GetID().String()),
		),
	)
	defer span.End()

	start := time.Now()
	err := m.Next.Dispatch(ctx, s, env)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.Logger.Warn("RELAY_EVENT_REJECTED",
			"event", env.Event,
			"conn_id", s.Conn().GetID(),
			"user_id", s.UserID(),
			"err", err,
			"duration_ms", duration.Milliseconds(),
		)
		return err
	}

	m.Logger.Debug("RELAY_EVENT_HANDLED",
		"event", env.Event,
		"conn_id", s.Conn().GetID(),
		"user_id", s.UserID(),
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

func (m *RelayMiddleware) Disconnect(s *Session) {
	userID := s.UserID()
	m.Next.Disconnect(s)

	m.Logger.Info("RELAY_CONNECTION_CLOSED",
		"conn_id", s.Conn().GetID(),
		"user_id", userID,
		"dropped", s.Conn().Dropped(),
	)
}
