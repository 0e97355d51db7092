package interceptors

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SlogLogger adapts slog to the go-grpc-middleware logging contract.
func SlogLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

// recoveryHandler turns a handler panic into codes.Internal and logs the stack.
func recoveryHandler(l *slog.Logger) recovery.RecoveryHandlerFuncContext {
	return func(ctx context.Context, p any) error {
		l.ErrorContext(ctx, "GRPC_PANIC_RECOVERED",
			"err", p,
			"stack", string(debug.Stack()),
		)
		return status.Errorf(codes.Internal, "internal error")
	}
}

// Unary returns the unary chain: logging first so recovered panics are logged as failures.
func Unary(l *slog.Logger) []grpc.UnaryServerInterceptor {
	opts := []logging.Option{logging.WithLogOnEvents(logging.FinishCall)}
	return []grpc.UnaryServerInterceptor{
		logging.UnaryServerInterceptor(SlogLogger(l), opts...),
		recovery.UnaryServerInterceptor(recovery.WithRecoveryHandlerContext(recoveryHandler(l))),
	}
}

// Stream mirrors Unary for streaming RPCs such as health Watch.
func Stream(l *slog.Logger) []grpc.StreamServerInterceptor {
	opts := []logging.Option{logging.WithLogOnEvents(logging.StartCall, logging.FinishCall)}
	return []grpc.StreamServerInterceptor{
		logging.StreamServerInterceptor(SlogLogger(l), opts...),
		recovery.StreamServerInterceptor(recovery.WithRecoveryHandlerContext(recoveryHandler(l))),
	}
}
