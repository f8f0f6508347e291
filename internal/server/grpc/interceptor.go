package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// loggingInterceptor logs the method, status code and latency of every unary call.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(start)}
	if err != nil {
		s.logger.Warn(ctx, "grpc call failed", append(args, "error", err)...)
		return resp, err
	}
	s.logger.Debug(ctx, "grpc call", args...)
	return resp, nil
}
