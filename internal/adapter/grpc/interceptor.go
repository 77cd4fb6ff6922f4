package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/wealthflow-analytics/internal/common"
)

// CallInterceptor returns a gRPC unary server interceptor that logs every call
// with its duration and status code. Errors the handler did not map itself are
// converted to status errors, and panics are recovered into codes.Internal.
func CallInterceptor(logger *common.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("method", info.FullMethod).
					Str("panic", fmt.Sprint(r)).
					Msg("Recovered from panic in handler")
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}

			err = mapError(err)
			code := status.Code(err)

			event := logger.Info()
			if code == codes.Internal || code == codes.Unknown {
				event = logger.Error()
			} else if code != codes.OK {
				event = logger.Warn()
			}
			event.
				Str("method", info.FullMethod).
				Str("code", code.String()).
				Dur("duration", time.Since(start)).
				Msg("gRPC call")
		}()

		return handler(ctx, req)
	}
}
