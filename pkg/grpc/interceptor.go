package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/metrics"
)

func clientID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(MetadataClientID); len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

func (s *DocstoreServer) CreateRateLimitInterceptor(targetMethods []string) grpc.UnaryServerInterceptor {
	targetMethodMap := common.Reducer(targetMethods,
		func(m map[string]bool, method string) map[string]bool {
			m[method] = true
			return m
		},
		map[string]bool{},
	)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if targetMethodMap[info.FullMethod] && !s.CheckClientLimiter(clientID(ctx)) {
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func observe(method string, start time.Time, err error) {
	code := status.Code(err)
	metrics.DocstoreRequestsTotal.WithLabelValues(method, code.String()).Inc()

	logger := common.GetLoggerWith(common.LoggerNameGrpcServer)
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("code", code.String()),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil && code != codes.NotFound && code != codes.InvalidArgument {
		logger.Warn("Request failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Info("Request served", fields...)
}

func LoggingUnaryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	observe(info.FullMethod, start, err)
	return resp, err
}

func LoggingStreamInterceptor(
	srv any,
	ss grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	start := time.Now()
	err := handler(srv, ss)
	observe(info.FullMethod, start, err)
	return err
}

// NewServer builds a grpc.Server with the docstore service and its
// interceptors registered.
func NewServer(s *DocstoreServer) *grpc.Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			LoggingUnaryInterceptor,
			s.CreateRateLimitInterceptor([]string{MethodAdd, MethodSet}),
		),
		grpc.ChainStreamInterceptor(LoggingStreamInterceptor),
	)
	RegisterDocumentStoreServer(server, s)
	return server
}
