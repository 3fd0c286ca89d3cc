package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/config"
	sosGrpc "liyu1981.xyz/sos-safety-service/pkg/grpc"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration, copy .env.example to .env first if in development: %v", err)
	}

	logger := common.GetLoggerWith(common.LoggerNameDocstore)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store remote.Store
	switch cfg.DocstoreBackend {
	case "redis":
		redisStore, err := remote.NewRedisStore(ctx, remote.RedisOptions{Addr: cfg.RedisAddr}, nil)
		if err != nil {
			log.Fatalf("failed to open redis store: %v", err)
		}
		defer redisStore.Close()
		store = redisStore
	case "memory":
		store = remote.NewMemoryStore(nil)
	}

	server := sosGrpc.NewServer(&sosGrpc.DocstoreServer{
		Store:            store,
		RateLimiterStore: safety.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
	})
	logger.Info("gRPC server created with:",
		zap.String("backend", cfg.DocstoreBackend),
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)))

	listener, err := net.Listen("tcp", cfg.GRPCHostPort)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Stopping gRPC server")
		server.GracefulStop()
	}()

	logger.Info("start gRPC server on " + cfg.GRPCHostPort)
	if err := server.Serve(listener); err != nil {
		log.Fatalf("grpc server failed to serve: %v", err)
	}
}
