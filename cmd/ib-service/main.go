package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/app/background"
	"github.com/LavaJover/shvark-ib-service/internal/app/setup"
	"github.com/LavaJover/shvark-ib-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-ib-service/internal/delivery/http/handlers"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	deps, err := setup.InitializeDependencies()
	if err != nil {
		log.Fatalf("failed to init dependencies: %v", err)
	}
	defer deps.Close()
	cfg := deps.Config
	logger := deps.Logger

	uc := setup.InitializeUseCases(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background sync, cache janitor and partner event consumer
	tasks := background.NewBackgroundTasks(uc.Orchestrator, uc.CommissionCache, deps.Subscriber, background.Config{
		Schedule:       cfg.Sync.Schedule,
		InitialDelay:   cfg.Sync.InitialDelay,
		Window:         cfg.Sync.Window,
		BackfillWindow: cfg.Sync.BackfillWindow,
		JanitorEvery:   cfg.Commission.CacheTTL,
		GroupID:        cfg.Kafka.GroupID,
	}, logger)
	stopTasks, err := tasks.StartAll(ctx)
	if err != nil {
		log.Fatalf("failed to start background tasks: %v", err)
	}

	// Creating gRPC server
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpcapi.RegisterCommissionServiceServer(grpcServer, grpcapi.NewCommissionHandler(
		uc.CommissionUsecase,
		uc.Orchestrator,
		cfg.Commission.MaxAge,
		cfg.Sync.BackfillWindow,
	))
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcapi.CommissionServiceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%s", cfg.GRPCServer.Host, cfg.GRPCServer.Port))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	go func() {
		logger.Info("gRPC server started", slog.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	// Admin HTTP API
	httpHandler := handlers.NewCommissionHandler(ctx, uc.CommissionUsecase, uc.Orchestrator, handlers.CommissionHandlerConfig{
		MaxAge:        cfg.Commission.MaxAge,
		DefaultWindow: cfg.Sync.BackfillWindow,
	}, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler:           handlers.NewRouter(httpHandler, deps.Registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server started", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", slog.String("error", err.Error()))
	}
	grpcServer.GracefulStop()
	stopTasks()
	httpHandler.Wait()
	logger.Info("shutdown complete")
}
