package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/petstriker/matchsim/internal/config"
	"github.com/petstriker/matchsim/internal/logging"
	"github.com/petstriker/matchsim/internal/server"
	"github.com/petstriker/matchsim/internal/session"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting matchsim server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize session manager
	sessions := session.NewManager(cfg, logger)
	logger.Info("session manager initialized",
		zap.Duration("tick_interval", cfg.Engine.TickInterval),
		zap.Int("max_live_matches", cfg.Session.MaxLiveMatches),
		zap.Int("max_replays", cfg.Session.MaxReplays),
	)

	grpcServer := grpc.NewServer(
		server.UnaryInterceptors(logger),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)
	server.RegisterMatchServiceServer(grpcServer, server.NewMatchServer(cfg, sessions, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	// Start gRPC server
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	// Start HTTP server for snapshots and websocket streams
	httpServer := &http.Server{
		Addr:        cfg.Server.HTTP.Address,
		Handler:     server.NewRouter(sessions, logger),
		ReadTimeout: cfg.Server.HTTP.ReadTimeout,
	}
	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if httpErr := httpServer.ListenAndServe(); httpErr != nil && !errors.Is(httpErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(httpErr))
		}
	}()

	logger.Info("matchsim server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("http_address", cfg.Server.HTTP.Address),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	logger.Info("shutting down gracefully...")

	// Close all sessions so open streams end before the listeners stop
	sessions.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}

	grpcServer.GracefulStop()

	logger.Info("matchsim server stopped")
}
